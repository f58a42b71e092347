package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/service"
	customError "github.com/locamoto/rental-billing/pkg/errors"
	"github.com/locamoto/rental-billing/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type BillingHandler struct {
	resolver   *service.HistoryResolver
	calculator *service.DueCalculator
	dedup      *service.DedupCoordinator
	acquirer   *service.TokenAcquirer
	clock      domain.Clock
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewBillingHandler(
	resolver *service.HistoryResolver,
	calculator *service.DueCalculator,
	dedup *service.DedupCoordinator,
	acquirer *service.TokenAcquirer,
	clock domain.Clock,
	logger *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		resolver:   resolver,
		calculator: calculator,
		dedup:      dedup,
		acquirer:   acquirer,
		clock:      clock,
		validator:  validator.New(),
		logger:     logger,
	}
}

// GetDueInfo resolves the next due date for a customer's contract.
func (h *BillingHandler) GetDueInfo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	customerID := vars["customerId"]
	contractID := vars["contractId"]

	billing, err := h.resolver.Resolve(r.Context(), customerID, contractID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	due := h.calculator.ComputeDueInfo(
		billing.AnchorDate,
		billing.Contract.RecurrenceType,
		billing.HasPriorPayment,
		billing.Terms,
		h.clock.Now(),
	)

	response.Success(w, due)
}

type registerTokenRequest struct {
	Platform             string `json:"platform" validate:"required"`
	SupportsNativeTokens bool   `json:"supports_native_tokens"`
	DeviceToken          string `json:"device_token"`
	ProjectID            string `json:"project_id"`
	LegacyExperienceID   string `json:"legacy_experience_id"`
}

type registerTokenResponse struct {
	Acquired   bool                 `json:"acquired"`
	Identity   *domain.PushIdentity `json:"identity,omitempty"`
	AcquiredAt time.Time            `json:"acquired_at,omitempty"`
}

// RegisterPushToken runs the token acquisition chain for the customer's
// device. All strategies failing is a successful response with
// acquired=false; the client continues without push.
func (h *BillingHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	identity, err := h.acquirer.AcquireToken(r.Context(), customerID, domain.PlatformCapabilities{
		Platform:             req.Platform,
		SupportsNativeTokens: req.SupportsNativeTokens,
		DeviceToken:          req.DeviceToken,
		ProjectID:            req.ProjectID,
		LegacyExperienceID:   req.LegacyExperienceID,
	})
	if err != nil {
		h.logger.Error("push token persistence failed", zap.String("customer_id", customerID), zap.Error(err))
		response.InternalServerError(w, "failed to persist push token", err)
		return
	}

	resp := registerTokenResponse{Acquired: identity != nil, Identity: identity}
	if identity != nil {
		resp.AcquiredAt = identity.AcquiredAt
	}
	response.Success(w, resp)
}

// ClearNotifications wipes the customer's dedup state. Debug/test only.
func (h *BillingHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]

	if err := h.dedup.Clear(r.Context(), customerID); err != nil {
		response.InternalServerError(w, "failed to clear notification state", err)
		return
	}

	response.Success(w, map[string]string{"customer_id": customerID, "status": "cleared"})
}

func (h *BillingHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customError.ErrContractNotFound),
		errors.Is(err, customError.ErrRentalNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, customError.ErrContractInactive):
		response.Error(w, http.StatusConflict, "contract is not active", err)
	default:
		h.logger.Error("due info resolution failed", zap.Error(err))
		response.InternalServerError(w, "failed to resolve due info", err)
	}
}
