package handler

import (
	"encoding/json"
	"net/http"

	"github.com/locamoto/rental-billing/internal/service"
	"github.com/locamoto/rental-billing/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// SessionHandler drives the per-customer polling lifecycle: a session
// starts when the financial screen activates and ends at teardown or
// sign-out. The change hooks mirror the document store's live-update feed.
type SessionHandler struct {
	sessions  *service.SessionManager
	validator *validator.Validate
}

func NewSessionHandler(sessions *service.SessionManager) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: validator.New(),
	}
}

type startSessionRequest struct {
	ContractID string `json:"contract_id" validate:"required"`
}

// Start begins the sweep schedulers for a customer session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	h.sessions.StartSession(customerID, req.ContractID)
	response.Created(w, map[string]string{"customer_id": customerID, "status": "started"})
}

// End stops the sweep schedulers for a customer session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]
	h.sessions.EndSession(customerID)
	response.Success(w, map[string]string{"customer_id": customerID, "status": "ended"})
}

// PaymentsChanged triggers an immediate pending-payment sweep.
func (h *SessionHandler) PaymentsChanged(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]
	if !h.sessions.NotifyPaymentsChanged(customerID) {
		response.NotFound(w, "no active session for customer")
		return
	}
	response.Success(w, map[string]string{"customer_id": customerID, "status": "kicked"})
}

// DueInfoChanged triggers an immediate due-reminder sweep.
func (h *SessionHandler) DueInfoChanged(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]
	if !h.sessions.NotifyDueInfoChanged(customerID) {
		response.NotFound(w, "no active session for customer")
		return
	}
	response.Success(w, map[string]string{"customer_id": customerID, "status": "kicked"})
}
