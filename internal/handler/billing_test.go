package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/service"
	"github.com/locamoto/rental-billing/tests/mocks"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type handlerFixture struct {
	contracts  *mocks.MockContractRepository
	rentals    *mocks.MockRentalRepository
	payments   *mocks.MockPaymentRepository
	events     *mocks.MockNotificationRepository
	users      *mocks.MockUserRepository
	kv         *mocks.MockKVStore
	clock      *mocks.FakeClock
	strategies []service.TokenStrategy

	router *mux.Router
}

func newHandlerFixture(now time.Time, strategies []service.TokenStrategy) *handlerFixture {
	f := &handlerFixture{
		contracts:  &mocks.MockContractRepository{},
		rentals:    &mocks.MockRentalRepository{},
		payments:   &mocks.MockPaymentRepository{},
		events:     &mocks.MockNotificationRepository{},
		users:      &mocks.MockUserRepository{},
		kv:         &mocks.MockKVStore{},
		clock:      &mocks.FakeClock{Time: now},
		strategies: strategies,
	}

	logger := zap.NewNop()
	resolver := service.NewHistoryResolver(f.contracts, f.rentals, f.payments, logger)
	calculator := service.NewDueCalculator(decimal.NewFromInt(250), decimal.NewFromInt(1000))
	dedup := service.NewDedupCoordinator(f.payments, f.events, f.kv, f.clock, 5*time.Minute, logger)
	acquirer := service.NewTokenAcquirer(strategies, f.users, logger)

	h := NewBillingHandler(resolver, calculator, dedup, acquirer, f.clock, logger)

	f.router = mux.NewRouter()
	f.router.HandleFunc("/api/v1/customers/{customerId}/contracts/{contractId}/due-info", h.GetDueInfo).Methods("GET")
	f.router.HandleFunc("/api/v1/customers/{customerId}/push-token", h.RegisterPushToken).Methods("POST")
	f.router.HandleFunc("/api/v1/customers/{customerId}/notifications/clear", h.ClearNotifications).Methods("POST")
	return f
}

func TestBillingHandler_GetDueInfo(t *testing.T) {
	now := time.Date(2023, time.March, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		setupMocks     func(*handlerFixture)
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "weekly due info from prior payment",
			setupMocks: func(f *handlerFixture) {
				f.contracts.On("GetByID", mock.Anything, "CTR-1").Return(&domain.Contract{
					ID:             "CTR-1",
					CustomerID:     "CUST-1",
					RentalID:       "RENT-1",
					StartDate:      time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
					RecurrenceType: domain.RecurrenceWeekly,
					Active:         true,
				}, nil)
				f.rentals.On("GetByID", mock.Anything, "RENT-1").Return(&domain.Rental{
					ID:     "RENT-1",
					Active: true,
					Terms: domain.RentalTerms{
						WeeklyAmount:  decimal.NewFromInt(300),
						MonthlyAmount: decimal.NewFromInt(1200),
					},
				}, nil)
				f.payments.On("GetLatestApproved", mock.Anything, "CUST-1").Return(&domain.Payment{
					ID:        "PAY-1",
					CreatedAt: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
					Status:    domain.PaymentStatusApproved,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var envelope struct {
					Success bool           `json:"success"`
					Data    domain.DueInfo `json:"data"`
				}
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
				assert.True(t, envelope.Success)
				assert.Equal(t, time.Date(2023, time.March, 8, 0, 0, 0, 0, time.UTC), envelope.Data.DueDate)
				assert.Equal(t, 3, envelope.Data.DaysRemaining)
				assert.Equal(t, domain.RecurrenceWeekly, envelope.Data.RecurrenceType)
				assert.True(t, envelope.Data.Amount.Equal(decimal.NewFromInt(300)))
			},
		},
		{
			name: "unknown contract",
			setupMocks: func(f *handlerFixture) {
				f.contracts.On("GetByID", mock.Anything, "CTR-1").Return(nil, sql.ErrNoRows)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "inactive contract",
			setupMocks: func(f *handlerFixture) {
				f.contracts.On("GetByID", mock.Anything, "CTR-1").Return(&domain.Contract{
					ID:     "CTR-1",
					Active: false,
				}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "storage failure",
			setupMocks: func(f *handlerFixture) {
				f.contracts.On("GetByID", mock.Anything, "CTR-1").Return(nil, sql.ErrConnDone)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(now, nil)
			tt.setupMocks(f)

			req := httptest.NewRequest("GET", "/api/v1/customers/CUST-1/contracts/CTR-1/due-info", nil)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestBillingHandler_RegisterPushToken(t *testing.T) {
	now := time.Date(2023, time.March, 5, 12, 0, 0, 0, time.UTC)

	identity := &domain.PushIdentity{
		Token:      "tok-1",
		TokenType:  domain.TokenTypeNative,
		Platform:   "ios",
		AcquiredAt: now,
	}
	okStrategy := service.TokenStrategy{
		Name: "native",
		Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
			return identity, nil
		},
	}
	failStrategy := service.TokenStrategy{
		Name: "native",
		Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
			return nil, errors.New("device refused")
		},
	}

	t.Run("token acquired and persisted", func(t *testing.T) {
		f := newHandlerFixture(now, []service.TokenStrategy{okStrategy})
		f.users.On("MergePushIdentity", mock.Anything, "CUST-1", identity).Return(nil)

		body, _ := json.Marshal(map[string]interface{}{
			"platform":               "ios",
			"supports_native_tokens": true,
			"device_token":           "device-1",
		})
		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/push-token", bytes.NewReader(body))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data struct {
				Acquired bool `json:"acquired"`
			} `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.True(t, envelope.Data.Acquired)
		f.users.AssertExpectations(t)
	})

	t.Run("all strategies failing is still a success", func(t *testing.T) {
		f := newHandlerFixture(now, []service.TokenStrategy{failStrategy})

		body, _ := json.Marshal(map[string]interface{}{"platform": "ios"})
		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/push-token", bytes.NewReader(body))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data struct {
				Acquired bool `json:"acquired"`
			} `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.False(t, envelope.Data.Acquired)
		f.users.AssertNotCalled(t, "MergePushIdentity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing platform is rejected", func(t *testing.T) {
		f := newHandlerFixture(now, []service.TokenStrategy{okStrategy})

		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/push-token", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		f := newHandlerFixture(now, []service.TokenStrategy{okStrategy})

		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/push-token", bytes.NewReader([]byte(`{not json`)))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBillingHandler_ClearNotifications(t *testing.T) {
	now := time.Date(2023, time.March, 5, 12, 0, 0, 0, time.UTC)

	t.Run("clears durable and cache state", func(t *testing.T) {
		f := newHandlerFixture(now, nil)
		f.events.On("DeleteByCustomer", mock.Anything, "CUST-1").Return(nil)
		f.kv.On("Remove", mock.Anything, "notify:pending:last_dispatch:CUST-1").Return(nil)

		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/notifications/clear", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		f.events.AssertExpectations(t)
		f.kv.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newHandlerFixture(now, nil)
		f.events.On("DeleteByCustomer", mock.Anything, "CUST-1").Return(sql.ErrConnDone)

		req := httptest.NewRequest("POST", "/api/v1/customers/CUST-1/notifications/clear", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
