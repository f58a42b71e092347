package service

import (
	"testing"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/tests/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestSessionManager(payments *mocks.MockPaymentRepository, contracts *mocks.MockContractRepository) *SessionManager {
	logger := zap.NewNop()
	rentals := &mocks.MockRentalRepository{}
	events := &mocks.MockNotificationRepository{}
	users := &mocks.MockUserRepository{}
	dispatches := &mocks.MockDispatchRepository{}
	kv := &mocks.MockKVStore{}
	clock := &mocks.FakeClock{Time: time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)}

	resolver := NewHistoryResolver(contracts, rentals, payments, logger)
	calculator := NewDueCalculator(decimal.NewFromInt(250), decimal.NewFromInt(1000))
	dedup := NewDedupCoordinator(payments, events, kv, clock, 5*time.Minute, logger)
	notifier := NewNotifier(dispatches, users, clock, logger)

	return NewSessionManager(
		resolver, calculator, dedup, payments, notifier, clock,
		SweepConfig{
			PendingInterval:     10 * time.Minute,
			ReminderInterval:    5 * time.Hour,
			PendingAgeThreshold: time.Minute,
		},
		logger,
	)
}

func TestSessionManager(t *testing.T) {
	payments := &mocks.MockPaymentRepository{}
	contracts := &mocks.MockContractRepository{}

	// Keep the initial sweeps quiet.
	payments.On("ListPendingByMethod", mock.Anything, mock.Anything, domain.PaymentMethodPix).
		Return([]*domain.Payment{}, nil)
	contracts.On("GetByID", mock.Anything, mock.Anything).
		Return(&domain.Contract{ID: "CTR-1", Active: false}, nil)

	manager := newTestSessionManager(payments, contracts)

	assert.False(t, manager.NotifyPaymentsChanged("CUST-1"))
	assert.False(t, manager.NotifyDueInfoChanged("CUST-1"))

	manager.StartSession("CUST-1", "CTR-1")
	assert.True(t, manager.NotifyPaymentsChanged("CUST-1"))
	assert.True(t, manager.NotifyDueInfoChanged("CUST-1"))

	// Re-activation replaces the previous scheduler without leaking it.
	manager.StartSession("CUST-1", "CTR-1")
	assert.True(t, manager.NotifyPaymentsChanged("CUST-1"))

	manager.EndSession("CUST-1")
	assert.False(t, manager.NotifyPaymentsChanged("CUST-1"))

	// Ending twice or ending an unknown customer is harmless.
	manager.EndSession("CUST-1")
	manager.EndSession("CUST-2")

	manager.StartSession("CUST-1", "CTR-1")
	manager.StartSession("CUST-2", "CTR-2")
	manager.Shutdown()
	assert.False(t, manager.NotifyPaymentsChanged("CUST-1"))
	assert.False(t, manager.NotifyPaymentsChanged("CUST-2"))
}
