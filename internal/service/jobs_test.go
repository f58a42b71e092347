package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/tests/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type jobsFixture struct {
	contracts  *mocks.MockContractRepository
	rentals    *mocks.MockRentalRepository
	payments   *mocks.MockPaymentRepository
	events     *mocks.MockNotificationRepository
	users      *mocks.MockUserRepository
	dispatches *mocks.MockDispatchRepository
	kv         *mocks.MockKVStore
	clock      *mocks.FakeClock

	jobs *FleetJobs
}

func newJobsFixture(now time.Time) *jobsFixture {
	f := &jobsFixture{
		contracts:  &mocks.MockContractRepository{},
		rentals:    &mocks.MockRentalRepository{},
		payments:   &mocks.MockPaymentRepository{},
		events:     &mocks.MockNotificationRepository{},
		users:      &mocks.MockUserRepository{},
		dispatches: &mocks.MockDispatchRepository{},
		kv:         &mocks.MockKVStore{},
		clock:      &mocks.FakeClock{Time: now},
	}

	logger := zap.NewNop()
	resolver := NewHistoryResolver(f.contracts, f.rentals, f.payments, logger)
	calculator := NewDueCalculator(decimal.NewFromInt(250), decimal.NewFromInt(1000))
	dedup := NewDedupCoordinator(f.payments, f.events, f.kv, f.clock, 5*time.Minute, logger)
	notifier := NewNotifier(f.dispatches, f.users, f.clock, logger)

	f.jobs = NewFleetJobs(
		f.contracts, f.events,
		resolver, calculator, dedup, f.payments, notifier, f.clock,
		time.Minute, logger,
	)
	return f
}

func fleetContract(id, customerID string) *domain.Contract {
	return &domain.Contract{
		ID:             id,
		CustomerID:     customerID,
		MotorcycleID:   "MOTO-" + id,
		RentalID:       "RENT-" + id,
		StartDate:      time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		RecurrenceType: domain.RecurrenceMonthly,
		Active:         true,
	}
}

func TestSweepPendingPayments(t *testing.T) {
	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	f := newJobsFixture(now)

	// One customer with a stale pending payment, one with none, one whose
	// payment listing fails. The failure must not stall the other two.
	f.contracts.On("ListActive", mock.Anything).Return([]*domain.Contract{
		fleetContract("CTR-1", "CUST-1"),
		fleetContract("CTR-2", "CUST-2"),
		fleetContract("CTR-3", "CUST-3"),
	}, nil)

	stale := &domain.Payment{
		ID:         "PAY-1",
		CustomerID: "CUST-1",
		Amount:     decimal.NewFromInt(300),
		Status:     domain.PaymentStatusPending,
		Method:     domain.PaymentMethodPix,
		CreatedAt:  now.Add(-10 * time.Minute),
	}
	f.payments.On("ListPendingByMethod", mock.Anything, "CUST-1", domain.PaymentMethodPix).
		Return([]*domain.Payment{stale}, nil)
	f.payments.On("ListPendingByMethod", mock.Anything, "CUST-2", domain.PaymentMethodPix).
		Return([]*domain.Payment{}, nil)
	f.payments.On("ListPendingByMethod", mock.Anything, "CUST-3", domain.PaymentMethodPix).
		Return(nil, errors.New("connection refused"))

	f.payments.On("GetByID", mock.Anything, "PAY-1").Return(stale, nil)
	f.payments.On("MarkNotificationSent", mock.Anything, "PAY-1").Return(true, nil)
	f.kv.On("Get", mock.Anything, mock.Anything).Return("", nil)
	f.kv.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("CreateIfAbsent", mock.Anything, domain.PendingPaymentEvent("CUST-1", "PAY-1")).
		Return(true, nil)
	f.users.On("GetPushIdentity", mock.Anything, "CUST-1").Return(nil, sql.ErrNoRows)
	f.dispatches.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	f.jobs.SweepPendingPayments(context.Background())

	f.dispatches.AssertNumberOfCalls(t, "Enqueue", 1)
	f.payments.AssertNumberOfCalls(t, "MarkNotificationSent", 1)
}

func TestSweepDueReminders(t *testing.T) {
	// Monthly cycle from January 1st with no payments: due April 1st.
	now := time.Date(2023, time.April, 1, 8, 0, 0, 0, time.UTC)
	f := newJobsFixture(now)

	contract := fleetContract("CTR-1", "CUST-1")
	contract.StartDate = time.Date(2023, time.January, 1, 18, 0, 0, 0, time.UTC)
	f.contracts.On("ListActive", mock.Anything).Return([]*domain.Contract{contract}, nil)
	f.contracts.On("GetByID", mock.Anything, "CTR-1").Return(contract, nil)
	f.rentals.On("GetByID", mock.Anything, "RENT-CTR-1").Return(&domain.Rental{
		ID:     "RENT-CTR-1",
		Active: true,
		Terms: domain.RentalTerms{
			WeeklyAmount:  decimal.NewFromInt(300),
			MonthlyAmount: decimal.NewFromInt(1200),
		},
	}, nil)
	f.payments.On("GetLatestApproved", mock.Anything, "CUST-1").Return(nil, sql.ErrNoRows)

	event := domain.DueReminderEvent("CUST-1", now)
	f.events.On("Exists", mock.Anything, event).Return(false, nil)
	f.events.On("CreateIfAbsent", mock.Anything, event).Return(true, nil)
	f.users.On("GetPushIdentity", mock.Anything, "CUST-1").Return(nil, sql.ErrNoRows)
	f.dispatches.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	f.jobs.SweepDueReminders(context.Background())
	f.dispatches.AssertNumberOfCalls(t, "Enqueue", 1)

	// The durable guard holds on the next run.
	f.events.On("Exists", mock.Anything, event).Unset()
	f.events.On("Exists", mock.Anything, event).Return(true, nil)

	f.jobs.SweepDueReminders(context.Background())
	f.dispatches.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestRunMidnightJanitor(t *testing.T) {
	now := time.Date(2023, time.March, 10, 0, 0, 5, 0, time.UTC)
	f := newJobsFixture(now)

	f.events.On("DeleteDueRemindersBefore", mock.Anything, now.AddDate(0, 0, -1)).
		Return(int64(3), nil)

	f.jobs.RunMidnightJanitor(context.Background())
	f.events.AssertExpectations(t)
}
