package service

import (
	"context"
	"fmt"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"
	"github.com/locamoto/rental-billing/pkg/utils"

	"go.uber.org/zap"
)

// FleetJobs runs the pending-payment and due-reminder sweeps across every
// active contract. It is the server-side counterpart of the per-session
// scheduler and shares the same dedup coordinator, so a reminder delivered
// here is suppressed for all of the customer's devices and vice versa.
type FleetJobs struct {
	Contracts repository.ContractRepository
	Events    repository.NotificationRepository

	resolver   *HistoryResolver
	calculator *DueCalculator
	dedup      *DedupCoordinator
	payments   repository.PaymentRepository
	notifier   *Notifier
	clock      domain.Clock

	pendingAgeThreshold time.Duration
	logger              *zap.Logger
}

func NewFleetJobs(
	contracts repository.ContractRepository,
	events repository.NotificationRepository,
	resolver *HistoryResolver,
	calculator *DueCalculator,
	dedup *DedupCoordinator,
	payments repository.PaymentRepository,
	notifier *Notifier,
	clock domain.Clock,
	pendingAgeThreshold time.Duration,
	logger *zap.Logger,
) *FleetJobs {
	return &FleetJobs{
		Contracts:           contracts,
		Events:              events,
		resolver:            resolver,
		calculator:          calculator,
		dedup:               dedup,
		payments:            payments,
		notifier:            notifier,
		clock:               clock,
		pendingAgeThreshold: pendingAgeThreshold,
		logger:              logger,
	}
}

// RunMidnightJanitor prunes due-reminder dedup rows from past days. The
// date-keyed guard already rolls over naturally; pruning just keeps the
// table from growing without bound.
func (j *FleetJobs) RunMidnightJanitor(ctx context.Context) {
	cutoff := j.clock.Now().AddDate(0, 0, -1)
	pruned, err := j.Events.DeleteDueRemindersBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to prune due reminder records", zap.Error(err))
		return
	}

	j.logger.Info("midnight janitor finished", zap.Int64("pruned", pruned))
}

// SweepPendingPayments nudges every customer with a stale pending pix
// payment. Per-contract failures are logged and skipped so one bad record
// cannot stall the fleet.
func (j *FleetJobs) SweepPendingPayments(ctx context.Context) {
	j.logger.Info("starting pending payment sweep")

	contracts, err := j.Contracts.ListActive(ctx)
	if err != nil {
		j.logger.Error("failed to list active contracts", zap.Error(err))
		return
	}

	swept := 0
	for _, contract := range contracts {
		if err := j.sweepPendingFor(ctx, contract.CustomerID); err != nil {
			j.logger.Warn("pending sweep failed for customer",
				zap.String("customer_id", contract.CustomerID),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	j.logger.Info("pending payment sweep finished",
		zap.Int("contracts", len(contracts)),
		zap.Int("swept", swept),
	)
}

func (j *FleetJobs) sweepPendingFor(ctx context.Context, customerID string) error {
	payments, err := j.payments.ListPendingByMethod(ctx, customerID, domain.PaymentMethodPix)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}

	payment := payments[0]
	if j.clock.Now().Sub(payment.CreatedAt) <= j.pendingAgeThreshold {
		return nil
	}

	event := domain.PendingPaymentEvent(customerID, payment.ID)
	ok, err := j.dedup.ShouldDispatch(ctx, event)
	if err != nil || !ok {
		return err
	}

	body := fmt.Sprintf("Your pix payment of %s is waiting for confirmation.", payment.Amount.StringFixed(2))
	if err := j.notifier.Notify(ctx, customerID, "Payment pending", body, map[string]string{
		"payment_id": payment.ID,
		"kind":       domain.EventKindPendingPayment,
	}); err != nil {
		return err
	}

	return j.dedup.RecordDispatched(ctx, event)
}

// SweepDueReminders reminds every customer whose next due date is today.
func (j *FleetJobs) SweepDueReminders(ctx context.Context) {
	j.logger.Info("starting due reminder sweep")

	contracts, err := j.Contracts.ListActive(ctx)
	if err != nil {
		j.logger.Error("failed to list active contracts", zap.Error(err))
		return
	}

	for _, contract := range contracts {
		if err := j.sweepReminderFor(ctx, contract); err != nil {
			j.logger.Warn("reminder sweep failed for customer",
				zap.String("customer_id", contract.CustomerID),
				zap.String("contract_id", contract.ID),
				zap.Error(err),
			)
		}
	}

	j.logger.Info("due reminder sweep finished", zap.Int("contracts", len(contracts)))
}

func (j *FleetJobs) sweepReminderFor(ctx context.Context, contract *domain.Contract) error {
	billing, err := j.resolver.Resolve(ctx, contract.CustomerID, contract.ID)
	if err != nil {
		return err
	}

	now := j.clock.Now()
	due := j.calculator.ComputeDueInfo(
		billing.AnchorDate,
		billing.Contract.RecurrenceType,
		billing.HasPriorPayment,
		billing.Terms,
		now,
	)

	if !utils.SameCalendarDay(now, due.DueDate) {
		return nil
	}

	event := domain.DueReminderEvent(contract.CustomerID, now)
	ok, err := j.dedup.ShouldDispatch(ctx, event)
	if err != nil || !ok {
		return err
	}

	body := fmt.Sprintf("Your %s rental payment of %s is due today.", due.RecurrenceType, due.Amount.StringFixed(2))
	if err := j.notifier.Notify(ctx, contract.CustomerID, "Payment due today", body, map[string]string{
		"due_date": utils.DayKey(due.DueDate),
		"kind":     domain.EventKindDueReminder,
	}); err != nil {
		return err
	}

	return j.dedup.RecordDispatched(ctx, event)
}
