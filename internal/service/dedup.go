package service

import (
	"context"
	"fmt"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"
	customError "github.com/locamoto/rental-billing/pkg/errors"

	"go.uber.org/zap"
)

const rateGuardKeyPrefix = "notify:pending:last_dispatch:"

// DedupCoordinator decides whether a notification for a logical event may
// still be dispatched. State per event key goes Unsent to Sent once and
// never back. Guard reads that fail suppress dispatch (fail closed): a
// missed notification beats a duplicate one, and the next sweep retries.
type DedupCoordinator struct {
	Payments repository.PaymentRepository
	Events   repository.NotificationRepository
	kv       repository.KVStore
	clock    domain.Clock

	rateGuardWindow time.Duration
	logger          *zap.Logger
}

func NewDedupCoordinator(
	payments repository.PaymentRepository,
	events repository.NotificationRepository,
	kv repository.KVStore,
	clock domain.Clock,
	rateGuardWindow time.Duration,
	logger *zap.Logger,
) *DedupCoordinator {
	return &DedupCoordinator{
		Payments:        payments,
		Events:          events,
		kv:              kv,
		clock:           clock,
		rateGuardWindow: rateGuardWindow,
		logger:          logger,
	}
}

// ShouldDispatch reports whether the event is still in the Unsent state.
func (c *DedupCoordinator) ShouldDispatch(ctx context.Context, event domain.NotificationEvent) (bool, error) {
	switch event.Kind {
	case domain.EventKindPendingPayment:
		return c.shouldDispatchPending(ctx, event)
	case domain.EventKindDueReminder:
		return c.shouldDispatchReminder(ctx, event)
	default:
		return false, fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

func (c *DedupCoordinator) shouldDispatchPending(ctx context.Context, event domain.NotificationEvent) (bool, error) {
	payment, err := c.Payments.GetByID(ctx, event.Key)
	if err != nil {
		return false, customError.WrapDatabaseError(err)
	}
	if payment.NotificationSent {
		return false, nil
	}

	throttled, err := c.rateGuardActive(ctx, event.CustomerID)
	if err != nil {
		return false, customError.WrapCacheError(err)
	}
	if throttled {
		c.logger.Debug("pending dispatch throttled by rate guard",
			zap.String("customer_id", event.CustomerID),
			zap.String("payment_id", event.Key),
		)
		return false, nil
	}

	return true, nil
}

func (c *DedupCoordinator) shouldDispatchReminder(ctx context.Context, event domain.NotificationEvent) (bool, error) {
	sent, err := c.Events.Exists(ctx, event)
	if err != nil {
		return false, customError.WrapDatabaseError(err)
	}
	return !sent, nil
}

// RecordDispatched marks the event Sent. All writes are conditional, so a
// second call for the same key is a no-op and concurrent sweeps collapse to
// a single record.
func (c *DedupCoordinator) RecordDispatched(ctx context.Context, event domain.NotificationEvent) error {
	created, err := c.Events.CreateIfAbsent(ctx, event)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if !created {
		return nil
	}

	if event.Kind == domain.EventKindPendingPayment {
		if _, err := c.Payments.MarkNotificationSent(ctx, event.Key); err != nil {
			return customError.WrapDatabaseError(err)
		}

		now := c.clock.Now()
		key := rateGuardKeyPrefix + event.CustomerID
		if err := c.kv.Set(ctx, key, now.Format(time.RFC3339), c.rateGuardWindow); err != nil {
			// The durable guards already hold; a lost rate-guard stamp only
			// weakens burst throttling until the next dispatch.
			c.logger.Warn("failed to stamp rate guard", zap.Error(err))
		}
	}

	return nil
}

// Clear removes all dedup state for a customer. Test/debug operation only.
func (c *DedupCoordinator) Clear(ctx context.Context, customerID string) error {
	if err := c.Events.DeleteByCustomer(ctx, customerID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if err := c.kv.Remove(ctx, rateGuardKeyPrefix+customerID); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *DedupCoordinator) rateGuardActive(ctx context.Context, customerID string) (bool, error) {
	value, err := c.kv.Get(ctx, rateGuardKeyPrefix+customerID)
	if err != nil {
		return false, err
	}
	if value == "" {
		return false, nil
	}

	last, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Unreadable stamp: treat as absent rather than blocking forever.
		return false, nil
	}

	return c.clock.Now().Sub(last) < c.rateGuardWindow, nil
}
