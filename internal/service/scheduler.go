package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"
	"github.com/locamoto/rental-billing/pkg/utils"

	"go.uber.org/zap"
)

// SweepConfig carries the cadence and thresholds of a session scheduler.
type SweepConfig struct {
	PendingInterval     time.Duration
	ReminderInterval    time.Duration
	PendingAgeThreshold time.Duration
}

// SessionScheduler owns the repeating sweeps for one customer session. It
// starts when the session's billing data becomes available and stops on
// screen teardown or sign-out; in-memory state dies with it, durable dedup
// state survives.
type SessionScheduler struct {
	CustomerID string
	ContractID string

	resolver   *HistoryResolver
	calculator *DueCalculator
	dedup      *DedupCoordinator
	payments   repository.PaymentRepository
	notifier   *Notifier
	clock      domain.Clock
	cfg        SweepConfig
	logger     *zap.Logger

	kickPending  chan struct{}
	kickReminder chan struct{}

	mu                sync.Mutex
	reminderSentToday bool
	lastJanitorDay    string

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewSessionScheduler(
	customerID, contractID string,
	resolver *HistoryResolver,
	calculator *DueCalculator,
	dedup *DedupCoordinator,
	payments repository.PaymentRepository,
	notifier *Notifier,
	clock domain.Clock,
	cfg SweepConfig,
	logger *zap.Logger,
) *SessionScheduler {
	return &SessionScheduler{
		CustomerID:   customerID,
		ContractID:   contractID,
		resolver:     resolver,
		calculator:   calculator,
		dedup:        dedup,
		payments:     payments,
		notifier:     notifier,
		clock:        clock,
		cfg:          cfg,
		logger:       logger.With(zap.String("customer_id", customerID)),
		kickPending:  make(chan struct{}, 1),
		kickReminder: make(chan struct{}, 1),
	}
}

// Start launches both sweep loops. Each runs once immediately, then on its
// ticker, and additionally whenever kicked by a data change. Starting a
// scheduler that was already stopped is a no-op: once torn down it never
// runs again, a replacement session gets a fresh scheduler.
func (s *SessionScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastJanitorDay = utils.DayKey(s.clock.Now())

	// cancel and the WaitGroup counter must be visible before the lock is
	// released, so a concurrent Stop always sees a stoppable scheduler.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(2)
	s.mu.Unlock()

	go s.loop(runCtx, s.cfg.PendingInterval, s.kickPending, s.PendingSweep)
	go s.loop(runCtx, s.cfg.ReminderInterval, s.kickReminder, s.reminderTick)

	s.logger.Info("session scheduler started",
		zap.Duration("pending_interval", s.cfg.PendingInterval),
		zap.Duration("reminder_interval", s.cfg.ReminderInterval),
	)
}

// Stop cancels both loops and waits for in-flight sweeps to finish. Sweeps
// check liveness before dispatching, so nothing fires after Stop returns.
// Stop is terminal: it also marks a not-yet-started scheduler as dead so a
// racing Start cannot launch loops nobody would ever stop.
func (s *SessionScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("session scheduler stopped")
}

// KickPending requests an immediate pending-payment sweep, used when the
// payment list changes.
func (s *SessionScheduler) KickPending() {
	select {
	case s.kickPending <- struct{}{}:
	default:
	}
}

// KickReminder requests an immediate due-reminder sweep, used when the
// computed due info changes.
func (s *SessionScheduler) KickReminder() {
	select {
	case s.kickReminder <- struct{}{}:
	default:
	}
}

func (s *SessionScheduler) loop(ctx context.Context, interval time.Duration, kick <-chan struct{}, sweep func(ctx context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runSweep(ctx, sweep)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx, sweep)
		case <-kick:
			s.runSweep(ctx, sweep)
		}
	}
}

func (s *SessionScheduler) runSweep(ctx context.Context, sweep func(ctx context.Context) error) {
	if err := sweep(ctx); err != nil && ctx.Err() == nil {
		// Abandoned until the next tick; transient failures retry naturally.
		s.logger.Warn("sweep failed", zap.Error(err))
	}
}

// PendingSweep scans pending pix payments and nudges the customer about the
// most recent one once it is old enough.
func (s *SessionScheduler) PendingSweep(ctx context.Context) error {
	payments, err := s.payments.ListPendingByMethod(ctx, s.CustomerID, domain.PaymentMethodPix)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}

	// Most recent first; only the newest pending payment gets a nudge.
	payment := payments[0]
	now := s.clock.Now()
	if now.Sub(payment.CreatedAt) <= s.cfg.PendingAgeThreshold {
		return nil
	}

	event := domain.PendingPaymentEvent(s.CustomerID, payment.ID)
	ok, err := s.dedup.ShouldDispatch(ctx, event)
	if err != nil || !ok {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	body := fmt.Sprintf("Your pix payment of %s is waiting for confirmation.", payment.Amount.StringFixed(2))
	if err := s.notifier.Notify(ctx, s.CustomerID, "Payment pending", body, map[string]string{
		"payment_id": payment.ID,
		"kind":       domain.EventKindPendingPayment,
	}); err != nil {
		return err
	}

	s.logger.Info("pending payment nudge dispatched", zap.String("payment_id", payment.ID))
	return s.dedup.RecordDispatched(ctx, event)
}

func (s *SessionScheduler) reminderTick(ctx context.Context) error {
	s.janitor()
	return s.ReminderSweep(ctx)
}

// ReminderSweep recomputes the due info and dispatches a reminder when the
// due date is today.
func (s *SessionScheduler) ReminderSweep(ctx context.Context) error {
	billing, err := s.resolver.Resolve(ctx, s.CustomerID, s.ContractID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	due := s.calculator.ComputeDueInfo(
		billing.AnchorDate,
		billing.Contract.RecurrenceType,
		billing.HasPriorPayment,
		billing.Terms,
		now,
	)

	if !utils.SameCalendarDay(now, due.DueDate) {
		return nil
	}

	s.mu.Lock()
	alreadySent := s.reminderSentToday
	s.mu.Unlock()
	if alreadySent {
		return nil
	}

	event := domain.DueReminderEvent(s.CustomerID, now)
	ok, err := s.dedup.ShouldDispatch(ctx, event)
	if err != nil || !ok {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	body := fmt.Sprintf("Your %s rental payment of %s is due today.", due.RecurrenceType, due.Amount.StringFixed(2))
	if err := s.notifier.Notify(ctx, s.CustomerID, "Payment due today", body, map[string]string{
		"due_date": utils.DayKey(due.DueDate),
		"kind":     domain.EventKindDueReminder,
	}); err != nil {
		return err
	}

	if err := s.dedup.RecordDispatched(ctx, event); err != nil {
		return err
	}

	s.mu.Lock()
	s.reminderSentToday = true
	s.mu.Unlock()

	s.logger.Info("due reminder dispatched", zap.String("due_date", utils.DayKey(due.DueDate)))
	return nil
}

// janitor clears the in-memory reminder flag after a date rollover. The
// date-keyed durable guard already resets per day, so this is a redundant
// but harmless safety reset.
func (s *SessionScheduler) janitor() {
	today := utils.DayKey(s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastJanitorDay != today {
		s.lastJanitorDay = today
		s.reminderSentToday = false
	}
}
