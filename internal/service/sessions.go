package service

import (
	"context"
	"sync"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"

	"go.uber.org/zap"
)

// SessionManager owns one SessionScheduler per signed-in customer. Starting
// an already-running session replaces it (screen re-activation), ending one
// tears the scheduler down and discards its in-memory state.
type SessionManager struct {
	resolver   *HistoryResolver
	calculator *DueCalculator
	dedup      *DedupCoordinator
	payments   repository.PaymentRepository
	notifier   *Notifier
	clock      domain.Clock
	cfg        SweepConfig
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*SessionScheduler
}

func NewSessionManager(
	resolver *HistoryResolver,
	calculator *DueCalculator,
	dedup *DedupCoordinator,
	payments repository.PaymentRepository,
	notifier *Notifier,
	clock domain.Clock,
	cfg SweepConfig,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		resolver:   resolver,
		calculator: calculator,
		dedup:      dedup,
		payments:   payments,
		notifier:   notifier,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		sessions:   make(map[string]*SessionScheduler),
	}
}

// StartSession launches sweeps for the customer, replacing any previous
// session scheduler. Schedulers outlive the request that started them; they
// stop on EndSession or Shutdown.
func (m *SessionManager) StartSession(customerID, contractID string) {
	m.mu.Lock()
	previous := m.sessions[customerID]
	scheduler := NewSessionScheduler(
		customerID, contractID,
		m.resolver, m.calculator, m.dedup, m.payments, m.notifier,
		m.clock, m.cfg, m.logger,
	)
	m.sessions[customerID] = scheduler
	m.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	scheduler.Start(context.Background())
}

// EndSession stops the customer's scheduler. In-flight sweeps finish
// without dispatching.
func (m *SessionManager) EndSession(customerID string) {
	m.mu.Lock()
	scheduler := m.sessions[customerID]
	delete(m.sessions, customerID)
	m.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
}

// NotifyPaymentsChanged requests an immediate pending-payment sweep for the
// customer's session, if one is active.
func (m *SessionManager) NotifyPaymentsChanged(customerID string) bool {
	m.mu.Lock()
	scheduler := m.sessions[customerID]
	m.mu.Unlock()

	if scheduler == nil {
		return false
	}
	scheduler.KickPending()
	return true
}

// NotifyDueInfoChanged requests an immediate due-reminder sweep for the
// customer's session, if one is active.
func (m *SessionManager) NotifyDueInfoChanged(customerID string) bool {
	m.mu.Lock()
	scheduler := m.sessions[customerID]
	m.mu.Unlock()

	if scheduler == nil {
		return false
	}
	scheduler.KickReminder()
	return true
}

// Shutdown stops every active session scheduler.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	schedulers := make([]*SessionScheduler, 0, len(m.sessions))
	for _, s := range m.sessions {
		schedulers = append(schedulers, s)
	}
	m.sessions = make(map[string]*SessionScheduler)
	m.mu.Unlock()

	for _, s := range schedulers {
		s.Stop()
	}
}
