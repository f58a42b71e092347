package repository

import (
	"context"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
)

// ContractRepository defines the interface for contract data operations.
// Contracts are owned by the admin subsystem and read-only here.
type ContractRepository interface {
	// GetByID retrieves a contract by its ID
	GetByID(ctx context.Context, contractID string) (*domain.Contract, error)

	// ListActive retrieves all active contracts (fleet sweeps)
	ListActive(ctx context.Context) ([]*domain.Contract, error)
}

// RentalRepository defines the interface for rental data operations
type RentalRepository interface {
	// GetByID retrieves a rental (with its monetary terms) by ID
	GetByID(ctx context.Context, rentalID string) (*domain.Rental, error)

	// FirstActiveByMotorcycleID finds the first active rental referencing a
	// motorcycle, ordered by creation time
	FirstActiveByMotorcycleID(ctx context.Context, motorcycleID string) (*domain.Rental, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// GetByID retrieves a payment by ID
	GetByID(ctx context.Context, paymentID string) (*domain.Payment, error)

	// GetLatestApproved retrieves the most recent approved payment for a
	// customer
	GetLatestApproved(ctx context.Context, customerID string) (*domain.Payment, error)

	// ListPendingByMethod retrieves pending payments for a customer filtered
	// by payment method, most recent first
	ListPendingByMethod(ctx context.Context, customerID, method string) ([]*domain.Payment, error)

	// MarkNotificationSent conditionally flips notification_sent for a
	// payment; returns false when the flag was already set
	MarkNotificationSent(ctx context.Context, paymentID string) (bool, error)
}

// NotificationRepository defines the interface for durable dedup records
type NotificationRepository interface {
	// Exists reports whether a dispatch has been recorded for the event key
	Exists(ctx context.Context, event domain.NotificationEvent) (bool, error)

	// CreateIfAbsent records a dispatch for the event key; returns false
	// when a record already existed
	CreateIfAbsent(ctx context.Context, event domain.NotificationEvent) (bool, error)

	// DeleteByCustomer removes all dedup records for a customer (cache-clear)
	DeleteByCustomer(ctx context.Context, customerID string) error

	// DeleteDueRemindersBefore prunes due-reminder records older than the
	// cutoff; past dates can never be re-dispatched, so the rows are dead
	DeleteDueRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository defines the interface for customer push-identity persistence
type UserRepository interface {
	// GetPushIdentity retrieves the stored push identity for a customer
	GetPushIdentity(ctx context.Context, customerID string) (*domain.PushIdentity, error)

	// MergePushIdentity updates only the push fields of the user record,
	// leaving unrelated fields untouched
	MergePushIdentity(ctx context.Context, customerID string, identity *domain.PushIdentity) error
}

// DispatchRepository defines the interface for the durable dispatch queue
type DispatchRepository interface {
	// Enqueue persists a dispatch-intent record for the delivery worker
	Enqueue(ctx context.Context, req *domain.DispatchRequest) error
}

// KVStore defines the interface for the durable key-value store used for
// rate-guard timestamps and session markers
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
