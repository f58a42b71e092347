package repository

import (
	"context"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Exists(ctx context.Context, event domain.NotificationEvent) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_events
			WHERE customer_id = $1 AND kind = $2 AND event_key = $3
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, event.CustomerID, event.Kind, event.Key)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *notificationRepository) CreateIfAbsent(ctx context.Context, event domain.NotificationEvent) (bool, error) {
	// Create-if-absent on the event key keeps the record at-most-once even
	// when concurrent sweeps race past the Exists read.
	query := `
		INSERT INTO notification_events (id, customer_id, kind, event_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, kind, event_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, uuid.New(), event.CustomerID, event.Kind, event.Key, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *notificationRepository) DeleteDueRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notification_events
		WHERE kind = $1 AND event_key < $2
	`

	result, err := r.db.ExecContext(ctx, query, domain.EventKindDueReminder, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *notificationRepository) DeleteByCustomer(ctx context.Context, customerID string) error {
	query := `
		DELETE FROM notification_events
		WHERE customer_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, customerID)
	return err
}
