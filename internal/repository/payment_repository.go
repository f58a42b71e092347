package repository

import (
	"context"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/jmoiron/sqlx"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `
		SELECT id, customer_id, amount, status, method, notification_sent, created_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, paymentID)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetLatestApproved(ctx context.Context, customerID string) (*domain.Payment, error) {
	query := `
		SELECT id, customer_id, amount, status, method, notification_sent, created_at
		FROM payments
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, customerID, domain.PaymentStatusApproved)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListPendingByMethod(ctx context.Context, customerID, method string) ([]*domain.Payment, error) {
	query := `
		SELECT id, customer_id, amount, status, method, notification_sent, created_at
		FROM payments
		WHERE customer_id = $1 AND status = $2 AND method = $3
		ORDER BY created_at DESC
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, customerID, domain.PaymentStatusPending, method)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) MarkNotificationSent(ctx context.Context, paymentID string) (bool, error) {
	// Conditional write: only the first caller flips the flag, concurrent
	// sweeps observe zero rows affected.
	query := `
		UPDATE payments
		SET notification_sent = true
		WHERE id = $1 AND notification_sent = false
	`

	result, err := r.db.ExecContext(ctx, query, paymentID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
