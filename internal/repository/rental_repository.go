package repository

import (
	"context"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/jmoiron/sqlx"
)

type rentalRepository struct {
	db *sqlx.DB
}

func NewRentalRepository(db *sqlx.DB) RentalRepository {
	return &rentalRepository{db: db}
}

// rentalRow flattens the rental and its terms for sqlx scanning.
type rentalRow struct {
	domain.Rental
	domain.RentalTerms
}

func (r *rentalRepository) GetByID(ctx context.Context, rentalID string) (*domain.Rental, error) {
	query := `
		SELECT id, customer_id, motorcycle_id, active, weekly_amount, monthly_amount, deposit_amount, created_at
		FROM rentals
		WHERE id = $1
	`

	var row rentalRow
	err := r.db.GetContext(ctx, &row, query, rentalID)
	if err != nil {
		return nil, err
	}

	rental := row.Rental
	rental.Terms = row.RentalTerms
	return &rental, nil
}

func (r *rentalRepository) FirstActiveByMotorcycleID(ctx context.Context, motorcycleID string) (*domain.Rental, error) {
	// First match by creation order. When multiple active rentals reference
	// the same motorcycle there is no tie-break beyond this ordering.
	query := `
		SELECT id, customer_id, motorcycle_id, active, weekly_amount, monthly_amount, deposit_amount, created_at
		FROM rentals
		WHERE motorcycle_id = $1 AND active = true
		ORDER BY created_at
		LIMIT 1
	`

	var row rentalRow
	err := r.db.GetContext(ctx, &row, query, motorcycleID)
	if err != nil {
		return nil, err
	}

	rental := row.Rental
	rental.Terms = row.RentalTerms
	return &rental, nil
}
