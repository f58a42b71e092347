package repository

import (
	"context"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/jmoiron/sqlx"
)

type contractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) GetByID(ctx context.Context, contractID string) (*domain.Contract, error) {
	query := `
		SELECT id, customer_id, motorcycle_id, rental_id, start_date, recurrence_type, contracted_months, active, created_at, updated_at
		FROM contracts
		WHERE id = $1
	`

	var contract domain.Contract
	err := r.db.GetContext(ctx, &contract, query, contractID)
	if err != nil {
		return nil, err
	}

	return &contract, nil
}

func (r *contractRepository) ListActive(ctx context.Context) ([]*domain.Contract, error) {
	query := `
		SELECT id, customer_id, motorcycle_id, rental_id, start_date, recurrence_type, contracted_months, active, created_at, updated_at
		FROM contracts
		WHERE active = true
		ORDER BY created_at
	`

	var contracts []*domain.Contract
	err := r.db.SelectContext(ctx, &contracts, query)
	if err != nil {
		return nil, err
	}

	return contracts, nil
}
