package repository

import (
	"context"
	"encoding/json"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/jmoiron/sqlx"
)

type dispatchRepository struct {
	db *sqlx.DB
}

func NewDispatchRepository(db *sqlx.DB) DispatchRepository {
	return &dispatchRepository{db: db}
}

func (r *dispatchRepository) Enqueue(ctx context.Context, req *domain.DispatchRequest) error {
	data, err := json.Marshal(req.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dispatch_queue (id, customer_id, channel, token, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		req.ID,
		req.CustomerID,
		req.Channel,
		req.Token,
		req.Title,
		req.Body,
		data,
		req.CreatedAt,
	)

	return err
}
