package repository

import (
	"context"
	"database/sql"

	"github.com/locamoto/rental-billing/internal/domain"

	"github.com/jmoiron/sqlx"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetPushIdentity(ctx context.Context, customerID string) (*domain.PushIdentity, error) {
	query := `
		SELECT push_token, push_token_type, push_platform, push_acquired_at
		FROM users
		WHERE id = $1 AND push_token IS NOT NULL
	`

	var identity domain.PushIdentity
	err := r.db.GetContext(ctx, &identity, query, customerID)
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

func (r *userRepository) MergePushIdentity(ctx context.Context, customerID string, identity *domain.PushIdentity) error {
	// Touches only the push columns so unrelated user fields survive.
	query := `
		UPDATE users
		SET push_token = $2, push_token_type = $3, push_platform = $4, push_acquired_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		customerID,
		identity.Token,
		identity.TokenType,
		identity.Platform,
		identity.AcquiredAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
