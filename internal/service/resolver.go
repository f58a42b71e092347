package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"
	customError "github.com/locamoto/rental-billing/pkg/errors"

	"go.uber.org/zap"
)

// BillingContext is the resolved input for a due-date computation.
type BillingContext struct {
	Contract        *domain.Contract
	Terms           domain.RentalTerms
	AnchorDate      time.Time
	HasPriorPayment bool
}

// HistoryResolver determines the anchor date for a customer's contract from
// the latest approved payment, falling back to the contract start date.
type HistoryResolver struct {
	Contracts repository.ContractRepository
	Rentals   repository.RentalRepository
	Payments  repository.PaymentRepository
	logger    *zap.Logger
}

func NewHistoryResolver(
	contracts repository.ContractRepository,
	rentals repository.RentalRepository,
	payments repository.PaymentRepository,
	logger *zap.Logger,
) *HistoryResolver {
	return &HistoryResolver{
		Contracts: contracts,
		Rentals:   rentals,
		Payments:  payments,
		logger:    logger,
	}
}

// Resolve loads the contract, its rental terms and the payment anchor.
// Callers must not compute a due date for an inactive contract.
func (r *HistoryResolver) Resolve(ctx context.Context, customerID, contractID string) (*BillingContext, error) {
	contract, err := r.Contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapContractNotFound(contractID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if !contract.Active {
		return nil, customError.WrapContractInactive(contractID)
	}

	rental, err := r.resolveRental(ctx, contract)
	if err != nil {
		return nil, err
	}

	result := &BillingContext{
		Contract:   contract,
		Terms:      rental.Terms,
		AnchorDate: contract.StartDate,
	}

	latest, err := r.Payments.GetLatestApproved(ctx, customerID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
		// No approved payment yet: anchor stays at the contract start.
		return result, nil
	}

	result.AnchorDate = latest.CreatedAt
	result.HasPriorPayment = true
	return result, nil
}

func (r *HistoryResolver) resolveRental(ctx context.Context, contract *domain.Contract) (*domain.Rental, error) {
	if contract.RentalID != "" {
		rental, err := r.Rentals.GetByID(ctx, contract.RentalID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, customError.WrapRentalNotFound(contract.RentalID)
			}
			return nil, customError.WrapDatabaseError(err)
		}
		return rental, nil
	}

	// No rental reference on the contract: fall back to the first active
	// rental for the contracted motorcycle. When several are active the
	// selection is creation order, nothing stronger.
	rental, err := r.Rentals.FirstActiveByMotorcycleID(ctx, contract.MotorcycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapRentalNotFound(contract.MotorcycleID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	r.logger.Debug("rental resolved by motorcycle fallback",
		zap.String("contract_id", contract.ID),
		zap.String("motorcycle_id", contract.MotorcycleID),
		zap.String("rental_id", rental.ID),
	)
	return rental, nil
}
