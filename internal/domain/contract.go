package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Contract represents a rental agreement. Contracts are created and edited
// by the admin back office; this service only reads them.
type Contract struct {
	ID               string    `json:"id" db:"id"`
	CustomerID       string    `json:"customer_id" db:"customer_id"`
	MotorcycleID     string    `json:"motorcycle_id" db:"motorcycle_id"`
	RentalID         string    `json:"rental_id" db:"rental_id"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	RecurrenceType   string    `json:"recurrence_type" db:"recurrence_type"`
	ContractedMonths int       `json:"contracted_months" db:"contracted_months"`
	Active           bool      `json:"active" db:"active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Rental ties a motorcycle to a customer and carries the monetary terms.
type Rental struct {
	ID           string      `json:"id" db:"id"`
	CustomerID   string      `json:"customer_id" db:"customer_id"`
	MotorcycleID string      `json:"motorcycle_id" db:"motorcycle_id"`
	Active       bool        `json:"active" db:"active"`
	Terms        RentalTerms `json:"terms"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// RentalTerms holds the monetary terms attached to a rental.
type RentalTerms struct {
	WeeklyAmount  decimal.Decimal `json:"weekly_amount" db:"weekly_amount"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount" db:"monthly_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount" db:"deposit_amount"`
}

// DueInfo is the derived payment-due view computed fresh on each evaluation.
// It is never persisted.
type DueInfo struct {
	Amount         decimal.Decimal `json:"amount"`
	DueDate        time.Time       `json:"due_date"`
	RecurrenceType string          `json:"recurrence_type"`
	DaysRemaining  int             `json:"days_remaining"`
}
