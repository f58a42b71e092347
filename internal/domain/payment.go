package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusInProcess = "in_process"
)

const (
	PaymentMethodPix        = "pix"
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodDebitCard  = "debit_card"
	PaymentMethodBoleto     = "boleto"
)

// Payment is a record of a money-movement attempt. The only field this
// service mutates is NotificationSent, which transitions false to true
// exactly once per payment and is never reset.
type Payment struct {
	ID               string          `json:"id" db:"id"`
	CustomerID       string          `json:"customer_id" db:"customer_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Status           string          `json:"status" db:"status"`
	Method           string          `json:"method" db:"method"`
	NotificationSent bool            `json:"notification_sent" db:"notification_sent"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
