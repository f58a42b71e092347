package domain

import "time"

const (
	EventKindPendingPayment = "pending_payment"
	EventKindDueReminder    = "due_reminder"
)

// NotificationEvent identifies one notification opportunity. EventKey is the
// payment id for pending_payment events and the calendar date (YYYY-MM-DD)
// for due_reminder events. At most one successful dispatch is ever recorded
// per key.
type NotificationEvent struct {
	CustomerID string `json:"customer_id" db:"customer_id"`
	Kind       string `json:"kind" db:"kind"`
	Key        string `json:"event_key" db:"event_key"`
}

// PendingPaymentEvent builds the dedup event for a pending payment.
func PendingPaymentEvent(customerID, paymentID string) NotificationEvent {
	return NotificationEvent{
		CustomerID: customerID,
		Kind:       EventKindPendingPayment,
		Key:        paymentID,
	}
}

// DueReminderEvent builds the dedup event for a reminder on the given day.
// A new day is a new key, so the guard resets naturally at date rollover.
func DueReminderEvent(customerID string, day time.Time) NotificationEvent {
	return NotificationEvent{
		CustomerID: customerID,
		Kind:       EventKindDueReminder,
		Key:        day.Format("2006-01-02"),
	}
}

const (
	DispatchChannelPush    = "push"
	DispatchChannelMessage = "message"
)

// DispatchRequest is a durable dispatch-intent record. The core enqueues
// these for an external delivery worker; it never calls a vendor push API
// directly.
type DispatchRequest struct {
	ID         string            `json:"id" db:"id"`
	CustomerID string            `json:"customer_id" db:"customer_id"`
	Channel    string            `json:"channel" db:"channel"`
	Token      string            `json:"token" db:"token"`
	Title      string            `json:"title" db:"title"`
	Body       string            `json:"body" db:"body"`
	Data       map[string]string `json:"data"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
