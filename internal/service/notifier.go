package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier enqueues durable dispatch-intent records for the external
// delivery worker. Delivery confirmation is not this service's concern.
type Notifier struct {
	Dispatches repository.DispatchRepository
	Users      repository.UserRepository
	clock      domain.Clock
	logger     *zap.Logger
}

func NewNotifier(dispatches repository.DispatchRepository, users repository.UserRepository, clock domain.Clock, logger *zap.Logger) *Notifier {
	return &Notifier{
		Dispatches: dispatches,
		Users:      users,
		clock:      clock,
		logger:     logger,
	}
}

// Notify enqueues a push request and an email-style message for the
// customer. A customer without a stored push identity gets the message
// only; that is a degraded session, not an error.
func (n *Notifier) Notify(ctx context.Context, customerID, title, body string, data map[string]string) error {
	identity, err := n.Users.GetPushIdentity(ctx, customerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if identity != nil {
		push := n.buildRequest(customerID, domain.DispatchChannelPush, title, body, data)
		push.Token = identity.Token
		if err := n.Dispatches.Enqueue(ctx, push); err != nil {
			return err
		}
	} else {
		n.logger.Debug("no push identity, message only", zap.String("customer_id", customerID))
	}

	message := n.buildRequest(customerID, domain.DispatchChannelMessage, title, body, data)
	return n.Dispatches.Enqueue(ctx, message)
}

func (n *Notifier) buildRequest(customerID, channel, title, body string, data map[string]string) *domain.DispatchRequest {
	return &domain.DispatchRequest{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Channel:    channel,
		Title:      title,
		Body:       body,
		Data:       data,
		CreatedAt:  n.clock.Now(),
	}
}
