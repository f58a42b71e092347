package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestNotify(t *testing.T) {
	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

	t.Run("push and message enqueued with injected clock stamp", func(t *testing.T) {
		dispatches := &mocks.MockDispatchRepository{}
		users := &mocks.MockUserRepository{}
		clock := &mocks.FakeClock{Time: now}

		users.On("GetPushIdentity", mock.Anything, "CUST-1").Return(&domain.PushIdentity{
			Token:     "tok-1",
			TokenType: domain.TokenTypeNative,
		}, nil)
		dispatches.On("Enqueue", mock.Anything, mock.MatchedBy(func(req *domain.DispatchRequest) bool {
			return req.Channel == domain.DispatchChannelPush &&
				req.Token == "tok-1" &&
				req.CreatedAt.Equal(now)
		})).Return(nil).Once()
		dispatches.On("Enqueue", mock.Anything, mock.MatchedBy(func(req *domain.DispatchRequest) bool {
			return req.Channel == domain.DispatchChannelMessage &&
				req.Token == "" &&
				req.CreatedAt.Equal(now)
		})).Return(nil).Once()

		notifier := NewNotifier(dispatches, users, clock, zap.NewNop())

		err := notifier.Notify(context.Background(), "CUST-1", "Payment pending", "body", map[string]string{"k": "v"})

		assert.NoError(t, err)
		dispatches.AssertExpectations(t)
	})

	t.Run("no push identity degrades to message only", func(t *testing.T) {
		dispatches := &mocks.MockDispatchRepository{}
		users := &mocks.MockUserRepository{}
		clock := &mocks.FakeClock{Time: now}

		users.On("GetPushIdentity", mock.Anything, "CUST-1").Return(nil, sql.ErrNoRows)
		dispatches.On("Enqueue", mock.Anything, mock.MatchedBy(func(req *domain.DispatchRequest) bool {
			return req.Channel == domain.DispatchChannelMessage
		})).Return(nil).Once()

		notifier := NewNotifier(dispatches, users, clock, zap.NewNop())

		assert.NoError(t, notifier.Notify(context.Background(), "CUST-1", "t", "b", nil))
		dispatches.AssertNumberOfCalls(t, "Enqueue", 1)
	})

	t.Run("identity lookup failure propagates", func(t *testing.T) {
		dispatches := &mocks.MockDispatchRepository{}
		users := &mocks.MockUserRepository{}
		clock := &mocks.FakeClock{Time: now}

		users.On("GetPushIdentity", mock.Anything, "CUST-1").Return(nil, errors.New("connection refused"))

		notifier := NewNotifier(dispatches, users, clock, zap.NewNop())

		assert.Error(t, notifier.Notify(context.Background(), "CUST-1", "t", "b", nil))
		dispatches.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}
