package service

import (
	"context"
	"errors"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/repository"

	"go.uber.org/zap"
)

// PushTokenProvider is the external token source. Implementations talk to
// the device or the managed push platform; each call either yields a usable
// identity or an error.
type PushTokenProvider interface {
	NativeToken(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error)
	ManagedToken(ctx context.Context, projectID string, caps domain.PlatformCapabilities) (*domain.PushIdentity, error)
	LegacyExperienceToken(ctx context.Context, experienceID string, caps domain.PlatformCapabilities) (*domain.PushIdentity, error)
}

// TokenStrategy is one acquisition attempt in the fallback chain.
type TokenStrategy struct {
	Name    string
	Acquire func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error)
}

// TokenAcquirer walks an ordered strategy chain until one yields a push
// identity, then persists it. Every attempt is isolated: a failure is
// logged and the chain moves on. All strategies failing is not fatal; the
// application simply continues without push capability.
type TokenAcquirer struct {
	Strategies []TokenStrategy
	Users      repository.UserRepository
	logger     *zap.Logger
}

func NewTokenAcquirer(strategies []TokenStrategy, users repository.UserRepository, logger *zap.Logger) *TokenAcquirer {
	return &TokenAcquirer{
		Strategies: strategies,
		Users:      users,
		logger:     logger,
	}
}

// DefaultStrategies builds the production chain: native device token, then
// managed token with project ID, then without, then via the legacy
// experience ID.
func DefaultStrategies(provider PushTokenProvider) []TokenStrategy {
	return []TokenStrategy{
		{
			Name: "native",
			Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
				if !caps.SupportsNativeTokens {
					return nil, errors.New("platform does not support native tokens")
				}
				return provider.NativeToken(ctx, caps)
			},
		},
		{
			Name: "managed_project",
			Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
				if caps.ProjectID == "" {
					return nil, errors.New("no project id configured")
				}
				return provider.ManagedToken(ctx, caps.ProjectID, caps)
			},
		},
		{
			Name: "managed_bare",
			Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
				return provider.ManagedToken(ctx, "", caps)
			},
		},
		{
			Name: "managed_legacy",
			Acquire: func(ctx context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
				if caps.LegacyExperienceID == "" {
					return nil, errors.New("no legacy experience id configured")
				}
				return provider.LegacyExperienceToken(ctx, caps.LegacyExperienceID, caps)
			},
		},
	}
}

// AcquireToken returns the identity from the first successful strategy, or
// nil when every strategy failed. Persistence only happens on success.
func (a *TokenAcquirer) AcquireToken(ctx context.Context, customerID string, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
	for _, strategy := range a.Strategies {
		identity, err := strategy.Acquire(ctx, caps)
		if err != nil {
			a.logger.Warn("token strategy failed",
				zap.String("strategy", strategy.Name),
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
			continue
		}
		if identity == nil || identity.Token == "" {
			a.logger.Warn("token strategy returned empty identity",
				zap.String("strategy", strategy.Name),
				zap.String("customer_id", customerID),
			)
			continue
		}

		if err := a.Users.MergePushIdentity(ctx, customerID, identity); err != nil {
			return nil, err
		}

		a.logger.Info("push token acquired",
			zap.String("strategy", strategy.Name),
			zap.String("customer_id", customerID),
			zap.String("token_type", identity.TokenType),
		)
		return identity, nil
	}

	a.logger.Warn("all token strategies failed, continuing without push",
		zap.String("customer_id", customerID),
	)
	return nil, nil
}
