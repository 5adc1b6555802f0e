package ports

import (
	"context"

	"github.com/layer-3/rangda/core"
)

// EventPublisher publishes identity events to notify other instances
type EventPublisher interface {
	// PublishBound announces a new wallet or passkey binding
	PublishBound(ctx context.Context, identityKey string, method core.BindingMethod) error

	// PublishLogout announces an invalidated refresh token
	PublishLogout(ctx context.Context, identityKey string, tokenID string) error
}
