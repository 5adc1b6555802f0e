package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

const (
	// TopicBound carries new wallet/passkey binding announcements
	TopicBound = "auth.bound"

	// TopicLogout carries refresh token invalidation announcements
	TopicLogout = "auth.logout"
)

// BoundEvent represents a new binding on an identity
type BoundEvent struct {
	IdentityKey string `json:"identity_key"`
	Method      string `json:"method"`
}

// LogoutEvent represents an invalidated refresh token
type LogoutEvent struct {
	IdentityKey string `json:"identity_key"`
	TokenID     string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishBound publishes a binding event
func (p *WatermillPublisher) PublishBound(ctx context.Context, identityKey string, method core.BindingMethod) error {
	event := BoundEvent{
		IdentityKey: identityKey,
		Method:      string(method),
	}
	return p.publish(TopicBound, uuid.New().String(), event)
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identityKey string, tokenID string) error {
	event := LogoutEvent{
		IdentityKey: identityKey,
		TokenID:     tokenID,
	}
	return p.publish(TopicLogout, tokenID, event)
}

func (p *WatermillPublisher) publish(topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
