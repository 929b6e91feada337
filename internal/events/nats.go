// Package events publishes committed domain facts to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/nats-io/nats.go"
)

const SubjectPrefix = "notifications."

// NotificationEvent is the payload published for each committed notification.
type NotificationEvent struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	SenderID    string    `json:"sender_id,omitempty"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("greencampus-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NatsPublisher{nc: nc}, nil
}

func Subject(kind domain.NotificationKind) string {
	return SubjectPrefix + string(kind)
}

func (p *NatsPublisher) PublishNotification(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(NotificationEvent{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Kind:        string(n.Kind),
		Message:     n.Message,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(n.Kind), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}
