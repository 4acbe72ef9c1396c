package broker

import (
	"context"
	"time"
)

// AcceptedEvent is published after a message has been durably stored. It is
// the downstream notification format, not the storage row.
type AcceptedEvent struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

type Producer interface {
	Publish(ctx context.Context, topic string, event AcceptedEvent) error
	Close() error
}
