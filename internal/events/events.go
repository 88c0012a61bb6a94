// Package events defines the auth event stream published for downstream
// consumers (audit, notification senders).
package events

import (
	"context"
	"time"
)

const (
	TypeUserRegistered = "user.registered"
	TypeTokenRevoked   = "token.revoked"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
