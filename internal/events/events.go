// Package events publishes tutoring session lifecycle events.
//
// Events are JSON documents on NATS subjects under "tutor.session.":
//
//	tutor.session.started
//	tutor.session.transition
//	tutor.session.ended
//
// Publishing is fire and forget. A Publisher error is logged by the caller
// and never fails the session operation that produced the event.
package events

import (
	"context"
	"time"
)

// Type identifies an event.
type Type string

const (
	TypeSessionStarted    Type = "session.started"
	TypeSessionTransition Type = "session.transition"
	TypeSessionEnded      Type = "session.ended"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "tutor."

// Subject returns the NATS subject for t.
func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

// Event is a session lifecycle event.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
