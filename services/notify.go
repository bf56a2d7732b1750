package services

import (
	"context"
	"time"

	"cafe-telegram/models"
)

// Notifier delivers one message to one chat participant.
type Notifier interface {
	Deliver(ctx context.Context, recipient int64, msg models.Message) error
}

// PhotoReleaser frees the stored photo behind a reference.
type PhotoReleaser interface {
	Release(ref string) error
}

// EventPublisher fans order lifecycle events out to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.OrderEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.OrderEvent) error { return nil }

// NopPublisher drops every event.
var NopPublisher EventPublisher = nopPublisher{}

type nopReleaser struct{}

func (nopReleaser) Release(string) error { return nil }

// RetryPolicy is exponential backoff between delivery attempts.
type RetryPolicy struct {
	Attempts   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}
}

// RetryingNotifier wraps a Notifier with bounded retries.
type RetryingNotifier struct {
	next   Notifier
	policy RetryPolicy
}

func NewRetryingNotifier(next Notifier, policy RetryPolicy) *RetryingNotifier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &RetryingNotifier{next: next, policy: policy}
}

// Deliver returns a *DeliveryError once every attempt failed. Context
// cancellation stops retrying early.
func (r *RetryingNotifier) Deliver(ctx context.Context, recipient int64, msg models.Message) error {
	var lastErr error
	backoff := r.policy.BaseDelay
	attempt := 0
	for attempt < r.policy.Attempts {
		attempt++
		err := r.next.Deliver(ctx, recipient, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == r.policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return &DeliveryError{Recipient: recipient, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * r.policy.Multiplier)
			if r.policy.MaxDelay > 0 && backoff > r.policy.MaxDelay {
				backoff = r.policy.MaxDelay
			}
		}
	}
	return &DeliveryError{Recipient: recipient, Attempts: attempt, Err: lastErr}
}
