// Package notify delivers user-visible alerts for fired reminders.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrDispatch is wrapped by every dispatcher failure.
var ErrDispatch = errors.New("notification dispatch failed")

// Notification is one alert to show immediately.
type Notification struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Dispatcher enqueues a notification for immediate delivery.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Multi fans a notification out to several dispatchers. It fails only when
// every dispatcher fails, so one broken channel does not stop delivery.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, n Notification) error {
	if len(m) == 0 {
		return fmt.Errorf("no dispatchers configured: %w", ErrDispatch)
	}

	var errs []error
	for _, d := range m {
		if err := d.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m) {
		return fmt.Errorf("%w: %w", ErrDispatch, errors.Join(errs...))
	}
	return nil
}
