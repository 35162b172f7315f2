// Package notify dispatches "tell user X about event Y" signals after key
// transitions. Dispatch is fire-and-forget: failures never affect the
// operation that triggered them.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier is the outbound notification capability.
type Notifier interface {
	Notify(ctx context.Context, userID uint, event string, data map[string]any)
}

// LogNotifier records notifications in the structured log. The production
// deployment swaps in a push/email dispatcher behind the same interface.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID uint, event string, data map[string]any) {
	logrus.WithFields(logrus.Fields{
		"user":  userID,
		"event": event,
		"data":  data,
	}).Info("notification dispatched")
}

// Nop discards notifications. Used in tests.
type Nop struct{}

func (Nop) Notify(context.Context, uint, string, map[string]any) {}
