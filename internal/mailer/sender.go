// Package mailer sends single campaign emails. The Gmail sender is the
// primary path; an SES fallback exists for deployments without a connected
// Google account. One call means one delivery attempt: retry policy belongs
// to the operator (resend-failed), never to this package.
package mailer

import (
	"context"
	"errors"
)

// ErrReconnectRequired means the stored Google refresh token was revoked or
// expired. The user must redo the OAuth consent flow before any further sends
// can succeed.
var ErrReconnectRequired = errors.New("google account needs to be reconnected")

// Message is one outbound email, fully rendered.
type Message struct {
	To       string
	FromName string
	Subject  string
	HTMLBody string
}

// SendResult reports the outcome of a single delivery attempt.
type SendResult struct {
	Success   bool
	MessageID string
	// Reason carries the provider error when Success is false.
	Reason string
	// Reconnect flags a revoked refresh token. The campaign owner has to
	// re-authorize; further sends for this user will keep failing.
	Reconnect bool
}

// Sender delivers one email on behalf of a platform user.
type Sender interface {
	Send(ctx context.Context, userID string, msg Message) (*SendResult, error)
}
