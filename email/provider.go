// Package email composes and delivers the status notification through a
// pluggable provider.
package email

import "context"

// Provider defines the interface for mail delivery implementations.
type Provider interface {
	// Send delivers one plain-text message to a single recipient.
	Send(ctx context.Context, to, subject, textBody string) error
}
