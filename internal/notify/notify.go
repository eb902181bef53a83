// Package notify delivers transactional email: new-assignment alerts
// and payment-failure notices. Delivery failures are logged by callers
// and never fail the operation that triggered them.
package notify

import (
	"context"
	"fmt"

	"github.com/naybourhood/naybourhood-server/internal/config"
)

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Notifier sends transactional email.
type Notifier interface {
	Send(ctx context.Context, email *Email) error
}

// New builds the provider selected by config. Disabled config yields a
// no-op notifier so call sites need no nil checks.
func New(ctx context.Context, cfg config.NotifyConfig) (Notifier, error) {
	if !cfg.Enabled {
		return NopNotifier{}, nil
	}
	switch cfg.Provider {
	case "resend", "":
		return NewResendNotifier(cfg), nil
	case "ses":
		return NewSESNotifier(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}

// NopNotifier drops everything. Used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, *Email) error { return nil }
