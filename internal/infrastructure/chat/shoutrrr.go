package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/containrrr/shoutrrr"

	"vulntrack/internal/shared/logger"
)

// Notifier posts plain messages to every configured shoutrrr URL
// (slack://, teams://, discord://, ...).
type Notifier struct {
	urls   []string
	send   func(url, message string) error
	logger logger.Interface
}

func NewNotifier(urls []string, log logger.Interface) *Notifier {
	return &Notifier{urls: urls, send: shoutrrr.Send, logger: log}
}

func (n *Notifier) Enabled() bool {
	return len(n.urls) > 0
}

// Send delivers to every URL and returns the joined failures. One broken
// channel does not stop the others.
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	var errs []error
	for i, url := range n.urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.send(url, fmt.Sprintf("%s\n\n%s", title, message)); err != nil {
			// URLs carry tokens; log the index only.
			n.logger.Warnw("chat notification failed", "channel", i, "error", err)
			errs = append(errs, fmt.Errorf("channel %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
