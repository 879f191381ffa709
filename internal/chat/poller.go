package chat

import (
	"context"
	"time"
)

// DefaultPollInterval is how often the chat list is re-pulled without other triggers
const DefaultPollInterval = 5 * time.Second

// Poller raises TriggerPoll on a fixed interval. It is the only source of
// periodic refresh; a push feed would replace it by calling Notify itself.
type Poller struct {
	notifier Notifier
	interval time.Duration
}

// NewPoller creates a poller; a non-positive interval uses DefaultPollInterval
func NewPoller(n Notifier, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{notifier: n, interval: interval}
}

// Run ticks until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.notifier.Notify(TriggerPoll)
		}
	}
}
