package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/period"
	"schedule/src-server/recurrence"
	"schedule/src-server/utils"
)

// Notifier reports occurrences about to start. Each slot is reported once
// per start time, so moving an occurrence makes it due again.
type Notifier struct {
	Builder period.Builder
	// Lead is how far ahead of its start an occurrence becomes due.
	Lead   time.Duration
	Notify func(occurrence.Occurrence)

	mu   sync.Mutex
	sent map[string]time.Time
}

// Tick reports every uncancelled occurrence of any calendar starting in
// [now, now+Lead) that was not reported before.
func (n *Notifier) Tick(ctx context.Context, now time.Time) (int, error) {
	p, err := n.Builder.Build(ctx, "", recurrence.Window{Start: now, End: now.Add(n.Lead)})
	if err != nil {
		return 0, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string]time.Time)
	}
	for k, start := range n.sent {
		if start.Before(now.Add(-n.Lead)) {
			delete(n.sent, k)
		}
	}

	count := 0
	for _, o := range p.Busy(false) {
		if o.Start.Before(now) {
			continue
		}
		k := o.Key().Encode()
		if start, ok := n.sent[k]; ok && start.Equal(o.Start) {
			continue
		}
		n.sent[k] = o.Start
		if n.Notify != nil {
			n.Notify(o)
		}
		count++
	}
	return count, nil
}

// EventNotify runs the notifier every interval until the app shuts down.
func EventNotify(as *utils.AppState, n *Notifier, interval time.Duration) {
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-*gracefulShutdownCh:
			return
		case now := <-ticker.C:
			if _, err := n.Tick(context.Background(), now); err != nil {
				slog.Error("EventNotify: can't collect upcoming occurrences", "error", err)
			}
		}
	}
}
