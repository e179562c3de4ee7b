package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"schedule/src-server/period"
	"schedule/src-server/recurrence"
)

const (
	WORKER_COUNT = 4
)

type calendarResult struct {
	calendarID string
	period     *period.Period
	err        error
}

// MaterializeCalendars builds the window's period for every calendar using
// WORKER_COUNT workers. A calendar that fails or takes longer than timeout
// is left out of the result and reported in the returned error.
func MaterializeCalendars(ctx context.Context, b period.Builder, calendarIDs []string, window recurrence.Window, timeout time.Duration) (map[string]*period.Period, error) {
	jobs := make(chan string, len(calendarIDs))
	for _, id := range calendarIDs {
		jobs <- id
	}
	close(jobs)

	var (
		mu   sync.Mutex
		out  = make(map[string]*period.Period, len(calendarIDs))
		errs []error
	)

	var wg sync.WaitGroup
	for range WORKER_COUNT {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for calendarID := range jobs {
				jobCtx, cancel := context.WithTimeout(ctx, timeout)
				resCh := make(chan calendarResult, 1)

				go func() {
					p, err := b.Build(jobCtx, calendarID, window)
					resCh <- calendarResult{calendarID: calendarID, period: p, err: err}
				}()

				var res calendarResult
				select {
				case <-jobCtx.Done():
					slog.Warn("MaterializeCalendars: timed out waiting for calendar", "calendar", calendarID)
					res = calendarResult{calendarID: calendarID, err: jobCtx.Err()}
				case res = <-resCh:
				}
				cancel()

				mu.Lock()
				if res.err != nil {
					errs = append(errs, fmt.Errorf("calendar %s: %w", calendarID, res.err))
				} else {
					out[calendarID] = res.period
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return out, fmt.Errorf("MaterializeCalendars: %w", err)
	}
	return out, nil
}
