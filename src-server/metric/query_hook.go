package metric

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// QueryHook measures every bun query and hands the latency, in
// microseconds, to the read or write gauge. Samples are dropped while
// nobody is collecting.
type QueryHook struct {
	DatabaseRead  chan float64
	DatabaseWrite chan float64
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook() *QueryHook {
	return &QueryHook{
		DatabaseRead:  make(chan float64, 16),
		DatabaseWrite: make(chan float64, 16),
	}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	latency := float64(time.Since(event.StartTime).Microseconds())
	ch := h.DatabaseWrite
	if strings.EqualFold(event.Operation(), "SELECT") {
		ch = h.DatabaseRead
	}
	select {
	case ch <- latency:
	default:
	}
}
