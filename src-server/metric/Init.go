package metric

import (
	"context"
	"log/slog"
	"time"

	"schedule/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds the gauge to reg, reusing one registered earlier under the
// same name.
func register(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, bool) {
	if err := reg.Register(gauge); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			slog.Error("can't register metric", "metric", name, "error", err)
			return gauge, false
		}
		if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
			gauge = existing
		}
	}
	slog.Debug("metric registered", "metric", name)
	gauge.Set(0)
	return gauge, true
}

func unregister(reg prometheus.Registerer, gauge prometheus.Gauge, name string) {
	switch reg.Unregister(gauge) {
	case true:
		slog.Debug("metric unregistered", "metric", name)
	case false:
		slog.Warn("metric not registered", "metric", name)
	}
}

// sampled polls sample every interval until the app shuts down.
func sampled(as *utils.AppState, reg prometheus.Registerer, opts prometheus.GaugeOpts, interval time.Duration, sample func(context.Context) (float64, error)) {
	gauge, ok := register(reg, prometheus.NewGauge(opts), opts.Name)
	if !ok {
		return
	}
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(reg, gauge, opts.Name)
				return
			case <-ticker.C:
				value, err := sample(context.Background())
				if err != nil {
					slog.Error("can't sample metric", "metric", opts.Name, "error", err)
					continue
				}
				gauge.Set(value)
			}
		}
	}()
}

// pushed shows the latest value received on ch, falling back to 0 when
// nothing arrives for clearInterval.
func pushed(as *utils.AppState, reg prometheus.Registerer, opts prometheus.GaugeOpts, clearInterval time.Duration, ch <-chan float64) {
	gauge, ok := register(reg, prometheus.NewGauge(opts), opts.Name)
	if !ok {
		return
	}
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		clearTicker := time.NewTicker(clearInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(reg, gauge, opts.Name)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

func Init(as *utils.AppState, hook *QueryHook) {
	initWith(as, hook, prometheus.DefaultRegisterer)
}

func initWith(as *utils.AppState, hook *QueryHook, reg prometheus.Registerer) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	sampled(as, reg, prometheus.GaugeOpts{
		Name: "schedule_database_empty_read_microsec",
		Help: "The latency of an empty database read in microseconds",
	}, tickerInterval, func(ctx context.Context) (float64, error) {
		start := time.Now()
		if err := as.Repo.Ping(ctx); err != nil {
			return 0, err
		}
		return float64(time.Since(start).Microseconds()), nil
	})
	sampled(as, reg, prometheus.GaugeOpts{
		Name: "schedule_events",
		Help: "The number of stored events",
	}, tickerInterval, func(ctx context.Context) (float64, error) {
		n, err := as.Repo.CountEvents(ctx, "")
		return float64(n), err
	})

	if hook == nil {
		return
	}
	pushed(as, reg, prometheus.GaugeOpts{
		Name: "schedule_database_read_microsec",
		Help: "The latency of a database read in microseconds",
	}, clearTickerInterval, hook.DatabaseRead)
	pushed(as, reg, prometheus.GaugeOpts{
		Name: "schedule_database_write_microsec",
		Help: "The latency of a database write in microseconds",
	}, clearTickerInterval, hook.DatabaseWrite)
}
