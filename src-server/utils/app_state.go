package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"schedule/src-server/model"
	"schedule/src-server/occurrence"
	"schedule/src-server/period"
	"schedule/src-server/storage/boltdb"
	"schedule/src-server/storage/memory"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// OverrideStorage is an override repository that can drop every override
// of an event.
type OverrideStorage interface {
	occurrence.OverrideRepository
	DeleteOverrides(ctx context.Context, eventID string) error
}

type AppState struct {
	Config *Config
	RawDB  *sql.DB
	BunDB  *bun.DB
	When   *when.Parser

	Repo      *model.Repository
	Overrides OverrideStorage
	Store     *occurrence.Store
	Builder   period.Builder

	AppCloseSignalChan chan os.Signal

	gracefulShutdownMu    sync.Mutex
	gracefulShutdownChans []chan struct{}
	closers               []func() error
}

// NewAppState opens the database, creates the schema when missing and
// wires the occurrence store on top of the configured override backend.
func NewAppState(cfg *Config, recorder occurrence.Recorder, hooks ...bun.QueryHook) (*AppState, error) {
	as := &AppState{
		Config:             cfg,
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// database
	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, cfg.GetDatabasePath()+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("NewAppState: cannot open sqlite database: %w", err)
	}
	as.RawDB.SetMaxIdleConns(8)
	as.closers = append(as.closers, as.RawDB.Close)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	for _, hook := range hooks {
		as.BunDB.AddQueryHook(hook)
	}

	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		as.Close()
		return nil, fmt.Errorf("NewAppState: %w", err)
	}
	as.Repo = model.NewRepository(as.BunDB)

	switch cfg.GetOverrideBackend() {
	case OverrideBackendBolt:
		overrides, err := boltdb.Open(boltdb.Config{Path: cfg.GetBoltPath()})
		if err != nil {
			as.Close()
			return nil, fmt.Errorf("NewAppState: %w", err)
		}
		as.closers = append(as.closers, overrides.Close)
		as.Overrides = overrides
	case OverrideBackendMemory:
		as.Overrides = memory.NewOverrides()
	default:
		as.Overrides = as.Repo
	}
	slog.Debug("override backend ready", "backend", cfg.GetOverrideBackend())

	opts := []occurrence.StoreOption{occurrence.WithMaxDrift(cfg.GetMaxRescheduleDrift())}
	if recorder != nil {
		opts = append(opts, occurrence.WithRecorder(recorder))
	}
	as.Store = occurrence.NewStore(as.Overrides, opts...)
	as.Builder = period.Builder{
		Events:       as.Repo,
		Store:        as.Store,
		FirstWeekday: cfg.GetFirstWeekday(),
		Location:     cfg.GetLocation(),
	}
	return as, nil
}

// DeleteEvent removes an event and its overrides from whichever backend
// holds them.
func (as *AppState) DeleteEvent(ctx context.Context, id string) error {
	if err := as.Repo.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if as.Overrides == OverrideStorage(as.Repo) {
		return nil
	}
	return as.Overrides.DeleteOverrides(ctx, id)
}

// DeleteCalendar removes a calendar, its events and their overrides.
func (as *AppState) DeleteCalendar(ctx context.Context, id string) error {
	events, err := as.Repo.ListEvents(ctx, id)
	if err != nil {
		return err
	}
	if err := as.Repo.DeleteCalendar(ctx, id); err != nil {
		return err
	}
	if as.Overrides == OverrideStorage(as.Repo) {
		return nil
	}
	for _, e := range events {
		if err := as.Overrides.DeleteOverrides(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateGracefulShutdownChan returns a channel that is closed once
// GracefulShutdown runs.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMu.Lock()
	chans := as.gracefulShutdownChans
	as.gracefulShutdownChans = nil
	as.gracefulShutdownMu.Unlock()
	for _, ch := range chans {
		close(ch)
	}
	if err := as.Close(); err != nil {
		slog.Error("can't close app state", "error", err)
	}
}

// Close releases the databases in reverse opening order.
func (as *AppState) Close() error {
	var firstErr error
	for i := len(as.closers) - 1; i >= 0; i-- {
		if err := as.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	as.closers = nil
	return firstErr
}

// Stop asks the main loop to shut down.
func (as *AppState) Stop() {
	select {
	case as.AppCloseSignalChan <- syscall.SIGTERM:
	default:
	}
}
