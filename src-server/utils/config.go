package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type OverrideBackend string

const (
	OverrideBackendSqlite OverrideBackend = "sqlite"
	OverrideBackendBolt   OverrideBackend = "bolt"
	OverrideBackendMemory OverrideBackend = "memory"
)

type Config struct {
	port string

	databasePath    string
	overrideBackend OverrideBackend
	boltPath        string

	location     *time.Location
	firstWeekday time.Weekday

	metricCollectionInterval time.Duration
	maxRescheduleDrift       time.Duration
	notifyLead               time.Duration
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		databasePath: func() string {
			databasePath := os.Getenv("DATABASE_PATH")
			if databasePath == "" {
				databasePath = "./sqlite.db"
			}
			slog.Debug("env", "DATABASE_PATH", databasePath)
			return filepath.Clean(databasePath)
		}(),
		overrideBackend: func() OverrideBackend {
			backend := OverrideBackend(strings.ToLower(os.Getenv("OVERRIDE_BACKEND")))
			switch backend {
			case "":
				backend = OverrideBackendSqlite
			case OverrideBackendSqlite, OverrideBackendBolt, OverrideBackendMemory:
			default:
				slog.Error("invalid OVERRIDE_BACKEND", "value", backend, "allowed", "sqlite, bolt, memory")
				os.Exit(1)
			}
			slog.Debug("env", "OVERRIDE_BACKEND", backend)
			return backend
		}(),
		boltPath: func() string {
			boltPath := os.Getenv("BOLT_PATH")
			if boltPath == "" {
				boltPath = "./overrides.bolt"
			}
			slog.Debug("env", "BOLT_PATH", boltPath)
			return filepath.Clean(boltPath)
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		firstWeekday: func() time.Weekday {
			firstWeekday := os.Getenv("FIRST_WEEKDAY")
			if firstWeekday == "" {
				firstWeekday = "monday"
			}
			weekday, ok := ParseWeekday(firstWeekday)
			if !ok {
				slog.Error("invalid FIRST_WEEKDAY", "value", firstWeekday)
				os.Exit(1)
			}
			slog.Debug("env", "FIRST_WEEKDAY", weekday)
			return weekday
		}(),

		metricCollectionInterval: func() time.Duration {
			interval := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if interval == "" {
				interval = "15s"
			}
			duration, err := time.ParseDuration(interval)
			if err != nil || duration <= 0 {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "value", interval, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", duration)
			return duration
		}(),
		maxRescheduleDrift: func() time.Duration {
			drift := os.Getenv("MAX_RESCHEDULE_DRIFT")
			if drift == "" {
				return 0
			}
			duration, err := time.ParseDuration(drift)
			if err != nil || duration < 0 {
				slog.Error("invalid MAX_RESCHEDULE_DRIFT", "value", drift, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "MAX_RESCHEDULE_DRIFT", duration)
			return duration
		}(),
		notifyLead: func() time.Duration {
			lead := os.Getenv("NOTIFY_LEAD")
			if lead == "" {
				lead = "15m"
			}
			duration, err := time.ParseDuration(lead)
			if err != nil || duration <= 0 {
				slog.Error("invalid NOTIFY_LEAD", "value", lead, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "NOTIFY_LEAD", duration)
			return duration
		}(),
	}
}

// ParseWeekday accepts full English names and three letter abbreviations.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return time.Sunday, false
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_PATH env, default to ./sqlite.db
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get OVERRIDE_BACKEND env, default to sqlite
func (c *Config) GetOverrideBackend() OverrideBackend {
	return c.overrideBackend
}

// Get BOLT_PATH env
func (c *Config) GetBoltPath() string {
	return c.boltPath
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get FIRST_WEEKDAY env, default to monday
func (c *Config) GetFirstWeekday() time.Weekday {
	return c.firstWeekday
}

// Get METRIC_COLLECTION_INTERVAL env, default to 15s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get MAX_RESCHEDULE_DRIFT env, 0 means unlimited
func (c *Config) GetMaxRescheduleDrift() time.Duration {
	return c.maxRescheduleDrift
}

// Get NOTIFY_LEAD env, default to 15m
func (c *Config) GetNotifyLead() time.Duration {
	return c.notifyLead
}
