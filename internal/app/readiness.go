package app

import (
	"context"
	"fmt"

	httpserver "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/config"
)

// Pinger is the minimal interface for a dependency capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// PingFunc adapts a function to Pinger, e.g. a Redis client's Ping(ctx).Err().
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BuildReadinessChecks returns the probes for db, tika and, when configured,
// redis and the video analysis credentials. A nil rdb means the lock is disabled.
func BuildReadinessChecks(cfg config.Config, pool Pinger, rdb Pinger, tika Pinger) []httpserver.ReadinessCheck {
	checks := []httpserver.ReadinessCheck{
		{Name: "db", Check: func(ctx context.Context) error {
			if pool == nil {
				return fmt.Errorf("db not configured")
			}
			return pool.Ping(ctx)
		}},
		{Name: "tika", Check: func(ctx context.Context) error {
			if tika == nil {
				return fmt.Errorf("tika not configured")
			}
			return tika.Ping(ctx)
		}},
		{Name: "twelvelabs", Check: func(context.Context) error {
			if cfg.TwelveLabsAPIKey == "" || cfg.TwelveLabsIndexID == "" {
				return fmt.Errorf("twelvelabs api key or index id not configured")
			}
			return nil
		}},
	}
	if rdb != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx)
		}})
	}
	return checks
}
