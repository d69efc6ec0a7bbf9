// Package timeouts holds the deadlines applied to catalogue operations.
//
// Handlers and workers derive their contexts from these values:
//   - Ping: health checks
//   - Short: single-document reads such as a clipboard lookup
//   - Medium: tree reads, attachment and prerequisite saves
//   - Long: content postponement and shortening of one education group
//   - Batch: a full year postponement run or an import
//
// Values are set once at startup through Configure.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 15 * time.Second
	DefaultLong   = 60 * time.Second
	DefaultBatch  = 30 * time.Minute
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

func get(v *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *v
}

// Ping returns the health check deadline.
func Ping() time.Duration { return get(&ping) }

// Short returns the deadline for single-document operations.
func Short() time.Duration { return get(&short) }

// Medium returns the deadline for tree-sized operations.
func Medium() time.Duration { return get(&medium) }

// Long returns the deadline for operations spanning several years of one group.
func Long() time.Duration { return get(&long) }

// Batch returns the deadline for catalogue-wide runs.
func Batch() time.Duration { return get(&batch) }

// Config holds timeout values. Zero values keep the current setting.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure overrides the non-zero values of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range []struct {
		dst *time.Duration
		v   time.Duration
	}{{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&long, cfg.Long}, {&batch, cfg.Batch}} {
		if p.v > 0 {
			*p.dst = p.v
		}
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, batch = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch
}

// WithTimeout derives a context bounded by timeout. Its cancel function logs
// a warning naming operation when the deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
