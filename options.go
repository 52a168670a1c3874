package slotmatch

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/slotmatch/codec"
	"github.com/hupe1980/slotmatch/distribute"
	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/match"
	"github.com/hupe1980/slotmatch/partition"
)

type options struct {
	slots            int
	workers          int
	pageSize         int
	distribution     distribute.Strategy
	evaluator        match.Evaluator
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
}

// Option configures a Matcher.
type Option func(*options)

// WithSlots sets the number of availability slots per mask. It must be a
// positive multiple of 8; the mask width is slots/8 bytes. Default 336 (one
// week of half-hour slots).
func WithSlots(slots int) Option {
	return func(o *options) {
		o.slots = slots
	}
}

// WithWorkers sets how many partitions are evaluated at once.
// Default runtime.GOMAXPROCS(0).
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithPageSize sets the page size Run uses to partition events. Default 1000.
func WithPageSize(pageSize int) Option {
	return func(o *options) {
		o.pageSize = pageSize
	}
}

// WithDistribution sets the strategy Run uses to share the user snapshot.
// Default distribute.InProcess().
func WithDistribution(s distribute.Strategy) Option {
	return func(o *options) {
		o.distribution = s
	}
}

// WithEvaluator sets the superset-match evaluator. Default match.Bytewise.
func WithEvaluator(ev match.Evaluator) Option {
	return func(o *options) {
		o.evaluator = ev
	}
}

// WithCodec sets the codec reports are encoded with.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &slotmatch.BasicMetricsCollector{}
//	m, _ := slotmatch.New(src, slotmatch.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Printf("Runs: %d, Avg latency: %dns\n", stats.RunCount, stats.RunAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := slotmatch.NewJSONLogger(slog.LevelInfo)
//	m, _ := slotmatch.New(src, slotmatch.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares worker, memory and IO limits with other
// matchers using the same controller. Event page reads are rate limited
// and snapshot copies made by a built-in strategy are charged to it,
// unless the strategy was given its own distribute.WithResourceController.
func WithResourceController(ctl *resource.Controller) Option {
	return func(o *options) {
		o.resources = ctl
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		slots:            mask.DefaultSlots,
		workers:          runtime.GOMAXPROCS(0),
		pageSize:         partition.DefaultPageSize,
		distribution:     distribute.InProcess(),
		evaluator:        match.Bytewise{},
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) validate() error {
	switch {
	case o.slots <= 0:
		return fmt.Errorf("%w: slots must be positive, got %d", ErrInvalidConfig, o.slots)
	case o.workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, o.workers)
	case o.pageSize <= 0:
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfig, o.pageSize)
	case o.distribution == nil:
		return fmt.Errorf("%w: no distribution strategy", ErrInvalidConfig)
	case o.evaluator == nil:
		return fmt.Errorf("%w: no evaluator", ErrInvalidConfig)
	}
	return nil
}
