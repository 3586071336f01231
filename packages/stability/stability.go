package stability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/assertions"
	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"go.uber.org/zap"
)

const (
	DefaultRepeat      = 10
	DefaultConcurrency = 5
)

type Config struct {
	// Repeat is how many times every case is evaluated.
	Repeat int
	// Rate caps evaluations per second. Zero means unpaced.
	Rate        float64
	Concurrency int
	Logger      *zap.Logger
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Repeat < 0 {
		return fmt.Errorf("repeat must not be negative, got %d", c.Repeat)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %g", c.Rate)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// Checker evaluates cases repeatedly
type Checker struct {
	config    *Config
	scheduler *Scheduler
	logger    *zap.Logger
}

func NewChecker(cfg *Config) (*Checker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := *cfg
	if c.Repeat == 0 {
		c.Repeat = DefaultRepeat
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Checker{
		config:    &c,
		scheduler: NewScheduler(c.Rate, c.Concurrency),
		logger:    logger,
	}, nil
}

// Repeat returns the effective number of evaluations per case.
func (c *Checker) Repeat() int {
	return c.config.Repeat
}

// Run evaluates every case Repeat times against root. On cancellation it
// waits for in-flight evaluations and returns the partial summary together
// with the context error.
func (c *Checker) Run(ctx context.Context, root guard.ProjectRoot, cases []*parser.Case) (*Summary, error) {
	metrics := NewMetrics()
	indexes := make([]int, len(cases))
	for i, tc := range cases {
		indexes[i] = metrics.Register(tc.Name, tc.File, tc.Line)
	}

	evaluator := assertions.NewEvaluator(root, assertions.WithLogger(c.logger))

	c.logger.Debug("stability check starting",
		zap.String("root", root.String()),
		zap.Int("cases", len(cases)),
		zap.Int("repeat", c.config.Repeat),
		zap.Float64("rate", c.config.Rate))

	var wg sync.WaitGroup
	var runErr error

	metrics.Start()
loop:
	for round := 0; round < c.config.Repeat; round++ {
		for i, tc := range cases {
			if err := ctx.Err(); err != nil {
				runErr = err
				break loop
			}
			if err := c.scheduler.Wait(ctx); err != nil {
				runErr = err
				break loop
			}
			if err := c.scheduler.Acquire(ctx); err != nil {
				runErr = err
				break loop
			}

			wg.Add(1)
			go func(idx int, tc *parser.Case) {
				defer wg.Done()
				defer c.scheduler.Release()

				start := time.Now()
				res := evaluator.Evaluate(tc)
				metrics.Record(idx, time.Since(start), res.Verdict, res.Err)
			}(indexes[i], tc)
		}
	}
	wg.Wait()
	metrics.Stop()

	summary := metrics.GetSummary()
	for _, cs := range summary.Flaky() {
		c.logger.Warn("flaky case",
			zap.String("name", cs.Name),
			zap.String("file", cs.File),
			zap.Int64("passed", cs.Passed),
			zap.Int64("failed", cs.Failed),
			zap.Int64("errored", cs.Errored))
	}

	return summary, runErr
}
