package stability

import (
	"context"

	"golang.org/x/time/rate"
)

// Scheduler paces evaluations and bounds how many run at once
type Scheduler struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

// NewScheduler creates a scheduler. A rate of zero or less disables pacing.
func NewScheduler(perSecond float64, concurrency int) *Scheduler {
	s := &Scheduler{}

	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	s.sem = make(chan struct{}, concurrency)

	return s
}

// Wait blocks until the limiter allows the next evaluation
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter != nil {
		return s.limiter.Wait(ctx)
	}
	return nil
}

// Acquire acquires a slot from the concurrency semaphore
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot back to the semaphore
func (s *Scheduler) Release() {
	<-s.sem
}
