package stability

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects verdicts and latencies of repeated evaluations
type Metrics struct {
	mu sync.RWMutex

	evaluations atomic.Int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	cases []*CaseMetrics

	startTime time.Time
	endTime   time.Time
}

// CaseMetrics holds the metrics of one case
type CaseMetrics struct {
	Name string
	File string
	Line int

	verdicts  [4]atomic.Int64
	histogram *hdrhistogram.Histogram
	err       error
	mu        sync.Mutex
}

func newHistogram() *hdrhistogram.Histogram {
	// 1us to 60s range, 3 significant digits
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
	}
}

// Register adds a case and returns the index to record its evaluations under.
func (m *Metrics) Register(name, file string, line int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cases = append(m.cases, &CaseMetrics{
		Name:      name,
		File:      file,
		Line:      line,
		histogram: newHistogram(),
	})
	return len(m.cases) - 1
}

func (m *Metrics) Start() {
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

// Record records one evaluation of the case registered at idx. err is the
// error the evaluation returned, nil when it passed.
func (m *Metrics) Record(idx int, duration time.Duration, verdict guard.Verdict, err error) {
	m.evaluations.Add(1)
	latencyUs := clampLatency(duration)

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	cm := m.cases[idx]
	m.mu.Unlock()

	if verdict >= guard.Pass && verdict <= guard.Skip {
		cm.verdicts[verdict].Add(1)
	}

	cm.mu.Lock()
	_ = cm.histogram.RecordValue(latencyUs)
	if verdict == guard.Error && err != nil && worseError(err, cm.err) {
		cm.err = err
	}
	cm.mu.Unlock()
}

// worseError reports whether err outranks prev. A malformed check outranks
// an unreadable file.
func worseError(err, prev error) bool {
	if prev == nil {
		return true
	}
	return errors.Is(prev, guard.ErrIO) && !errors.Is(err, guard.ErrIO)
}

// Summary is the outcome of a stability check
type Summary struct {
	Duration    time.Duration
	Evaluations int64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration

	Cases []*CaseSummary
}

// CaseSummary holds the verdict counts and latencies of one case
type CaseSummary struct {
	Name    string
	File    string
	Line    int
	Runs    int64
	Passed  int64
	Failed  int64
	Errored int64

	// Err is the most severe error of the errored evaluations, nil when
	// none errored.
	Err error

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// Flaky reports whether the case produced more than one verdict.
func (c *CaseSummary) Flaky() bool {
	distinct := 0
	for _, n := range []int64{c.Passed, c.Failed, c.Errored} {
		if n > 0 {
			distinct++
		}
	}
	return distinct > 1
}

// Verdict returns the verdict of a stable case. Flaky cases report Fail.
func (c *CaseSummary) Verdict() guard.Verdict {
	switch {
	case c.Runs == 0:
		return guard.Skip
	case c.Flaky():
		return guard.Fail
	case c.Errored > 0:
		return guard.Error
	case c.Failed > 0:
		return guard.Fail
	default:
		return guard.Pass
	}
}

// Unreadable reports whether every error of the case was an unreadable file.
func (c *CaseSummary) Unreadable() bool {
	return c.Errored > 0 && errors.Is(c.Err, guard.ErrIO)
}

// Flaky returns the cases whose verdict changed between evaluations.
func (s *Summary) Flaky() []*CaseSummary {
	var flaky []*CaseSummary
	for _, c := range s.Cases {
		if c.Flaky() {
			flaky = append(flaky, c)
		}
	}
	return flaky
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	summary := &Summary{
		Duration:    duration,
		Evaluations: m.evaluations.Load(),
		P50:         us(m.histogram.ValueAtQuantile(50)),
		P95:         us(m.histogram.ValueAtQuantile(95)),
		P99:         us(m.histogram.ValueAtQuantile(99)),
		Max:         us(m.histogram.Max()),
		Mean:        time.Duration(m.histogram.Mean()) * time.Microsecond,
		Cases:       make([]*CaseSummary, 0, len(m.cases)),
	}

	for _, cm := range m.cases {
		cs := &CaseSummary{
			Name:    cm.Name,
			File:    cm.File,
			Line:    cm.Line,
			Passed:  cm.verdicts[guard.Pass].Load(),
			Failed:  cm.verdicts[guard.Fail].Load(),
			Errored: cm.verdicts[guard.Error].Load(),
		}
		cs.Runs = cs.Passed + cs.Failed + cs.Errored

		cm.mu.Lock()
		cs.Err = cm.err
		cs.P50 = us(cm.histogram.ValueAtQuantile(50))
		cs.P95 = us(cm.histogram.ValueAtQuantile(95))
		cs.P99 = us(cm.histogram.ValueAtQuantile(99))
		cs.Max = us(cm.histogram.Max())
		cs.Mean = time.Duration(cm.histogram.Mean()) * time.Microsecond
		cm.mu.Unlock()

		summary.Cases = append(summary.Cases, cs)
	}

	return summary
}
