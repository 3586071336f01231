package stability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints stability summaries
type Reporter struct {
	writer  io.Writer
	noColor bool
	verbose bool

	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	magenta *color.Color
	bold    *color.Color
}

type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithVerbose adds per-case latencies to the summary
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.noColor {
		color.NoColor = true
	}
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.magenta = color.New(color.FgMagenta)
	r.bold = color.New(color.Bold)

	return r
}

// Header prints the check header
func (r *Reporter) Header(file string, repeat int, perSecond float64) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintf(r.writer, "Stability: %s\n", file)
	details := []string{fmt.Sprintf("Repeat: %d", repeat)}
	if perSecond > 0 {
		details = append(details, fmt.Sprintf("Rate: %.0f/s", perSecond))
	} else {
		details = append(details, "Rate: unpaced")
	}
	fmt.Fprintf(r.writer, "%s\n\n", strings.Join(details, " | "))
}

// Summary prints the per-case verdicts and the latency summary
func (r *Reporter) Summary(summary *Summary) {
	for _, c := range summary.Cases {
		switch {
		case c.Flaky():
			r.yellow.Fprintf(r.writer, "  ~ ")
			fmt.Fprintf(r.writer, "%s flaky (%d passed, %d failed, %d unreadable of %d)\n",
				c.Name, c.Passed, c.Failed, c.Errored, c.Runs)
		case c.Unreadable():
			r.magenta.Fprintf(r.writer, "  ! ")
			fmt.Fprintf(r.writer, "%s unreadable x%d\n", c.Name, c.Runs)
		case c.Errored > 0:
			r.magenta.Fprintf(r.writer, "  ! ")
			fmt.Fprintf(r.writer, "%s invalid x%d: %v\n", c.Name, c.Runs, c.Err)
		case c.Failed > 0:
			r.red.Fprintf(r.writer, "  ✗ ")
			fmt.Fprintf(r.writer, "%s failed x%d\n", c.Name, c.Runs)
		default:
			r.green.Fprintf(r.writer, "  ✓ ")
			fmt.Fprintf(r.writer, "%s passed x%d\n", c.Name, c.Runs)
		}
		if r.verbose {
			fmt.Fprintf(r.writer, "      p50: %s | p95: %s | p99: %s | max: %s\n",
				formatLatency(c.P50), formatLatency(c.P95), formatLatency(c.P99), formatLatency(c.Max))
		}
	}

	fmt.Fprintln(r.writer)
	fmt.Fprintf(r.writer, "Evaluations: %s in %s\n", formatNumber(summary.Evaluations), formatDuration(summary.Duration))
	fmt.Fprintf(r.writer, "Latency:     p50: %s | p95: %s | p99: %s | max: %s\n",
		formatLatency(summary.P50),
		formatLatency(summary.P95),
		formatLatency(summary.P99),
		formatLatency(summary.Max))

	if flaky := summary.Flaky(); len(flaky) > 0 {
		r.yellow.Fprintf(r.writer, "%d flaky case(s)\n", len(flaky))
	} else {
		r.green.Fprintln(r.writer, "All cases stable")
	}
	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the summary as JSON
func (r *Reporter) JSONSummary(file string, summary *Summary) error {
	cases := make([]map[string]any, len(summary.Cases))
	for i, c := range summary.Cases {
		cases[i] = map[string]any{
			"name":    c.Name,
			"file":    c.File,
			"line":    c.Line,
			"runs":    c.Runs,
			"passed":  c.Passed,
			"failed":  c.Failed,
			"errored": c.Errored,
			"flaky":   c.Flaky(),
			"verdict": c.Verdict().String(),
			"error":   errString(c.Err),
			"p50":     c.P50.Microseconds(),
			"p95":     c.P95.Microseconds(),
			"p99":     c.P99.Microseconds(),
			"max":     c.Max.Microseconds(),
		}
	}

	output := map[string]any{
		"suite":       file,
		"duration":    summary.Duration.String(),
		"evaluations": summary.Evaluations,
		"latencyUs": map[string]any{
			"p50":  summary.P50.Microseconds(),
			"p95":  summary.P95.Microseconds(),
			"p99":  summary.P99.Microseconds(),
			"max":  summary.Max.Microseconds(),
			"mean": summary.Mean.Microseconds(),
		},
		"cases": cases,
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatNumber formats a number with commas
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}

	start := len(s) % 3
	if start == 0 {
		start = 3
	}

	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	result = append(result, s[:start]...)
	for i := start; i < len(s); i += 3 {
		result = append(result, ',')
		result = append(result, s[i:i+3]...)
	}
	return string(result)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
