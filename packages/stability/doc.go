// Package stability re-evaluates guard cases many times and reports any case
// whose verdict is not the same on every evaluation.
//
// Evaluations are paced by a token bucket limiter and run on a bounded
// number of goroutines. Latencies are kept in an HDR histogram, overall and
// per case, so the summary can report percentiles without keeping samples.
package stability
