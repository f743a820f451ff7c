package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

// Collector aggregates the outcome of one probe batch.
type Collector struct {
	mu sync.Mutex

	// Latency Tracking (Successes only)
	latencies []time.Duration

	// Error Tracking
	errorCounts map[string]int
	totalErrors int
}

func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]int),
	}
}

func (c *Collector) RecordSuccess(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, duration)
}

func (c *Collector) RecordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalErrors++
	c.errorCounts[Classify(err)]++
}

// Classify buckets an error by its message.
func Classify(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "Timeout"
	case strings.Contains(msg, "refused"):
		return "Conn Refused"
	case strings.Contains(msg, "reset"):
		return "Conn Reset"
	case strings.Contains(msg, "EOF"):
		return "EOF / Empty"
	case strings.Contains(msg, "no such host"):
		return "DNS Error"
	}
	return "Unknown"
}

// Summary is a point-in-time view of the collector.
type Summary struct {
	Succeeded int
	Failed    int
	Average   time.Duration
	P50       time.Duration
	P90       time.Duration
	Errors    map[string]int
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Succeeded: len(c.latencies),
		Failed:    c.totalErrors,
		Errors:    make(map[string]int, len(c.errorCounts)),
	}
	for k, v := range c.errorCounts {
		s.Errors[k] = v
	}

	if len(c.latencies) > 0 {
		sorted := make([]time.Duration, len(c.latencies))
		copy(sorted, c.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		s.Average = average(sorted)
		s.P50 = sorted[len(sorted)/2]
		s.P90 = sorted[int(float64(len(sorted))*0.9)]
	}
	return s
}

func (c *Collector) PrintReport(w io.Writer) {
	s := c.Summary()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\n📊 \033[1mLATENCY REPORT\033[0m")
	fmt.Fprintln(tw, "────────────────────────────────────────")

	fmt.Fprintf(tw, "  Reachable:\t%d\n", s.Succeeded)
	fmt.Fprintf(tw, "  Unreachable:\t%d\n", s.Failed)
	if s.Succeeded > 0 {
		fmt.Fprintf(tw, "  Avg Latency:\t%v\n", s.Average.Round(time.Millisecond))
		fmt.Fprintf(tw, "  p50 (Median):\t%v\n", s.P50.Round(time.Millisecond))
		fmt.Fprintf(tw, "  p90 (Slowest 10%%):\t%v\n", s.P90.Round(time.Millisecond))
	}

	if s.Failed > 0 {
		kinds := make([]string, 0, len(s.Errors))
		for k := range s.Errors {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(tw, "  %s:\t%d\n", k, s.Errors[k])
		}
	}
	tw.Flush()
}

func average(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return time.Duration(int64(sum) / int64(len(d)))
}
