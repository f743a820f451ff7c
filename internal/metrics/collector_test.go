package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSummary(t *testing.T) {
	c := New()
	for i := 1; i <= 10; i++ {
		c.RecordSuccess(time.Duration(i) * 10 * time.Millisecond)
	}
	c.RecordFailure(errors.New("dial tcp: i/o timeout"))
	c.RecordFailure(errors.New("connection refused"))
	c.RecordFailure(errors.New("something odd"))

	s := c.Summary()
	if s.Succeeded != 10 || s.Failed != 3 {
		t.Fatalf("counts = %d/%d", s.Succeeded, s.Failed)
	}
	if s.P50 != 60*time.Millisecond || s.P90 != 100*time.Millisecond {
		t.Fatalf("p50=%v p90=%v", s.P50, s.P90)
	}
	if s.Average != 55*time.Millisecond {
		t.Fatalf("avg=%v", s.Average)
	}
	if s.Errors["Timeout"] != 1 || s.Errors["Conn Refused"] != 1 || s.Errors["Unknown"] != 1 {
		t.Fatalf("errors = %v", s.Errors)
	}

	var buf bytes.Buffer
	c.PrintReport(&buf)
	if !strings.Contains(buf.String(), "Reachable:") {
		t.Fatalf("report missing content:\n%s", buf.String())
	}
}
