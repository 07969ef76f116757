// Package system exercises the clock adapters.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// TestFixedAdvance checks the fixed clock only moves when told to.
func TestFixedAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))
	clk := NewFixed(start)
	if got := clk.Now(); !got.Equal(start) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", start, got)
	}
	clk.Advance(90 * time.Second)
	if got := clk.Now().Sub(start); got != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %v", got)
	}
}
