package metrics

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func withEnabled(t *testing.T, on bool) {
	t.Helper()
	prev := Enabled()
	SetEnabled(on)
	ResetAll()
	t.Cleanup(func() {
		SetEnabled(prev)
		ResetAll()
	})
}

func TestTimingMetric_Record(t *testing.T) {
	withEnabled(t, true)

	m := newTimingMetric("op")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(0)

	s := m.Stats()
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.MaxMs != 4 {
		t.Errorf("MaxMs = %v, want 4", s.MaxMs)
	}
	if s.MinMs <= 0 || s.MinMs > 0.001 {
		t.Errorf("MinMs = %v, want the 1ns floor", s.MinMs)
	}
	if s.TotalMs < 6 || s.TotalMs > 6.001 {
		t.Errorf("TotalMs = %v, want ~6", s.TotalMs)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Error("Reset left measurements behind")
	}
}

func TestTimingMetric_Disabled(t *testing.T) {
	withEnabled(t, false)

	m := newTimingMetric("op")
	m.Record(time.Millisecond)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("Count = %d while disabled", m.Count())
	}
}

func TestTimer(t *testing.T) {
	withEnabled(t, true)

	stop := Timer(SettleDuration)
	time.Sleep(time.Millisecond)
	stop()
	if SettleDuration.Count() != 1 {
		t.Fatalf("Count = %d, want 1", SettleDuration.Count())
	}
	if SettleDuration.Stats().MaxMs < 1 {
		t.Errorf("MaxMs = %v, want >= 1", SettleDuration.Stats().MaxMs)
	}

	// A nil metric is a no-op.
	Timer(nil)()
}

func TestTimingMetric_Concurrent(t *testing.T) {
	withEnabled(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				PageFetch.Record(time.Microsecond)
			}
		}()
	}
	wg.Wait()
	if got := PageFetch.Count(); got != 800 {
		t.Errorf("Count = %d, want 800", got)
	}
}

func TestWriteSummary(t *testing.T) {
	withEnabled(t, true)

	TickDuration.Record(3 * time.Millisecond)
	PageFetch.Record(time.Millisecond)

	var buf bytes.Buffer
	if err := WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("summary has %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "page_fetch") || !strings.HasPrefix(lines[1], "tick") {
		t.Errorf("summary order:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "max=3.000ms") {
		t.Errorf("tick line = %q", lines[1])
	}
}
