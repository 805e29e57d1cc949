package auth

import (
	"testing"
	"time"
)

func TestTimingDelay_WaitAtLeastBase(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 20, RandomDelayMs: 10})

	start := time.Now()
	td.Wait()
	elapsed := time.Since(start)

	if elapsed < 20*time.Millisecond {
		t.Errorf("Wait() returned after %v, want >= 20ms", elapsed)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("Wait() took %v, want well under 100ms", elapsed)
	}
}

func TestTimingDelay_WaitFromDiscountsElapsed(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 30})

	start := time.Now().Add(-25 * time.Millisecond)
	before := time.Now()
	td.WaitFrom(start)
	slept := time.Since(before)

	if slept > 20*time.Millisecond {
		t.Errorf("WaitFrom slept %v, want <= 20ms after discounting elapsed time", slept)
	}
}

func TestTimingDelay_ZeroConfigIsNoop(t *testing.T) {
	td := NewTimingDelay(TimingConfig{})

	start := time.Now()
	td.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Errorf("Wait() with zero config took %v", elapsed)
	}
}
