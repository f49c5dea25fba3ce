package main

import (
	"testing"
	"time"
)

func TestBeatNeedsFullHistory(t *testing.T) {
	bd := NewBeatDetector()
	for i := range BeatHistorySize - 1 {
		if bd.ObserveAt(float64(i+1)*10, time.Duration(i)*time.Millisecond) {
			t.Fatalf("beat reported before the history was full (sample %d)", i)
		}
	}
}

func TestBeatConstantEnergy(t *testing.T) {
	bd := NewBeatDetector()
	for i := range BeatHistorySize * 3 {
		if bd.ObserveAt(0.5, time.Duration(i)*16*time.Millisecond) {
			t.Fatalf("constant energy reported a beat at sample %d", i)
		}
	}
	if bpm := bd.EstimateBPM(); bpm != 0 {
		t.Errorf("bpm = %v, want 0", bpm)
	}
}

func TestBeatSilence(t *testing.T) {
	bd := NewBeatDetector()
	for i := range BeatHistorySize * 2 {
		if bd.ObserveAt(0, time.Duration(i)*time.Millisecond) {
			t.Fatal("silence reported a beat")
		}
	}
}

func TestBeatSpike(t *testing.T) {
	bd := NewBeatDetector()
	for i := range BeatHistorySize - 1 {
		bd.ObserveAt(1, time.Duration(i)*time.Millisecond)
	}
	if !bd.ObserveAt(10, 100*time.Millisecond) {
		t.Fatal("spike above threshold was not detected")
	}
}

// feedBeats drives the detector with one spike at every offset in times,
// separated by quiet stretches long enough to refill the history.
func feedBeats(bd *BeatDetector, times []time.Duration) int {
	detected := 0
	for _, at := range times {
		for i := range BeatHistorySize {
			bd.ObserveAt(0.1, at-time.Duration(BeatHistorySize-i)*time.Microsecond)
		}
		if bd.ObserveAt(1, at) {
			detected++
		}
	}
	return detected
}

func TestBeatBPM(t *testing.T) {
	bd := NewBeatDetector()
	times := []time.Duration{0, 500 * time.Millisecond, 1000 * time.Millisecond}
	if got := feedBeats(bd, times); got != len(times) {
		t.Fatalf("detected %d beats, want %d", got, len(times))
	}
	if bpm := bd.EstimateBPM(); bpm != 120 {
		t.Errorf("bpm = %v, want 120", bpm)
	}
}

func TestBeatSingleBeatHasNoTempo(t *testing.T) {
	bd := NewBeatDetector()
	feedBeats(bd, []time.Duration{time.Second})
	if bpm := bd.EstimateBPM(); bpm != 0 {
		t.Errorf("bpm = %v, want 0", bpm)
	}
}

func TestBeatWindowDropsOldBeats(t *testing.T) {
	bd := NewBeatDetector()
	// a slow pair far in the past followed by a fast pair
	feedBeats(bd, []time.Duration{time.Second, 3 * time.Second})
	feedBeats(bd, []time.Duration{20 * time.Second, 20*time.Second + 250*time.Millisecond})
	if bpm := bd.EstimateBPM(); bpm != 240 {
		t.Errorf("bpm = %v, want 240", bpm)
	}
}

func TestBeatReset(t *testing.T) {
	bd := NewBeatDetector()
	feedBeats(bd, []time.Duration{0, 500 * time.Millisecond})
	bd.Reset()
	if bpm := bd.EstimateBPM(); bpm != 0 {
		t.Errorf("bpm after reset = %v, want 0", bpm)
	}
	if bd.ObserveAt(100, time.Second) {
		t.Error("beat reported right after reset")
	}
}

func TestBeatObserveUsesClock(t *testing.T) {
	bd := NewBeatDetector()
	now := time.Unix(1000, 0)
	bd.now = func() time.Time { return now }
	for range 2 {
		for range BeatHistorySize {
			bd.Observe(0.1)
			now = now.Add(time.Millisecond)
		}
		bd.Observe(1)
		now = now.Add(500*time.Millisecond - BeatHistorySize*time.Millisecond)
	}
	if bpm := bd.EstimateBPM(); bpm != 120 {
		t.Errorf("bpm = %v, want 120", bpm)
	}
}
