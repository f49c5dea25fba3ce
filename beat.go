package main

import (
	"math"
	"time"
)

const (
	// BeatHistorySize approximates one second of analysis frames at
	// typical polling rates.
	BeatHistorySize = 43
	// BeatThreshold is the multiple of the rolling average an energy sample
	// must exceed to count as a beat.
	BeatThreshold = 1.3
	// BeatWindow is how far back beat timestamps are kept for tempo
	// estimation.
	BeatWindow = 10 * time.Second
)

// BeatDetector detects onsets in a stream of low-frequency energy samples
// and estimates the tempo from the spacing of recent onsets.
type BeatDetector struct {
	history   [BeatHistorySize]float64
	head      int
	count     int
	beatTimes []time.Duration
	epoch     time.Time
	now       func() time.Time
}

func NewBeatDetector() *BeatDetector {
	return &BeatDetector{
		beatTimes: make([]time.Duration, 0, 64),
		now:       time.Now,
	}
}

// Observe feeds one energy sample using the wall clock as timestamp.
func (bd *BeatDetector) Observe(energy float64) bool {
	now := bd.now()
	if bd.epoch.IsZero() {
		bd.epoch = now
	}
	return bd.ObserveAt(energy, now.Sub(bd.epoch))
}

// ObserveAt feeds one energy sample observed at offset t from an arbitrary
// fixed origin. Offsets must not decrease between calls.
func (bd *BeatDetector) ObserveAt(energy float64, t time.Duration) bool {
	if bd.count < BeatHistorySize {
		bd.count++
	}
	bd.history[bd.head] = energy
	bd.head = (bd.head + 1) % BeatHistorySize

	if bd.count < BeatHistorySize {
		return false
	}
	var sum float64
	for _, e := range bd.history {
		sum += e
	}
	average := sum / BeatHistorySize
	if energy <= average*BeatThreshold {
		return false
	}
	bd.recordBeat(t)
	return true
}

func (bd *BeatDetector) recordBeat(t time.Duration) {
	bd.beatTimes = append(bd.beatTimes, t)
	keep := 0
	for _, bt := range bd.beatTimes {
		if t-bt < BeatWindow {
			bd.beatTimes[keep] = bt
			keep++
		}
	}
	bd.beatTimes = bd.beatTimes[:keep]
}

// EstimateBPM returns the tempo implied by the mean interval between the
// retained beats, or 0 when fewer than two beats are known.
func (bd *BeatDetector) EstimateBPM() float64 {
	n := len(bd.beatTimes)
	if n < 2 {
		return 0
	}
	span := bd.beatTimes[n-1] - bd.beatTimes[0]
	meanInterval := float64(span) / float64(time.Millisecond) / float64(n-1)
	if meanInterval <= 0 {
		return 0
	}
	return math.Round(60000 / meanInterval)
}

func (bd *BeatDetector) Reset() {
	bd.head = 0
	bd.count = 0
	bd.beatTimes = bd.beatTimes[:0]
	bd.epoch = time.Time{}
}
