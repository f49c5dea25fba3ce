package main

// AudioFrame is one polled snapshot of the audio analysis. Every Poll
// returns a fresh frame owned by the caller.
type AudioFrame struct {
	// Frequency holds FFTSize/2 magnitudes in dB.
	Frequency []float32
	// Waveform holds FFTSize samples in [-1, 1], oldest first.
	Waveform []float32

	Bass   float64
	Mid    float64
	Treble float64
	Volume float64

	Beat bool
	// BPM is the estimated tempo, 0 when unknown.
	BPM float64

	// MinDecibels and MaxDecibels are the analyser range Frequency should
	// be normalised against.
	MinDecibels float64
	MaxDecibels float64

	Effects EffectParams
}

// SilentFrame returns an all-zero frame with buffers sized for settings.
func SilentFrame(settings Settings) *AudioFrame {
	frequency := make([]float32, settings.BinCount())
	for i := range frequency {
		frequency[i] = float32(settings.MinDecibels)
	}
	return &AudioFrame{
		Frequency:   frequency,
		Waveform:    make([]float32, settings.FFTSize),
		MinDecibels: settings.MinDecibels,
		MaxDecibels: settings.MaxDecibels,
	}
}

const (
	bassSplit = 0.1
	midSplit  = 0.5
)

// bandSplits returns the exclusive end indices of the bass and mid bands
// for n frequency buckets.
func bandSplits(n int) (bassEnd, midEnd int) {
	return int(float64(n) * bassSplit), int(float64(n) * midSplit)
}

// bandEnergies averages byte frequency data over the bass, mid and treble
// ranges and over all buckets, scaled to [0, 1].
func bandEnergies(data []uint8) (bass, mid, treble, volume float64) {
	n := len(data)
	if n == 0 {
		return 0, 0, 0, 0
	}
	bassEnd, midEnd := bandSplits(n)
	mean := func(lo, hi int) float64 {
		if hi <= lo {
			return 0
		}
		var sum int
		for _, v := range data[lo:hi] {
			sum += int(v)
		}
		return float64(sum) / float64(hi-lo) / 255
	}
	return mean(0, bassEnd), mean(bassEnd, midEnd), mean(midEnd, n), mean(0, n)
}
