package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	MinFFTSize = 32
	MaxFFTSize = 32768

	DefaultFFTSize     = 2048
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -90.0
	DefaultMaxDecibels = -10.0

	blackmanAlpha = 0.16
)

// Settings control the spectral analysis of the extractor.
type Settings struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

func DefaultSettings() Settings {
	return Settings{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

func (s Settings) Validate() error {
	if !isPowerOfTwo(s.FFTSize) || s.FFTSize < MinFFTSize || s.FFTSize > MaxFFTSize {
		return configErrorf("fftSize", "must be a power of two in [%d, %d], got %d", MinFFTSize, MaxFFTSize, s.FFTSize)
	}
	if math.IsNaN(s.Smoothing) || s.Smoothing < 0 || s.Smoothing > 1 {
		return configErrorf("smoothing", "must be in [0, 1], got %g", s.Smoothing)
	}
	if math.IsNaN(s.MinDecibels) || math.IsNaN(s.MaxDecibels) || s.MinDecibels >= s.MaxDecibels {
		return configErrorf("decibels", "floor %g must be below ceiling %g", s.MinDecibels, s.MaxDecibels)
	}
	return nil
}

// BinCount is the number of frequency buckets produced per analysis.
func (s Settings) BinCount() int {
	return s.FFTSize / 2
}

// Analyser keeps the most recent FFTSize mono samples written by the audio
// pump and turns them into time and frequency domain snapshots on demand.
// Writers and readers may run on different goroutines.
type Analyser struct {
	mu         sync.Mutex
	settings   Settings
	ring       []float32
	writeIndex int

	// owned by the reading side
	fft      *fourier.FFT
	window   []float64
	windowed []float64
	coeffs   []complex128
	smoothed []float64
	scratch  []float32
}

func NewAnalyser(settings Settings) (*Analyser, error) {
	a := &Analyser{}
	if err := a.Reconfigure(settings); err != nil {
		return nil, err
	}
	return a, nil
}

func blackmanWindow(n int) []float64 {
	a0 := (1 - blackmanAlpha) / 2
	a1 := 0.5
	a2 := blackmanAlpha / 2
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}

// Reconfigure validates settings and resizes all buffers. Buffered samples
// and smoothing state are discarded when the FFT size changes.
func (a *Analyser) Reconfigure(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if settings.FFTSize != a.settings.FFTSize {
		n := settings.FFTSize
		a.ring = make([]float32, n)
		a.writeIndex = 0
		a.fft = fourier.NewFFT(n)
		a.window = blackmanWindow(n)
		a.windowed = make([]float64, n)
		a.coeffs = make([]complex128, n/2+1)
		a.smoothed = make([]float64, n/2)
		a.scratch = make([]float32, n)
	}
	a.settings = settings
	return nil
}

func (a *Analyser) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Write appends mono samples to the ring, overwriting the oldest.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.ring)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, smp := range samples {
		a.ring[a.writeIndex] = smp
		a.writeIndex++
		if a.writeIndex == n {
			a.writeIndex = 0
		}
	}
}

// Clear zeroes the buffered samples and the smoothing state.
func (a *Analyser) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	a.writeIndex = 0
}

// TimeDomain copies the buffered samples, oldest first, into dst which must
// hold FFTSize values.
func (a *Analyser) TimeDomain(dst []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.copyRing(dst)
}

func (a *Analyser) copyRing(dst []float32) {
	n := copy(dst, a.ring[a.writeIndex:])
	copy(dst[n:], a.ring[:a.writeIndex])
}

// Frequency computes the smoothed magnitude spectrum of the buffered
// samples. dB receives decibel values (BinCount entries), bytes the same
// values mapped linearly from [MinDecibels, MaxDecibels] onto [0, 255].
// Either destination may be nil.
func (a *Analyser) Frequency(dB []float32, bytes []uint8) {
	a.mu.Lock()
	a.copyRing(a.scratch)
	settings := a.settings
	a.mu.Unlock()

	n := settings.FFTSize
	for i, smp := range a.scratch {
		a.windowed[i] = float64(smp) * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)

	tau := settings.Smoothing
	dbRange := settings.MaxDecibels - settings.MinDecibels
	for k := range a.smoothed {
		magnitude := cmplxAbs(a.coeffs[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*magnitude
		db := linearToDecibels(a.smoothed[k])
		if dB != nil {
			dB[k] = float32(db)
		}
		if bytes != nil {
			scaled := math.Floor(255 / dbRange * (db - settings.MinDecibels))
			bytes[k] = uint8(clamp(scaled, 0, 255))
		}
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func linearToDecibels(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(x)
}
