package main

import (
	"fmt"
	"math"
	"sync"
)

type FilterType string

const (
	Lowpass  FilterType = "lowpass"
	Highpass FilterType = "highpass"
	Bandpass FilterType = "bandpass"
)

func ParseFilterType(s string) (FilterType, error) {
	switch FilterType(s) {
	case Lowpass, Highpass, Bandpass:
		return FilterType(s), nil
	default:
		return "", configErrorf("filterType", "unknown filter type %q", s)
	}
}

const (
	maxDelaySeconds     = 2.0
	compressorRatio     = 4.0
	compressorAttack    = 0.003
	compressorRelease   = 0.25
	filterQ             = 1.0
	distortionCurveStep = 20 * math.Pi / 180
)

// EffectParams configure the effect chain that sits between the source and
// the analyser.
type EffectParams struct {
	Enabled             bool
	FilterType          FilterType
	FilterFreq          float64 // Hz
	DelayTime           float64 // seconds
	DelayFeedback       float64 // [0, 1)
	DistortionAmount    float64 // >= 0
	CompressorThreshold float64 // dB
}

func DefaultEffectParams() EffectParams {
	return EffectParams{
		Enabled:             false,
		FilterType:          Lowpass,
		FilterFreq:          1000,
		DelayTime:           0.25,
		DelayFeedback:       0.3,
		DistortionAmount:    0,
		CompressorThreshold: -12,
	}
}

func (p EffectParams) Validate() error {
	if _, err := ParseFilterType(string(p.FilterType)); err != nil {
		return err
	}
	if p.FilterFreq <= 0 {
		return configErrorf("filterFreq", "must be positive, got %g", p.FilterFreq)
	}
	if p.DelayTime < 0 || p.DelayTime > maxDelaySeconds {
		return configErrorf("delayTime", "must be in [0, %g], got %g", maxDelaySeconds, p.DelayTime)
	}
	if p.DelayFeedback < 0 || p.DelayFeedback >= 1 {
		return configErrorf("delayFeedback", "must be in [0, 1), got %g", p.DelayFeedback)
	}
	if p.DistortionAmount < 0 {
		return configErrorf("distortionAmount", "must not be negative, got %g", p.DistortionAmount)
	}
	if p.CompressorThreshold > 0 || p.CompressorThreshold < -100 {
		return configErrorf("compressorThreshold", "must be in [-100, 0] dB, got %g", p.CompressorThreshold)
	}
	return nil
}

// EffectUpdate is a partial change of EffectParams; nil fields are left
// untouched.
type EffectUpdate struct {
	Enabled             *bool
	FilterType          *FilterType
	FilterFreq          *float64
	DelayTime           *float64
	DelayFeedback       *float64
	DistortionAmount    *float64
	CompressorThreshold *float64
}

func (u EffectUpdate) apply(p EffectParams) EffectParams {
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.FilterType != nil {
		p.FilterType = *u.FilterType
	}
	if u.FilterFreq != nil {
		p.FilterFreq = *u.FilterFreq
	}
	if u.DelayTime != nil {
		p.DelayTime = *u.DelayTime
	}
	if u.DelayFeedback != nil {
		p.DelayFeedback = *u.DelayFeedback
	}
	if u.DistortionAmount != nil {
		p.DistortionAmount = *u.DistortionAmount
	}
	if u.CompressorThreshold != nil {
		p.CompressorThreshold = *u.CompressorThreshold
	}
	return p
}

// EffectChain processes mono blocks:
// input -> filter -> (dry + feedback delay) -> distortion -> compressor.
type EffectChain struct {
	mu         sync.Mutex
	params     EffectParams
	sampleRate int
	filter     svf
	delay      feedbackDelay
	comp       compressor
}

func NewEffectChain(params EffectParams) (*EffectChain, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &EffectChain{params: params}, nil
}

func (ec *EffectChain) Params() EffectParams {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.params
}

// Update applies a partial parameter change. Invalid combinations are
// rejected and leave the chain unchanged.
func (ec *EffectChain) Update(u EffectUpdate) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	next := u.apply(ec.params)
	if err := next.Validate(); err != nil {
		return err
	}
	ec.params = next
	return nil
}

// Prepare sizes internal state for a new sample rate and clears it.
func (ec *EffectChain) Prepare(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.sampleRate = sampleRate
	ec.filter = svf{}
	ec.delay = newFeedbackDelay(int(maxDelaySeconds*float64(sampleRate)) + 1)
	ec.comp = compressor{}
	return nil
}

// Process runs the chain in place over buf. It is a no-op while the chain
// is disabled or not prepared.
func (ec *EffectChain) Process(buf []float32) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if !ec.params.Enabled || ec.sampleRate == 0 {
		return
	}
	p := ec.params
	sr := float64(ec.sampleRate)
	g := svfCoefficient(p.FilterFreq, sr)
	delayFrames := p.DelayTime * sr
	attack := timeConstant(compressorAttack, sr)
	release := timeConstant(compressorRelease, sr)
	for i, x := range buf {
		y := ec.filter.step(Smp(x), g, 1/filterQ, p.FilterType)
		y += ec.delay.step(y, delayFrames, p.DelayFeedback)
		y = distort(y, p.DistortionAmount)
		y = ec.comp.step(y, p.CompressorThreshold, attack, release)
		buf[i] = float32(y)
	}
}

// svf is a topology-preserving-transform state variable filter.
type svf struct {
	ic1eq, ic2eq Smp
}

// svfCoefficient computes tan(pi * min(0.499, f/sr)).
func svfCoefficient(cutoffHz, sampleRate float64) Smp {
	ratio := clamp(cutoffHz/sampleRate, 0, 0.499)
	return math.Tan(math.Pi * ratio)
}

func (f *svf) step(x, g, k Smp, ft FilterType) Smp {
	a1 := 1 / (1 + g*(g+k))
	a2 := g * a1
	a3 := g * a2
	v3 := x - f.ic2eq
	v1 := a1*f.ic1eq + a2*v3
	v2 := f.ic2eq + a2*f.ic1eq + a3*v3
	f.ic1eq = 2*v1 - f.ic1eq
	f.ic2eq = 2*v2 - f.ic2eq
	switch ft {
	case Highpass:
		return x - k*v1 - v2
	case Bandpass:
		return v1
	default:
		return v2
	}
}

// feedbackDelay is a comb with linear interpolation between taps.
type feedbackDelay struct {
	buf      []Smp
	writeIdx int
}

func newFeedbackDelay(size int) feedbackDelay {
	return feedbackDelay{buf: make([]Smp, max(size, 2))}
}

// step returns the delayed signal and feeds x plus the fed-back delayed
// signal into the line.
func (d *feedbackDelay) step(x Smp, delayFrames, feedback float64) Smp {
	size := len(d.buf)
	delayFrames = clamp(delayFrames, 1, float64(size-2))
	di := int(math.Floor(delayFrames))
	frac := delayFrames - float64(di)
	r0 := (d.writeIdx - di + size) % size
	r1 := (r0 - 1 + size) % size
	delayed := d.buf[r0] + Smp(frac)*(d.buf[r1]-d.buf[r0])
	d.buf[d.writeIdx] = x + Smp(feedback)*delayed
	d.writeIdx++
	if d.writeIdx == size {
		d.writeIdx = 0
	}
	return delayed
}

// distort applies the waveshaper curve (3+k)*x*20deg / (pi + k*|x|) to x
// clamped to [-1, 1].
func distort(x Smp, amount float64) Smp {
	x = clamp(x, -1, 1)
	return (3 + amount) * x * distortionCurveStep / (math.Pi + amount*math.Abs(x))
}

// compressor is a hard-knee feed-forward compressor with a peak envelope.
type compressor struct {
	env Smp
}

func timeConstant(seconds, sampleRate float64) Smp {
	return math.Exp(-1 / (seconds * sampleRate))
}

func (c *compressor) step(x Smp, thresholdDB float64, attack, release Smp) Smp {
	level := math.Abs(x)
	coeff := release
	if level > c.env {
		coeff = attack
	}
	c.env = coeff*c.env + (1-coeff)*level
	envDB := linearToDecibels(c.env)
	if envDB <= thresholdDB {
		return x
	}
	gainDB := (thresholdDB - envDB) * (1 - 1/compressorRatio)
	return x * math.Pow(10, gainDB/20)
}
