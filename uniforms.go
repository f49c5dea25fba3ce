package main

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	UniformTime           = "time"
	UniformResolution     = "resolution"
	UniformMouse          = "mouse"
	UniformAudioVolume    = "audioVolume"
	UniformAudioBass      = "audioBass"
	UniformAudioMid       = "audioMid"
	UniformAudioTreble    = "audioTreble"
	UniformAudioBeat      = "audioBeat"
	UniformAudioBPM       = "audioBPM"
	UniformAudioFrequency = "audioFrequency"
)

// wellKnownUniforms are looked up after every successful compile.
var wellKnownUniforms = []string{
	UniformTime,
	UniformResolution,
	UniformMouse,
	UniformAudioVolume,
	UniformAudioBass,
	UniformAudioMid,
	UniformAudioTreble,
	UniformAudioBeat,
	UniformAudioBPM,
	UniformAudioFrequency,
}

// UniformValue holds one float or vec2 uniform.
type UniformValue []float32

func Float(v float64) UniformValue {
	return UniformValue{float32(v)}
}

func Vec2(v mgl32.Vec2) UniformValue {
	return UniformValue{v.X(), v.Y()}
}

// UniformSet is a per-frame snapshot of uniform values. Texture uniforms
// such as audioFrequency are carried as raw bytes in Textures.
type UniformSet struct {
	Values   map[string]UniformValue
	Textures map[string][]uint8
}

func NewUniformSet() UniformSet {
	return UniformSet{
		Values:   make(map[string]UniformValue),
		Textures: make(map[string][]uint8),
	}
}

func (us UniformSet) Float(name string) (float32, bool) {
	v, ok := us.Values[name]
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (us UniformSet) Clone() UniformSet {
	out := NewUniformSet()
	for k, v := range us.Values {
		out.Values[k] = append(UniformValue(nil), v...)
	}
	for k, v := range us.Textures {
		out.Textures[k] = append([]uint8(nil), v...)
	}
	return out
}

// AudioUniforms adds the audio-derived uniforms of frame to base and
// returns it. A nil frame yields silence.
func AudioUniforms(frame *AudioFrame, base UniformSet) UniformSet {
	if base.Values == nil || base.Textures == nil {
		base = NewUniformSet()
	}
	if frame == nil {
		frame = &AudioFrame{}
	}
	beat := 0.0
	if frame.Beat {
		beat = 1
	}
	base.Values[UniformAudioVolume] = Float(frame.Volume)
	base.Values[UniformAudioBass] = Float(frame.Bass)
	base.Values[UniformAudioMid] = Float(frame.Mid)
	base.Values[UniformAudioTreble] = Float(frame.Treble)
	base.Values[UniformAudioBeat] = Float(beat)
	base.Values[UniformAudioBPM] = Float(frame.BPM)
	if len(frame.Frequency) > 0 {
		base.Textures[UniformAudioFrequency] = frequencyTexture(frame)
	} else {
		delete(base.Textures, UniformAudioFrequency)
	}
	return base
}

// frequencyTexture maps dB values from the frame's floor/ceiling range onto
// [0, 255].
func frequencyTexture(frame *AudioFrame) []uint8 {
	out := make([]uint8, len(frame.Frequency))
	dbRange := frame.MaxDecibels - frame.MinDecibels
	if dbRange <= 0 {
		return out
	}
	for i, db := range frame.Frequency {
		scaled := (float64(db) - frame.MinDecibels) / dbRange * 255
		if math.IsNaN(scaled) {
			continue
		}
		out[i] = uint8(clamp(math.Floor(scaled), 0, 255))
	}
	return out
}

// UniformBridge holds the most recent audio frame and derives the audio
// uniforms from it on demand.
type UniformBridge struct {
	mu    sync.Mutex
	frame *AudioFrame
}

func (ub *UniformBridge) Push(frame *AudioFrame) {
	ub.mu.Lock()
	defer ub.mu.Unlock()
	ub.frame = frame
}

func (ub *UniformBridge) Frame() *AudioFrame {
	ub.mu.Lock()
	defer ub.mu.Unlock()
	return ub.frame
}

func (ub *UniformBridge) Uniforms(base UniformSet) UniformSet {
	return AudioUniforms(ub.Frame(), base)
}
