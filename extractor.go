package main

import (
	"context"
	"sync"
)

type ExtractorOptions struct {
	Settings Settings
	Effects  EffectParams
	// Monitor plays file and buffer sources through the output device.
	Monitor bool
}

func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		Settings: DefaultSettings(),
		Effects:  DefaultEffectParams(),
	}
}

// Extractor turns an attached audio source into per-frame AudioFrames.
//
// Source swaps and polls are mutually exclusive. The pump writes into the
// analyser under the analyser's own lock, so Poll never waits for audio I/O.
type Extractor struct {
	mu       sync.Mutex
	monitor  bool
	analyser *Analyser
	chain    *EffectChain
	beat     *BeatDetector
	pump     *pump
	source   SourceHandle
	bytes    []uint8
	closed   bool
}

func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	analyser, err := NewAnalyser(opts.Settings)
	if err != nil {
		return nil, err
	}
	chain, err := NewEffectChain(opts.Effects)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		monitor:  opts.Monitor,
		analyser: analyser,
		chain:    chain,
		beat:     NewBeatDetector(),
		bytes:    make([]uint8, opts.Settings.BinCount()),
	}, nil
}

// Configure changes the analysis settings. Invalid settings are rejected
// and the previous ones stay in effect.
func (e *Extractor) Configure(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return notInitialized("configure")
	}
	if err := e.analyser.Reconfigure(settings); err != nil {
		return err
	}
	if len(e.bytes) != settings.BinCount() {
		e.bytes = make([]uint8, settings.BinCount())
	}
	return nil
}

// AttachSource opens src and makes it the active source. Opening may block
// (decoding headers, starting a capture process) and happens outside the
// lock. On failure the previously attached source stays active.
func (e *Extractor) AttachSource(ctx context.Context, src SourceHandle) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return notInitialized("attach source")
	}

	node, err := src.open(ctx)
	if err != nil {
		return &SourceLoadError{Source: src.String(), Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		node.Stop()
		return notInitialized("attach source")
	}
	if e.pump != nil {
		if err := e.pump.stop(); err != nil {
			logger.Warn("stopping previous source failed", "source", e.source, "err", err)
		}
		e.pump = nil
		e.source = nil
	}
	e.analyser.Clear()
	e.beat.Reset()
	p, err := startPump(node, e.chain, e.analyser, e.monitor)
	if err != nil {
		node.Stop()
		return &SourceLoadError{Source: src.String(), Err: err}
	}
	e.pump = p
	e.source = src
	logger.Info("audio source attached", "kind", src.Kind(), "source", src.String())
	return nil
}

// Source returns the attached source handle, nil if none.
func (e *Extractor) Source() SourceHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Poll returns a fresh snapshot of the current analysis. It does not block
// on audio I/O.
func (e *Extractor) Poll() (*AudioFrame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, notInitialized("poll")
	}
	settings := e.analyser.Settings()
	frame := &AudioFrame{
		Frequency:   make([]float32, settings.BinCount()),
		Waveform:    make([]float32, settings.FFTSize),
		MinDecibels: settings.MinDecibels,
		MaxDecibels: settings.MaxDecibels,
		Effects:     e.chain.Params(),
	}
	e.analyser.TimeDomain(frame.Waveform)
	e.analyser.Frequency(frame.Frequency, e.bytes)
	frame.Bass, frame.Mid, frame.Treble, frame.Volume = bandEnergies(e.bytes)
	frame.Beat = e.beat.Observe(frame.Bass)
	frame.BPM = e.beat.EstimateBPM()
	return frame, nil
}

func (e *Extractor) EffectParams() EffectParams {
	return e.chain.Params()
}

// UpdateEffectParams applies a partial change to the effect chain.
func (e *Extractor) UpdateEffectParams(u EffectUpdate) error {
	return e.chain.Update(u)
}

// Close stops the pump and releases the source. It is idempotent.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	var err error
	if e.pump != nil {
		err = e.pump.stop()
		e.pump = nil
	}
	e.source = nil
	e.analyser.Clear()
	return err
}
