package main

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const (
	monitorChannels   = 2
	monitorFrameBytes = monitorChannels * 4
)

var (
	otoContext     *oto.Context
	otoSampleRate  int
	otoContextOnce sync.Once
	otoContextErr  error
)

// InitOtoContext creates the process-wide output context. oto allows a
// single context per process, later calls return the first result.
func InitOtoContext(sampleRate int) error {
	otoContextOnce.Do(func() {
		otoContextOptions := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: monitorChannels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   0,
		}
		ctx, readyChan, err := oto.NewContext(otoContextOptions)
		if err != nil {
			otoContextErr = err
			return
		}
		<-readyChan
		otoContext = ctx
		otoSampleRate = sampleRate
		logger.Info("audio output ready", "sampleRate", sampleRate)
	})
	return otoContextErr
}

// monitorReader is the io.Reader oto pulls from. Every read drives the pump
// so the analyser sees exactly what is being played.
type monitorReader struct {
	p         *pump
	resampler *monoResampler
	pending   []float32
}

func newMonitorReader(p *pump, outputRate int) (*monitorReader, error) {
	mr := &monitorReader{p: p}
	if outputRate != p.node.SampleRate() {
		ratio := float64(outputRate) / float64(p.node.SampleRate())
		rs, err := newMonoResampler(ratio)
		if err != nil {
			return nil, err
		}
		mr.resampler = rs
	}
	return mr, nil
}

func (mr *monitorReader) Read(buf []byte) (int, error) {
	frames := len(buf) / monitorFrameBytes
	for len(mr.pending) < frames {
		need := frames - len(mr.pending)
		if mr.resampler != nil {
			need = int(math.Ceil(float64(need)/mr.resampler.ratio)) + 1
		}
		block := mr.p.pull(min(need, pumpBlockFrames))
		if mr.resampler != nil {
			out, err := mr.resampler.process(block)
			if err != nil {
				logger.Error("monitor resampling failed", "err", err)
				mr.resampler = nil
				out = block
			}
			block = out
		}
		mr.pending = append(mr.pending, block...)
	}
	for i, smp := range mr.pending[:frames] {
		bits := math.Float32bits(smp)
		off := i * monitorFrameBytes
		binary.LittleEndian.PutUint32(buf[off:], bits)
		binary.LittleEndian.PutUint32(buf[off+4:], bits)
	}
	mr.pending = mr.pending[:copy(mr.pending, mr.pending[frames:])]
	return frames * monitorFrameBytes, nil
}

func (mr *monitorReader) Close() error {
	if mr.resampler != nil {
		return mr.resampler.Close()
	}
	return nil
}
