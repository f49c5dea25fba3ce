package main

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	pumpBlockFrames = 1024
	pumpTick        = 10 * time.Millisecond
)

// pump moves samples from an opened source node through the effect chain
// into the analyser ring.
type pump struct {
	mu        sync.Mutex
	node      SourceNode
	chain     *EffectChain
	analyser  *Analyser
	frame     []float32
	mono      []float32
	exhausted bool

	cancel  context.CancelFunc
	done    chan struct{}
	player  *oto.Player
	monitor *monitorReader
}

// startPump begins feeding the analyser from node. With monitor set and an
// output context available, file and buffer sources are driven by the
// output device; otherwise a ticker paces them in real time. Live sources
// are paced by the capture process.
func startPump(node SourceNode, chain *EffectChain, analyser *Analyser, monitor bool) (*pump, error) {
	if err := chain.Prepare(node.SampleRate()); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &pump{
		node:     node,
		chain:    chain,
		analyser: analyser,
		frame:    make([]float32, pumpBlockFrames*node.Channels()),
		mono:     make([]float32, pumpBlockFrames),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	switch {
	case node.Kind() == LiveDevice:
		go p.runLive(ctx)
	case monitor && otoContext != nil:
		mr, err := newMonitorReader(p, otoSampleRate)
		if err != nil {
			cancel()
			return nil, err
		}
		p.monitor = mr
		p.player = otoContext.NewPlayer(mr)
		p.player.Play()
		close(p.done)
	default:
		go p.runPaced(ctx)
	}
	logger.Debug("pump started", "kind", node.Kind(), "sampleRate", node.SampleRate(), "channels", node.Channels(), "monitor", p.player != nil)
	return p, nil
}

// pull reads up to frames frames from the node, processes them and writes
// them to the analyser. It returns the processed mono block, which is
// silence once the node is exhausted.
func (p *pump) pull(frames int) []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	frames = min(frames, pumpBlockFrames)
	mono := p.mono[:frames]
	if p.exhausted {
		clear(mono)
		p.analyser.Write(mono)
		return mono
	}
	channels := p.node.Channels()
	buf := p.frame[:frames*channels]
	n, err := p.node.ReadSamples(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			logger.Info("audio source exhausted")
		} else {
			logger.Error("audio source read failed", "err", err)
		}
		p.exhausted = true
	}
	got := mixToMono(mono, buf[:n-n%channels], channels)
	clear(mono[got:])
	p.chain.Process(mono)
	p.analyser.Write(mono)
	return mono
}

func (p *pump) runPaced(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(pumpTick)
	defer ticker.Stop()
	sampleRate := float64(p.node.SampleRate())
	start := time.Now()
	var delivered int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due := int64(now.Sub(start).Seconds()*sampleRate) - delivered
			for due > 0 {
				n := min(due, pumpBlockFrames)
				p.pull(int(n))
				delivered += n
				due -= n
			}
		}
	}
}

func (p *pump) runLive(ctx context.Context) {
	defer close(p.done)
	block := max(p.node.SampleRate()/100, 1)
	for ctx.Err() == nil {
		p.pull(block)
		p.mu.Lock()
		exhausted := p.exhausted
		p.mu.Unlock()
		if exhausted {
			return
		}
	}
}

// stop halts the pump and releases the node. Stopping the node first
// unblocks a live capture read.
func (p *pump) stop() error {
	p.cancel()
	if p.player != nil {
		p.player.Pause()
	}
	err := p.node.Stop()
	<-p.done
	if p.player != nil {
		err = errors.Join(err, p.player.Close())
		err = errors.Join(err, p.monitor.Close())
	}
	return err
}
