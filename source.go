package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

type SourceKind int

const (
	FileBacked SourceKind = iota
	LiveDevice
	Buffered
)

func (k SourceKind) String() string {
	switch k {
	case FileBacked:
		return "file"
	case LiveDevice:
		return "live"
	case Buffered:
		return "buffer"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// SourceHandle describes an audio source that can be attached to an
// Extractor. The set of implementations is closed: FileSource,
// LiveDeviceSource and BufferSource.
type SourceHandle interface {
	Kind() SourceKind
	String() string
	open(ctx context.Context) (SourceNode, error)
}

// SourceNode is an opened source. ReadSamples fills dst with interleaved
// samples in [-1, 1] and returns io.EOF once a non-looping source is
// exhausted. Stop releases the node's resources; it is safe to call twice.
type SourceNode interface {
	Kind() SourceKind
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
	Stop() error
}

// FileSource decodes an audio file chosen by extension from the decoder
// registry.
type FileSource struct {
	Path string
	Loop bool
}

func (s FileSource) Kind() SourceKind { return FileBacked }
func (s FileSource) String() string   { return s.Path }

func (s FileSource) open(ctx context.Context) (SourceNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node := &fileNode{path: s.Path, loop: s.Loop, registry: defaultRegistry}
	if err := node.reopen(); err != nil {
		return nil, err
	}
	return node, nil
}

type fileNode struct {
	mu       sync.Mutex
	path     string
	loop     bool
	registry *Registry
	file     *os.File
	dec      SampleReader
	stopped  bool
}

func (n *fileNode) reopen() error {
	ext := strings.ToLower(filepath.Ext(n.path))
	decoder, ok := n.registry.Get(ext)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	f, err := os.Open(n.path)
	if err != nil {
		return err
	}
	dec, err := decoder.Decode(f)
	if err != nil {
		f.Close()
		return err
	}
	if dec.SampleRate() <= 0 || dec.Channels() <= 0 {
		f.Close()
		return fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, dec.SampleRate(), dec.Channels())
	}
	if n.file != nil {
		n.file.Close()
	}
	n.file = f
	n.dec = dec
	return nil
}

func (n *fileNode) Kind() SourceKind { return FileBacked }

func (n *fileNode) SampleRate() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dec.SampleRate()
}

func (n *fileNode) Channels() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dec.Channels()
}

func (n *fileNode) ReadSamples(dst []float32) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return 0, io.EOF
	}
	count, err := n.dec.ReadSamples(dst)
	if errors.Is(err, io.EOF) && count == 0 && n.loop {
		if err := n.reopen(); err != nil {
			return 0, err
		}
		return n.dec.ReadSamples(dst)
	}
	return count, err
}

func (n *fileNode) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return nil
	}
	n.stopped = true
	return n.file.Close()
}

// LiveDeviceSource captures from an audio device through an external
// recorder that writes signed 16-bit little-endian PCM to stdout, for
// example `parec --format=s16le --channels=1 --rate=48000`.
type LiveDeviceSource struct {
	Command    []string
	SampleRate int
	Channels   int
}

func (s LiveDeviceSource) Kind() SourceKind { return LiveDevice }
func (s LiveDeviceSource) String() string   { return strings.Join(s.Command, " ") }

func (s LiveDeviceSource) open(ctx context.Context) (SourceNode, error) {
	if len(s.Command) == 0 {
		return nil, errors.New("empty capture command")
	}
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return nil, fmt.Errorf("invalid capture format: %d Hz, %d channels", s.SampleRate, s.Channels)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(s.Command[0], s.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &liveNode{
		cmd:        cmd,
		stdout:     stdout,
		sampleRate: s.SampleRate,
		channels:   s.Channels,
	}, nil
}

type liveNode struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	sampleRate int
	channels   int
	buf        []byte
	stopOnce   sync.Once
}

func (n *liveNode) Kind() SourceKind { return LiveDevice }
func (n *liveNode) SampleRate() int  { return n.sampleRate }
func (n *liveNode) Channels() int    { return n.channels }

func (n *liveNode) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(n.buf) < need {
		n.buf = make([]byte, need)
	}
	n.buf = n.buf[:need]
	read, err := io.ReadFull(n.stdout, n.buf)
	samples := read / 2
	decodeS16LE(dst[:samples], n.buf[:samples*2])
	if samples == 0 && err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}
	return samples, nil
}

func (n *liveNode) Stop() error {
	var err error
	n.stopOnce.Do(func() {
		if n.cmd.Process != nil {
			if err = n.cmd.Process.Kill(); errors.Is(err, os.ErrProcessDone) {
				err = nil
			}
		}
		// the recorder was killed, its exit status is not interesting
		_ = n.cmd.Wait()
	})
	return err
}

// BufferSource plays back samples held in memory.
type BufferSource struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Loop       bool
}

func (s BufferSource) Kind() SourceKind { return Buffered }

func (s BufferSource) String() string {
	return fmt.Sprintf("buffer(%d samples, %d Hz, %d ch)", len(s.Samples), s.SampleRate, s.Channels)
}

func (s BufferSource) open(ctx context.Context) (SourceNode, error) {
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return nil, fmt.Errorf("invalid buffer format: %d Hz, %d channels", s.SampleRate, s.Channels)
	}
	if len(s.Samples)%s.Channels != 0 {
		return nil, ErrInvalidDstSize
	}
	return &bufferNode{src: s}, nil
}

type bufferNode struct {
	mu       sync.Mutex
	src      BufferSource
	position int
	stopped  bool
}

func (n *bufferNode) Kind() SourceKind { return Buffered }
func (n *bufferNode) SampleRate() int  { return n.src.SampleRate }
func (n *bufferNode) Channels() int    { return n.src.Channels }

func (n *bufferNode) ReadSamples(dst []float32) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped || len(n.src.Samples) == 0 {
		return 0, io.EOF
	}
	written := 0
	for written < len(dst) {
		if n.position == len(n.src.Samples) {
			if !n.src.Loop {
				break
			}
			n.position = 0
		}
		c := copy(dst[written:], n.src.Samples[n.position:])
		written += c
		n.position += c
	}
	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

func (n *bufferNode) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	return nil
}

func decodeS16LE(dst []float32, src []byte) {
	for i := range dst {
		v := int16(uint16(src[2*i]) | uint16(src[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
}

// mixToMono averages interleaved frames of src into dst and returns the
// number of frames written.
func mixToMono(dst, src []float32, channels int) int {
	if channels == 1 {
		return copy(dst, src)
	}
	frames := min(len(src)/channels, len(dst))
	inv := float32(1.0) / float32(channels)
	switch channels {
	case 2:
		for f := range frames {
			idx := f << 1
			dst[f] = (src[idx] + src[idx+1]) * 0.5
		}
	default:
		for f := range frames {
			var sum float32
			base := f * channels
			for c := range channels {
				sum += src[base+c]
			}
			dst[f] = sum * inv
		}
	}
	return frames
}
