package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidDstSize    = errors.New("sample count must be a multiple of channels")
	ErrNotWavFile        = errors.New("not a WAV file")
	ErrOnlyPCMSupported  = errors.New("only integer PCM WAV is supported")
)

// SampleReader is a decoded PCM stream. ReadSamples fills dst with
// interleaved float samples in [-1, 1].
type SampleReader interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
}

// Decoder constructs a SampleReader from a seekable input.
type Decoder interface {
	Decode(r io.ReadSeeker) (SampleReader, error)
}

type DecoderFunc func(r io.ReadSeeker) (SampleReader, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (SampleReader, error) {
	return f(r)
}

// Registry maps lower-case file extensions (".wav") to decoders.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
	}
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[ext] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[ext]
	return d, ok
}

var defaultRegistry = NewRegistry()

func init() {
	defaultRegistry.Register(".wav", DecoderFunc(decodeWav))
	defaultRegistry.Register(".mp3", DecoderFunc(decodeMP3))
	defaultRegistry.Register(".ogg", DecoderFunc(decodeVorbis))
}

type wavReader struct {
	dec        *wav.Decoder
	buf        *audio.IntBuffer
	sampleRate int
	channels   int
	scale      float32
}

func decodeWav(r io.ReadSeeker) (SampleReader, error) {
	dec := wav.NewDecoder(r)
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if dec.WavAudioFormat != 1 {
		return nil, ErrOnlyPCMSupported
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d bit", ErrOnlyPCMSupported, bitDepth)
	}
	format := dec.Format()
	return &wavReader{
		dec: dec,
		buf: &audio.IntBuffer{
			Format:         format,
			Data:           make([]int, 4096),
			SourceBitDepth: bitDepth,
		},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      1.0 / float32(int64(1)<<(bitDepth-1)),
	}, nil
}

func (w *wavReader) SampleRate() int { return w.sampleRate }
func (w *wavReader) Channels() int   { return w.channels }

func (w *wavReader) ReadSamples(dst []float32) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]
	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i, v := range w.buf.Data[:n] {
		dst[i] = float32(v) * w.scale
	}
	return n, nil
}

type mp3Reader struct {
	dec *gomp3.Decoder
	buf []byte
}

// go-mp3 always decodes to 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (SampleReader, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Reader{dec: dec, buf: make([]byte, 8192)}, nil
}

func (m *mp3Reader) SampleRate() int { return m.dec.SampleRate() }
func (m *mp3Reader) Channels() int   { return 2 }

func (m *mp3Reader) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	m.buf = m.buf[:need]
	n, err := io.ReadFull(m.dec, m.buf)
	samples := n / 2
	decodeS16LE(dst[:samples], m.buf[:samples*2])
	if samples == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}
	return samples, nil
}

type vorbisReader struct {
	dec *oggvorbis.Reader
}

func decodeVorbis(r io.ReadSeeker) (SampleReader, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &vorbisReader{dec: dec}, nil
}

func (v *vorbisReader) SampleRate() int { return v.dec.SampleRate() }
func (v *vorbisReader) Channels() int   { return v.dec.Channels() }

func (v *vorbisReader) ReadSamples(dst []float32) (int, error) {
	// keep whole frames so channels stay interleaved
	channels := v.dec.Channels()
	dst = dst[:len(dst)-len(dst)%channels]
	if len(dst) == 0 {
		return 0, nil
	}
	n, err := v.dec.Read(dst)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	return n, nil
}
