package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

type RenderMode string

const (
	ShaderMode RenderMode = "shader"
	SketchMode RenderMode = "sketch"
)

// Config holds all runtime settings. Flags override SHADERTAPE_*
// environment variables, which override the defaults.
type Config struct {
	LogLevel string
	Mode     RenderMode

	VertexPath   string
	FragmentPath string
	SketchPath   string

	AudioPath     string
	CaptureCmd    string
	CaptureRate   int
	CaptureChans  int
	Loop          bool
	Monitor       bool
	MonitorRate   int
	Width, Height int

	Analysis Settings
	Effects  EffectParams

	RecordDir   string
	RecordScale float64
	HUD         bool
}

// envReader reads SHADERTAPE_* variables. Malformed values are collected
// in errs and the fallback is used in their place.
type envReader struct {
	errs []error
}

func (e *envReader) Str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, configErrorf(key, "invalid integer %q", v))
		return fallback
	}
	return n
}

func (e *envReader) Float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, configErrorf(key, "invalid number %q", v))
		return fallback
	}
	return f
}

func (e *envReader) Bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, configErrorf(key, "invalid boolean %q", v))
		return fallback
	}
	return b
}

// LoadConfig parses args (without the program name). Usage and parse
// errors are written to output.
func LoadConfig(args []string, output io.Writer) (Config, error) {
	defaults := DefaultSettings()
	effects := DefaultEffectParams()

	fs := flag.NewFlagSet("shadertape", flag.ContinueOnError)
	fs.SetOutput(output)
	var cfg Config
	var env envReader
	var mode, filterType string
	fs.StringVar(&cfg.LogLevel, "log", env.Str("SHADERTAPE_LOG", "info"), "log level: debug, info, warn or error")
	fs.StringVar(&mode, "mode", env.Str("SHADERTAPE_MODE", ""), "render mode: shader or sketch (default: from the program files given)")
	fs.StringVar(&cfg.VertexPath, "vert", env.Str("SHADERTAPE_VERT", ""), "vertex shader file")
	fs.StringVar(&cfg.FragmentPath, "frag", env.Str("SHADERTAPE_FRAG", ""), "fragment shader file")
	fs.StringVar(&cfg.SketchPath, "sketch", env.Str("SHADERTAPE_SKETCH", ""), "sketch file")
	fs.StringVar(&cfg.AudioPath, "audio", env.Str("SHADERTAPE_AUDIO", ""), "audio file (.wav, .mp3, .ogg)")
	fs.StringVar(&cfg.CaptureCmd, "capture", env.Str("SHADERTAPE_CAPTURE", ""), "capture command writing s16le PCM to stdout")
	fs.IntVar(&cfg.CaptureRate, "capture-rate", env.Int("SHADERTAPE_CAPTURE_RATE", 48000), "sample rate of the capture command")
	fs.IntVar(&cfg.CaptureChans, "capture-channels", env.Int("SHADERTAPE_CAPTURE_CHANNELS", 1), "channel count of the capture command")
	fs.BoolVar(&cfg.Loop, "loop", env.Bool("SHADERTAPE_LOOP", true), "loop the audio file")
	fs.BoolVar(&cfg.Monitor, "monitor", env.Bool("SHADERTAPE_MONITOR", true), "play the audio file while analysing it")
	fs.IntVar(&cfg.MonitorRate, "monitor-rate", env.Int("SHADERTAPE_MONITOR_RATE", 48000), "output sample rate")
	fs.IntVar(&cfg.Width, "width", env.Int("SHADERTAPE_WIDTH", 800), "window width")
	fs.IntVar(&cfg.Height, "height", env.Int("SHADERTAPE_HEIGHT", 600), "window height")
	fs.IntVar(&cfg.Analysis.FFTSize, "fft", env.Int("SHADERTAPE_FFT", defaults.FFTSize), "FFT size, a power of two in [32, 32768]")
	fs.Float64Var(&cfg.Analysis.Smoothing, "smoothing", env.Float("SHADERTAPE_SMOOTHING", defaults.Smoothing), "spectrum smoothing in [0, 1]")
	fs.Float64Var(&cfg.Analysis.MinDecibels, "min-db", env.Float("SHADERTAPE_MIN_DB", defaults.MinDecibels), "spectrum floor in dB")
	fs.Float64Var(&cfg.Analysis.MaxDecibels, "max-db", env.Float("SHADERTAPE_MAX_DB", defaults.MaxDecibels), "spectrum ceiling in dB")
	fs.BoolVar(&cfg.Effects.Enabled, "fx", env.Bool("SHADERTAPE_FX", effects.Enabled), "enable the effect chain")
	fs.StringVar(&filterType, "fx-filter", env.Str("SHADERTAPE_FX_FILTER", string(effects.FilterType)), "filter type: lowpass, highpass or bandpass")
	fs.Float64Var(&cfg.Effects.FilterFreq, "fx-freq", env.Float("SHADERTAPE_FX_FREQ", effects.FilterFreq), "filter cutoff in Hz")
	fs.Float64Var(&cfg.Effects.DelayTime, "fx-delay", env.Float("SHADERTAPE_FX_DELAY", effects.DelayTime), "delay time in seconds")
	fs.Float64Var(&cfg.Effects.DelayFeedback, "fx-feedback", env.Float("SHADERTAPE_FX_FEEDBACK", effects.DelayFeedback), "delay feedback in [0, 1)")
	fs.Float64Var(&cfg.Effects.DistortionAmount, "fx-distortion", env.Float("SHADERTAPE_FX_DISTORTION", effects.DistortionAmount), "distortion amount")
	fs.Float64Var(&cfg.Effects.CompressorThreshold, "fx-threshold", env.Float("SHADERTAPE_FX_THRESHOLD", effects.CompressorThreshold), "compressor threshold in dB")
	fs.StringVar(&cfg.RecordDir, "record-dir", env.Str("SHADERTAPE_RECORD_DIR", "~/shadertape"), "directory for captured frames")
	fs.Float64Var(&cfg.RecordScale, "record-scale", env.Float("SHADERTAPE_RECORD_SCALE", 1), "scale factor for captured frames")
	fs.BoolVar(&cfg.HUD, "hud", env.Bool("SHADERTAPE_HUD", false), "stamp uniform values onto captured frames")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		// a lone positional argument is the program file
		path := fs.Arg(0)
		switch {
		case strings.HasSuffix(path, ".sketch"):
			cfg.SketchPath = path
		default:
			cfg.FragmentPath = path
		}
	}

	ft, err := ParseFilterType(filterType)
	if err != nil {
		return Config{}, err
	}
	cfg.Effects.FilterType = ft

	for _, p := range []*string{&cfg.VertexPath, &cfg.FragmentPath, &cfg.SketchPath, &cfg.AudioPath, &cfg.RecordDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return Config{}, fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}

	switch RenderMode(mode) {
	case ShaderMode, SketchMode:
		cfg.Mode = RenderMode(mode)
	case "":
		cfg.Mode = ShaderMode
		if cfg.SketchPath != "" && cfg.FragmentPath == "" {
			cfg.Mode = SketchMode
		}
	default:
		return Config{}, configErrorf("mode", "unknown render mode %q", mode)
	}
	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if _, err := ResolveLogLevel(cfg.LogLevel); err != nil {
		return configErrorf("log", "%v", err)
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return err
	}
	if err := cfg.Effects.Validate(); err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return configErrorf("size", "must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.AudioPath != "" && cfg.CaptureCmd != "" {
		return configErrorf("audio", "-audio and -capture are mutually exclusive")
	}
	if cfg.CaptureCmd != "" && (cfg.CaptureRate <= 0 || cfg.CaptureChans <= 0) {
		return configErrorf("capture", "invalid format %d Hz, %d channels", cfg.CaptureRate, cfg.CaptureChans)
	}
	if cfg.MonitorRate <= 0 {
		return configErrorf("monitor-rate", "must be positive, got %d", cfg.MonitorRate)
	}
	if cfg.RecordScale <= 0 {
		return configErrorf("record-scale", "must be positive, got %g", cfg.RecordScale)
	}
	return nil
}

// AudioSource returns the configured source, nil when none was given.
func (cfg Config) AudioSource() SourceHandle {
	switch {
	case cfg.AudioPath != "":
		return FileSource{Path: cfg.AudioPath, Loop: cfg.Loop}
	case cfg.CaptureCmd != "":
		return LiveDeviceSource{
			Command:    strings.Fields(cfg.CaptureCmd),
			SampleRate: cfg.CaptureRate,
			Channels:   cfg.CaptureChans,
		}
	default:
		return nil
	}
}
