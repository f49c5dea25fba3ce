package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/atotto/clipboard"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
)

type RecorderOptions struct {
	Dir string
	// Scale resizes captured frames, 1 keeps the canvas size.
	Scale float64
	// HUD stamps the current uniform values onto each frame.
	HUD bool
}

// FrameRecorder writes numbered PNG frames of a renderer's canvas. It is
// installed as the renderer's frame callback and captures either every
// frame while recording or a single requested snapshot.
type FrameRecorder struct {
	mu        sync.Mutex
	opts      RecorderOptions
	renderer  Renderer
	face      font.Face
	recording bool
	snapshot  bool
	seq       int
	lastPath  string
	lastErr   error
}

func NewFrameRecorder(r Renderer, opts RecorderOptions) (*FrameRecorder, error) {
	if opts.Dir == "" {
		return nil, configErrorf("recordDir", "must not be empty")
	}
	if opts.Scale <= 0 {
		return nil, configErrorf("recordScale", "must be positive, got %g", opts.Scale)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	fr := &FrameRecorder{opts: opts, renderer: r}
	if opts.HUD {
		fr.face = loadHUDFace(hudFontSize)
	}
	return fr, nil
}

func (fr *FrameRecorder) SetRecording(on bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.recording = on
	logger.Info("recording", "on", on, "dir", fr.opts.Dir)
}

func (fr *FrameRecorder) Recording() bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.recording
}

// RequestSnapshot captures the next drawn frame.
func (fr *FrameRecorder) RequestSnapshot() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.snapshot = true
}

// OnFrame is the renderer frame callback.
func (fr *FrameRecorder) OnFrame() {
	fr.mu.Lock()
	capture := fr.recording || fr.snapshot
	fr.snapshot = false
	fr.mu.Unlock()
	if !capture {
		return
	}
	path, err := fr.Capture()
	fr.mu.Lock()
	fr.lastPath, fr.lastErr = path, err
	fr.mu.Unlock()
	if err != nil {
		logger.Error("frame capture failed", "err", err)
		return
	}
	logger.Debug("frame captured", "path", path)
}

// Last returns the path and error of the most recent capture.
func (fr *FrameRecorder) Last() (string, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.lastPath, fr.lastErr
}

// Capture writes the current canvas to the next numbered file.
func (fr *FrameRecorder) Capture() (string, error) {
	img, err := fr.renderer.Canvas().Snapshot()
	if err != nil {
		return "", err
	}
	if fr.opts.Scale != 1 {
		img = scaleImage(img, fr.opts.Scale)
	}
	if fr.face != nil {
		drawLines(img, fr.face, uniformLines(fr.renderer.UniformValues()))
	}
	fr.mu.Lock()
	fr.seq++
	path := filepath.Join(fr.opts.Dir, fmt.Sprintf("frame-%06d.png", fr.seq))
	fr.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func scaleImage(src *image.RGBA, scale float64) *image.RGBA {
	size := src.Bounds().Size()
	w := max(int(float64(size.X)*scale), 1)
	h := max(int(float64(size.Y)*scale), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// uniformLines formats scalar and vector uniforms, sorted by name.
func uniformLines(us UniformSet) []string {
	names := make([]string, 0, len(us.Values))
	for name := range us.Values {
		names = append(names, name)
	}
	slices.Sort(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		v := us.Values[name]
		switch len(v) {
		case 1:
			lines = append(lines, fmt.Sprintf("%-12s %8.3f", name, v[0]))
		case 2:
			lines = append(lines, fmt.Sprintf("%-12s %8.3f %8.3f", name, v[0], v[1]))
		}
	}
	return lines
}

type uniformSnapshot struct {
	Values       map[string][]float32 `json:"values"`
	TextureSizes map[string]int       `json:"textureSizes,omitempty"`
}

func marshalUniforms(us UniformSet) ([]byte, error) {
	snap := uniformSnapshot{
		Values:       make(map[string][]float32, len(us.Values)),
		TextureSizes: make(map[string]int, len(us.Textures)),
	}
	for name, v := range us.Values {
		snap.Values[name] = v
	}
	for name, data := range us.Textures {
		snap.TextureSizes[name] = len(data)
	}
	return json.MarshalIndent(snap, "", "  ")
}

// CopyUniforms places the renderer's current uniform values on the system
// clipboard as JSON.
func CopyUniforms(r Renderer) error {
	data, err := marshalUniforms(r.UniformValues())
	if err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	return clipboard.WriteAll(string(data))
}
