package main

import (
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRecorder(t *testing.T, opts RecorderOptions) (*FrameRecorder, *SketchRenderer) {
	t.Helper()
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ 0 1 0 background } >setup { } >draw")
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	fr, err := NewFrameRecorder(r, opts)
	if err != nil {
		t.Fatal(err)
	}
	r.SetOnFrame(fr.OnFrame)
	return fr, r
}

func decodePNG(t *testing.T, path string) (w, h int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestRecorderSnapshot(t *testing.T) {
	fr, r := newTestRecorder(t, RecorderOptions{})
	r.RenderFrame()
	if path, _ := fr.Last(); path != "" {
		t.Fatalf("captured without a request: %s", path)
	}
	fr.RequestSnapshot()
	r.RenderFrame()
	path, err := fr.Last()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "frame-000001.png" {
		t.Errorf("path = %s", path)
	}
	if w, h := decodePNG(t, path); w != 64 || h != 48 {
		t.Errorf("size = %dx%d", w, h)
	}
	r.RenderFrame()
	if again, _ := fr.Last(); again != path {
		t.Error("snapshot request was not one-shot")
	}
}

func TestRecorderRecording(t *testing.T) {
	fr, r := newTestRecorder(t, RecorderOptions{Scale: 0.5, HUD: true})
	fr.SetRecording(true)
	if !fr.Recording() {
		t.Fatal("not recording")
	}
	for range 3 {
		r.RenderFrame()
	}
	fr.SetRecording(false)
	r.RenderFrame()
	path, err := fr.Last()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "frame-000003.png" {
		t.Errorf("last = %s", path)
	}
	if w, h := decodePNG(t, path); w != 32 || h != 24 {
		t.Errorf("scaled size = %dx%d", w, h)
	}
}

func TestRecorderOptions(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	if _, err := NewFrameRecorder(r, RecorderOptions{Scale: 1}); err == nil {
		t.Error("empty dir accepted")
	}
	if _, err := NewFrameRecorder(r, RecorderOptions{Dir: t.TempDir(), Scale: -1}); err == nil {
		t.Error("negative scale accepted")
	}
	nested := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewFrameRecorder(r, RecorderOptions{Dir: nested, Scale: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Errorf("dir not created: %v", err)
	}
}

func TestUniformLines(t *testing.T) {
	us := AudioUniforms(&AudioFrame{Bass: 0.5}, NewUniformSet())
	us.Values[UniformResolution] = UniformValue{640, 480}
	lines := uniformLines(us)
	if len(lines) != 7 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], UniformAudioBPM) {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "640.000  480.000") {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestMarshalUniforms(t *testing.T) {
	frame := SilentFrame(DefaultSettings())
	frame.Treble = 0.25
	data, err := marshalUniforms(AudioUniforms(frame, NewUniformSet()))
	if err != nil {
		t.Fatal(err)
	}
	var snap uniformSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if v := snap.Values[UniformAudioTreble]; len(v) != 1 || v[0] != 0.25 {
		t.Errorf("treble = %v", v)
	}
	if snap.TextureSizes[UniformAudioFrequency] != 1024 {
		t.Errorf("texture sizes = %v", snap.TextureSizes)
	}
}
