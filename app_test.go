package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestApp(t *testing.T, args ...string) (*App, *fakeDevice) {
	t.Helper()
	args = append([]string{"-monitor=false", "-record-dir", t.TempDir(), "-width", "80", "-height", "60"}, args...)
	cfg, err := LoadConfig(args, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	app := CreateApp(cfg)
	dev := newFakeDevice()
	if err := app.Init(dev); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(app.Close)
	return app, dev
}

func TestAppSketchMode(t *testing.T) {
	app, dev := newTestApp(t, "-mode", "sketch")
	if app.renderer.State() != Running {
		t.Fatalf("state = %v", app.renderer.State())
	}
	for i := range 3 {
		if err := app.Update(); err != nil {
			t.Fatal(err)
		}
		if err := app.Render(float64(i) / 60); err != nil {
			t.Fatal(err)
		}
	}
	// one blit per rendered frame
	if dev.draws != 3 {
		t.Errorf("draws = %d", dev.draws)
	}
	app.OnFramebufferSize(160, 120)
	if size := app.renderer.Canvas().Size(); size.X != 160 || size.Y != 120 {
		t.Errorf("canvas size = %v", size)
	}
	app.OnFramebufferSize(0, 0)
	if size := app.renderer.Canvas().Size(); size.X != 160 {
		t.Error("minimised window resized the canvas")
	}
	app.OnCursorPos(10, 20)
	if m := app.renderer.UniformValues().Values[UniformMouse]; m[0] != 10 || m[1] != 20 {
		t.Errorf("sketch mouse = %v", m)
	}
}

func TestAppShaderMode(t *testing.T) {
	dir := t.TempDir()
	frag := filepath.Join(dir, "plasma.frag")
	if err := os.WriteFile(frag, []byte(testFragment), 0o644); err != nil {
		t.Fatal(err)
	}
	app, dev := newTestApp(t, frag)
	if app.cfg.Mode != ShaderMode {
		t.Fatalf("mode = %v", app.cfg.Mode)
	}
	app.Update()
	app.Render(0)
	if dev.draws != 1 {
		t.Errorf("draws = %d", dev.draws)
	}
	app.OnCursorPos(10, 20)
	if m := app.renderer.UniformValues().Values[UniformMouse]; m[0] != 10 || m[1] != 40 {
		t.Errorf("shader mouse = %v, want y flipped", m)
	}

	if err := os.WriteFile(frag, []byte("#error\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := app.Reload(); err == nil {
		t.Fatal("broken shader reloaded")
	}
	app.Render(0.1)
	if dev.draws != 2 {
		t.Errorf("previous program stopped drawing: draws = %d", dev.draws)
	}
}

func TestAppFallsBackToDefaultProgram(t *testing.T) {
	dir := t.TempDir()
	sketch := filepath.Join(dir, "broken.sketch")
	if err := os.WriteFile(sketch, []byte("{ } >setup"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _ := newTestApp(t, sketch)
	if app.renderer.State() != Running {
		t.Errorf("state = %v", app.renderer.State())
	}
}

func TestAppKeys(t *testing.T) {
	app, _ := newTestApp(t, "-mode", "sketch")
	app.keyMap.HandleKey("Space")
	if app.renderer.State() != Stopped {
		t.Errorf("state after Space = %v", app.renderer.State())
	}
	app.keyMap.HandleKey("Space")
	if app.renderer.State() != Running {
		t.Errorf("state after second Space = %v", app.renderer.State())
	}
	app.keyMap.HandleKey("f")
	if !app.extractor.EffectParams().Enabled {
		t.Error("effects not toggled")
	}
	app.keyMap.HandleKey("p")
	app.Render(0)
	if path, err := app.recorder.Last(); err != nil || path == "" {
		t.Errorf("snapshot = %q, %v", path, err)
	}
	app.keyMap.HandleKey("Escape")
	if app.IsRunning() {
		t.Error("still running after Escape")
	}
}
