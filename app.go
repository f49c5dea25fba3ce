package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	reloadInterval = 250 * time.Millisecond
	attachTimeout  = 10 * time.Second
)

// App wires the extractor, a renderer and the export collaborators to a
// window.
type App struct {
	cfg        Config
	dev        GLDevice
	scheduler  *ManualScheduler
	extractor  *Extractor
	renderer   Renderer
	blitter    *Blitter
	recorder   *FrameRecorder
	watcher    *Watcher
	keyMap     KeyMap
	fbSize     Size
	shouldExit bool
}

func CreateApp(cfg Config) *App {
	return &App{
		cfg:       cfg,
		scheduler: NewManualScheduler(),
		fbSize:    Size{X: cfg.Width, Y: cfg.Height},
	}
}

func (app *App) title() string {
	name := "default"
	switch {
	case app.cfg.Mode == SketchMode && app.cfg.SketchPath != "":
		name = filepath.Base(app.cfg.SketchPath)
	case app.cfg.Mode == ShaderMode && app.cfg.FragmentPath != "":
		name = filepath.Base(app.cfg.FragmentPath)
	}
	return "shadertape : " + name
}

func (app *App) Init(dev GLDevice) error {
	app.dev = dev

	if app.cfg.Monitor {
		if err := InitOtoContext(app.cfg.MonitorRate); err != nil {
			logger.Warn("audio output unavailable, analysing without playback", "err", err)
		}
	}
	extractor, err := NewExtractor(ExtractorOptions{
		Settings: app.cfg.Analysis,
		Effects:  app.cfg.Effects,
		Monitor:  app.cfg.Monitor,
	})
	if err != nil {
		return err
	}
	app.extractor = extractor
	if src := app.cfg.AudioSource(); src != nil {
		ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
		err := extractor.AttachSource(ctx, src)
		cancel()
		if err != nil {
			return err
		}
	}

	switch app.cfg.Mode {
	case SketchMode:
		app.renderer = NewSketchRenderer(app.scheduler, app.fbSize.X, app.fbSize.Y)
		blitter, err := NewBlitter(dev)
		if err != nil {
			return err
		}
		app.blitter = blitter
		app.watcher = NewWatcher(reloadInterval, app.cfg.SketchPath)
	default:
		app.renderer = NewShaderRenderer(dev, app.scheduler, app.fbSize.X, app.fbSize.Y)
		app.watcher = NewWatcher(reloadInterval, app.cfg.VertexPath, app.cfg.FragmentPath)
	}

	recorder, err := NewFrameRecorder(app.renderer, RecorderOptions{
		Dir:   app.cfg.RecordDir,
		Scale: app.cfg.RecordScale,
		HUD:   app.cfg.HUD,
	})
	if err != nil {
		return err
	}
	app.recorder = recorder
	app.renderer.SetOnFrame(recorder.OnFrame)

	if err := app.Reload(); err != nil {
		logger.Warn("program failed to compile, using the built-in default", "err", err)
		if result := app.renderer.Compile(app.defaultSource()); !result.Success {
			return result.Err()
		}
	}

	km := CreateKeyMap()
	km.Bind("Escape", app.Quit)
	km.Bind("Space", app.TogglePlayback)
	km.Bind("r", func() {
		if err := app.Reload(); err != nil {
			logger.Warn("reload failed", "err", err)
		}
	})
	km.Bind("p", app.recorder.RequestSnapshot)
	km.Bind("S-r", func() {
		app.recorder.SetRecording(!app.recorder.Recording())
	})
	km.Bind("c", func() {
		if err := CopyUniforms(app.renderer); err != nil {
			logger.Warn("copy uniforms failed", "err", err)
		} else {
			logger.Info("uniforms copied to clipboard")
		}
	})
	km.Bind("f", func() {
		enabled := !app.extractor.EffectParams().Enabled
		if err := app.extractor.UpdateEffectParams(EffectUpdate{Enabled: &enabled}); err != nil {
			logger.Warn("toggling effects failed", "err", err)
		}
	})
	app.keyMap = km

	return app.renderer.Start()
}

func (app *App) defaultSource() ProgramSource {
	if app.cfg.Mode == SketchMode {
		return ProgramSource{Name: "default.sketch", Sketch: DefaultSketch}
	}
	return ProgramSource{Name: "visualizer.frag", Vertex: DefaultVertexShader, Fragment: DefaultFragmentShader}
}

func readOptional(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// loadSource reads the configured program files, using the built-in
// programs for files not given.
func (app *App) loadSource() (ProgramSource, error) {
	src := app.defaultSource()
	var err error
	if app.cfg.Mode == SketchMode {
		if app.cfg.SketchPath != "" {
			src.Name = app.cfg.SketchPath
		}
		src.Sketch, err = readOptional(app.cfg.SketchPath, src.Sketch)
		return src, err
	}
	if app.cfg.FragmentPath != "" {
		src.Name = app.cfg.FragmentPath
	}
	if src.Vertex, err = readOptional(app.cfg.VertexPath, src.Vertex); err != nil {
		return src, err
	}
	src.Fragment, err = readOptional(app.cfg.FragmentPath, src.Fragment)
	return src, err
}

// Reload recompiles the program from disk. On failure the diagnostics are
// returned and the previous program keeps running.
func (app *App) Reload() error {
	src, err := app.loadSource()
	if err != nil {
		return err
	}
	result := app.renderer.Compile(src)
	for _, w := range result.Warnings {
		logger.Warn("compile warning", "name", src.Name, "warning", w)
	}
	if !result.Success {
		for _, line := range result.Errors {
			logger.Error("compile error", "name", src.Name, "error", line)
		}
		return result.Err()
	}
	logger.Info("program compiled", "name", src.Name)
	return nil
}

func (app *App) IsRunning() bool {
	return !app.shouldExit
}

func (app *App) Quit() {
	app.shouldExit = true
}

func (app *App) TogglePlayback() {
	if app.renderer.State() == Running {
		app.renderer.Stop()
		return
	}
	if err := app.renderer.Start(); err != nil {
		logger.Warn("start failed", "err", err)
	}
}

func (app *App) OnKey(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	name := KeyName(key, scancode, mods)
	if name == "" {
		return
	}
	if !app.keyMap.HandleKey(name) {
		logger.Debug("unbound key", "key", name)
	}
}

// OnCursorPos receives framebuffer pixels with the origin at the top left.
// Shaders expect gl_FragCoord orientation.
func (app *App) OnCursorPos(x, y float64) {
	if app.cfg.Mode == ShaderMode {
		y = float64(app.fbSize.Y) - y
	}
	app.renderer.SetPointer(float32(x), float32(y))
}

func (app *App) OnFramebufferSize(width, height int) {
	if width <= 0 || height <= 0 {
		// minimised
		return
	}
	logger.Debug("OnFramebufferSize", "width", width, "height", height)
	app.fbSize = Size{X: width, Y: height}
	if err := app.renderer.Resize(width, height); err != nil {
		logger.Warn("resize failed", "err", err)
	}
}

// Update polls audio and hands it to the renderer, then reloads changed
// program files.
func (app *App) Update() error {
	frame, err := app.extractor.Poll()
	if err != nil {
		return err
	}
	app.renderer.SetAudioData(frame)
	if changed := app.watcher.Poll(); len(changed) > 0 {
		logger.Info("program changed", "files", strings.Join(changed, ", "))
		if err := app.Reload(); err != nil && !errors.Is(err, ErrCompile) && !errors.Is(err, ErrLink) {
			logger.Warn("reload failed", "err", err)
		}
	}
	return nil
}

func (app *App) Render(t float64) error {
	app.scheduler.Tick(time.Duration(t * float64(time.Second)))
	if app.blitter == nil {
		return nil
	}
	img, err := app.renderer.Canvas().Snapshot()
	if err != nil {
		return err
	}
	return app.blitter.Draw(img, app.fbSize)
}

func (app *App) Close() {
	logger.Debug("Close")
	if app.renderer != nil {
		app.renderer.Destroy()
	}
	if app.blitter != nil {
		app.blitter.Close()
	}
	if app.extractor != nil {
		if err := app.extractor.Close(); err != nil {
			logger.Warn("closing audio failed", "err", err)
		}
	}
}
