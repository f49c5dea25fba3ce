package main

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type RendererState int

const (
	Uninitialized RendererState = iota
	Compiled
	Running
	Stopped
	Destroyed
)

func (s RendererState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Compiled:
		return "compiled"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("RendererState(%d)", int(s))
	}
}

// ProgramSource is the user program. The shader engine reads Vertex and
// Fragment (an empty Vertex selects the built-in full-screen quad), the
// sketch engine reads Sketch.
type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
	Sketch   string
}

// CompileResult is what editors display after a compile.
type CompileResult struct {
	Success  bool
	Errors   []string
	Warnings []string
	err      error
}

func compileSucceeded(warnings ...string) CompileResult {
	return CompileResult{Success: true, Warnings: warnings}
}

func compileFailed(err error) CompileResult {
	var ce *CompileError
	if errors.As(err, &ce) {
		return CompileResult{Errors: ce.Log, err: err}
	}
	return CompileResult{Errors: []string{err.Error()}, err: err}
}

func (r CompileResult) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &CompileError{Log: r.Errors}
}

// splitLog turns a backend info log into non-empty lines.
func splitLog(log string) []string {
	var lines []string
	for line := range strings.SplitSeq(log, "\n") {
		line = strings.TrimRight(line, "\r\x00 ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = []string{"unknown error"}
	}
	return lines
}

// Canvas is the drawable surface of a renderer as seen by recorders.
type Canvas interface {
	Size() image.Point
	Snapshot() (*image.RGBA, error)
}

type Renderer interface {
	Compile(src ProgramSource) CompileResult
	SetAudioData(frame *AudioFrame)
	// Render draws one frame.
	Render() error
	// RenderFrame draws one frame and then invokes the frame callback.
	RenderFrame() error
	Start() error
	Stop()
	Resize(width, height int) error
	Destroy()
	Canvas() Canvas
	UniformValues() UniformSet
	SetOnFrame(cb func())
	SetPointer(x, y float32)
	State() RendererState
}

// frameLoop keeps exactly one frame request outstanding while running.
// Every start bumps the generation so callbacks of an earlier run are
// ignored even if the scheduler still delivers them.
type frameLoop struct {
	mu         sync.Mutex
	scheduler  FrameScheduler
	frame      func()
	running    bool
	generation uint64
	pending    FrameID
}

func newFrameLoop(scheduler FrameScheduler, frame func()) *frameLoop {
	return &frameLoop{scheduler: scheduler, frame: frame}
}

func (l *frameLoop) start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return false
	}
	l.running = true
	l.generation++
	l.request(l.generation)
	return true
}

func (l *frameLoop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.generation++
	if l.pending != 0 {
		l.scheduler.CancelFrame(l.pending)
		l.pending = 0
	}
}

// request must be called with l.mu held.
func (l *frameLoop) request(gen uint64) {
	l.pending = l.scheduler.RequestFrame(func(time.Duration) {
		l.mu.Lock()
		if !l.running || gen != l.generation {
			l.mu.Unlock()
			return
		}
		l.pending = 0
		l.mu.Unlock()

		l.frame()

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.running && gen == l.generation && l.pending == 0 {
			l.request(gen)
		}
	})
}

// rendererCore is the state shared by both engines: lifecycle, the audio
// bridge, time, pointer and size.
type rendererCore struct {
	mu      sync.Mutex
	state   RendererState
	loop    *frameLoop
	bridge  UniformBridge
	size    image.Point
	pointer mgl32.Vec2
	now     func() time.Time
	epoch   time.Time
	onFrame Box[func()]
}

func (rc *rendererCore) init(scheduler FrameScheduler, width, height int, frame func()) {
	rc.loop = newFrameLoop(scheduler, frame)
	rc.size = image.Pt(width, height)
	rc.now = time.Now
	rc.epoch = rc.now()
}

func (rc *rendererCore) SetAudioData(frame *AudioFrame) {
	rc.bridge.Push(frame)
}

func (rc *rendererCore) SetOnFrame(cb func()) {
	rc.onFrame.Set(cb)
}

func (rc *rendererCore) SetPointer(x, y float32) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.pointer = mgl32.Vec2{x, y}
}

func (rc *rendererCore) State() RendererState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

func (rc *rendererCore) elapsed() float64 {
	return rc.now().Sub(rc.epoch).Seconds()
}

// baseUniforms must be called with rc.mu held.
func (rc *rendererCore) baseUniforms() UniformSet {
	us := NewUniformSet()
	us.Values[UniformTime] = Float(rc.elapsed())
	us.Values[UniformResolution] = Vec2(mgl32.Vec2{float32(rc.size.X), float32(rc.size.Y)})
	us.Values[UniformMouse] = Vec2(rc.pointer)
	return us
}

func (rc *rendererCore) UniformValues() UniformSet {
	rc.mu.Lock()
	base := rc.baseUniforms()
	rc.mu.Unlock()
	return rc.bridge.Uniforms(base)
}

// start must be called with rc.mu held.
func (rc *rendererCore) start() error {
	switch rc.state {
	case Uninitialized:
		return notInitialized("start")
	case Destroyed:
		return notInitialized("start")
	case Running:
		return nil
	}
	rc.loop.start()
	rc.state = Running
	return nil
}

func (rc *rendererCore) Stop() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state != Running {
		return
	}
	rc.loop.stop()
	rc.state = Stopped
}

func (rc *rendererCore) validateSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return configErrorf("size", "must be positive, got %dx%d", width, height)
	}
	return nil
}

func (rc *rendererCore) notifyFrame() {
	if cb := rc.onFrame.Get(); cb != nil {
		cb()
	}
}
