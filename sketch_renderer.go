package main

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// SketchRenderer runs sketch programs on a software canvas.
type SketchRenderer struct {
	rendererCore
	current *sketchInstance
	applied UniformSet
}

func NewSketchRenderer(scheduler FrameScheduler, width, height int) *SketchRenderer {
	r := &SketchRenderer{}
	r.init(scheduler, width, height, func() {
		if err := r.RenderFrame(); err != nil {
			logger.Warn("sketch frame failed", "err", err)
		}
	})
	return r
}

func sketchCompileError(err error) error {
	return &CompileError{Stage: StageSketch, Log: []string{err.Error()}}
}

// callHook runs code and turns panics into errors.
func (inst *sketchInstance) callHook(name string, code Vec) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", name, p)
		}
	}()
	inst.vm.valStack = inst.vm.valStack[:0]
	if err := inst.vm.Call(code); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if inst.vm.IsQuoting() {
		inst.vm.Reset()
		return fmt.Errorf("%s: unterminated quotation", name)
	}
	return nil
}

// Compile checks that the program defines setup and draw, evaluates it
// and runs setup on a fresh instance, then replaces the running sketch.
// Any failure leaves the current sketch in place.
func (r *SketchRenderer) Compile(src ProgramSource) CompileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return compileFailed(notInitialized("compile"))
	}
	name := src.Name
	if name == "" {
		name = "<sketch>"
	}
	code, err := Parse(strings.NewReader(src.Sketch), name)
	if err != nil {
		return compileFailed(sketchCompileError(err))
	}
	found := code.definesWords("setup", "draw", "resize")
	var missing []string
	for _, hook := range []string{"setup", "draw"} {
		if !found[hook] {
			missing = append(missing, hook)
		}
	}
	if len(missing) > 0 {
		err := fmt.Errorf("sketch must define %s with >%s", strings.Join(missing, " and "), strings.Join(missing, " and >"))
		return compileFailed(sketchCompileError(err))
	}

	inst := newSketchInstance(r.size.X, r.size.Y)
	inst.time = r.elapsed()
	if err := inst.callHook("program", code); err != nil {
		inst.close()
		return compileFailed(sketchCompileError(err))
	}
	hooks := map[string]*Vec{"setup": &inst.setup, "draw": &inst.draw}
	if found["resize"] {
		hooks["resize"] = &inst.resize
	}
	for hook, dst := range hooks {
		v, ok := inst.vm.GetGlobal(hook).(Vec)
		if !ok {
			inst.close()
			return compileFailed(sketchCompileError(fmt.Errorf("%s must be a quotation { ... }", hook)))
		}
		*dst = v
	}
	if err := inst.callHook("setup", inst.setup); err != nil {
		inst.close()
		return compileFailed(sketchCompileError(err))
	}
	if r.current != nil {
		r.current.close()
	}
	r.current = inst
	if r.state == Uninitialized {
		r.state = Compiled
	}
	logger.Debug("sketch compiled", "name", name)
	return compileSucceeded()
}

func (r *SketchRenderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return notInitialized("render")
	}
	inst := r.current
	if inst == nil {
		return nil
	}
	us := r.bridge.Uniforms(r.baseUniforms())
	inst.time = r.elapsed()
	inst.frame++
	inst.pointer = [2]float64{float64(r.pointer.X()), float64(r.pointer.Y())}

	// every draw starts from the identity transform
	inst.resetTransform()
	vm := inst.vm
	vm.DoPushEnv()
	vm.SetVal("audio", audioContext(us))
	err := inst.callHook("draw", inst.draw)
	vm.envStack = vm.envStack[:2]
	r.applied = us

	if err != nil {
		// one bad frame must not stop the loop; report each distinct
		// failure once
		if msg := err.Error(); msg != inst.lastErr {
			inst.lastErr = msg
			logger.Warn("sketch draw failed", "err", err)
		}
	} else {
		inst.lastErr = ""
	}
	return nil
}

func (r *SketchRenderer) RenderFrame() error {
	if err := r.Render(); err != nil {
		return err
	}
	r.notifyFrame()
	return nil
}

func (r *SketchRenderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start()
}

// Resize resizes the canvas and runs the sketch's resize hook if it has
// one.
func (r *SketchRenderer) Resize(width, height int) error {
	if err := r.validateSize(width, height); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return notInitialized("resize")
	}
	r.size = image.Pt(width, height)
	inst := r.current
	if inst == nil {
		return nil
	}
	if err := inst.ctx.Resize(width, height); err != nil {
		return errors.Join(ErrResourceExhausted, err)
	}
	if inst.resize != nil {
		if err := inst.callHook("resize", inst.resize); err != nil {
			logger.Warn("sketch resize failed", "err", err)
		}
	}
	return nil
}

func (r *SketchRenderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return
	}
	r.loop.stop()
	if r.current != nil {
		r.current.close()
		r.current = nil
	}
	r.bridge.Push(nil)
	r.state = Destroyed
}

func (r *SketchRenderer) AppliedUniforms() UniformSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied.Clone()
}

func (r *SketchRenderer) Canvas() Canvas {
	return sketchCanvas{r}
}

type sketchCanvas struct {
	r *SketchRenderer
}

func (c sketchCanvas) Size() image.Point {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	return c.r.size
}

// Snapshot copies the current canvas. Without a sketch it returns a black
// image of the renderer's size.
func (c sketchCanvas) Snapshot() (*image.RGBA, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.r.state == Destroyed {
		return nil, notInitialized("snapshot")
	}
	if c.r.current == nil {
		img := image.NewRGBA(image.Rectangle{Max: c.r.size})
		draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
		return img, nil
	}
	src := c.r.current.ctx.Image()
	img := image.NewRGBA(image.Rectangle{Max: src.Bounds().Size()})
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return img, nil
}
