package main

import (
	"errors"
	"math"

	"github.com/gogpu/gg"
)

// sketchInstance is the live state of one compiled sketch: its VM, canvas
// and drawing style.
type sketchInstance struct {
	vm     *VM
	ctx    *gg.Context
	setup  Vec
	draw   Vec
	resize Vec

	fill        gg.RGBA
	stroke      gg.RGBA
	doFill      bool
	doStroke    bool
	strokeWidth float64
	pushDepth   int

	time    float64
	frame   int
	pointer [2]float64
	lastErr string
}

func newSketchInstance(width, height int) *sketchInstance {
	inst := &sketchInstance{
		vm:          NewVM(),
		ctx:         gg.NewContext(width, height),
		fill:        gg.RGBA{R: 1, G: 1, B: 1, A: 1},
		stroke:      gg.RGBA{R: 0, G: 0, B: 0, A: 1},
		doFill:      true,
		doStroke:    true,
		strokeWidth: 1,
	}
	inst.vm.sketch = inst
	inst.ctx.ClearWithColor(gg.RGBA{R: 0, G: 0, B: 0, A: 1})
	return inst
}

func (inst *sketchInstance) close() {
	if inst.ctx != nil {
		if err := inst.ctx.Close(); err != nil {
			logger.Debug("closing sketch canvas failed", "err", err)
		}
		inst.ctx = nil
	}
	inst.vm.sketch = nil
	inst.vm.Reset()
}

// resetTransform unwinds pushes left open by the previous draw and
// restores the identity transform.
func (inst *sketchInstance) resetTransform() {
	for ; inst.pushDepth > 0; inst.pushDepth-- {
		inst.ctx.Pop()
	}
	inst.ctx.Identity()
}

// paint fills and strokes the current path according to the style.
func (inst *sketchInstance) paint() error {
	c := inst.ctx
	switch {
	case inst.doFill && inst.doStroke:
		c.SetRGBA(inst.fill.R, inst.fill.G, inst.fill.B, inst.fill.A)
		if err := c.FillPreserve(); err != nil {
			return err
		}
		c.SetRGBA(inst.stroke.R, inst.stroke.G, inst.stroke.B, inst.stroke.A)
		c.SetLineWidth(inst.strokeWidth)
		return c.Stroke()
	case inst.doFill:
		c.SetRGBA(inst.fill.R, inst.fill.G, inst.fill.B, inst.fill.A)
		return c.Fill()
	case inst.doStroke:
		c.SetRGBA(inst.stroke.R, inst.stroke.G, inst.stroke.B, inst.stroke.A)
		c.SetLineWidth(inst.strokeWidth)
		return c.Stroke()
	default:
		c.ClearPath()
		return nil
	}
}

func sketchOf(vm *VM) (*sketchInstance, error) {
	if vm.sketch == nil || vm.sketch.ctx == nil {
		return nil, vm.Errorf("no canvas")
	}
	return vm.sketch, nil
}

// registerDrawWord registers a word taking nargs numbers and drawing on
// the canvas.
func registerDrawWord(name string, nargs int, fn func(inst *sketchInstance, args []float64) error) {
	RegisterWord(name, func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		args, err := PopNums(vm, nargs)
		if err != nil {
			return err
		}
		if err := fn(inst, args); err != nil {
			return vm.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

func rgba(args []float64) gg.RGBA {
	a := 1.0
	if len(args) > 3 {
		a = args[3]
	}
	return gg.RGBA{
		R: clamp(args[0], 0, 1),
		G: clamp(args[1], 0, 1),
		B: clamp(args[2], 0, 1),
		A: clamp(a, 0, 1),
	}
}

// audioField reads one entry of the audio context bound for the current
// draw. Outside a draw it yields 0.
func audioField(vm *VM, key string) Num {
	audio, ok := vm.GetVal("audio").(Map)
	if !ok {
		return 0
	}
	if n, ok := audio.GetVal(key).(Num); ok {
		return n
	}
	return 0
}

func registerAudioWord(name, key string) {
	RegisterWord(name, func(vm *VM) error {
		vm.Push(audioField(vm, key))
		return nil
	})
}

func init() {
	registerDrawWord("background", 3, func(inst *sketchInstance, args []float64) error {
		inst.ctx.ClearWithColor(rgba(args))
		return nil
	})
	registerDrawWord("fill", 3, func(inst *sketchInstance, args []float64) error {
		inst.fill = rgba(args)
		inst.doFill = true
		return nil
	})
	registerDrawWord("stroke", 3, func(inst *sketchInstance, args []float64) error {
		inst.stroke = rgba(args)
		inst.doStroke = true
		return nil
	})
	registerDrawWord("alpha", 1, func(inst *sketchInstance, args []float64) error {
		a := clamp(args[0], 0, 1)
		inst.fill.A = a
		inst.stroke.A = a
		return nil
	})
	registerDrawWord("nofill", 0, func(inst *sketchInstance, args []float64) error {
		inst.doFill = false
		return nil
	})
	registerDrawWord("nostroke", 0, func(inst *sketchInstance, args []float64) error {
		inst.doStroke = false
		return nil
	})
	registerDrawWord("strokeweight", 1, func(inst *sketchInstance, args []float64) error {
		inst.strokeWidth = max(args[0], 0)
		return nil
	})

	// x y d circle
	registerDrawWord("circle", 3, func(inst *sketchInstance, args []float64) error {
		inst.ctx.DrawCircle(args[0], args[1], math.Abs(args[2])/2)
		return inst.paint()
	})
	// x y w h ellipse
	registerDrawWord("ellipse", 4, func(inst *sketchInstance, args []float64) error {
		inst.ctx.DrawEllipse(args[0], args[1], math.Abs(args[2])/2, math.Abs(args[3])/2)
		return inst.paint()
	})
	// x y w h rect
	registerDrawWord("rect", 4, func(inst *sketchInstance, args []float64) error {
		inst.ctx.DrawRectangle(args[0], args[1], args[2], args[3])
		return inst.paint()
	})
	// x1 y1 x2 y2 line
	registerDrawWord("line", 4, func(inst *sketchInstance, args []float64) error {
		if !inst.doStroke {
			return nil
		}
		c := inst.ctx
		c.DrawLine(args[0], args[1], args[2], args[3])
		c.SetRGBA(inst.stroke.R, inst.stroke.G, inst.stroke.B, inst.stroke.A)
		c.SetLineWidth(inst.strokeWidth)
		return c.Stroke()
	})
	// n x y r polygon
	registerDrawWord("polygon", 4, func(inst *sketchInstance, args []float64) error {
		n := int(args[0])
		if n < 3 {
			return nil
		}
		inst.ctx.DrawRegularPolygon(n, args[1], args[2], args[3], 0)
		return inst.paint()
	})

	registerDrawWord("push", 0, func(inst *sketchInstance, args []float64) error {
		inst.ctx.Push()
		inst.pushDepth++
		return nil
	})
	registerDrawWord("pop", 0, func(inst *sketchInstance, args []float64) error {
		if inst.pushDepth == 0 {
			return errors.New("pop without push")
		}
		inst.ctx.Pop()
		inst.pushDepth--
		return nil
	})
	registerDrawWord("translate", 2, func(inst *sketchInstance, args []float64) error {
		inst.ctx.Translate(args[0], args[1])
		return nil
	})
	registerDrawWord("rotate", 1, func(inst *sketchInstance, args []float64) error {
		inst.ctx.Rotate(args[0])
		return nil
	})
	registerDrawWord("scale", 2, func(inst *sketchInstance, args []float64) error {
		inst.ctx.Scale(args[0], args[1])
		return nil
	})

	RegisterWord("width", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.ctx.Width())
		return nil
	})
	RegisterWord("height", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.ctx.Height())
		return nil
	})
	RegisterWord("time", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.time)
		return nil
	})
	RegisterWord("frame", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.frame)
		return nil
	})
	RegisterWord("mousex", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.pointer[0])
		return nil
	})
	RegisterWord("mousey", func(vm *VM) error {
		inst, err := sketchOf(vm)
		if err != nil {
			return err
		}
		vm.Push(inst.pointer[1])
		return nil
	})

	registerAudioWord("audio.bass", "bass")
	registerAudioWord("audio.mid", "mid")
	registerAudioWord("audio.treble", "treble")
	registerAudioWord("audio.volume", "volume")
	registerAudioWord("audio.beat", "beat")
	registerAudioWord("audio.bpm", "bpm")

	// x audio.freq samples the spectrum at x in [0, 1], yielding [0, 1].
	RegisterWord("audio.freq", func(vm *VM) error {
		x, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		audio, ok := vm.GetVal("audio").(Map)
		if !ok {
			vm.Push(0)
			return nil
		}
		spectrum, ok := audio.GetVal("spectrum").(spectrumVal)
		if !ok || len(spectrum) == 0 {
			vm.Push(0)
			return nil
		}
		idx := int(clamp(float64(x), 0, 1) * float64(len(spectrum)-1))
		vm.Push(float64(spectrum[idx]) / 255)
		return nil
	})
}

// spectrumVal carries the frequency texture bytes into the audio context
// without converting every bucket to a Num.
type spectrumVal []uint8

func (s spectrumVal) Eval(vm *VM) error {
	vm.Push(s)
	return nil
}

// audioContext builds the map bound as `audio` for one draw.
func audioContext(us UniformSet) Map {
	m := make(Map, 8)
	get := func(name string) float64 {
		v, _ := us.Float(name)
		return float64(v)
	}
	m.SetVal("bass", get(UniformAudioBass))
	m.SetVal("mid", get(UniformAudioMid))
	m.SetVal("treble", get(UniformAudioTreble))
	m.SetVal("volume", get(UniformAudioVolume))
	m.SetVal("beat", get(UniformAudioBeat))
	m.SetVal("bpm", get(UniformAudioBPM))
	m.SetVal("spectrum", spectrumVal(us.Textures[UniformAudioFrequency]))
	return m
}
