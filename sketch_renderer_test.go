package main

import (
	"errors"
	"testing"
	"time"
)

func newTestSketchRenderer(t *testing.T) (*SketchRenderer, *ManualScheduler) {
	t.Helper()
	s := NewManualScheduler()
	r := NewSketchRenderer(s, 64, 48)
	t.Cleanup(r.Destroy)
	return r, s
}

func compileSketch(t *testing.T, r *SketchRenderer, src string) {
	t.Helper()
	if result := r.Compile(ProgramSource{Name: "test.sketch", Sketch: src}); !result.Success {
		t.Fatalf("compile failed: %v", result.Errors)
	}
}

func TestSketchRequiresSetupAndDraw(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	result := r.Compile(ProgramSource{Sketch: "{ } >setup"})
	if result.Success {
		t.Fatal("sketch without draw compiled")
	}
	if !errors.Is(result.Err(), ErrCompile) {
		t.Errorf("err = %v", result.Err())
	}
	if r.State() != Uninitialized {
		t.Errorf("state = %v", r.State())
	}
	// a draw defined inside a quotation does not count
	if r.Compile(ProgramSource{Sketch: "{ } >setup { { } >draw } drop"}).Success {
		t.Error("nested draw accepted")
	}
}

func TestSketchRejectedCompileKeepsSketch(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { 1 } >draw")
	first := r.current
	for _, src := range []string{
		"{ } >setup",
		"{ } >setup { 1 >draw",
		`{ } >setup { "unterminated } >draw`,
	} {
		if r.Compile(ProgramSource{Sketch: src}).Success {
			t.Errorf("%q compiled", src)
		}
		if r.current != first {
			t.Errorf("%q replaced the running sketch", src)
		}
	}
}

func TestSketchEvalFailureKeepsSketch(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { 0 1 0 background } >draw")
	first := r.current
	for _, src := range []string{
		"{ } >setup { } >draw nosuchword",
		"{ nosuchword } >setup { } >draw",
	} {
		if r.Compile(ProgramSource{Sketch: src}).Success {
			t.Fatalf("%q compiled", src)
		}
		if r.current != first || first.ctx == nil {
			t.Fatalf("%q replaced or closed the running sketch", src)
		}
	}
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	img, _ := r.Canvas().Snapshot()
	if c := img.RGBAAt(5, 5); c.G < 250 || c.R > 5 {
		t.Errorf("pixel = %v, want green from the kept sketch", c)
	}
}

func TestSketchReplacementClosesOld(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { } >draw")
	first := r.current
	compileSketch(t, r, "{ } >setup { 1 } >draw")
	if r.current == first || first.ctx != nil {
		t.Error("old sketch not released after replacement")
	}
}

func TestSketchSetupFailure(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	result := r.Compile(ProgramSource{Sketch: "{ 1 2 3 4 5 nosuchword } >setup { } >draw"})
	if result.Success {
		t.Fatal("failing setup compiled")
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestSketchHooksMustBeQuotations(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	if r.Compile(ProgramSource{Sketch: "{ } >setup 5 >draw"}).Success {
		t.Error("numeric draw accepted")
	}
}

func TestSketchDrawErrorsAreSwallowed(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { nosuchword } >draw")
	for range 3 {
		if err := r.Render(); err != nil {
			t.Fatalf("Render = %v", err)
		}
	}
	if r.current.lastErr == "" {
		t.Error("draw failure not recorded")
	}
}

func TestSketchAudioBinding(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { audio.bass audio.bpm 1 audio.freq } >draw")
	frame := SilentFrame(DefaultSettings())
	frame.Bass = 0.5
	frame.BPM = 90
	frame.Frequency[len(frame.Frequency)-1] = -10
	r.SetAudioData(frame)
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	vm := r.current.vm
	if vm.StackSize() != 3 {
		t.Fatalf("stack = %v", vm.valStack)
	}
	if vm.valStack[0] != Num(0.5) || vm.valStack[1] != Num(90) || vm.valStack[2] != Num(1) {
		t.Errorf("stack = %v", vm.valStack)
	}
	if v := vm.GetVal("audio"); v != nil {
		t.Error("audio context leaked out of draw")
	}
}

func TestSketchAudioWithoutFrame(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { audio.volume 0.5 audio.freq } >draw")
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	vm := r.current.vm
	if vm.StackSize() != 2 || vm.valStack[0] != Num(0) || vm.valStack[1] != Num(0) {
		t.Errorf("stack = %v", vm.valStack)
	}
}

func TestSketchContextWords(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { width height frame mousex mousey } >draw")
	r.SetPointer(3, 4)
	r.Render()
	r.Render()
	want := []Num{64, 48, 2, 3, 4}
	vm := r.current.vm
	if vm.StackSize() != len(want) {
		t.Fatalf("stack = %v", vm.valStack)
	}
	for i, w := range want {
		if vm.valStack[i] != w {
			t.Errorf("stack[%d] = %v, want %v", i, vm.valStack[i], w)
		}
	}
}

func TestSketchGlobalsPersist(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "0 >count { } >setup { @count 1 + } >draw")
	r.Render()
	if top := r.current.vm.Top(); top != Num(1) {
		t.Errorf("top = %v", top)
	}
}

func TestSketchCanvas(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	img, err := r.Canvas().Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("blank snapshot = %v", img.Bounds())
	}
	compileSketch(t, r, "{ 1 0 0 background } >setup { } >draw")
	img, err = r.Canvas().Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	c := img.RGBAAt(10, 10)
	if c.R < 250 || c.G > 5 || c.B > 5 {
		t.Errorf("pixel = %v, want red", c)
	}
	compileSketch(t, r, "{ 0 0 0 background } >setup { 0 0 1 fill nostroke 0 0 width height rect } >draw")
	r.Render()
	img, _ = r.Canvas().Snapshot()
	if c := img.RGBAAt(32, 24); c.B < 250 || c.R > 5 {
		t.Errorf("pixel = %v, want blue", c)
	}
}

func TestSketchTransformResetsEachFrame(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { 0 0 0 background 1 1 1 fill nostroke 10 0 translate 0 0 4 4 rect } >draw")
	for i := range 3 {
		if err := r.Render(); err != nil {
			t.Fatal(err)
		}
		img, _ := r.Canvas().Snapshot()
		if c := img.RGBAAt(11, 1); c.R < 250 {
			t.Errorf("frame %d: shape moved away from x=10, pixel = %v", i, c)
		}
		if c := img.RGBAAt(21, 1); c.R > 5 {
			t.Errorf("frame %d: shape drifted to x=20, pixel = %v", i, c)
		}
	}
}

func TestSketchUnbalancedPush(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { push push 1 1 translate } >draw")
	for range 3 {
		r.Render()
	}
	if r.current.pushDepth != 2 {
		t.Errorf("push depth = %d, want 2", r.current.pushDepth)
	}
	compileSketch(t, r, "{ } >setup { pop } >draw")
	r.Render()
	if r.current.lastErr == "" {
		t.Error("pop without push succeeded")
	}
}

func TestSketchResize(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { } >draw { width height } >resize")
	if err := r.Resize(100, 50); err != nil {
		t.Fatal(err)
	}
	vm := r.current.vm
	if vm.StackSize() != 2 || vm.valStack[0] != Num(100) || vm.valStack[1] != Num(50) {
		t.Errorf("resize hook saw %v", vm.valStack)
	}
	if size := r.Canvas().Size(); size.X != 100 || size.Y != 50 {
		t.Errorf("size = %v", size)
	}
	if err := r.Resize(-1, 5); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v", err)
	}
}

func TestSketchFrameLoopAndDestroy(t *testing.T) {
	r, s := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { } >draw")
	frames := 0
	r.SetOnFrame(func() { frames++ })
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	s.Tick(0)
	s.Tick(16 * time.Millisecond)
	if frames != 2 || r.current.frame != 2 {
		t.Errorf("frames = %d, sketch frame = %d", frames, r.current.frame)
	}
	r.Destroy()
	r.Destroy()
	if s.Pending() != 0 {
		t.Error("frame pending after Destroy")
	}
	if err := r.Render(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Render after Destroy = %v", err)
	}
	if err := r.Resize(10, 10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Resize after Destroy = %v", err)
	}
}

func TestDefaultSketchRuns(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, DefaultSketch)
	frame := SilentFrame(DefaultSettings())
	frame.Bass = 0.7
	frame.Beat = true
	r.SetAudioData(frame)
	for range 3 {
		if err := r.Render(); err != nil {
			t.Fatal(err)
		}
	}
	if r.current.lastErr != "" {
		t.Errorf("default sketch failed: %s", r.current.lastErr)
	}
}

func TestSketchStepLimit(t *testing.T) {
	r, _ := newTestSketchRenderer(t)
	compileSketch(t, r, "{ } >setup { 100000000 { drop } times } >draw")
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	if r.current.lastErr == "" {
		t.Error("runaway draw was not stopped")
	}
}
