package main

import (
	"image"
)

const audioFrequencyUnit = 0

type shaderProgram struct {
	program   Program
	locations map[string]int32
	position  int32
}

// ShaderRenderer draws a user fragment shader over a full-screen quad.
type ShaderRenderer struct {
	rendererCore
	dev     GLDevice
	current *shaderProgram
	freqTex Texture
	applied UniformSet
}

func NewShaderRenderer(dev GLDevice, scheduler FrameScheduler, width, height int) *ShaderRenderer {
	r := &ShaderRenderer{dev: dev}
	r.init(scheduler, width, height, func() {
		if err := r.RenderFrame(); err != nil {
			logger.Warn("shader frame failed", "err", err)
		}
	})
	return r
}

// Compile builds a new program. On failure the previous program, if any,
// keeps rendering.
func (r *ShaderRenderer) Compile(src ProgramSource) CompileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return compileFailed(notInitialized("compile"))
	}
	vertex := src.Vertex
	if vertex == "" {
		vertex = DefaultVertexShader
	}
	program, err := r.dev.CreateProgram(vertex, src.Fragment)
	if err != nil {
		logger.Debug("shader compile failed", "name", src.Name, "err", err)
		return compileFailed(err)
	}
	next := &shaderProgram{
		program:   program,
		locations: make(map[string]int32, len(wellKnownUniforms)),
		position:  r.dev.AttribLocation(program, "position"),
	}
	for _, name := range wellKnownUniforms {
		if loc := r.dev.UniformLocation(program, name); loc >= 0 {
			next.locations[name] = loc
		}
	}
	var warnings []string
	if next.position < 0 {
		warnings = append(warnings, "vertex shader has no attribute named position, nothing will be drawn")
	}
	if r.current != nil {
		r.dev.DeleteProgram(r.current.program)
	}
	r.current = next
	if r.state == Uninitialized {
		r.state = Compiled
	}
	logger.Debug("shader compiled", "name", src.Name, "uniforms", len(next.locations))
	return compileSucceeded(warnings...)
}

// Render draws one frame with freshly computed uniforms. Without a program
// it does nothing.
func (r *ShaderRenderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render()
}

func (r *ShaderRenderer) render() error {
	if r.state == Destroyed {
		return notInitialized("render")
	}
	if r.current == nil {
		return nil
	}
	us := r.bridge.Uniforms(r.baseUniforms())
	dev := r.dev
	dev.Viewport(r.size.X, r.size.Y)
	dev.Clear(0, 0, 0, 1)
	dev.UseProgram(r.current.program)
	for name, loc := range r.current.locations {
		if name == UniformAudioFrequency {
			continue
		}
		if v, ok := us.Values[name]; ok {
			dev.SetUniform(loc, v)
		}
	}
	if loc, ok := r.current.locations[UniformAudioFrequency]; ok {
		if data, ok := us.Textures[UniformAudioFrequency]; ok {
			if r.freqTex.tex == 0 {
				tex, err := dev.CreateTexture()
				if err != nil {
					return err
				}
				r.freqTex = tex
			}
			if err := dev.UploadLuminance(r.freqTex, audioFrequencyUnit, data); err != nil {
				return err
			}
		}
		dev.SetSampler(loc, audioFrequencyUnit)
	}
	dev.DrawQuad(r.current.position, -1)
	r.applied = us
	return nil
}

func (r *ShaderRenderer) RenderFrame() error {
	if err := r.Render(); err != nil {
		return err
	}
	r.notifyFrame()
	return nil
}

func (r *ShaderRenderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start()
}

func (r *ShaderRenderer) Resize(width, height int) error {
	if err := r.validateSize(width, height); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return notInitialized("resize")
	}
	r.size = image.Pt(width, height)
	return nil
}

// Destroy releases the program and the frequency texture. It may be called
// from any state, more than once.
func (r *ShaderRenderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Destroyed {
		return
	}
	r.loop.stop()
	if r.current != nil {
		r.dev.DeleteProgram(r.current.program)
		r.current = nil
	}
	if r.freqTex.tex != 0 {
		r.dev.DeleteTexture(r.freqTex)
		r.freqTex = Texture{}
	}
	r.bridge.Push(nil)
	r.state = Destroyed
}

// AppliedUniforms returns the uniform set of the last drawn frame.
func (r *ShaderRenderer) AppliedUniforms() UniformSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied.Clone()
}

func (r *ShaderRenderer) Canvas() Canvas {
	return shaderCanvas{r}
}

// shaderCanvas reads back the default framebuffer. Snapshot must run on
// the GL thread, right after a frame was drawn.
type shaderCanvas struct {
	r *ShaderRenderer
}

func (c shaderCanvas) Size() image.Point {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	return c.r.size
}

func (c shaderCanvas) Snapshot() (*image.RGBA, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.r.state == Destroyed {
		return nil, notInitialized("snapshot")
	}
	return c.r.dev.ReadPixels(c.r.size.X, c.r.size.Y)
}
