package main

import (
	"image"

	mgl "github.com/go-gl/mathgl/mgl32"
)

const (
	blitVertexShader = `
    precision highp float;
    attribute vec2 a_position;
    attribute vec2 a_texcoord;
    uniform mat4 u_transform;
    varying vec2 v_texcoord;
    void main(void) {
      gl_Position = u_transform * vec4(a_position, 0.0, 1.0);
      v_texcoord = a_texcoord;
    }`
	blitFragmentShader = `
    precision highp float;
    uniform sampler2D u_tex;
    varying vec2 v_texcoord;
    void main(void) {
      gl_FragColor = texture2D(u_tex, v_texcoord);
    }`
)

// Blitter draws a CPU-side image onto the window, letterboxed to keep its
// aspect ratio.
type Blitter struct {
	dev         GLDevice
	tex         Texture
	program     Program
	a_position  int32
	a_texcoord  int32
	u_transform int32
	u_tex       int32
}

func NewBlitter(dev GLDevice) (*Blitter, error) {
	program, err := dev.CreateProgram(blitVertexShader, blitFragmentShader)
	if err != nil {
		return nil, err
	}
	tex, err := dev.CreateTexture()
	if err != nil {
		dev.DeleteProgram(program)
		return nil, err
	}
	return &Blitter{
		dev:         dev,
		tex:         tex,
		program:     program,
		a_position:  dev.AttribLocation(program, "a_position"),
		a_texcoord:  dev.AttribLocation(program, "a_texcoord"),
		u_transform: dev.UniformLocation(program, "u_transform"),
		u_tex:       dev.UniformLocation(program, "u_tex"),
	}, nil
}

// letterbox returns the transform that fits an image of size img into a
// framebuffer of size fb without distortion.
func letterbox(img, fb Size) mgl.Mat4 {
	if img.X <= 0 || img.Y <= 0 || fb.X <= 0 || fb.Y <= 0 {
		return mgl.Ident4()
	}
	imgAspect := float32(img.X) / float32(img.Y)
	fbAspect := float32(fb.X) / float32(fb.Y)
	sx, sy := float32(1), float32(1)
	if imgAspect > fbAspect {
		sy = fbAspect / imgAspect
	} else {
		sx = imgAspect / fbAspect
	}
	return mgl.Scale3D(sx, sy, 1)
}

func (b *Blitter) Draw(img *image.RGBA, fb Size) error {
	dev := b.dev
	dev.Viewport(fb.X, fb.Y)
	dev.Clear(0, 0, 0, 1)
	if err := dev.UploadRGBA(b.tex, 0, img); err != nil {
		return err
	}
	dev.UseProgram(b.program)
	dev.SetSampler(b.u_tex, 0)
	dev.SetMatrix(b.u_transform, letterbox(img.Bounds().Size(), fb))
	dev.DrawQuad(b.a_position, b.a_texcoord)
	return nil
}

func (b *Blitter) Close() error {
	b.dev.DeleteTexture(b.tex)
	b.dev.DeleteProgram(b.program)
	return nil
}
