package main

import (
	"image"
	"image/color"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeDevice records GL calls. Fragment sources containing "#error" fail
// to compile; uniforms exist when their name occurs in the fragment
// source.
type fakeDevice struct {
	nextID    uint32
	programs  map[uint32]string
	textures  map[uint32]bool
	uniforms  map[int32]UniformValue
	samplers  map[int32]int
	luminance []uint8
	uploads   int
	draws     int
	used      uint32
	viewport  image.Point
	failAlloc bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		programs: make(map[uint32]string),
		textures: make(map[uint32]bool),
		uniforms: make(map[int32]UniformValue),
		samplers: make(map[int32]int),
	}
}

func (d *fakeDevice) CreateProgram(vertexSource, fragmentSource string) (Program, error) {
	if strings.Contains(fragmentSource, "#error") {
		return Program{}, &CompileError{Stage: StageFragment, Log: []string{"0:1: error: forced"}}
	}
	if strings.Contains(vertexSource, "#error") {
		return Program{}, &CompileError{Stage: StageVertex, Log: []string{"0:1: error: forced"}}
	}
	d.nextID++
	d.programs[d.nextID] = vertexSource + "\n" + fragmentSource
	return Program{program: d.nextID}, nil
}

func (d *fakeDevice) DeleteProgram(p Program) {
	delete(d.programs, p.program)
}

// uniform locations are derived from the name so they are stable across
// programs
func (d *fakeDevice) UniformLocation(p Program, name string) int32 {
	if !strings.Contains(d.programs[p.program], name) {
		return -1
	}
	for i, known := range wellKnownUniforms {
		if known == name {
			return int32(i)
		}
	}
	return int32(100 + len(name))
}

func (d *fakeDevice) AttribLocation(p Program, name string) int32 {
	if !strings.Contains(d.programs[p.program], name) {
		return -1
	}
	return 0
}

func (d *fakeDevice) UseProgram(p Program) { d.used = p.program }

func (d *fakeDevice) SetUniform(location int32, v UniformValue) {
	d.uniforms[location] = append(UniformValue(nil), v...)
}

func (d *fakeDevice) SetSampler(location int32, unit int) { d.samplers[location] = unit }

func (d *fakeDevice) SetMatrix(location int32, m mgl32.Mat4) {}

func (d *fakeDevice) CreateTexture() (Texture, error) {
	if d.failAlloc {
		return Texture{}, ErrResourceExhausted
	}
	d.nextID++
	d.textures[d.nextID] = true
	return Texture{tex: d.nextID}, nil
}

func (d *fakeDevice) DeleteTexture(t Texture) { delete(d.textures, t.tex) }

func (d *fakeDevice) UploadLuminance(t Texture, unit int, data []uint8) error {
	d.uploads++
	d.luminance = append(d.luminance[:0], data...)
	return nil
}

func (d *fakeDevice) UploadRGBA(t Texture, unit int, img *image.RGBA) error {
	d.uploads++
	return nil
}

func (d *fakeDevice) Viewport(width, height int) { d.viewport = image.Pt(width, height) }

func (d *fakeDevice) Clear(r, g, b, a float32) {}

func (d *fakeDevice) DrawQuad(position, texcoord int32) { d.draws++ }

func (d *fakeDevice) ReadPixels(width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img, nil
}
