package main

import (
	"fmt"
	"image"
	"unsafe"

	gl "github.com/go-gl/gl/v3.1/gles2"
	"github.com/go-gl/mathgl/mgl32"
)

type Texture struct {
	tex uint32
}

type Shader struct {
	shader uint32
}

type Program struct {
	program        uint32
	vertexShader   Shader
	fragmentShader Shader
}

// GLDevice is the slice of OpenGL ES 2 the renderers need. All methods
// must be called on the thread that owns the GL context.
type GLDevice interface {
	// CreateProgram compiles and links a program. Failures are returned
	// as *CompileError carrying the driver's info log.
	CreateProgram(vertexSource, fragmentSource string) (Program, error)
	DeleteProgram(p Program)
	// UniformLocation returns -1 for names the program does not use.
	UniformLocation(p Program, name string) int32
	AttribLocation(p Program, name string) int32
	UseProgram(p Program)
	SetUniform(location int32, v UniformValue)
	SetSampler(location int32, unit int)
	SetMatrix(location int32, m mgl32.Mat4)

	CreateTexture() (Texture, error)
	DeleteTexture(t Texture)
	// UploadLuminance replaces t with a single-row luminance image.
	UploadLuminance(t Texture, unit int, data []uint8) error
	UploadRGBA(t Texture, unit int, img *image.RGBA) error

	Viewport(width, height int)
	Clear(r, g, b, a float32)
	// DrawQuad draws a full-screen triangle strip. texcoord may be -1.
	DrawQuad(position, texcoord int32)
	ReadPixels(width, height int) (*image.RGBA, error)
}

type quadVertex struct {
	position [2]float32
	texcoord [2]float32
}

// quadVertices cover clip space as a triangle strip. Texture row 0 is the
// top of the image.
var quadVertices = []quadVertex{
	{position: [2]float32{-1, -1}, texcoord: [2]float32{0, 1}},
	{position: [2]float32{1, -1}, texcoord: [2]float32{1, 1}},
	{position: [2]float32{-1, 1}, texcoord: [2]float32{0, 0}},
	{position: [2]float32{1, 1}, texcoord: [2]float32{1, 0}},
}

type glesDevice struct{}

// NewGLDevice loads the GL entry points of the current context.
func NewGLDevice() (GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}
	logger.Info("GL initialized", "version", gl.GoStr(gl.GetString(gl.VERSION)), "renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return glesDevice{}, nil
}

func getShaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := make([]uint8, length)
	var logLen int32
	gl.GetShaderInfoLog(shader, length, &logLen, &log[0])
	return string(log[:logLen])
}

func getProgramInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := make([]uint8, length)
	var logLen int32
	gl.GetProgramInfoLog(program, length, &logLen, &log[0])
	return string(log[:logLen])
}

func createShader(shaderType uint32, source string) (Shader, error) {
	shader := gl.CreateShader(shaderType)
	if shader == 0 {
		return Shader{}, fmt.Errorf("create shader: %w", ErrResourceExhausted)
	}
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		stage := StageFragment
		if shaderType == gl.VERTEX_SHADER {
			stage = StageVertex
		}
		log := getShaderInfoLog(shader)
		gl.DeleteShader(shader)
		return Shader{}, &CompileError{Stage: stage, Log: splitLog(log)}
	}
	return Shader{shader}, nil
}

func (glesDevice) CreateProgram(vertexSource, fragmentSource string) (Program, error) {
	vs, err := createShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return Program{}, err
	}
	fs, err := createShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		gl.DeleteShader(vs.shader)
		return Program{}, err
	}
	program := gl.CreateProgram()
	if program == 0 {
		gl.DeleteShader(vs.shader)
		gl.DeleteShader(fs.shader)
		return Program{}, fmt.Errorf("create program: %w", ErrResourceExhausted)
	}
	gl.AttachShader(program, vs.shader)
	gl.AttachShader(program, fs.shader)
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := getProgramInfoLog(program)
		gl.DeleteProgram(program)
		gl.DeleteShader(vs.shader)
		gl.DeleteShader(fs.shader)
		return Program{}, &CompileError{Stage: StageLink, Log: splitLog(log)}
	}
	return Program{program, vs, fs}, nil
}

func (glesDevice) DeleteProgram(p Program) {
	if p.program != 0 {
		gl.DeleteProgram(p.program)
	}
	if p.vertexShader.shader != 0 {
		gl.DeleteShader(p.vertexShader.shader)
	}
	if p.fragmentShader.shader != 0 {
		gl.DeleteShader(p.fragmentShader.shader)
	}
}

func (glesDevice) UniformLocation(p Program, name string) int32 {
	return gl.GetUniformLocation(p.program, gl.Str(name+"\x00"))
}

func (glesDevice) AttribLocation(p Program, name string) int32 {
	return gl.GetAttribLocation(p.program, gl.Str(name+"\x00"))
}

func (glesDevice) UseProgram(p Program) {
	gl.UseProgram(p.program)
}

func (glesDevice) SetUniform(location int32, v UniformValue) {
	switch len(v) {
	case 1:
		gl.Uniform1f(location, v[0])
	case 2:
		gl.Uniform2f(location, v[0], v[1])
	case 3:
		gl.Uniform3f(location, v[0], v[1], v[2])
	case 4:
		gl.Uniform4f(location, v[0], v[1], v[2], v[3])
	}
}

func (glesDevice) SetSampler(location int32, unit int) {
	gl.Uniform1i(location, int32(unit))
}

func (glesDevice) SetMatrix(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (glesDevice) CreateTexture() (Texture, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	if tex == 0 {
		return Texture{}, fmt.Errorf("create texture: %w", ErrResourceExhausted)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return Texture{tex}, nil
}

func (glesDevice) DeleteTexture(t Texture) {
	if t.tex != 0 {
		gl.DeleteTextures(1, &t.tex)
	}
}

func checkAllocation(op string) error {
	if code := gl.GetError(); code == gl.OUT_OF_MEMORY {
		return fmt.Errorf("%s: %w", op, ErrResourceExhausted)
	} else if code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}

func (glesDevice) UploadLuminance(t Texture, unit int, data []uint8) error {
	if len(data) == 0 {
		return nil
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.LUMINANCE,
		int32(len(data)), 1,
		0, gl.LUMINANCE, gl.UNSIGNED_BYTE,
		gl.Ptr(&data[0]))
	return checkAllocation("upload luminance texture")
}

func (glesDevice) UploadRGBA(t Texture, unit int, img *image.RGBA) error {
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return nil
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(size.X), int32(size.Y),
		0, gl.RGBA, gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix))
	return checkAllocation("upload RGBA texture")
}

func (glesDevice) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (glesDevice) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (glesDevice) DrawQuad(position, texcoord int32) {
	if position < 0 {
		return
	}
	stride := int32(unsafe.Sizeof(quadVertex{}))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.EnableVertexAttribArray(uint32(position))
	gl.VertexAttribPointer(uint32(position), 2, gl.FLOAT, false, stride,
		gl.Ptr(&quadVertices[0].position[0]))
	if texcoord >= 0 {
		gl.EnableVertexAttribArray(uint32(texcoord))
		gl.VertexAttribPointer(uint32(texcoord), 2, gl.FLOAT, false, stride,
			gl.Ptr(&quadVertices[0].texcoord[0]))
	}
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, int32(len(quadVertices)))
	gl.DisableVertexAttribArray(uint32(position))
	if texcoord >= 0 {
		gl.DisableVertexAttribArray(uint32(texcoord))
	}
}

// ReadPixels reads the framebuffer into an image with row 0 at the top.
func (glesDevice) ReadPixels(width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("read pixels: empty framebuffer %dx%d", width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	if err := checkAllocation("read pixels"); err != nil {
		return nil, err
	}
	flipRows(img)
	return img, nil
}

func flipRows(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]uint8, img.Stride)
	for y := range h / 2 {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
