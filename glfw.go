package main

import (
	"errors"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type GlfwApp interface {
	Init(dev GLDevice) error
	IsRunning() bool
	OnKey(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey)
	OnCursorPos(x, y float64)
	OnFramebufferSize(width, height int)
	// Update runs before drawing each frame.
	Update() error
	// Render draws one frame into the back buffer.
	Render(t float64) error
	Close()
}

// WithGL opens a window with an OpenGL ES 2 context and drives app until
// it stops running. Buffer swaps are synchronised to the display refresh.
func WithGL(windowTitle string, width, height int, app GlfwApp) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 0)
	window, err := glfw.CreateWindow(width, height, windowTitle, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	dev, err := NewGLDevice()
	if err != nil {
		return err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.OnFramebufferSize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		app.OnKey(key, scancode, action, mods)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		// cursor positions are in screen coordinates, the renderers work
		// in framebuffer pixels
		ww, wh := w.GetSize()
		fw, fh := w.GetFramebufferSize()
		if ww > 0 && wh > 0 {
			x *= float64(fw) / float64(ww)
			y *= float64(fh) / float64(wh)
		}
		app.OnCursorPos(x, y)
	})

	if err := app.Init(dev); err != nil {
		return err
	}
	defer app.Close()
	fw, fh := window.GetFramebufferSize()
	app.OnFramebufferSize(fw, fh)

	for app.IsRunning() && !window.ShouldClose() {
		if err := app.Update(); err != nil {
			return err
		}
		if err := app.Render(glfw.GetTime()); err != nil {
			if errors.Is(err, ErrResourceExhausted) {
				logger.Error("rendering paused", "err", err)
			} else {
				return err
			}
		}
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}
