package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

type KeyHandler func()

type KeyMap map[string]KeyHandler

func CreateKeyMap() KeyMap {
	return KeyMap{}
}

func (km KeyMap) HandleKey(key string) bool {
	if handler, ok := km[key]; ok {
		handler()
		return true
	}
	return false
}

func (km KeyMap) Bind(key string, handler KeyHandler) {
	km[key] = handler
}

// KeyName turns a glfw key event into the names used by KeyMap, e.g.
// "Escape", "r", "C-s". Modifier keys alone have no name.
func KeyName(key glfw.Key, scancode int, mods glfw.ModifierKey) string {
	var keyName string
	switch key {
	case glfw.KeyLeftShift, glfw.KeyLeftControl, glfw.KeyLeftAlt, glfw.KeyLeftSuper:
		return ""
	case glfw.KeyRightShift, glfw.KeyRightControl, glfw.KeyRightAlt, glfw.KeyRightSuper:
		return ""
	case glfw.KeySpace:
		keyName = "Space"
	case glfw.KeyEscape:
		keyName = "Escape"
	case glfw.KeyEnter:
		keyName = "Enter"
	case glfw.KeyTab:
		keyName = "Tab"
	case glfw.KeyF1:
		keyName = "F1"
	case glfw.KeyF5:
		keyName = "F5"
	default:
		keyName = glfw.GetKeyName(key, scancode)
	}
	if keyName == "" {
		return ""
	}
	if mods&glfw.ModShift != 0 {
		keyName = "S-" + keyName
	}
	if mods&glfw.ModAlt != 0 {
		keyName = "M-" + keyName
	}
	if mods&glfw.ModControl != 0 {
		keyName = "C-" + keyName
	}
	return keyName
}
