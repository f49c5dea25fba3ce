package main

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestKeyMap(t *testing.T) {
	km := CreateKeyMap()
	hits := 0
	km.Bind("r", func() { hits++ })
	if !km.HandleKey("r") || km.HandleKey("x") || hits != 1 {
		t.Errorf("hits = %d", hits)
	}
}

func TestKeyName(t *testing.T) {
	cases := []struct {
		key  glfw.Key
		mods glfw.ModifierKey
		want string
	}{
		{glfw.KeyEscape, 0, "Escape"},
		{glfw.KeySpace, 0, "Space"},
		{glfw.KeyEnter, glfw.ModShift, "S-Enter"},
		{glfw.KeyTab, glfw.ModControl | glfw.ModShift, "C-S-Tab"},
		{glfw.KeyF5, glfw.ModAlt, "M-F5"},
		{glfw.KeyLeftShift, glfw.ModShift, ""},
	}
	for _, c := range cases {
		if got := KeyName(c.key, 0, c.mods); got != c.want {
			t.Errorf("KeyName(%v, %v) = %q, want %q", c.key, c.mods, got, c.want)
		}
	}
}
