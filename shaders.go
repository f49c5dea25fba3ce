package main

import (
	"embed"
)

//go:embed assets/*
var assets embed.FS

func mustAsset(name string) string {
	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

var (
	DefaultVertexShader   = mustAsset("default.vert")
	DefaultFragmentShader = mustAsset("visualizer.frag")
	DefaultSketch         = mustAsset("default.sketch")
)
