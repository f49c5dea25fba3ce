package main

import (
	"image"
)

type Size = image.Point

type Smp = float64

func clamp(value float64, lo float64, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
