package main

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type FontSizeInPoints = float64

const hudFontSize FontSizeInPoints = 12

// loadHUDFace returns Go Mono at size, falling back to the fixed 7x13 face
// when the embedded font cannot be parsed.
func loadHUDFace(size FontSizeInPoints) font.Face {
	f, err := opentype.Parse(gomono.TTF)
	if err == nil {
		var face font.Face
		face, err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     96,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face
		}
	}
	logger.Warn("falling back to basic font", "err", err)
	return basicfont.Face7x13
}

// drawLines renders text lines onto dst starting at the top left corner,
// over a translucent backing box.
func drawLines(dst *image.RGBA, face font.Face, lines []string) {
	if len(lines) == 0 {
		return
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	if lineHeight == 0 {
		lineHeight = (metrics.Ascent + metrics.Descent).Ceil()
	}
	const margin = 4
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}),
		Face: face,
	}
	width := 0
	for _, line := range lines {
		width = max(width, d.MeasureString(line).Ceil())
	}
	box := image.Rect(0, 0, width+2*margin, len(lines)*lineHeight+2*margin).Intersect(dst.Bounds())
	shade := color.RGBA{A: 0xa0}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			blendOver(dst, x, y, shade)
		}
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(margin),
			Y: fixed.I(margin+i*lineHeight) + metrics.Ascent,
		}
		d.DrawString(line)
	}
}

func blendOver(dst *image.RGBA, x, y int, c color.RGBA) {
	off := dst.PixOffset(x, y)
	a := uint32(c.A)
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		p := uint32(dst.Pix[off+i])
		dst.Pix[off+i] = uint8((uint32(v)*a + p*(255-a)) / 255)
	}
}
