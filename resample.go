package main

import (
	"fmt"
	"math"

	"github.com/dh1tw/gosamplerate"
)

const (
	resampleMaxRatio = 1.0 * 16
	resampleMinRatio = 1.0 / 16
)

func isValidRatio(ratio float64) bool {
	if !gosamplerate.IsValidRatio(ratio) {
		return false
	}
	if ratio < resampleMinRatio || ratio > resampleMaxRatio {
		return false
	}
	return true
}

// monoResampler converts a mono stream by a fixed ratio, block by block.
type monoResampler struct {
	src   gosamplerate.Src
	ratio float64
}

func newMonoResampler(ratio float64) (*monoResampler, error) {
	if !isValidRatio(ratio) {
		return nil, fmt.Errorf("resample: invalid ratio: %f", ratio)
	}
	outputBufferLen := int(math.Ceil(pumpBlockFrames * resampleMaxRatio))
	src, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, 1, outputBufferLen)
	if err != nil {
		return nil, err
	}
	return &monoResampler{src: src, ratio: ratio}, nil
}

func (rs *monoResampler) process(block []float32) ([]float32, error) {
	return rs.src.Process(block, rs.ratio, false)
}

func (rs *monoResampler) Close() error {
	return gosamplerate.Delete(rs.src)
}
