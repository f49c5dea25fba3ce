package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWav(t *testing.T, path string, sampleRate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBufferSourceRead(t *testing.T) {
	src := BufferSource{Samples: []float32{1, 2, 3, 4, 5}, SampleRate: 8000, Channels: 1}
	node, err := src.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]float32, 3)
	n, err := node.ReadSamples(dst)
	if n != 3 || err != nil {
		t.Fatalf("first read = %d, %v", n, err)
	}
	n, err = node.ReadSamples(dst)
	if n != 2 || err != nil || dst[0] != 4 || dst[1] != 5 {
		t.Fatalf("second read = %d, %v, %v", n, err, dst)
	}
	if _, err := node.ReadSamples(dst); !errors.Is(err, io.EOF) {
		t.Fatalf("third read err = %v, want EOF", err)
	}
}

func TestBufferSourceLoop(t *testing.T) {
	src := BufferSource{Samples: []float32{1, 2}, SampleRate: 8000, Channels: 1, Loop: true}
	node, err := src.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]float32, 5)
	n, err := node.ReadSamples(dst)
	if n != 5 || err != nil {
		t.Fatalf("read = %d, %v", n, err)
	}
	want := []float32{1, 2, 1, 2, 1}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
	node.Stop()
	if _, err := node.ReadSamples(dst); !errors.Is(err, io.EOF) {
		t.Errorf("read after Stop err = %v, want EOF", err)
	}
}

func TestBufferSourceInvalid(t *testing.T) {
	for _, src := range []BufferSource{
		{Samples: []float32{1}, SampleRate: 0, Channels: 1},
		{Samples: []float32{1}, SampleRate: 8000, Channels: 0},
		{Samples: []float32{1, 2, 3}, SampleRate: 8000, Channels: 2},
	} {
		if _, err := src.open(context.Background()); err == nil {
			t.Errorf("%v opened", src)
		}
	}
}

func TestFileSourceWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := []int{16384, -16384, 0, 32767, -32768, 8192}
	writeTestWav(t, path, 22050, 2, data)

	node, err := FileSource{Path: path}.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer node.Stop()
	if node.SampleRate() != 22050 || node.Channels() != 2 {
		t.Fatalf("format = %d Hz, %d ch", node.SampleRate(), node.Channels())
	}
	dst := make([]float32, 16)
	n, err := node.ReadSamples(dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) {
		t.Fatalf("read %d samples, want %d", n, len(data))
	}
	if dst[0] != 0.5 || dst[1] != -0.5 || dst[4] != -1 {
		t.Errorf("samples = %v", dst[:n])
	}
	if _, err := node.ReadSamples(dst); !errors.Is(err, io.EOF) {
		t.Errorf("err at end = %v, want EOF", err)
	}
}

func TestFileSourceLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.wav")
	writeTestWav(t, path, 8000, 1, []int{100, 200})
	node, err := FileSource{Path: path, Loop: true}.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer node.Stop()
	dst := make([]float32, 2)
	for i := range 3 {
		n, err := node.ReadSamples(dst)
		if n != 2 || err != nil {
			t.Fatalf("pass %d: read = %d, %v", i, n, err)
		}
	}
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (FileSource{Path: filepath.Join(dir, "x.flac")}).open(context.Background()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown extension err = %v", err)
	}
	if _, err := (FileSource{Path: filepath.Join(dir, "missing.wav")}).open(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not RIFF data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileSource{Path: garbage}).open(context.Background()); err == nil {
		t.Error("garbage decoded")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileSource{Path: garbage}).open(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled open err = %v", err)
	}
}

func TestLiveDeviceSourceInvalid(t *testing.T) {
	if _, err := (LiveDeviceSource{SampleRate: 48000, Channels: 1}).open(context.Background()); err == nil {
		t.Error("empty command accepted")
	}
	if _, err := (LiveDeviceSource{Command: []string{"true"}}).open(context.Background()); err == nil {
		t.Error("missing format accepted")
	}
}

func TestLiveDeviceSourceRead(t *testing.T) {
	src := LiveDeviceSource{
		Command:    []string{"sh", "-c", `printf '\000\100\000\300'`},
		SampleRate: 8000,
		Channels:   1,
	}
	node, err := src.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer node.Stop()
	if node.Kind() != LiveDevice || node.SampleRate() != 8000 || node.Channels() != 1 {
		t.Fatalf("node = %v, %d Hz, %d ch", node.Kind(), node.SampleRate(), node.Channels())
	}
	dst := make([]float32, 4)
	n, err := node.ReadSamples(dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || dst[0] != 0.5 || dst[1] != -0.5 {
		t.Errorf("samples = %v", dst[:n])
	}
	if _, err := node.ReadSamples(dst); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
	if err := node.Stop(); err != nil {
		t.Errorf("Stop after exit = %v", err)
	}
}

func TestLiveDeviceSourceStop(t *testing.T) {
	src := LiveDeviceSource{Command: []string{"sleep", "10"}, SampleRate: 8000, Channels: 1}
	node, err := src.open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := node.ReadSamples(make([]float32, 64))
		done <- err
	}()
	start := time.Now()
	if err := node.Stop(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Error("read on a stopped recorder returned no error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pending read not unblocked by Stop")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Stop took %v", elapsed)
	}
}

func TestMixToMono(t *testing.T) {
	dst := make([]float32, 4)
	if n := mixToMono(dst, []float32{1, 0, 0.5, 0.5, -1, 1}, 2); n != 3 {
		t.Fatalf("stereo frames = %d", n)
	}
	if dst[0] != 0.5 || dst[1] != 0.5 || dst[2] != 0 {
		t.Errorf("stereo mix = %v", dst[:3])
	}
	if n := mixToMono(dst, []float32{3, 0, 0, 0, 3, 0}, 3); n != 2 {
		t.Fatalf("3ch frames = %d", n)
	}
	if dst[0] != 1 || dst[1] != 1 {
		t.Errorf("3ch mix = %v", dst[:2])
	}
}

func TestDecodeS16LE(t *testing.T) {
	dst := make([]float32, 3)
	decodeS16LE(dst, []byte{0x00, 0x40, 0x00, 0x80, 0xff, 0x7f})
	if dst[0] != 0.5 || dst[1] != -1 || dst[2] != float32(32767)/32768 {
		t.Errorf("decoded = %v", dst)
	}
}
