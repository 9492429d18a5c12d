// Package dsp computes the magnitude spectrogram (C2) that the peak
// extractor operates on.
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"shazoom/internal/config"
)

// Spectrogram is a magnitude matrix, frame-major: Frames[t][f].
type Spectrogram struct {
	Frames [][]float64
	Bins   int // F = N_FFT/2 + 1
}

// Compute runs a windowed STFT over samples and returns its magnitude.
// Framing is left-aligned (not centred): frame t starts at sample
// t*HOP. This keeps the frame-to-sample-offset arithmetic the matcher
// relies on exact.
func Compute(samples []float64, cfg config.Config) Spectrogram {
	window := hannWindow(cfg.FFTSize)
	bins := cfg.FFTSize/2 + 1

	var frames [][]float64
	for start := 0; start+cfg.FFTSize <= len(samples); start += cfg.HopSize {
		frame := make([]float64, cfg.FFTSize)
		for i := 0; i < cfg.FFTSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}

		spectrum := fft.FFTReal(frame)
		magnitude := make([]float64, bins)
		for i := 0; i < bins; i++ {
			magnitude[i] = cmplx.Abs(spectrum[i])
		}
		frames = append(frames, magnitude)
	}

	return Spectrogram{Frames: frames, Bins: bins}
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	return w
}
