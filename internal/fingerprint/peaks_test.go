package fingerprint

import (
	"testing"

	"shazoom/internal/config"
	"shazoom/internal/dsp"
)

func frameWithPeakAt(bins, f int, mag float64) []float64 {
	frame := make([]float64, bins)
	frame[f] = mag
	return frame
}

func TestExtractPeaksFindsIsolatedPeak(t *testing.T) {
	cfg := config.Default()
	bins := cfg.FFTSize/2 + 1

	frames := make([][]float64, 40)
	for i := range frames {
		frames[i] = make([]float64, bins)
	}
	frames[20] = frameWithPeakAt(bins, 100, 5.0)

	spec := dsp.Spectrogram{Frames: frames, Bins: bins}
	peaks := ExtractPeaks(spec, cfg)

	found := false
	for _, p := range peaks {
		if p.T == 20 && p.F == 100 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an isolated high-magnitude bin to survive as a peak, got %+v", peaks)
	}
}

func TestExtractPeaksSuppressesNonMaxima(t *testing.T) {
	cfg := config.Default()
	bins := cfg.FFTSize/2 + 1

	frames := make([][]float64, 10)
	for i := range frames {
		frames[i] = make([]float64, bins)
	}
	// two candidates in the same band at the same frame: only the
	// larger one band-maxes in stage A, so the smaller never reaches
	// stage B at all.
	frames[5][50] = 2.0
	frames[5][51] = 10.0

	spec := dsp.Spectrogram{Frames: frames, Bins: bins}
	peaks := ExtractPeaks(spec, cfg)

	for _, p := range peaks {
		if p.T == 5 && p.F == 50 {
			t.Fatalf("expected the smaller same-band candidate to be suppressed, got peaks %+v", peaks)
		}
	}
}

func TestExtractPeaksEmptySpectrogram(t *testing.T) {
	cfg := config.Default()
	spec := dsp.Spectrogram{Frames: nil, Bins: cfg.FFTSize/2 + 1}
	if peaks := ExtractPeaks(spec, cfg); len(peaks) != 0 {
		t.Fatalf("expected no peaks from an empty spectrogram, got %d", len(peaks))
	}
}

func TestLogBandsCoverRangeAndAreNonDecreasing(t *testing.T) {
	bands := logBands(513, 6)
	if len(bands) != 6 {
		t.Fatalf("expected 6 bands, got %d", len(bands))
	}
	if bands[0].Start != 0 {
		t.Fatalf("first band must start at 0, got %d", bands[0].Start)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Start < bands[i-1].Start {
			t.Fatalf("band edges not non-decreasing: %+v", bands)
		}
	}
	if bands[len(bands)-1].End > 513 {
		t.Fatalf("last band end %d exceeds bin count 513", bands[len(bands)-1].End)
	}
}
