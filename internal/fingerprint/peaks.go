// Package fingerprint implements the peak extractor (C3), pair combiner
// (C4), and hasher (C5) stages of the pipeline.
package fingerprint

import (
	"shazoom/internal/config"
	"shazoom/internal/dsp"
)

// Peak is a time-frequency coordinate in the constellation.
type Peak struct {
	T int // time frame
	F int // frequency bin
}

type bandMax struct {
	t, f int
	mag  float64
}

// ExtractPeaks runs the two-stage peak-picking procedure (per-frame band
// maxima, then a K x K local-maximum filter) with the fixed neighbourhood
// size cfg.NeighbourhoodK. This is the only variant wired into ingestion
// and query; see
// ExtractPeaksAdaptive for the binary-search variant that must never be
// mixed with this one across an index's lifetime.
func ExtractPeaks(spec dsp.Spectrogram, cfg config.Config) []Peak {
	return extractPeaks(spec, cfg.NumBands, cfg.NeighbourhoodK)
}

func extractPeaks(spec dsp.Spectrogram, numBands, k int) []Peak {
	bands := logBands(spec.Bins, numBands)

	// Stage A: per-frame band maxima.
	framePeaks := make([][]bandMax, len(spec.Frames))
	for t, frame := range spec.Frames {
		var candidates []bandMax
		for _, b := range bands {
			if b.Start >= b.End {
				continue // collapsed band: legal, contributes nothing
			}
			bestF := -1
			bestMag := -1.0
			for f := b.Start; f < b.End && f < len(frame); f++ {
				if frame[f] > bestMag {
					bestMag = frame[f]
					bestF = f
				}
			}
			if bestF >= 0 && bestMag > 0 {
				candidates = append(candidates, bandMax{t: t, f: bestF, mag: bestMag})
			}
		}
		framePeaks[t] = candidates
	}

	// Stage B: K x K local maximum filter over the sparse band-peak grid,
	// "nearest" boundary (we only ever compare against points that
	// actually exist, which is equivalent to clamping the window to the
	// populated range).
	var peaks []Peak
	for t, candidates := range framePeaks {
		for _, c := range candidates {
			if isLocalMax(framePeaks, t, c, k) {
				peaks = append(peaks, Peak{T: c.t, F: c.f})
			}
		}
	}

	return peaks
}

// ExtractPeaksAdaptive binary-searches the neighbourhood size K in
// [minK, maxK] for the value that brings the peak density closest to
// targetPerSecond peaks/second, within tolerance (a fraction, e.g. 0.2
// for +/-20%). Smaller K admits more peaks; larger K admits fewer. Not
// called by the ingest or query path: an index's peak density must stay
// comparable across tracks, so the fixed cfg.NeighbourhoodK is what is
// actually used end to end.
func ExtractPeaksAdaptive(spec dsp.Spectrogram, numBands int, durationSeconds, targetPerSecond, tolerance float64, minK, maxK int) []Peak {
	if durationSeconds <= 0 {
		return extractPeaks(spec, numBands, minK)
	}
	target := targetPerSecond * durationSeconds
	lowTarget := target * (1 - tolerance)
	highTarget := target * (1 + tolerance)

	lo, hi := minK, maxK
	best := extractPeaks(spec, numBands, lo)

	for lo <= hi {
		mid := (lo + hi) / 2
		if mid%2 == 0 {
			mid++ // odd K keeps the window symmetric around the candidate
		}
		peaks := extractPeaks(spec, numBands, mid)
		count := float64(len(peaks))

		if count >= lowTarget && count <= highTarget {
			return peaks
		}
		best = peaks

		if count > highTarget {
			// too many peaks: widen the suppression window
			lo = mid + 2
		} else {
			hi = mid - 2
		}
	}

	return best
}

// isLocalMax checks c against a k x k window: k/2 cells before the
// candidate and k-1-k/2 after it on each axis, so an even k reaches one
// cell less on the trailing side.
func isLocalMax(framePeaks [][]bandMax, t int, c bandMax, k int) bool {
	before := k / 2
	after := k - 1 - before
	lo := t - before
	hi := t + after
	if lo < 0 {
		lo = 0
	}
	if hi >= len(framePeaks) {
		hi = len(framePeaks) - 1
	}

	for tt := lo; tt <= hi; tt++ {
		for _, other := range framePeaks[tt] {
			if other.f < c.f-before || other.f > c.f+after {
				continue
			}
			if other.mag > c.mag {
				return false
			}
		}
	}
	return true
}
