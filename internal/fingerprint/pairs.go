package fingerprint

import (
	"sort"

	"shazoom/internal/config"
)

// Pair is one anchor/target combination emitted by the combiner: the
// anchor and target frequency bins, their time separation, and the
// anchor's own frame index (kept so later stages can recover absolute
// offsets without re-walking the peak list).
type Pair struct {
	FAnchor int
	FTarget int
	Dt      int
	TAnchor int
}

// CombinePairs orders peaks by time (ties broken by frequency, for a
// deterministic iteration order) and, for each peak acting as an anchor,
// scans forward emitting a pair for every later peak within
// cfg.TargetZoneFrames frames. The scan stops at the first peak whose
// time difference exceeds the zone, since peaks are sorted by time.
func CombinePairs(peaks []Peak, cfg config.Config) []Pair {
	sorted := make([]Peak, len(peaks))
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].T != sorted[j].T {
			return sorted[i].T < sorted[j].T
		}
		return sorted[i].F < sorted[j].F
	})

	var pairs []Pair
	for i, anchor := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			target := sorted[j]
			dt := target.T - anchor.T
			if dt > cfg.TargetZoneFrames {
				break
			}
			pairs = append(pairs, Pair{
				FAnchor: anchor.F,
				FTarget: target.F,
				Dt:      dt,
				TAnchor: anchor.T,
			})
		}
	}

	return pairs
}
