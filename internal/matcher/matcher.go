// Package matcher implements the alignment-histogram matcher (C7): it
// takes a query's fingerprint pairs, looks each one up (with
// quantization tolerance) against an index, and reports the
// best-aligned track.
package matcher

import (
	"context"
	"sort"

	"shazoom/internal/config"
	"shazoom/internal/fingerprint"
	"shazoom/internal/index"
	"shazoom/internal/models"
)

// Result is the outcome of a single identification attempt.
type Result struct {
	Matched    bool
	TrackID    uint32
	Metadata   models.TrackMetadata
	Offset     int // best-aligned query-time-minus-anchor-time delta, binned
	Confidence float64
}

// ConfidenceBand labels a confidence score with the three-tier policy:
// strong matches are >=0.7, weak-but-plausible matches are [0.4, 0.7),
// and anything below is treated as noise.
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return "strong"
	case confidence >= 0.4:
		return "weak"
	default:
		return "none"
	}
}

// ProgressFunc is called periodically during Identify with the number
// of query pairs processed so far and the total, so a caller can drive
// a progress bar or check for cancellation between Context polls.
type ProgressFunc func(done, total int)

// Identify fingerprints and matches one query clip's pairs against idx,
// honoring ctx cancellation at roughly every hundred pairs processed.
func Identify(ctx context.Context, idx *index.Index, pairs []fingerprint.Pair, progress ProgressFunc) (Result, error) {
	if len(pairs) == 0 {
		return Result{}, nil
	}

	cfg := idx.Config

	// counts[trackID][alignedOffset] = number of hits at that alignment.
	counts := make(map[uint32]map[int]int)
	// hitIndices[trackID] = set of query-pair indices that matched this
	// track at all, regardless of alignment; this is what confidence is
	// computed from, not the raw hit count.
	hitIndices := make(map[uint32]map[int]struct{})

	for i, pair := range pairs {
		if i%100 == 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}
			if progress != nil {
				progress(i, len(pairs))
			}
		}

		keys := fingerprint.Neighbourhood(pair.FAnchor, pair.FTarget, pair.Dt, cfg.FreqBin, cfg.TimeBin)
		for _, key := range keys {
			for _, posting := range idx.Lookup(key) {
				diff := pair.TAnchor - posting.AnchorTime
				alignedOffset := alignBin(diff, cfg.AlignBin)

				if counts[posting.TrackID] == nil {
					counts[posting.TrackID] = make(map[int]int)
					hitIndices[posting.TrackID] = make(map[int]struct{})
				}
				counts[posting.TrackID][alignedOffset]++
				hitIndices[posting.TrackID][i] = struct{}{}
			}
		}
	}

	if progress != nil {
		progress(len(pairs), len(pairs))
	}

	bestTrack, bestOffset, bestCount := selectBest(counts)
	if bestCount == 0 {
		return Result{}, nil
	}

	confidence := float64(len(hitIndices[bestTrack])) / float64(len(pairs))
	meta, _ := idx.TrackMetadata(bestTrack)

	return Result{
		Matched:    true,
		TrackID:    bestTrack,
		Metadata:   meta,
		Offset:     bestOffset,
		Confidence: confidence,
	}, nil
}

// alignBin floors diff to the nearest multiple of bin, matching
// fingerprint.Quantize's floor-division semantics for negative diffs.
func alignBin(diff, bin int) int {
	return fingerprint.Quantize(diff, bin)
}

// selectBest picks the track whose single best-aligned offset has the
// highest hit count. Ties on count are broken by the smaller track_id;
// ties on a track's own offset are broken by the smallest offset.
func selectBest(counts map[uint32]map[int]int) (trackID uint32, offset int, count int) {
	trackIDs := make([]uint32, 0, len(counts))
	for tid := range counts {
		trackIDs = append(trackIDs, tid)
	}
	sort.Slice(trackIDs, func(i, j int) bool { return trackIDs[i] < trackIDs[j] })

	bestCount := -1
	var bestTrack uint32
	var bestOffset int

	for _, tid := range trackIDs {
		offsets := counts[tid]
		trackBestOffset, trackBestCount := bestOffsetFor(offsets)
		if trackBestCount > bestCount {
			bestCount = trackBestCount
			bestTrack = tid
			bestOffset = trackBestOffset
		}
	}

	return bestTrack, bestOffset, bestCount
}

func bestOffsetFor(offsets map[int]int) (offset int, count int) {
	keys := make([]int, 0, len(offsets))
	for k := range offsets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	best := -1
	bestOffset := 0
	for _, k := range keys {
		if offsets[k] > best {
			best = offsets[k]
			bestOffset = k
		}
	}
	return bestOffset, best
}

// FingerprintQuery runs the pair-combination stage over a query clip's
// already-extracted peaks, producing the pairs Identify consumes. It
// does not extract peaks itself; PairsFromAudio runs the full pipeline
// from an audio file.
func FingerprintQuery(peaks []fingerprint.Peak, cfg config.Config) []fingerprint.Pair {
	return fingerprint.CombinePairs(peaks, cfg)
}
