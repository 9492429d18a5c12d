package matcher

import (
	"context"
	"testing"

	"shazoom/internal/config"
	"shazoom/internal/fingerprint"
	"shazoom/internal/index"
	"shazoom/internal/models"
)

func keysForPairs(pairs []fingerprint.Pair, cfg config.Config) map[uint32][]int {
	keys := make(map[uint32][]int)
	for _, p := range pairs {
		qf1 := fingerprint.Quantize(p.FAnchor, cfg.FreqBin)
		qf2 := fingerprint.Quantize(p.FTarget, cfg.FreqBin)
		qdt := fingerprint.Quantize(p.Dt, cfg.TimeBin)
		key := fingerprint.Hash(qf1, qf2, qdt)
		keys[key] = append(keys[key], p.TAnchor)
	}
	return keys
}

func samplePairs() []fingerprint.Pair {
	peaks := []fingerprint.Peak{
		{T: 0, F: 50}, {T: 5, F: 120}, {T: 12, F: 30}, {T: 40, F: 200}, {T: 45, F: 10},
	}
	return fingerprint.CombinePairs(peaks, config.Default())
}

func TestIdentifySelfMatchIsPerfect(t *testing.T) {
	cfg := config.Default()
	pairs := samplePairs()

	idx := index.New(cfg)
	idx.AddPostings(1, models.TrackMetadata{Title: "Self"}, keysForPairs(pairs, cfg))

	result, err := Identify(context.Background(), idx, pairs, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected a match")
	}
	if result.TrackID != 1 {
		t.Fatalf("expected track 1, got %d", result.TrackID)
	}
	if result.Offset != 0 {
		t.Fatalf("expected offset 0 for a self-match, got %d", result.Offset)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 for a self-match, got %f", result.Confidence)
	}
}

func TestIdentifySubClip(t *testing.T) {
	cfg := config.Default()
	fullPeaks := []fingerprint.Peak{
		{T: 0, F: 50}, {T: 5, F: 120}, {T: 12, F: 30}, {T: 40, F: 200}, {T: 45, F: 10},
		{T: 100, F: 75}, {T: 110, F: 150},
	}
	fullPairs := fingerprint.CombinePairs(fullPeaks, cfg)

	idx := index.New(cfg)
	idx.AddPostings(7, models.TrackMetadata{Title: "Full Track"}, keysForPairs(fullPairs, cfg))

	// Query clip recorded starting 100 frames into the track: its own
	// local clock restarts at 0, so the same (T=100,F=75)/(T=110,F=150)
	// peaks reappear at local times 0 and 10.
	subPeaks := []fingerprint.Peak{
		{T: 0, F: 75}, {T: 10, F: 150},
	}
	subPairs := fingerprint.CombinePairs(subPeaks, cfg)

	result, err := Identify(context.Background(), idx, subPairs, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !result.Matched || result.TrackID != 7 {
		t.Fatalf("expected a match on track 7, got %+v", result)
	}
	wantOffset := alignBin(0-100, cfg.AlignBin)
	if result.Offset != wantOffset {
		t.Fatalf("expected offset %d (query started 100 frames into the track), got %d", wantOffset, result.Offset)
	}
}

func TestIdentifyNoMatchOnEmptyIndex(t *testing.T) {
	cfg := config.Default()
	idx := index.New(cfg)
	pairs := samplePairs()

	result, err := Identify(context.Background(), idx, pairs, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected no match against an empty index, got %+v", result)
	}
}

func TestIdentifyTieBreaksOnSmallerTrackID(t *testing.T) {
	cfg := config.Default()
	pairs := samplePairs()
	keys := keysForPairs(pairs, cfg)

	idx := index.New(cfg)
	idx.AddPostings(5, models.TrackMetadata{Title: "Higher ID"}, keys)
	idx.AddPostings(2, models.TrackMetadata{Title: "Lower ID"}, keys)

	result, err := Identify(context.Background(), idx, pairs, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.TrackID != 2 {
		t.Fatalf("expected the tie to favour the smaller track_id (2), got %d", result.TrackID)
	}
}

func TestIdentifyQuantizationToleranceViaNeighbourhood(t *testing.T) {
	cfg := config.Default()

	// Store a track hashed at the exact quantized values.
	primaryKey := fingerprint.Hash(100, 200, 10)
	idx := index.New(cfg)
	idx.AddPostings(3, models.TrackMetadata{Title: "Drifted"}, map[uint32][]int{primaryKey: {0}})

	// Query with raw values that land one freq bin off from the stored
	// key; the neighbourhood expansion must still find it.
	pairs := []fingerprint.Pair{{FAnchor: 102, FTarget: 200, Dt: 10, TAnchor: 0}}

	result, err := Identify(context.Background(), idx, pairs, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !result.Matched || result.TrackID != 3 {
		t.Fatalf("expected neighbourhood expansion to recover the drifted match, got %+v", result)
	}
}

func TestIdentifyEmptyQueryReturnsNoMatch(t *testing.T) {
	cfg := config.Default()
	idx := index.New(cfg)
	result, err := Identify(context.Background(), idx, nil, nil)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected no match for an empty query")
	}
}

func TestConfidenceBandThresholds(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.9, "strong"},
		{0.7, "strong"},
		{0.5, "weak"},
		{0.4, "weak"},
		{0.1, "none"},
	}
	for _, c := range cases {
		if got := ConfidenceBand(c.confidence); got != c.want {
			t.Fatalf("ConfidenceBand(%f) = %q, want %q", c.confidence, got, c.want)
		}
	}
}
