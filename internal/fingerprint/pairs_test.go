package fingerprint

import (
	"testing"

	"shazoom/internal/config"
)

func TestCombinePairsTargetZoneBound(t *testing.T) {
	cfg := config.Default()
	peaks := []Peak{
		{T: 0, F: 10}, {T: 5, F: 20}, {T: 49, F: 30}, {T: 51, F: 40}, {T: 200, F: 50},
	}
	pairs := CombinePairs(peaks, cfg)
	for _, p := range pairs {
		if p.Dt < 0 || p.Dt > cfg.TargetZoneFrames {
			t.Fatalf("pair %+v has Dt outside [0, %d]", p, cfg.TargetZoneFrames)
		}
	}

	// the peak at T=51 is 51 frames from T=0, outside the zone, so no
	// pair should anchor at T=0 with target T=51.
	for _, p := range pairs {
		if p.TAnchor == 0 && p.Dt == 51 {
			t.Fatalf("pair %+v exceeds the target zone", p)
		}
	}
}

func TestCombinePairsDeterministicOrder(t *testing.T) {
	cfg := config.Default()
	peaks := []Peak{{T: 3, F: 1}, {T: 1, F: 2}, {T: 1, F: 1}, {T: 2, F: 5}}
	a := CombinePairs(peaks, cfg)
	b := CombinePairs(peaks, cfg)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic pair count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic pair order at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestCombinePairsEmptyInput(t *testing.T) {
	if pairs := CombinePairs(nil, config.Default()); len(pairs) != 0 {
		t.Fatalf("expected no pairs from no peaks, got %d", len(pairs))
	}
}
