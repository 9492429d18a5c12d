package fingerprint

import "testing"

func TestHashKnownValue(t *testing.T) {
	got := Hash(Quantize(6, 2), Quantize(8, 2), Quantize(4, 2))
	want := uint32(6299652)
	if got != want {
		t.Fatalf("Hash(6,8,4) = %d, want %d", got, want)
	}
}

func TestNeighbourhoodIncludesKnownVariant(t *testing.T) {
	keys := Neighbourhood(6, 8, 4, 2, 2)
	want := uint32(4202500)
	found := false
	for _, k := range keys {
		if k == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("Neighbourhood(6,8,4,2,2) = %v, expected to contain %d", keys, want)
	}
}

func TestNeighbourhoodSizeBound(t *testing.T) {
	keys := Neighbourhood(500, 500, 20, 2, 2)
	if len(keys) > 7 {
		t.Fatalf("neighbourhood produced %d keys, want <= 7", len(keys))
	}
	for _, k := range keys {
		if k >= 1<<30 {
			t.Fatalf("key %d exceeds 2^30", k)
		}
	}
}

func TestNeighbourhoodDropsOutOfRange(t *testing.T) {
	// f1 = 0: the "-freqBin" nudge goes negative and must be dropped,
	// not wrapped or clamped.
	keys := Neighbourhood(0, 500, 4, 2, 2)
	if len(keys) > 6 {
		t.Fatalf("expected at most 6 keys when one neighbour is out of range, got %d", len(keys))
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	for _, x := range []int{0, 1, 2, 3, 1022, 1023} {
		q := Quantize(x, 2)
		if Quantize(q, 2) != q {
			t.Fatalf("Quantize(%d) = %d is not a fixed point", x, q)
		}
	}
}

func TestQuantizeFloorsNegative(t *testing.T) {
	if got := Quantize(-1, 2); got != -2 {
		t.Fatalf("Quantize(-1, 2) = %d, want -2", got)
	}
}
