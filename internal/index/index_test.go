package index

import (
	"os"
	"path/filepath"
	"testing"

	"shazoom/internal/config"
	"shazoom/internal/models"
)

func TestAddAndLookup(t *testing.T) {
	idx := New(config.Default())
	idx.add(1, models.TrackMetadata{Title: "Song A"}, map[uint32][]int{
		42: {0, 100},
		7:  {50},
	})

	postings := idx.Lookup(42)
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings for key 42, got %d", len(postings))
	}
	for _, p := range postings {
		if p.TrackID != 1 {
			t.Fatalf("posting references wrong track: %+v", p)
		}
	}

	if !idx.HasTrack(1) {
		t.Fatalf("expected track 1 to be present")
	}
	if idx.TrackCount() != 1 {
		t.Fatalf("expected 1 track, got %d", idx.TrackCount())
	}
}

func TestDeleteTrackRemovesPostings(t *testing.T) {
	idx := New(config.Default())
	idx.add(1, models.TrackMetadata{Title: "A"}, map[uint32][]int{1: {0}})
	idx.add(2, models.TrackMetadata{Title: "B"}, map[uint32][]int{1: {10}})

	idx.DeleteTrack(1)

	if idx.HasTrack(1) {
		t.Fatalf("track 1 should have been deleted")
	}
	postings := idx.Lookup(1)
	if len(postings) != 1 || postings[0].TrackID != 2 {
		t.Fatalf("expected only track 2's posting to remain, got %+v", postings)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.Default()
	idx := New(cfg)
	idx.add(1, models.TrackMetadata{Title: "Song A", Artist: "Someone"}, map[uint32][]int{99: {5, 10}})

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.gob")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".json"); err != nil {
		t.Fatalf("expected json mirror to exist: %v", err)
	}

	loaded, err := Load(path, cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TrackCount() != 1 {
		t.Fatalf("expected 1 track after reload, got %d", loaded.TrackCount())
	}
	postings := loaded.Lookup(99)
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings after reload, got %d", len(postings))
	}
}

func TestLoadRejectsConfigMismatch(t *testing.T) {
	cfg := config.Default()
	idx := New(cfg)
	idx.add(1, models.TrackMetadata{Title: "Song A"}, map[uint32][]int{1: {0}})

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.gob")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := cfg
	other.NumBands = cfg.NumBands + 1

	_, err := Load(path, other)
	if err == nil {
		t.Fatalf("expected Load to reject a config mismatch")
	}
	var loadErr *IndexLoadError
	if !asIndexLoadError(err, &loadErr) {
		t.Fatalf("expected an *IndexLoadError, got %T: %v", err, err)
	}
}

func asIndexLoadError(err error, target **IndexLoadError) bool {
	if e, ok := err.(*IndexLoadError); ok {
		*target = e
		return true
	}
	return false
}
