package index

import (
	"context"
	"errors"
	"testing"

	"shazoom/internal/config"
	"shazoom/internal/models"
)

func TestIngestRejectsExistingTrack(t *testing.T) {
	idx := New(config.Default())
	idx.add(1, models.TrackMetadata{Title: "Already here"}, map[uint32][]int{1: {0}})

	b := NewBuilder(idx)
	err := b.Ingest(context.Background(), 1, "/nonexistent/path.wav", models.TrackMetadata{Title: "Replacement"}, nil)
	if !errors.Is(err, ErrTrackExists) {
		t.Fatalf("expected ErrTrackExists, got %v", err)
	}
}
