// Package index implements the inverted index (C6): an in-memory
// hash-key -> posting-list map built during ingestion and looked up
// during matching, with a durable snapshot format.
package index

import (
	"sync"

	"shazoom/internal/config"
	"shazoom/internal/models"
)

// Posting records one occurrence of a hash key: which track it came
// from and where in that track the anchor peak sat.
type Posting struct {
	TrackID    uint32
	AnchorTime int
}

// Index is the queryable structure: a hash key maps to every posting
// that produced it, and a track_id maps to its catalog metadata.
type Index struct {
	mu sync.RWMutex

	Config   config.Config
	Postings map[uint32][]Posting
	Metadata map[uint32]models.TrackMetadata
}

// New returns an empty index stamped with cfg.
func New(cfg config.Config) *Index {
	return &Index{
		Config:   cfg,
		Postings: make(map[uint32][]Posting),
		Metadata: make(map[uint32]models.TrackMetadata),
	}
}

// Lookup returns every posting stored under key.
func (idx *Index) Lookup(key uint32) []Posting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Postings[key]
}

// TrackMetadata returns the metadata registered for trackID.
func (idx *Index) TrackMetadata(trackID uint32) (models.TrackMetadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.Metadata[trackID]
	return m, ok
}

// HasTrack reports whether trackID has already been ingested.
func (idx *Index) HasTrack(trackID uint32) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.Metadata[trackID]
	return ok
}

// TrackCount returns the number of distinct tracks in the index.
func (idx *Index) TrackCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.Metadata)
}

// AddPostings merges one track's hash keys and metadata into the index
// directly, bypassing the decode-and-fingerprint pipeline. Used by
// stores that rehydrate an index from an already-fingerprinted backing
// store (e.g. a durable catalog table) rather than from raw audio.
func (idx *Index) AddPostings(trackID uint32, meta models.TrackMetadata, keys map[uint32][]int) {
	idx.add(trackID, meta, keys)
}

// add merges one track's hash keys and metadata into the index. Callers
// must already have checked HasTrack for the re-ingestion policy; add
// itself does not check, so the builder can re-merge a replacement
// explicitly if ever needed.
func (idx *Index) add(trackID uint32, meta models.TrackMetadata, keys map[uint32][]int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.Metadata[trackID] = meta
	for key, anchorTimes := range keys {
		for _, at := range anchorTimes {
			idx.Postings[key] = append(idx.Postings[key], Posting{TrackID: trackID, AnchorTime: at})
		}
	}
}

// DeleteTrack removes a track's metadata and every posting that
// references it. Posting lists are rebuilt in place rather than
// tombstoned, since deletions are expected to be rare administrative
// operations, not a hot path.
func (idx *Index) DeleteTrack(trackID uint32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.Metadata, trackID)
	for key, postings := range idx.Postings {
		kept := postings[:0]
		for _, p := range postings {
			if p.TrackID != trackID {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(idx.Postings, key)
		} else {
			idx.Postings[key] = kept
		}
	}
}
