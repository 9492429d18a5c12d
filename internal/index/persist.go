package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"

	"shazoom/internal/config"
	"shazoom/internal/models"
)

// schemaVersion guards against decoding a snapshot written by an
// incompatible future layout of this package.
const schemaVersion = 1

// Header is stamped into every persisted snapshot so a later Load can
// refuse to open an index built with different fingerprinting
// parameters than the ones currently configured.
type Header struct {
	Version int
	Config  config.Config
}

// snapshot is the gob-serialisable form of an Index.
type snapshot struct {
	Header   Header
	Postings map[uint32][]Posting
	Metadata map[uint32]models.TrackMetadata
}

// IndexLoadError reports that a persisted index could not be opened as
// configured, either because its header's Config disagrees with the
// caller's or because the file itself is unreadable or corrupt.
type IndexLoadError struct {
	Path   string
	Reason string
}

func (e *IndexLoadError) Error() string {
	return fmt.Sprintf("index: cannot load %s: %s", e.Path, e.Reason)
}

// Save writes the canonical binary snapshot (gob) to path and a
// human-readable mirror to path+".json", matching the dual
// pickle-plus-JSON persistence of the catalog this format descends
// from. The JSON mirror is for inspection only; Load always reads gob.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snap := snapshot{
		Header:   Header{Version: schemaVersion, Config: idx.Config},
		Postings: idx.Postings,
		Metadata: idx.Metadata,
	}
	idx.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("index: encoding %s: %w", path, err)
	}

	jf, err := os.Create(path + ".json")
	if err != nil {
		return fmt.Errorf("index: creating json mirror %s.json: %w", path, err)
	}
	defer jf.Close()

	enc := json.NewEncoder(jf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("index: encoding json mirror %s.json: %w", path, err)
	}

	return nil
}

// Load reads a binary snapshot and verifies its stamped Config matches
// want exactly. A mismatch is reported as an IndexLoadError rather than
// silently using either config, since a query hashed under one set of
// parameters cannot be meaningfully looked up in postings built under
// another.
func Load(path string, want config.Config) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IndexLoadError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, &IndexLoadError{Path: path, Reason: fmt.Sprintf("decoding snapshot: %v", err)}
	}

	if snap.Header.Version != schemaVersion {
		return nil, &IndexLoadError{Path: path, Reason: fmt.Sprintf("snapshot schema version %d, expected %d", snap.Header.Version, schemaVersion)}
	}
	if !snap.Header.Config.Equal(want) {
		return nil, &IndexLoadError{Path: path, Reason: "snapshot was built with a different fingerprinting configuration"}
	}

	idx := &Index{
		Config:   snap.Header.Config,
		Postings: snap.Postings,
		Metadata: snap.Metadata,
	}
	if idx.Postings == nil {
		idx.Postings = make(map[uint32][]Posting)
	}
	if idx.Metadata == nil {
		idx.Metadata = make(map[uint32]models.TrackMetadata)
	}
	return idx, nil
}
