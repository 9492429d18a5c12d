// Package models holds the data shared across the ingestion and matching
// pipelines: the track metadata that postings reference by track_id.
package models

import (
	"path/filepath"
	"strings"
)

// TrackMetadata is the opaque-to-the-algorithm record a track_id maps to.
// Common fields are named; anything else the caller wants to carry rides
// in Extra as a free-form string map.
type TrackMetadata struct {
	Title    string            `json:"title"`
	Artist   string            `json:"artist"`
	Album    string            `json:"album,omitempty"`
	Year     int               `json:"year,omitempty"`
	CoverURL string            `json:"cover_url,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Key returns a stable, human-legible identifier for a track, used as a
// uniqueness key distinct from the numeric track_id.
func (m TrackMetadata) Key() string {
	key := strings.ToLower(strings.TrimSpace(m.Title + "-" + m.Artist))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "'", "")
	key = strings.ReplaceAll(key, "\"", "")
	key = strings.ReplaceAll(key, "&", "and")
	return key
}

// ParseTrackNameFromFilename recovers "Artist - Title" metadata from a
// catalog filename when the caller supplies no metadata explicitly.
func ParseTrackNameFromFilename(path string) TrackMetadata {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.SplitN(base, " - ", 2)
	if len(parts) == 2 {
		return TrackMetadata{Artist: parts[0], Title: parts[1], Filename: filepath.Base(path)}
	}
	return TrackMetadata{Artist: "Unknown Artist", Title: base, Filename: filepath.Base(path)}
}
