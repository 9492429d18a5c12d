package matcher

import (
	"fmt"

	"shazoom/internal/audio"
	"shazoom/internal/config"
	"shazoom/internal/dsp"
	"shazoom/internal/fingerprint"
)

// PairsFromAudio decodes path and runs it through the spectrogram, peak
// extraction, and pair combination stages, producing the query pairs
// Identify expects. It is the query-side counterpart of the ingestion
// pipeline, sharing every stage except that it stops before hashing:
// Identify hashes each pair's full neighbourhood itself.
// The second return value is the number of constellation peaks the
// query produced, for callers that report per-query telemetry.
func PairsFromAudio(path string, cfg config.Config) ([]fingerprint.Pair, int, error) {
	sample, err := audio.Load(path, cfg.SampleRate)
	if err != nil {
		return nil, 0, fmt.Errorf("matcher: loading query audio: %w", err)
	}

	spec := dsp.Compute(sample.Data, cfg)
	peaks := fingerprint.ExtractPeaks(spec, cfg)
	return fingerprint.CombinePairs(peaks, cfg), len(peaks), nil
}
