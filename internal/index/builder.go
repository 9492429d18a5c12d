package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"shazoom/internal/audio"
	"shazoom/internal/config"
	"shazoom/internal/dsp"
	"shazoom/internal/fingerprint"
	"shazoom/internal/models"
)

// ErrTrackExists is returned by Ingest when trackID is already present
// in the index. Re-ingestion is a refusal by default: callers that
// intend to replace a track must DeleteTrack it first.
var ErrTrackExists = errors.New("index: track already ingested")

// TrackSink mirrors a freshly fingerprinted track into a secondary
// store as it is ingested, so a durable catalog (e.g. postgres.Store)
// stays in lockstep with the in-memory index without recomputing the
// fingerprint. A nil TrackSink means "in-memory index only".
type TrackSink interface {
	StoreTrack(ctx context.Context, trackID uint32, meta models.TrackMetadata, keys map[uint32][]int) error
}

// Builder appends tracks to an Index. Its methods are safe to call
// concurrently; the underlying Index.add call serialises writes.
type Builder struct {
	idx *Index
}

// NewBuilder wraps idx for ingestion.
func NewBuilder(idx *Index) *Builder {
	return &Builder{idx: idx}
}

// Index returns the index being built.
func (b *Builder) Index() *Index {
	return b.idx
}

// Ingest decodes audioPath, fingerprints it under trackID, and merges
// the resulting hash keys into the index. It returns ErrTrackExists
// without doing any work if trackID is already present. If sink is
// non-nil, the same hash keys are mirrored into it.
func (b *Builder) Ingest(ctx context.Context, trackID uint32, audioPath string, meta models.TrackMetadata, sink TrackSink) error {
	if b.idx.HasTrack(trackID) {
		return ErrTrackExists
	}

	keys, err := fingerprintTrack(audioPath, b.idx.Config)
	if err != nil {
		return fmt.Errorf("index: ingesting %s: %w", audioPath, err)
	}

	b.idx.add(trackID, meta, keys)

	if sink != nil {
		if err := sink.StoreTrack(ctx, trackID, meta, keys); err != nil {
			return fmt.Errorf("index: mirroring %s to secondary store: %w", audioPath, err)
		}
	}

	return nil
}

// fingerprintTrack runs the full loader -> spectrogram -> peaks -> pairs
// -> hash pipeline and groups the resulting primary hash keys by the
// anchor times they were observed at. Only the primary hash is stored;
// the neighbourhood expansion happens at query time, so catalog
// postings stay exactly as large as the number of pairs produced.
func fingerprintTrack(audioPath string, cfg config.Config) (map[uint32][]int, error) {
	sample, err := audio.Load(audioPath, cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	spec := dsp.Compute(sample.Data, cfg)
	peaks := fingerprint.ExtractPeaks(spec, cfg)
	pairs := fingerprint.CombinePairs(peaks, cfg)

	keys := make(map[uint32][]int, len(pairs))
	for _, p := range pairs {
		qf1 := fingerprint.Quantize(p.FAnchor, cfg.FreqBin)
		qf2 := fingerprint.Quantize(p.FTarget, cfg.FreqBin)
		qdt := fingerprint.Quantize(p.Dt, cfg.TimeBin)
		key := fingerprint.Hash(qf1, qf2, qdt)
		keys[key] = append(keys[key], p.TAnchor)
	}

	return keys, nil
}

// ingestJob is one unit of parallel fingerprinting work for IngestDir.
type ingestJob struct {
	trackID uint32
	path    string
	meta    models.TrackMetadata
}

type ingestResult struct {
	job  ingestJob
	keys map[uint32][]int
	err  error
}

// IngestDir walks dir for audio files matching any of exts (e.g.
// ".mp3", ".wav"), assigns each a sequential track_id starting at
// nextTrackID, and ingests them. Fingerprinting runs concurrently
// across files via an errgroup worker pool; merging each result into
// the index is serialised so postings stay consistent. If sink is
// non-nil, every successfully merged track is also mirrored into it.
// Progress is reported on stderr via a progress bar.
func (b *Builder) IngestDir(ctx context.Context, dir string, exts []string, nextTrackID uint32, workers int, sink TrackSink) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range exts {
			if ext == want {
				paths = append(paths, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("index: walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	if workers < 1 {
		workers = 1
	}

	jobs := make([]ingestJob, len(paths))
	for i, p := range paths {
		jobs[i] = ingestJob{
			trackID: nextTrackID + uint32(i),
			path:    p,
			meta:    models.ParseTrackNameFromFilename(p),
		}
	}

	bar := progressbar.Default(int64(len(jobs)), "fingerprinting")
	results := make([]ingestResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var completed int64
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			keys, err := fingerprintTrack(job.path, b.idx.Config)
			results[i] = ingestResult{job: job, keys: keys, err: err}
			atomic.AddInt64(&completed, 1)
			_ = bar.Set(int(atomic.LoadInt64(&completed)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("index: ingesting directory %s: %w", dir, err)
	}

	var ingested int
	var mergeErrs []error
	for _, r := range results {
		if r.err != nil {
			mergeErrs = append(mergeErrs, fmt.Errorf("%s: %w", r.job.path, r.err))
			continue
		}
		if b.idx.HasTrack(r.job.trackID) {
			mergeErrs = append(mergeErrs, fmt.Errorf("%s: %w", r.job.path, ErrTrackExists))
			continue
		}
		b.idx.add(r.job.trackID, r.job.meta, r.keys)
		if sink != nil {
			if err := sink.StoreTrack(ctx, r.job.trackID, r.job.meta, r.keys); err != nil {
				mergeErrs = append(mergeErrs, fmt.Errorf("%s: mirroring to secondary store: %w", r.job.path, err))
				continue
			}
		}
		ingested++
	}

	if len(mergeErrs) > 0 {
		return ingested, errors.Join(mergeErrs...)
	}
	return ingested, nil
}
