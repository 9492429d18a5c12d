// Command shazoom is the reference CLI for the fingerprinting and
// matching library under internal/: build an index from a catalog of
// audio files, then identify clips or live microphone input against it.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"shazoom/internal/config"
	"shazoom/internal/dsp"
	"shazoom/internal/fingerprint"
	"shazoom/internal/index"
	"shazoom/internal/logging"
	"shazoom/internal/matcher"
	"shazoom/internal/models"
	"shazoom/internal/recorder"
	"shazoom/internal/store/analytics"
	"shazoom/internal/store/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cfg, err := config.Load(os.Getenv("SHAZOOM_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "ingest":
		cmdIngest(ctx, cfg, os.Args[2:])
	case "ingest-dir":
		cmdIngestDir(ctx, cfg, os.Args[2:])
	case "identify":
		cmdIdentify(ctx, cfg, os.Args[2:])
	case "listen":
		cmdListen(ctx, cfg, os.Args[2:])
	case "list":
		cmdList(ctx, cfg, os.Args[2:])
	case "delete":
		cmdDelete(ctx, cfg, os.Args[2:])
	case "stats":
		cmdStats(ctx, cfg, os.Args[2:])
	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  shazoom ingest <index-path> <track-id> <audio-file> [title] [artist]")
	fmt.Println("  shazoom ingest-dir <index-path> <catalog-dir>")
	fmt.Println("  shazoom identify <index-path> <audio-file>")
	fmt.Println("  shazoom listen <index-path> [seconds]")
	fmt.Println("  shazoom list <index-path>")
	fmt.Println("  shazoom delete <index-path> <track-id>")
	fmt.Println("  shazoom stats <index-path>")
	fmt.Println()
	fmt.Println("Set SHAZOOM_POSTGRES_DSN (or database.postgres_dsn in the config")
	fmt.Println("file) to back the catalog with Postgres instead of the local")
	fmt.Println("index-path snapshot, and SHAZOOM_ANALYTICS_DSN (or")
	fmt.Println("database.analytics_dsn) to record query telemetry for stats.")
}

// openIndex resolves the catalog backend selected by cfg.Database: when
// PostgresDSN is set, the returned *postgres.Store is the source of
// truth and the in-memory index is a rehydrated read-through cache;
// otherwise indexPath's local snapshot is used, created fresh only when
// createIfMissing is set. The returned store is nil in the file-backed
// case; callers must Close a non-nil store.
func openIndex(ctx context.Context, cfg config.Config, indexPath string, createIfMissing bool) (*index.Index, *postgres.Store, error) {
	if cfg.Database.PostgresDSN != "" {
		store, err := postgres.Open(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres catalog: %w", err)
		}
		idx := index.New(cfg)
		if err := store.LoadIndex(ctx, idx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("loading postgres catalog: %w", err)
		}
		return idx, store, nil
	}

	idx, err := index.Load(indexPath, cfg)
	if err != nil {
		if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) && createIfMissing {
			return index.New(cfg), nil, nil
		}
		return nil, nil, err
	}
	return idx, nil, nil
}

func cmdIngest(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: shazoom ingest <index-path> <track-id> <audio-file> [title] [artist]")
		os.Exit(1)
	}
	indexPath, trackIDStr, audioPath := args[0], args[1], args[2]

	trackID, err := strconv.ParseUint(trackIDStr, 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid track id %q: %v\n", trackIDStr, err)
		os.Exit(1)
	}

	meta := models.ParseTrackNameFromFilename(audioPath)
	if len(args) >= 4 {
		meta.Title = args[3]
	}
	if len(args) >= 5 {
		meta.Artist = args[4]
	}

	idx, pgStore, err := openIndex(ctx, cfg, indexPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}

	builder := index.NewBuilder(idx)
	var sink index.TrackSink
	if pgStore != nil {
		sink = pgStore
	}

	if err := builder.Ingest(ctx, uint32(trackID), audioPath, meta, sink); err != nil {
		fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
		os.Exit(1)
	}

	if pgStore == nil {
		if err := idx.Save(indexPath); err != nil {
			fmt.Fprintf(os.Stderr, "saving index: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("ingested track %d: %s - %s\n", trackID, meta.Artist, meta.Title)
}

func cmdIngestDir(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: shazoom ingest-dir <index-path> <catalog-dir>")
		os.Exit(1)
	}
	indexPath, dir := args[0], args[1]

	idx, pgStore, err := openIndex(ctx, cfg, indexPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}

	builder := index.NewBuilder(idx)
	var sink index.TrackSink
	if pgStore != nil {
		sink = pgStore
	}

	nextID := uint32(idx.TrackCount() + 1)
	count, err := builder.IngestDir(ctx, dir, []string{".wav", ".mp3"}, nextID, 4, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest-dir completed with errors: %v\n", err)
	}

	if pgStore == nil {
		if err := idx.Save(indexPath); err != nil {
			fmt.Fprintf(os.Stderr, "saving index: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("ingested %d tracks from %s\n", count, dir)
}

func cmdIdentify(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: shazoom identify <index-path> <audio-file>")
		os.Exit(1)
	}
	indexPath, audioPath := args[0], args[1]

	idx, pgStore, err := openIndex(ctx, cfg, indexPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}

	started := time.Now()
	pairs, numPeaks, err := matcher.PairsFromAudio(audioPath, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingerprinting query: %v\n", err)
		os.Exit(1)
	}

	result, err := matcher.Identify(ctx, idx, pairs, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identify failed: %v\n", err)
		os.Exit(1)
	}

	recordQuerySession(cfg, result, cfg.SampleRate, numPeaks, len(pairs), time.Since(started))
	printResult(result)
}

func cmdListen(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: shazoom listen <index-path> [seconds]")
		os.Exit(1)
	}
	indexPath := args[0]

	seconds := 5
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			seconds = v
		}
	}

	idx, pgStore, err := openIndex(ctx, cfg, indexPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}

	started := time.Now()
	sample, err := recorder.Capture(ctx, time.Duration(seconds)*time.Second, cfg.SampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recording failed: %v\n", err)
		os.Exit(1)
	}

	spec := dsp.Compute(sample.Data, cfg)
	peaks := fingerprint.ExtractPeaks(spec, cfg)
	pairs := fingerprint.CombinePairs(peaks, cfg)

	result, err := matcher.Identify(ctx, idx, pairs, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identify failed: %v\n", err)
		os.Exit(1)
	}

	recordQuerySession(cfg, result, cfg.SampleRate, len(peaks), len(pairs), time.Since(started))
	printResult(result)
}

func cmdList(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: shazoom list <index-path>")
		os.Exit(1)
	}
	idx, pgStore, err := openIndex(ctx, cfg, args[0], false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}
	fmt.Printf("%d tracks\n", idx.TrackCount())
}

func cmdDelete(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: shazoom delete <index-path> <track-id>")
		os.Exit(1)
	}
	indexPath := args[0]
	trackID, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid track id: %v\n", err)
		os.Exit(1)
	}

	idx, pgStore, err := openIndex(ctx, cfg, indexPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	idx.DeleteTrack(uint32(trackID))

	if pgStore != nil {
		defer pgStore.Close()
		if err := pgStore.DeleteTrack(ctx, uint32(trackID)); err != nil {
			fmt.Fprintf(os.Stderr, "deleting from postgres: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := idx.Save(indexPath); err != nil {
			fmt.Fprintf(os.Stderr, "saving index: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("deleted track %d\n", trackID)
}

// cmdStats reports the catalog size and, when database.analytics_dsn is
// configured, the match-rate and average-confidence telemetry recorded
// by recordQuerySession across past identify/listen runs.
func cmdStats(ctx context.Context, cfg config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: shazoom stats <index-path>")
		os.Exit(1)
	}
	idx, pgStore, err := openIndex(ctx, cfg, args[0], false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading index: %v\n", err)
		os.Exit(1)
	}
	if pgStore != nil {
		defer pgStore.Close()
	}
	fmt.Printf("tracks: %d\n", idx.TrackCount())

	if cfg.Database.AnalyticsDSN == "" {
		return
	}

	store, err := analytics.Open(cfg.Database.AnalyticsDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening analytics store: %v\n", err)
		return
	}
	defer store.Close()

	rate, err := store.MatchRate(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "computing match rate: %v\n", err)
		return
	}
	avgConfidence, err := store.AverageConfidence(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "computing average confidence: %v\n", err)
		return
	}
	fmt.Printf("match rate: %.1f%%\n", rate*100)
	fmt.Printf("average confidence (matched queries): %.2f\n", avgConfidence)
}

// recordQuerySession mirrors one identify/listen attempt into the
// analytics store when database.analytics_dsn is configured. Telemetry
// is best-effort: a failure to record never fails the command that
// produced the match.
func recordQuerySession(cfg config.Config, result matcher.Result, sampleRate, numPeaks, numPairs int, elapsed time.Duration) {
	if cfg.Database.AnalyticsDSN == "" {
		return
	}

	store, err := analytics.Open(cfg.Database.AnalyticsDSN)
	if err != nil {
		logging.Error(context.Background(), "opening analytics store", err)
		return
	}
	defer store.Close()

	session := analytics.QuerySession{
		ID:            fmt.Sprintf("sess-%d", time.Now().UnixNano()),
		QueryDuration: elapsed.Seconds(),
		SampleRate:    sampleRate,
		TotalPeaks:    numPeaks,
		TotalPairs:    numPairs,
		MatchFound:    result.Matched,
		TimeOffset:    result.Offset,
		Confidence:    result.Confidence,
		ProcessTimeMs: float64(elapsed.Milliseconds()),
	}

	var results []analytics.QueryResult
	if result.Matched {
		trackID := result.TrackID
		session.BestMatchID = &trackID
		session.MatchScore = 1
		results = append(results, analytics.QueryResult{
			TrackID:        result.TrackID,
			MatchingHashes: 1,
			TimeOffset:     result.Offset,
			Confidence:     result.Confidence,
		})
	}

	if err := store.RecordSession(session, results); err != nil {
		logging.Error(context.Background(), "recording query session", err)
	}
}

func printResult(result matcher.Result) {
	if !result.Matched {
		fmt.Println("no match found")
		return
	}
	fmt.Printf("match: %s - %s\n", result.Metadata.Artist, result.Metadata.Title)
	fmt.Printf("confidence: %.2f (%s)\n", result.Confidence, matcher.ConfidenceBand(result.Confidence))
	fmt.Printf("offset: %d frames\n", result.Offset)
}
