// Package analytics records per-query telemetry: what was searched,
// how long it took, and whether it matched. It is a separate concern
// from the fingerprint index itself — deleting or rebuilding the
// analytics store never affects identification results.
package analytics

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// QuerySession is one identification attempt.
type QuerySession struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	QueryDuration float64
	SampleRate    int
	TotalPeaks    int
	TotalPairs    int
	TotalHashes   int
	MatchFound    bool `gorm:"default:false"`
	BestMatchID   *uint32
	MatchScore    int
	TimeOffset    int
	Confidence    float64
	QueryTime     time.Time `gorm:"autoCreateTime"`
	ProcessTimeMs float64
}

// QueryResult is one candidate track considered during a session, kept
// even when it wasn't the winner so ranking quality can be audited
// later.
type QueryResult struct {
	ID             uint `gorm:"primaryKey"`
	SessionID      string `gorm:"index;not null"`
	TrackID        uint32 `gorm:"index;not null"`
	MatchingHashes int
	TimeOffset     int
	Confidence     float64
}

// Store wraps a GORM connection to the telemetry database.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the telemetry schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("analytics: connecting: %w", err)
	}
	if err := db.AutoMigrate(&QuerySession{}, &QueryResult{}); err != nil {
		return nil, fmt.Errorf("analytics: migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordSession persists one completed identification attempt along
// with every candidate considered.
func (s *Store) RecordSession(session QuerySession, results []QueryResult) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("analytics: storing session: %w", err)
		}
		if len(results) == 0 {
			return nil
		}
		for i := range results {
			results[i].SessionID = session.ID
		}
		if err := tx.Create(&results).Error; err != nil {
			return fmt.Errorf("analytics: storing query results: %w", err)
		}
		return nil
	})
}

// MatchRate reports the fraction of recorded sessions in which a match
// was found, over the last n sessions (0 means all of them).
func (s *Store) MatchRate(n int) (float64, error) {
	q := s.db.Model(&QuerySession{}).Order("query_time DESC")
	if n > 0 {
		q = q.Limit(n)
	}

	var total, matched int64
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("analytics: counting sessions: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	if err := q.Where("match_found = ?", true).Count(&matched).Error; err != nil {
		return 0, fmt.Errorf("analytics: counting matched sessions: %w", err)
	}
	return float64(matched) / float64(total), nil
}

// AverageConfidence reports the mean confidence across matched sessions
// in the last n (0 means all of them).
func (s *Store) AverageConfidence(n int) (float64, error) {
	q := s.db.Model(&QuerySession{}).Where("match_found = ?", true).Order("query_time DESC")
	if n > 0 {
		q = q.Limit(n)
	}

	var sessions []QuerySession
	if err := q.Find(&sessions).Error; err != nil {
		return 0, fmt.Errorf("analytics: fetching sessions: %w", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	var sum float64
	for _, s := range sessions {
		sum += s.Confidence
	}
	return sum / float64(len(sessions)), nil
}
