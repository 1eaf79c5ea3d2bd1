// Package sink implements the append-only play-log store the core writes
// qualifying episodes to. The core only ever calls Append; ranking and
// statistics are a query-layer concern and live outside this package.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tbleher/niandra-go/internal/domain"
)

// SQLiteSink persists PlayRecords to a local SQLite file, grounded on the
// plays table in original_source/src/db/schema.rs.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if necessary) the database at path and
// ensures the plays table exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) initialize() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		title TEXT NOT NULL,
		artist TEXT,
		album TEXT,
		duration_ms INTEGER,
		played_ms INTEGER NOT NULL,
		file_path TEXT,
		genre TEXT,
		album_artist TEXT,
		track_number INTEGER,
		disc_number INTEGER,
		release_date TEXT,
		art_url TEXT,
		user_rating REAL,
		bpm INTEGER,
		composer TEXT,
		musicbrainz_track_id TEXT,
		seek_count INTEGER NOT NULL DEFAULT 0,
		intro_skipped BOOLEAN NOT NULL DEFAULT 0,
		seek_forward_ms INTEGER NOT NULL DEFAULT 0,
		seek_backward_ms INTEGER NOT NULL DEFAULT 0,
		effective_volume REAL,
		hour_of_day INTEGER,
		day_of_week INTEGER,
		is_weekend BOOLEAN,
		season TEXT,
		active_window TEXT,
		screen_on BOOLEAN,
		on_battery BOOLEAN,
		player_name TEXT,
		is_local BOOLEAN NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create plays table: %w", err)
	}
	return nil
}

// Append writes one qualifying play. It satisfies domain.Sink.
func (s *SQLiteSink) Append(ctx context.Context, r domain.PlayRecord) error {
	var effVolume any
	if r.EffectiveVolumeKnown {
		effVolume = r.EffectiveVolume
	}
	var activeWindow any
	if r.ActiveWindowKnown {
		activeWindow = r.ActiveWindow
	}
	var screenOn any
	if r.ScreenOnKnown {
		screenOn = r.ScreenOn
	}
	var onBattery any
	if r.OnBatteryKnown {
		onBattery = r.OnBattery
	}
	var userRating any
	if r.UserRatingKnown {
		userRating = r.UserRating
	}
	var bpm any
	if r.BPMKnown {
		bpm = r.BPM
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO plays (
		timestamp, title, artist, album, duration_ms, played_ms, file_path,
		genre, album_artist, track_number, disc_number, release_date, art_url,
		user_rating, bpm, composer, musicbrainz_track_id,
		seek_count, intro_skipped, seek_forward_ms, seek_backward_ms,
		effective_volume, hour_of_day, day_of_week, is_weekend, season,
		active_window, screen_on, on_battery, player_name, is_local
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.Title, r.Artist, r.Album, r.DurationUs/1000, r.PlayedMs, r.FilePath,
		r.Genre, r.AlbumArtist, r.TrackNumber, r.DiscNumber, r.ReleaseDate, r.ArtURL,
		userRating, bpm, r.Composer, r.MusicBrainzTrackID,
		r.SeekCount, r.IntroSkipped, r.SeekForwardMs, r.SeekBackwardMs,
		effVolume, r.HourOfDay, r.DayOfWeek, r.IsWeekend, r.Season,
		activeWindow, screenOn, onBattery, r.PlayerName, r.IsLocal,
	)
	if err != nil {
		return fmt.Errorf("insert play record: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
