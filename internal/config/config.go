// Package config loads and validates the daemon's tracking configuration,
// following the teacher's env-var-with-defaults idiom (see
// original_source/src/config.rs for the option set this mirrors).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/daemonerr"
)

const (
	defaultMinPlaySeconds     = 30
	defaultMinPlayPercent     = 0.5
	defaultIdleTimeoutSeconds = 30
	defaultDatabasePath       = "~/.local/share/niandra/plays.db"
)

// defaultLocalOnlyPlayers are bus-name substrings treated as always-local
// regardless of URL scheme — local media apps that happen to publish a
// non-file xesam:url (e.g. a library UUID) for every track.
var defaultLocalOnlyPlayers = []string{
	"io.bassi.Amberol",
	"org.gnome.Lollypop",
	"org.gnome.Music",
	"audacious",
	"deadbeef",
	"quodlibet",
	"clementine",
	"strawberry",
	"rhythmbox",
	"elisa",
	"sayonara",
	"cantata",
}

// TrackingConfig holds the options named in spec §6's configuration table.
type TrackingConfig struct {
	MinPlaySeconds     int
	MinPlayPercent     float64
	LocalOnly          bool
	TrackSeeks         bool
	TrackContext       bool
	IdleTimeoutSeconds int
	Whitelist          []string
	Blacklist          []string
}

// PlayerConfig holds per-player admission and classification overrides.
type PlayerConfig struct {
	LocalOnlyPlayers []string
}

// DatabaseConfig names the sink's backing file.
type DatabaseConfig struct {
	Path string
}

// AppConfig is the fully loaded, validated configuration handed to the
// rest of the daemon via fx.
type AppConfig struct {
	Tracking TrackingConfig
	Player   PlayerConfig
	Database DatabaseConfig
}

// NewAppConfig reads configuration from environment variables, falling
// back to the defaults above, and validates the result. A validation
// failure causes a nonzero-exit ConfigInvalid startup failure (spec §7).
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	cfg := &AppConfig{
		Tracking: TrackingConfig{
			MinPlaySeconds:     envInt("NIANDRA_MIN_PLAY_SECONDS", defaultMinPlaySeconds),
			MinPlayPercent:     envFloat("NIANDRA_MIN_PLAY_PERCENT", defaultMinPlayPercent),
			LocalOnly:          envBool("NIANDRA_LOCAL_ONLY", true),
			TrackSeeks:         envBool("NIANDRA_TRACK_SEEKS", true),
			TrackContext:       envBool("NIANDRA_TRACK_CONTEXT", true),
			IdleTimeoutSeconds: envInt("NIANDRA_IDLE_TIMEOUT_SECONDS", defaultIdleTimeoutSeconds),
			Whitelist:          envList("NIANDRA_WHITELIST"),
			Blacklist:          envList("NIANDRA_BLACKLIST"),
		},
		Player: PlayerConfig{
			LocalOnlyPlayers: defaultLocalOnlyPlayers,
		},
		Database: DatabaseConfig{
			Path: expandPath(envString("NIANDRA_DB_PATH", defaultDatabasePath)),
		},
	}

	if extra := envList("NIANDRA_LOCAL_ONLY_PLAYERS"); len(extra) > 0 {
		cfg.Player.LocalOnlyPlayers = extra
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		zap.Int("minPlaySeconds", cfg.Tracking.MinPlaySeconds),
		zap.Float64("minPlayPercent", cfg.Tracking.MinPlayPercent),
		zap.Bool("localOnly", cfg.Tracking.LocalOnly),
		zap.Int("idleTimeoutSeconds", cfg.Tracking.IdleTimeoutSeconds),
		zap.String("databasePath", cfg.Database.Path))

	return cfg, nil
}

// Validate checks the bounds original_source/src/config.rs enforces;
// spec.md names ConfigInvalid as an error kind without spelling out the
// bounds, so this follows the original.
func (c *AppConfig) Validate() error {
	if c.Tracking.MinPlayPercent < 0 || c.Tracking.MinPlayPercent > 1 {
		return fmt.Errorf("%w: min_play_percent must be in [0,1], got %f", daemonerr.ConfigInvalid, c.Tracking.MinPlayPercent)
	}
	if c.Tracking.MinPlaySeconds < 0 || c.Tracking.MinPlaySeconds > 3600 {
		return fmt.Errorf("%w: min_play_seconds must be in [0,3600], got %d", daemonerr.ConfigInvalid, c.Tracking.MinPlaySeconds)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
