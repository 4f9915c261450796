// Package config resolves runtime settings from defaults, environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/quizbox/internal/spacedrep"
	"github.com/abhisek/quizbox/internal/store"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds everything needed to build a scheduler.
type Config struct {
	// DataPath is the snapshot file (file backend) or SQLite database
	// (sqlite backend). Default: quiz_progress.json in the working dir.
	DataPath string

	// Backend selects the snapshot store: "file" or "sqlite".
	Backend string

	// QuestionsDB is the SQLite question bank. Empty resolves to
	// $XDG_DATA_HOME/quizbox/questions.db.
	QuestionsDB string

	// AutosaveInterval defers saves to a background job. Zero saves
	// after every mutation.
	AutosaveInterval time.Duration

	// KeepSnapshots bounds sqlite backend history.
	KeepSnapshots int

	// MaxResponseSeconds caps recorded answer times.
	MaxResponseSeconds float64

	// Seed fixes the interval jitter; zero seeds from the clock.
	Seed int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataPath:           store.DefaultSnapshotFile,
		Backend:            BackendFile,
		KeepSnapshots:      5,
		MaxResponseSeconds: spacedrep.DefaultMaxResponseSeconds,
	}
}

// ConfigFromEnv loads .env (if present) and then overlays QUIZBOX_*
// environment variables on the defaults.
func ConfigFromEnv() (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if p := os.Getenv("QUIZBOX_DATA"); p != "" {
		cfg.DataPath = p
	}
	if b := os.Getenv("QUIZBOX_BACKEND"); b != "" {
		cfg.Backend = b
	}
	if q := os.Getenv("QUIZBOX_QUESTIONS_DB"); q != "" {
		cfg.QuestionsDB = q
	}
	if v := os.Getenv("QUIZBOX_AUTOSAVE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("QUIZBOX_AUTOSAVE: %w", err)
		}
		cfg.AutosaveInterval = d
	}
	if v := os.Getenv("QUIZBOX_KEEP_SNAPSHOTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("QUIZBOX_KEEP_SNAPSHOTS: %w", err)
		}
		cfg.KeepSnapshots = n
	}
	if v := os.Getenv("QUIZBOX_MAX_RESPONSE_SECONDS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("QUIZBOX_MAX_RESPONSE_SECONDS: %w", err)
		}
		cfg.MaxResponseSeconds = f
	}
	if v := os.Getenv("QUIZBOX_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("QUIZBOX_SEED: %w", err)
		}
		cfg.Seed = n
	}

	return cfg, nil
}

// Validate checks the combination of settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendFile, BackendSQLite)
	}
	if c.DataPath == "" {
		return fmt.Errorf("data path is required")
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("autosave interval must not be negative")
	}
	if c.MaxResponseSeconds < 0 {
		return fmt.Errorf("max response seconds must not be negative")
	}
	return nil
}

// ResolveQuestionsDB returns QuestionsDB or the default XDG location.
func (c Config) ResolveQuestionsDB() (string, error) {
	if c.QuestionsDB != "" {
		return c.QuestionsDB, store.EnsureDir(c.QuestionsDB)
	}
	return store.DefaultDBPath("QUIZBOX_QUESTIONS_DB", "questions.db")
}
