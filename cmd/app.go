package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/autosave"
	"github.com/abhisek/quizbox/internal/config"
	"github.com/abhisek/quizbox/internal/questions"
	"github.com/abhisek/quizbox/internal/spacedrep"
	"github.com/abhisek/quizbox/internal/store"
)

// app bundles the scheduler with the resources it was built from.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	sched     *spacedrep.Scheduler
	questions *questions.SQLiteRepository
	saver     *autosave.Saver
	closers   []func() error
}

// resolveConfig reads env config and applies flag overrides, which take
// the highest priority.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	if p, _ := cmd.Flags().GetString("data"); p != "" {
		cfg.DataPath = p
	}
	if b, _ := cmd.Flags().GetString("backend"); b != "" {
		cfg.Backend = b
	}
	if q, _ := cmd.Flags().GetString("questions"); q != "" {
		cfg.QuestionsDB = q
	}
	return cfg, cfg.Validate()
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openQuestions opens only the question bank.
func openQuestions(cfg config.Config) (*questions.SQLiteRepository, error) {
	path, err := cfg.ResolveQuestionsDB()
	if err != nil {
		return nil, fmt.Errorf("resolve question bank path: %w", err)
	}
	repo, err := questions.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	return repo, nil
}

// openApp builds the snapshot backend, question bank and scheduler and
// loads saved progress.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cmd)}

	var repo store.SnapshotRepo
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := store.EnsureDir(cfg.DataPath); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		st, err := store.Open(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		repo = st.SnapshotRepo(cfg.KeepSnapshots)
	default:
		repo = store.NewFileRepo(cfg.DataPath)
	}

	qrepo, err := openQuestions(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.questions = qrepo
	a.closers = append(a.closers, qrepo.Close)

	opts := spacedrep.Options{
		Repo:               repo,
		Questions:          qrepo,
		Logger:             a.logger,
		MaxResponseSeconds: cfg.MaxResponseSeconds,
		Deferred:           cfg.AutosaveInterval > 0,
	}
	if cfg.Seed != 0 {
		opts.Rand = rand.New(rand.NewSource(cfg.Seed))
	}
	a.sched = spacedrep.NewScheduler(opts)
	a.sched.Load(cmd.Context())

	if cfg.AutosaveInterval > 0 {
		a.saver = autosave.New(a.sched, cfg.AutosaveInterval, a.logger)
		if err := a.saver.Start(); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// Close stops autosave (flushing pending changes) and releases resources.
func (a *app) Close(ctx context.Context) {
	if a.saver != nil {
		if err := a.saver.Stop(ctx); err != nil {
			a.logger.Warn("final save failed", "err", err)
		}
	}
	a.close()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
