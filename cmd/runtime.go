package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/abhisek/examkit/internal/app"
	"github.com/abhisek/examkit/internal/catalog"
	"github.com/abhisek/examkit/internal/config"
	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/session"
	"github.com/abhisek/examkit/internal/store"
)

// runtime holds everything a command needs. Close releases the store.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	catalog *catalog.Catalog
	ctrl    *app.Controller
}

// openRuntime loads the catalog, opens the store and wires the controller.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	cat, err := catalog.Load(catalog.Source{
		QuestionsPath: cfg.QuestionsPath,
		TestsPath:     cfg.TestsPath,
		CutoffTopic:   cfg.CutoffTopic,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if err := store.EnsureDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	repo, err := openProgress(ctx, cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	engine := session.NewEngine(cat, repo, session.WithLogger(logger))
	logger.Debug("runtime ready",
		"questions", cat.Len(), "topics", len(cat.Topics()),
		"db", cfg.DBPath, "progress", cfg.ProgressBackend)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		catalog: cat,
		ctrl:    app.New(engine, cat, st.SessionRepo(), repo, logger),
	}, nil
}

func openProgress(ctx context.Context, cfg config.Config, st *store.Store, logger *slog.Logger) (progress.Repo, error) {
	switch cfg.ProgressBackend {
	case config.BackendSQLite:
		repo, err := progress.NewSQLRepo(ctx, st.DB(), progress.WithBusyTimeout(cfg.LockTimeout))
		if err != nil {
			return nil, fmt.Errorf("open progress table: %w", err)
		}
		return repo, nil
	default:
		repo, err := progress.NewFileRepo(cfg.ProgressDir,
			progress.WithLockTimeout(cfg.LockTimeout),
			progress.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// withRuntime runs fn with an open runtime and closes it afterwards.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, rt)
}

// output writes rendered text, dropping styling when stdout is not a
// terminal.
func output(cmd *cobra.Command, s string) {
	w := cmd.OutOrStdout()
	if !isTerminal(w) {
		s = ansi.Strip(s)
	}
	fmt.Fprint(w, s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}
