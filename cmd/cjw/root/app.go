package root

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cjw/internal/backend"
	"cjw/internal/config"
	"cjw/internal/logging"
	"cjw/internal/notes"
	"cjw/internal/planimages"
	"cjw/internal/query"
	"cjw/internal/storage"
	"cjw/internal/tasks"
)

// globalFlags are bound to persistent flags on the root command.
type globalFlags struct {
	configPath string
	envFile    string
	backend    string
	dbPath     string
	logLevel   string
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	backend storage.Backend
	cache   *query.Client

	tasks  *tasks.Actions
	parser *tasks.InputService
	notes  *notes.Service
	images *planimages.Store

	now func() time.Time
}

func openApp(cmd *cobra.Command, g *globalFlags) (*app, func(), error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := config.LoadDotEnv(g.envFile); err != nil {
		return nil, nil, err
	}
	path := g.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, nil, err
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}

	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	sel := backend.NewSelector(backend.Options{Kind: kind, DBPath: cfg.DBPath, Logger: log})
	b, err := sel.Backend(ctx)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	cache := query.NewClient(log.With().Str("component", "query").Logger())
	a := &app{
		cfg:     cfg,
		log:     log,
		backend: b,
		cache:   cache,
		tasks:   tasks.NewActions(b.Tasks(), cache, cfg.DoingLimit, log),
		parser:  tasks.NewInputService(log),
		notes:   notes.NewService(b.Notes(), b.Folders(), b.Settings(), cache, log),
		images:  planimages.New(b.PlanImages(), cfg.DataDir, log),
		now:     time.Now,
	}
	cleanup := func() {
		if err := sel.Close(); err != nil {
			log.Warn().Err(err).Msg("close backend")
		}
		_ = closeLog()
	}
	log.Debug().Str("backend", b.Name()).Str("config", path).Msg("app ready")
	return a, cleanup, nil
}

// withApp wraps a RunE body with app setup and teardown.
func withApp(g *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := openApp(cmd, g)
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(cmd, a, args)
	}
}
