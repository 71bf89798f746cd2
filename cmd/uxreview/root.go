package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"uxreview/internal/apperrors"
	"uxreview/internal/config"
	"uxreview/internal/database"
	"uxreview/internal/events"
	"uxreview/internal/logging"
	"uxreview/internal/services"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// deps are the process-level collaborators the commands open on demand.
type deps struct {
	loadConfig func() (config.Config, error)
	newLogger  func(debug bool) (*zap.Logger, error)
	openRing   func() (keyring.Keyring, error)
	newModel   services.VisionModelFactory
	getenv     func(string) string
	stdin      io.Reader
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newLogger:  logging.New,
		openRing:   services.OpenKeyring,
		getenv:     os.Getenv,
		stdin:      os.Stdin,
	}
}

type rootOptions struct {
	deps   deps
	dbPath string
	model  string
	debug  bool
	asJSON bool
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{deps: d}

	root := &cobra.Command{
		Use:           "uxreview",
		Short:         "AI-assisted UX review of application screens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the session database (default: "+config.EnvDBPath+" or the app data dir)")
	root.PersistentFlags().StringVar(&opts.model, "model", "", "catalog model key, provider|apiName")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "verbose logging")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newIssueCmd(opts))
	root.AddCommand(newKeyCmd(opts))
	root.AddCommand(newModelsCmd(opts))
	return root
}

// cliApp is one opened database plus the services wired over it.
type cliApp struct {
	cfg      config.Config
	logger   *zap.Logger
	keys     *services.KeyringService
	services *services.DbServices
	close    func() error
}

func (o *rootOptions) open(ctx context.Context, stderr io.Writer) (*cliApp, error) {
	cfg, err := o.deps.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.model != "" {
		cfg.ModelKey = o.model
	}
	cfg.Debug = cfg.Debug || o.debug

	log, err := o.deps.newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: logger.Silent,
		Logger:   log.Named("gorm"),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistenceRead, "Failed to open the session database.", err)
	}
	closeDB := func() error { return database.Close(db) }

	ring, err := o.deps.openRing()
	if err != nil {
		log.Debug("keyring unavailable", zap.Error(err))
		ring = nil
	}
	keys := services.NewKeyringService(ring)
	if o.deps.getenv != nil {
		keys.WithEnv(o.deps.getenv)
	}

	svc := services.NewDbServices(db, services.Dependencies{
		Config:   cfg,
		Keys:     keys,
		NewModel: o.deps.newModel,
		Emit:     progressPrinter(stderr),
		Logger:   log,
	})
	if err := svc.StartDbServices(ctx); err != nil {
		_ = closeDB()
		return nil, err
	}

	return &cliApp{
		cfg:      cfg,
		logger:   log,
		keys:     keys,
		services: svc,
		close: func() error {
			_ = log.Sync()
			return closeDB()
		},
	}, nil
}

// progressPrinter writes analysis progress lines and drops state snapshots.
func progressPrinter(w io.Writer) func(ctx context.Context, name string, evt events.Event) {
	return func(ctx context.Context, name string, evt events.Event) {
		if name != events.AnalysisProgress {
			return
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", evt.Type, evt.Message)
	}
}
