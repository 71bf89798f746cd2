package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"uxreview/internal/config"
	"uxreview/internal/database"
	"uxreview/internal/events"
	"uxreview/internal/logging"
	"uxreview/internal/services"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	dbLevel := logger.Warn
	if cfg.Debug {
		dbLevel = logger.Info
	}
	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: dbLevel,
		Logger:   log.Named("gorm"),
	})
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return
	}

	ring, err := services.OpenKeyring()
	if err != nil {
		log.Warn("OS keyring unavailable, API keys are read from the environment only", zap.Error(err))
	}
	keyringService := services.NewKeyringService(ring)

	dbService := services.NewDbServices(db, services.Dependencies{
		Config: cfg,
		Keys:   keyringService,
		Logger: log,
	})

	app := NewApp(dbService, keyringService, log)
	app.dbClose = func() error { return database.Close(db) }

	err = wails.Run(&options.App{
		Title:  "UX Review",
		Width:  1280,
		Height: 860,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "UX Review",
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
			events.EnableRuntimeEmitter()
			if err := dbService.StartDbServices(ctx); err != nil {
				log.Error("failed to start services", zap.Error(err))
			}
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		log.Error("wails run failed", zap.Error(err))
	}
}
