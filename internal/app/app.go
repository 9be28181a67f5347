package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"sitesafety/internal/config"
	"sitesafety/internal/logger"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/repository/sqlite"
	"sitesafety/internal/route"
	"sitesafety/internal/service"
	"sitesafety/internal/service/ai"
	"sitesafety/internal/service/capture"
	"sitesafety/internal/service/storage"
	"sitesafety/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	model      *ai.YOLOModel
	db         *sqlite.DB
	uploads    *storage.UploadStore
	hubService *websocket.HubService
	manager    *service.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	// A missing model disables processing but the dashboard still comes up to say so.
	var modelErr error
	var yolo *ai.YOLOModel
	if m, err := ai.LoadModel(cfg, log); err != nil {
		modelErr = err
		var loadErr *pipeline.ModelLoadError
		if errors.As(err, &loadErr) {
			log.Error("%s", loadErr.Remediation())
		}
	} else {
		yolo = m
	}

	db, err := sqlite.New(cfg.JournalDSN)
	if err != nil {
		if yolo != nil {
			yolo.Close()
		}
		return nil, fmt.Errorf("open run journal: %w", err)
	}

	hub := websocket.NewHubService(log)
	uploads := storage.NewUploadStore(cfg, log)

	deps := service.Deps{
		ModelErr:   modelErr,
		Hub:        hub,
		Uploads:    uploads,
		Runs:       sqlite.NewRunRepository(db),
		OpenVideo:  capture.VideoOpener,
		OpenCamera: capture.CameraOpener(cfg.CameraDevice),
	}
	if yolo != nil {
		deps.Model = yolo
	}

	return &App{
		config:     cfg,
		logger:     log,
		model:      yolo,
		db:         db,
		uploads:    uploads,
		hubService: hub,
		manager:    service.NewManager(cfg, log, deps),
	}, nil
}

// Run serves the dashboard until SIGINT or SIGTERM, then stops any running stream
// and releases the model, journal and logs.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background services
	a.uploads.Sweep(time.Now())
	go a.uploads.Run(ctx)
	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           route.SetupRoutes(a.manager, a.hubService, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🦺 Site Safety Dashboard\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)
	if err := a.manager.ModelErr(); err != nil {
		fmt.Printf("⚠️  Processing disabled: %v\n", err)
	}
	fmt.Printf("📁 Uploads: %s\n", a.config.UploadDir)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	return multierr.Append(err, a.Close())
}

// Close stops the streaming run and releases everything the app opened.
func (a *App) Close() error {
	err := a.manager.Close()
	if a.model != nil {
		err = multierr.Append(err, a.model.Close())
	}
	err = multierr.Append(err, a.db.Close())
	return multierr.Append(err, a.logger.Close())
}
