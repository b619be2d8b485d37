// Package app wires the managers together and runs the daemon.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/precipmeter/precipd/internal/archive"
	"github.com/precipmeter/precipd/internal/controllers/restserver"
	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/internal/managers"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, cfgData)
	if err != nil {
		return err
	}

	// Initialize the archiver that aggregates readings into archive records
	cache := archive.NewCache()
	archiver, err := managers.NewArchiver(ctx, &wg, cfgData, cache, storageManager.RecordDistributor, a.logger)
	if err != nil {
		return err
	}
	archiver.StartArchiver()

	// Initialize the sensor manager
	sm, err := managers.NewSensorManager(ctx, &wg, a.configProvider, archiver.ReadingDistributor, a.logger)
	if err != nil {
		return err
	}
	if err := sm.StartSensors(); err != nil {
		return err
	}

	// Start the readings REST server, if configured
	if cfgData.REST != nil {
		staleAfter := 2 * time.Duration(cfgData.ArchiveIntervalSecs) * time.Second
		rest, err := restserver.NewController(ctx, &wg, *cfgData.REST, staleAfter, cache, a.logger)
		if err != nil {
			return err
		}
		if err := rest.StartController(); err != nil {
			return err
		}
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
