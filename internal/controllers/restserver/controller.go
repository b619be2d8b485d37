// Package restserver implements the read-only HTTP API serving the current
// readings and the latest archive record.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/precipmeter/precipd/internal/archive"
	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// Controller represents the readings REST server.
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTData
	cache      *archive.Cache
	// staleAfter is how old the newest reading may be before /health reports
	// the daemon unhealthy.
	staleAfter time.Duration
	Server     http.Server
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new readings REST controller.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTData, staleAfter time.Duration, cache *archive.Cache, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		cache:      cache,
		staleAfter: staleAfter,
		logger:     logger,
	}

	if ctrl.restConfig.Port == 0 {
		return nil, fmt.Errorf("REST server needs a port")
	}
	if ctrl.restConfig.ListenAddr == "" {
		logger.Info("REST server listen-addr not provided; defaulting to 127.0.0.1 (localhost only)")
		ctrl.restConfig.ListenAddr = "127.0.0.1"
	}

	ctrl.handlers = NewHandlers(ctrl)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.restConfig.ListenAddr, ctrl.restConfig.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the REST server.
func (c *Controller) StartController() error {
	log.Info("Starting REST controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		c.logger.Infof("REST server starting on %s", c.Server.Addr)
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints.
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	router.HandleFunc("/api/current", c.handlers.GetCurrent).Methods("GET")
	router.HandleFunc("/api/weather", c.handlers.GetWeather).Methods("GET")
	router.HandleFunc("/api/archive", c.handlers.GetArchive).Methods("GET")
	router.HandleFunc("/health", c.handlers.GetHealth).Methods("GET")

	return router
}

func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugf("%s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}
