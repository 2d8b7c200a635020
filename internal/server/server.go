// Package server exposes the keep-alive endpoint and a read only view of
// the recorded signal states.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/exchange"
	"github.com/raykavin/pairwatch/pkg/logger"
)

const AliveMessage = "pairwatch is alive"

const shutdownTimeout = 5 * time.Second

// Server is the liveness HTTP server
type Server struct {
	http *http.Server
	log  logger.Logger
}

func New(address string, store core.StateStore, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	RegisterRoutes(r, store)

	return &Server{
		http: &http.Server{
			Addr:              address,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// RegisterRoutes mounts the liveness and signal routes on r
func RegisterRoutes(r *gin.Engine, store core.StateStore) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, AliveMessage)
	})

	r.GET("/signals", func(c *gin.Context) {
		states, err := store.States()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"signals": states})
	})

	r.GET("/signals/:base/:quote", func(c *gin.Context) {
		pair, err := exchange.NormalizePair(c.Param("base") + "/" + c.Param("quote"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, err := store.State(pair)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if state == core.SignalNone {
			c.JSON(http.StatusNotFound, gin.H{"pair": pair, "error": "pair not checked yet"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"pair": pair, "state": state})
	})
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("http request")
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Infof("[SETUP] liveness server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
