// Package webapi exposes the task engine operations over a JSON HTTP API.
package webapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openhrms/taskcycle/internal/assoc"
	"github.com/openhrms/taskcycle/internal/recurrence"
	"github.com/openhrms/taskcycle/internal/verification"
	"gorm.io/gorm"
)

// Server wires the engine packages behind HTTP handlers.
type Server struct {
	DB           *gorm.DB
	Assoc        assoc.Deps
	Verification verification.Deps
	Recurrence   recurrence.Deps
	Horizon      time.Duration
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Server *Server
	Port   int
	Out    io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Server == nil || opts.Server.DB == nil {
		return fmt.Errorf("webapi: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	opts.Server.registerRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webapi: %w", err)
	}
	return nil
}
