// Package webhook receives Trello webhook callbacks and turns them into
// sync passes. It also exposes a small operational API over the run
// history.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rwielk/cardbridge/internal/history"
)

// DefaultPort is the listen port when none is configured.
const DefaultPort = 8090

// Kicker requests a sync pass. *daemon.Daemon satisfies it.
type Kicker interface {
	Kick(trigger string)
}

// RunSource reads recorded runs. *history.Store satisfies it.
type RunSource interface {
	Recent(limit int) ([]history.SyncRun, error)
}

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	Kicker Kicker
	Runs   RunSource // optional; enables /api/runs
	Port   int
	// Secret enables Trello signature verification. CallbackURL must be
	// the exact URL the webhook was registered with.
	Secret      string
	CallbackURL string
	Out         io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Kicker == nil {
		return fmt.Errorf("webhook: kicker is required")
	}
	if opts.Secret != "" && opts.CallbackURL == "" {
		return fmt.Errorf("webhook: callback url is required when a secret is set")
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Webhook receiver listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
