package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/cohortseat/api"
	"github.com/Domenick1991/cohortseat/internal/webhook"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts every API group.
func NewRouter(app *App, queue webhook.Queue) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cohortGroup := router.Group("/cohorts")
	api.NewCohortHandler(app.Cohorts).Register(cohortGroup)
	api.NewWaitlistHandler(app.Waitlist).Register(cohortGroup)
	api.NewRegistrationHandler(app.Registrations).Register(router.Group("/registrations"))
	api.NewPaymentHandler(app.Payments).Register(router.Group("/payments"))
	api.NewPromoHandler(app.Promos).Register(router.Group("/promos"))
	api.NewWebhookHandler(queue).Register(router.Group("/webhooks"))

	return router
}

// Run serves HTTP and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, app *App) error {
	queue, drain := app.WebhookQueue()
	defer drain()

	srv := &http.Server{
		Addr:              app.Config.HTTP.Address,
		Handler:           NewRouter(app, queue),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(app.Config.HTTP.ShutdownSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
