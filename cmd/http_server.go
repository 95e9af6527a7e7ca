package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal/auth"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/notification"
	"github.com/frahmantamala/lab-borrowing/internal/schedule"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
	"github.com/frahmantamala/lab-borrowing/internal/transport/middleware"
	"github.com/frahmantamala/lab-borrowing/internal/transport/rest"
	"github.com/frahmantamala/lab-borrowing/internal/transport/swagger"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	"github.com/frahmantamala/lab-borrowing/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.L()

	openAPIPath := cfg.Server.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	if _, err := swagger.Load(context.Background(), openAPIPath); err != nil {
		lg.Error("openapi document rejected", "path", openAPIPath, "error", err)
		os.Exit(1)
	}

	svc, err := buildServices(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(router, svc.DB.DB, rest.Handlers{
		Auth:         auth.NewHandler(base, svc.Auth),
		Identity:     svc.Auth,
		User:         user.NewHandler(svc.Users),
		Equipment:    equipment.NewHandler(base, svc.Equipment),
		Borrowing:    borrowing.NewHandler(base, svc.Borrowing),
		Notification: notification.NewHandler(base, svc.Notification),
		Schedule:     schedule.NewHandler(base, svc.Schedule),
	}, rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    openAPIPath,
		SubmitLimiter:  submitLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			svc.Close()
			os.Exit(1)
		}
	}

	svc.Close()
	lg.Info("Server stopped")
}

// submitLimiter returns nil when rate limiting is switched off.
func submitLimiter(perSecond float64, burst int) *middleware.ClientRateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return middleware.NewClientRateLimiter(rate.Limit(perSecond), burst)
}
