package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ewaste-backend/internal/auth"
	"ewaste-backend/internal/cache"
	"ewaste-backend/internal/config"
	"ewaste-backend/internal/export"
	"ewaste-backend/internal/handlers"
	"ewaste-backend/internal/health"
	h "ewaste-backend/internal/http"
	"ewaste-backend/internal/middleware"
	"ewaste-backend/internal/monitoring"
	"ewaste-backend/internal/services"
	"ewaste-backend/internal/timeutil"
	"ewaste-backend/internal/workflow"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "server port (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := timeutil.SetDisplayLocation(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (using in-process cache)", err)
	}
	defer cache.Close()

	checker := health.NewHealthChecker(store, cfg.Database.Driver)

	observers := []workflow.Option{workflow.WithObserver(services.ObserveTransition)}
	if cfg.Monitoring.Port > 0 {
		feed := monitoring.NewMonitoringServer(checker, cfg.Monitoring.Port)
		observers = append(observers, workflow.WithObserver(feed.ObserveTransition))
		go func() {
			if err := feed.Start(ctx); err != nil {
				log.Printf("[Monitoring] Ops feed stopped: %v", err)
			}
		}()
	}
	engine := workflow.NewEngine(store, observers...)

	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(store, jwtManager, cfg.Auth.AllowAdminSignup)
	requestService := services.NewRequestService(engine)
	certificateService := services.NewCertificateService(requestService)

	exporter, err := newExporter(ctx, cfg, store)
	if err != nil {
		return err
	}

	router := h.NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewRequestHandler(requestService, certificateService),
		handlers.NewRecyclerHandler(requestService),
		handlers.NewExportHandler(exporter),
		handlers.NewHealthHandler(checker),
		middleware.NewAuthMiddleware(jwtManager, store),
	)

	// Middleware chain: recovery -> request log -> CORS -> router
	corsHandler := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.RequestLogging(corsHandler(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on %s (driver: %s)", srv.Addr, cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// newExporter wires S3 uploads when a bucket is configured. Without one the
// handler answers 503.
func newExporter(ctx context.Context, cfg *config.Config, store workflow.Store) (*export.HistoryExporter, error) {
	if cfg.Export.Bucket == "" {
		log.Printf("[Export] No bucket configured, history export disabled")
		return export.NewHistoryExporter(nil, store, "", cfg.Export.Prefix), nil
	}
	client, err := export.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[Export] History exports go to bucket %s", cfg.Export.Bucket)
	return export.NewHistoryExporter(client, store, cfg.Export.Bucket, cfg.Export.Prefix), nil
}
