package main

//
//  @title           networth API
//  @version         1.0
//  @description     Aggregates a numeric column of a Notion database into a net worth total and per-account subtotals.
//  @termsOfService  https://github.com/guttosm/networth
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/networth
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:3000
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        networth
//  @tag.description Net worth aggregation over the Notion database
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/networth/config"
	_ "github.com/guttosm/networth/docs" // swagger docs
	"github.com/guttosm/networth/internal/app"
	"github.com/guttosm/networth/internal/domain/dto"
	"github.com/guttosm/networth/internal/logger"
	"github.com/guttosm/networth/internal/service"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// A full aggregation walks every page of the database, so WriteTimeout is
// generous compared to a typical API.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., the Redis client).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runReport computes the net worth once and writes it to w as indented JSON.
func runReport(ctx context.Context, svc service.NetWorthService, w io.Writer) error {
	nw, err := svc.GetNetWorth(ctx)
	if err != nil {
		return err
	}

	resp := dto.NetWorthResponse{Total: nw.Total, Groups: nw.Groups}
	if resp.Groups == nil {
		resp.Groups = map[string]float64{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// main is the entry point of the networth application.
//
// Modes (selected via --mode flag):
//   - api:    Starts the REST API exposing GET /api/networth.
//   - report: Computes the aggregate once and prints it to stdout.
//
// Flags:
//   - --mode: Execution mode ("api" or "report"). Default: "api".
//   - --port: Port for the API server. Defaults to value from config (PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize JSON logger
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: api or report")
	port := flag.String("port", cfg.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "report":
		svc, cleanup, err := app.NewNetWorthService(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}
		defer cleanup()

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runReport(sigCtx, svc, os.Stdout); err != nil {
			logger.L().Error().Err(err).Msg("report failed")
			cleanup()
			os.Exit(1)
		}

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
