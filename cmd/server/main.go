package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pocketdash/mobile-auth/internal/logging"
	"github.com/pocketdash/mobile-auth/internal/server/api"
	"github.com/pocketdash/mobile-auth/internal/server/services"
	"github.com/pocketdash/mobile-auth/internal/server/storage"
	"github.com/pocketdash/mobile-auth/pkg/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var rootCmd = &cobra.Command{
	Use:   "pocketdash-auth",
	Short: "PocketDash auth server - passwordless magic-link authentication",
	Long:  "Backend for the PocketDash mobile companion app: magic-link token issuance and verification, session credential minting and refresh",
	// Default to serve command if no subcommand provided
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the auth server",
	Run:   runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("pocketdash-auth"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	logger := logging.Setup(os.Getenv("LOG_LEVEL"))
	logger.Info("starting pocketdash-auth", "version", version.GetVersion("pocketdash-auth"))

	// Connect to database
	db, err := storage.NewPostgresDB()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run embedded migrations
	if err := runEmbeddedMigrations(db.DB.DB); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	// Initialize repositories
	tokenRepo := storage.NewTokenRepository(db)
	userRepo := storage.NewUserRepository(db)
	whitelistRepo := storage.NewWhitelistRepository(db)

	// Initialize services
	config := services.ConfigFromEnv()
	secrets := services.NewSecretProvider()
	clock := services.RealClock{}

	emailService, err := services.NewEmailService()
	if err != nil {
		logger.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}

	smsService, err := services.NewSMSService()
	if err != nil {
		// SMS is optional: without Telnyx credentials the send-to-mobile
		// endpoint reports dispatch failure, email links still work.
		logger.Warn("SMS delivery not configured", "error", err)
	}

	sessionService := services.NewSessionService(secrets, clock, config)
	authService := services.NewAuthService(
		tokenRepo, userRepo, whitelistRepo,
		emailService, smsOrUnconfigured(smsService), sessionService, clock, config,
	)

	// Initialize handlers
	authHandler := api.NewAuthHandler(authService, sessionService, logger)
	guard := api.NewGuard(sessionService, authService, logger)
	limiter := api.NewRateLimiter()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.CORSMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"pocketdash-auth"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Route("/api/auth", func(r chi.Router) {
		r.With(api.RateLimit(limiter, 10, time.Minute)).Post("/request-link", authHandler.RequestLink)
		r.With(api.RateLimit(limiter, 30, time.Minute)).Post("/send-to-mobile", authHandler.SendToMobile)
		r.Post("/verify", authHandler.Verify)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Protected routes
	r.Route("/api", func(r chi.Router) {
		r.Use(guard.Middleware)
		r.Get("/me", authHandler.Me)
	})

	host := os.Getenv("API_HOST")
	if host == "" {
		host = "0.0.0.0"
	}
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background cleanup jobs
	go cleanupExpiredTokens(authService, logger)
	go cleanupRateLimiter(limiter)

	// Start server
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// smsOrUnconfigured substitutes a sender that fails with a clear message
// when Telnyx is not configured, so the wiring stays uniform.
func smsOrUnconfigured(s *services.SMSService) services.SMSSender {
	if s != nil {
		return s
	}
	return unconfiguredSMS{}
}

type unconfiguredSMS struct{}

func (unconfiguredSMS) SendMagicLink(ctx context.Context, phoneNumber, link string) error {
	return fmt.Errorf("SMS delivery not configured")
}

func cleanupExpiredTokens(authService *services.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		count, err := authService.CleanupExpiredTokens(ctx)
		cancel()
		if err != nil {
			logger.Warn("failed to cleanup expired tokens", "error", err)
		} else if count > 0 {
			logger.Debug("cleaned up expired tokens", "count", count)
		}
	}
}

func cleanupRateLimiter(limiter *api.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		limiter.Cleanup()
	}
}

func runEmbeddedMigrations(db *sql.DB) error {
	// Read all migration files from embedded FS
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort migrations by filename to ensure correct order
	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	// Execute each migration
	for _, migration := range migrations {
		data, err := migrationsFS.ReadFile(filepath.Join("migrations", migration))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migration, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration, err)
		}
	}

	return nil
}
