/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the faculty leave ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and read configuration from the environment
  2. Initialize SQLite store and the sqlite-backed session manager
  3. Seed the admin account and department when configured
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Environment variables (a local .env is loaded first when present):
    PORT                   HTTP server port (default 8080)
    DB_PATH                SQLite database path (default leave_mgmt.db)
    SESSION_SECRET         HMAC secret for department bearer tokens
    DEBIT_ALL_CATEGORIES   "true" to debit every dated category
    COLLEGE_NAME           Report banner heading
    COLLEGE_SUBTITLE       Report banner second line
    COLLEGE_ADDRESS        Report banner address line
    DEPARTMENT_ID          Seed department id
    DEPARTMENT_NAME        Seed department name
    ADMIN_USERNAME         Seed login account (with ADMIN_PASSWORD)
    ADMIN_PASSWORD         Plaintext at seed time, stored bcrypt-hashed

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: router configuration
  - store/sqlite/sqlite.go: database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus/leave-ledger/api"
	"github.com/campus/leave-ledger/ledger"
	"github.com/campus/leave-ledger/report"
	"github.com/campus/leave-ledger/store/sqlite"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	port, err := strconv.Atoi(env("PORT", "8080"))
	if err != nil {
		log.Fatal("invalid PORT", zap.String("value", os.Getenv("PORT")))
	}
	dbPath := env("DB_PATH", "leave_mgmt.db")
	debitAll := env("DEBIT_ALL_CATEGORIES", "false") == "true"
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Warn("SESSION_SECRET not set; department bearer tokens disabled")
	}

	// Store
	store, err := sqlite.New(dbPath)
	if err != nil {
		log.Fatal("database init failed", zap.String("path", dbPath), zap.Error(err))
	}
	defer store.Close()

	// Sessions, persisted in the same database
	sessions := scs.New()
	sessions.Store = sqlite3store.New(store.DB())
	sessions.Lifetime = 12 * time.Hour
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	// Seed department and admin account when configured
	if err := seed(context.Background(), store, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	engine := ledger.NewEngine(store, ledger.Config{DebitAllCategories: debitAll})
	renderer := report.NewRenderer(report.Config{
		CollegeName:     env("COLLEGE_NAME", "Government College"),
		CollegeSubtitle: os.Getenv("COLLEGE_SUBTITLE"),
		Address:         os.Getenv("COLLEGE_ADDRESS"),
	}, log)

	handler := api.NewHandler(store, engine, renderer, sessions, log, []byte(secret))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.Int("port", port),
			zap.String("db", dbPath),
			zap.Bool("debit_all_categories", debitAll),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// seed creates the configured department and admin login if they do not
// exist yet. Idempotent: both writes are upserts.
func seed(ctx context.Context, store *sqlite.Store, log *zap.Logger) error {
	deptID := os.Getenv("DEPARTMENT_ID")
	if deptID != "" {
		err := store.SaveDepartment(ctx, sqlite.Department{
			ID:   deptID,
			Name: env("DEPARTMENT_NAME", "General"),
		})
		if err != nil {
			return fmt.Errorf("seed department: %w", err)
		}
	}

	username, password := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	existing, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("seed user lookup: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	err = store.SaveUser(ctx, sqlite.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		DepartmentID: deptID,
	})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	log.Info("seeded admin account", zap.String("username", username))
	return nil
}
