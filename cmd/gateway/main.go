package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goredis "github.com/redis/go-redis/v9"

	api "github.com/mind-engage/mindengage-courseware/internal/api/http"
	auth "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/config"
	"github.com/mind-engage/mindengage-courseware/internal/content"
	"github.com/mind-engage/mindengage-courseware/internal/db"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	syncx "github.com/mind-engage/mindengage-courseware/internal/sync"
)

func main() {
	config.LoadDotEnv()
	cfg := config.FromEnv()

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("gateway stopped", "error", err)
	}
}

func run(cfg config.Config, lg *logger.Logger) error {
	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	positions, closePositions, err := openPositions(ctx, cfg, dbh)
	if err != nil {
		return err
	}
	defer closePositions()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(lg), middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	login := auth.LoginOptions{EnableLocalAuth: cfg.EnableLocalAuth, AdminUser: cfg.AdminUser, AdminPassHash: cfg.AdminPassHash}
	api.Mount(r, api.Deps{
		Store:     content.NewSQLStore(dbh),
		Grader:    grading.NewDefaultGrader(),
		Positions: positions,
		Events:    syncx.NewEventRepo(dbh, ""),
		Auth:      auth.NewAuthService(cfg.AuthHMACSecret),
		Login:     login,
		Log:       lg,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		lg.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "positions", cfg.PositionStore)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// openPositions picks the resume-position backend.
func openPositions(ctx context.Context, cfg config.Config, dbh *sql.DB) (position.Store, func(), error) {
	switch cfg.PositionStore {
	case "", "sql":
		return position.NewSQLStore(dbh), func() {}, nil
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return position.NewRedisStore(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown POSITION_STORE %q", cfg.PositionStore)
	}
}
