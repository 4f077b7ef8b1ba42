package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"reelkeep/internal/auth"
	"reelkeep/internal/collections"
	"reelkeep/internal/config"
	"reelkeep/internal/genres"
	"reelkeep/internal/handlers"
	"reelkeep/internal/logger"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/web"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	slog.SetDefault(logger.New(slog.LevelDebug))
	if err := run(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close DB", logger.Error(err))
		}
	}()

	catalog := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBReadToken).WithBaseURL(cfg.TMDBBaseURL)
	verifier := auth.NewVerifier(cfg.JWTSecret, "", "")

	app, err := handlers.New(handlers.Config{
		Collections: collections.NewService(st, catalog),
		Catalog:     catalog,
		Genres:      genres.NewBuilder(catalog),
		Verifier:    verifier,
		ImageBase:   cfg.ImageBase,
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	distFS, err := web.Dist()
	if err != nil {
		return fmt.Errorf("failed to load embedded frontend: %w", err)
	}
	spa, err := handlers.SPA(distFS)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(slog.Default(), &httplog.Options{
		Level: slog.LevelInfo,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", app.RegisterRoutes)
	r.NotFound(spa.ServeHTTP)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
