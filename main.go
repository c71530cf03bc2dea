package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anxiouscrypt/smapp/internal/api"
	"github.com/anxiouscrypt/smapp/internal/api/handlers"
	"github.com/anxiouscrypt/smapp/internal/auth"
	"github.com/anxiouscrypt/smapp/internal/config"
	"github.com/anxiouscrypt/smapp/internal/database"
	"github.com/anxiouscrypt/smapp/internal/hasher"
	"github.com/anxiouscrypt/smapp/internal/logger"
	"github.com/anxiouscrypt/smapp/internal/services"
	"github.com/anxiouscrypt/smapp/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	// Connect to the key-value backend
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := database.New(ctx, database.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer rdb.Close()

	userStore := store.NewRedisStore(rdb, store.RedisOptions{
		KeyPrefix:      cfg.KeyPrefix,
		OpTimeout:      cfg.OpTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBase:      cfg.RetryBase,
		AllowOverwrite: cfg.AllowOverwrite,
	})

	var passwordHasher hasher.PasswordHasher
	switch cfg.Hasher {
	case "argon2id":
		passwordHasher = hasher.NewArgon2Hasher(hasher.DefaultArgon2Params)
	default:
		passwordHasher = hasher.NewBcryptHasher(cfg.BcryptCost)
	}

	// Set up services and handlers
	userService := services.NewUserService(userStore, passwordHasher)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	isProd := os.Getenv("APP_ENV") == "production"
	userHandler := handlers.NewUserHandler(userService, tokens, isProd)
	healthHandler := handlers.NewHealthHandler(time.Now(), func(r *http.Request) error {
		return rdb.Ping(r.Context()).Err()
	})

	router := api.NewRouter(userHandler, healthHandler, tokens, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
