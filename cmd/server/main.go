package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"miniapp_profile/internal/api"
	"miniapp_profile/internal/cache"
	"miniapp_profile/internal/config"
	"miniapp_profile/internal/db"
	"miniapp_profile/internal/monitoring"
	"miniapp_profile/internal/nickname"
	"miniapp_profile/internal/telegram"
	"miniapp_profile/internal/tgbot"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	rdb, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		// The suggestion hold is advisory; run without it.
		log.Printf("Warning: redis unavailable, suggestion holds disabled: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	validator := telegram.NewValidator(cfg.BotToken, cfg.InitDataMaxAge)

	allocator, err := nickname.NewAllocator(nickname.DefaultWords(), database,
		nickname.WithHold(cache.NewSuggestHold(rdb, cfg.SuggestHoldTTL)))
	if err != nil {
		log.Fatalf("nickname allocator: %v", err)
	}

	media, err := tgbot.New(cfg.BotToken, cfg.PhotoStorageChatID)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	metrics := monitoring.New()
	server := api.NewServer(validator, allocator, database, media, metrics, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(metrics.Handler(), cfg.CORSOrigins, metrics.Middleware),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Printf("profile server listening on %s", cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
