package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fiyat-bot/config"
	"fiyat-bot/internal/bot"
	"fiyat-bot/internal/database"
	"fiyat-bot/internal/monitor"
	"fiyat-bot/internal/scraper"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	api, err := bot.Init(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	renderer := scraper.NewChromeRenderer(cfg.UserAgent, cfg.NavigationTimeout, cfg.RenderSettle)
	extractor := scraper.New(cfg.FetchTimeout, cfg.UserAgent, renderer)

	mon := monitor.New(db, extractor, bot.NewNotifier(api), cfg.CheckInterval)

	// Cancelling the root context stops the monitor and releases any
	// in-flight browser instance.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mon.Start(ctx)

	handler := bot.NewHandler(api, db, mon, extractor)
	go handler.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")
}
