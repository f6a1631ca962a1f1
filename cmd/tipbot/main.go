package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nanosprinkle/tipbot/internal/alert"
	"github.com/nanosprinkle/tipbot/internal/api"
	"github.com/nanosprinkle/tipbot/internal/bot"
	"github.com/nanosprinkle/tipbot/internal/config"
	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/intent"
	"github.com/nanosprinkle/tipbot/internal/publisher"
	"github.com/nanosprinkle/tipbot/internal/ratelimit"
	"github.com/nanosprinkle/tipbot/internal/sweeper"
	"github.com/nanosprinkle/tipbot/internal/wallet"
	"github.com/nanosprinkle/tipbot/internal/websocket"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	logger.SetLevel(logger.INFO)
	if err := logger.EnableFileLogging("./logs"); err != nil {
		log.Fatalf("Failed to enable file logging: %v", err)
	}

	cfg := config.Load()

	logger.Info("NanoSprinkle starting as @%s...", cfg.BotHandle)

	database, err := db.NewDBService(&db.DefaultOperations{})
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	walletClient := wallet.NewClient(cfg.WalletRPCURL, cfg.WalletID)

	openaiClient := intent.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	parser := intent.NewParser(openaiClient, cfg.BotHandle)

	var composer bot.Composer = bot.TemplateComposer{}
	if cfg.OpenAIAPIKey != "" {
		composer = bot.NewGenerativeComposer(openaiClient, cfg.BotHandle)
	}

	alerter := alert.NewAlerter(cfg.AlertWebhookURL)
	pub := publisher.NewClient(cfg.PublisherURL, cfg.PublisherAPIKey)

	messagesMinute := ratelimit.New(cfg.MessagesPerMinute, time.Minute)
	messagesDay := ratelimit.New(cfg.MessagesPerDay, 24*time.Hour)
	defer messagesMinute.Stop()
	defer messagesDay.Stop()

	wsManager := websocket.NewWebSocketManager()
	go wsManager.Run()

	service := bot.NewService(bot.ServiceParams{
		BotUserID:      cfg.BotUserID,
		BotHandle:      cfg.BotHandle,
		DB:             database,
		Wallet:         walletClient,
		Parser:         parser,
		Directory:      pub,
		Publisher:      pub,
		Composer:       composer,
		Engine:         bot.NewEngine(database, walletClient, alerter),
		Broadcaster:    wsManager,
		TipsPerDay:     cfg.TipsPerDay,
		MessagesMinute: messagesMinute,
		MessagesDay:    messagesDay,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep := sweeper.New(database, walletClient, wsManager, cfg.RefundGracePeriod, cfg.SweepInterval)
	sweep.Start(ctx)
	defer sweep.Stop()

	router := api.SetupRouter(api.NewHandler(service), wsManager, cfg.ScraperAPIKey)
	go func() {
		if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Fatal("Failed to run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
}
