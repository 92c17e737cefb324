package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds-bot/internal/ai"
	"classifieds-bot/internal/albums"
	"classifieds-bot/internal/auth"
	"classifieds-bot/internal/config"
	"classifieds-bot/internal/database"
	"classifieds-bot/internal/handlers"
	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/moderation"
	"classifieds-bot/internal/submissions"

	appbot "classifieds-bot/bot"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init(cfg.DefaultLanguage)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to MongoDB when configured. Without it the bot still runs,
	// just without the listing audit trail.
	var listingRepo database.ListingRepository = database.NewNoopListingRepository()
	if cfg.MongoDBURI != "" {
		client, db, err := database.ConnectDB(cfg)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal(err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
				sentry.CaptureException(err)
			} else {
				log.Println("Disconnected from MongoDB.")
			}
		}()
		listingRepo = database.NewMongoListingRepository(db)
	} else {
		log.Println("MONGODB_URI is not set, listings will not be persisted")
	}

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Bot Initialization ---
	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	adminChecker, err := auth.NewAdminChecker(cfg.AdminIDs)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}

	albumManager := albums.NewManager(albums.DefaultFlushDelay, albums.DefaultMaxAlbumSize)
	defer albumManager.Shutdown()

	store := submissions.NewStore()
	rewriter := ai.NewRewriter(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	queue := moderation.NewQueue(bot, adminChecker, cfg.ChannelID, store, listingRepo)
	machine := submissions.NewManager(bot, store, albumManager, rewriter, queue, cfg.SupportUsername)
	messageHandler := handlers.NewMessageHandler(bot, store, cfg.SupportUsername, cfg.Version)

	if err := messageHandler.SetupCommands(ctx); err != nil {
		log.Printf("Failed to set bot commands: %v", err)
		sentry.CaptureException(err)
	}

	updatesChan, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := appbot.New(appbot.BotDeps{
		Bot:         bot,
		UpdatesChan: updatesChan,
		Debug:       cfg.Debug,
		Machine:     machine,
		Queue:       queue,
		Handler:     messageHandler,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	go appBot.Start(ctx)

	<-ctx.Done()

	log.Println("Shutting down bot...")
	appBot.Stop()

	log.Println("Bot shutdown complete.")
}
