package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
	domainTelegram "gift_delivery_bot/internal/domain/telegram"
	"gift_delivery_bot/internal/infra/config"
	idb "gift_delivery_bot/internal/infra/database"
	"gift_delivery_bot/internal/infra/export"
	"gift_delivery_bot/internal/infra/httpapi"
	"gift_delivery_bot/internal/infra/importer"
	"gift_delivery_bot/internal/infra/logger"
	"gift_delivery_bot/internal/infra/memory"
	"gift_delivery_bot/internal/infra/scheduler"
	"gift_delivery_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"bot_enabled": cfg.BotEnabled(),
	}).Info("Gift delivery bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var repo member.Repository
	if cfg.DatabaseURL == "memory" {
		repo = memory.NewMemberRepository()
		mainLogger.Warn("Using in-memory storage; the roster is lost on restart.")
	} else {
		db, dialect, err := idb.Open(cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if err := idb.Migrate(ctx, db, dialect); err != nil {
			mainLogger.WithError(err).Fatal("Could not migrate database")
		}
		repo = idb.NewSQLMemberRepository(db, dialect)
		mainLogger.WithField("dialect", dialect.String()).Info("Database connection established successfully.")
	}

	roster := app.NewRosterService(repo, logrus.NewEntry(logger.Log))

	if cfg.ImportFile != "" {
		importLogger := mainLogger.WithField("file", cfg.ImportFile)
		src, err := importer.ReadFile(cfg.ImportFile)
		if err != nil {
			importLogger.WithError(err).Fatal("Could not read startup import file")
		}
		res, err := roster.Import(ctx, src, app.DetectColumns(src.Columns))
		if err != nil {
			importLogger.WithError(err).Fatal("Startup import failed")
		}
		for _, r := range res.Rejected {
			importLogger.WithFields(logrus.Fields{"row": r.Row, "cedula": r.Cedula, "reason": r.Reason()}).Warn(r.Err.Error())
		}
	}
	if cfg.SeedSampleData {
		if _, err := roster.SeedSampleData(ctx); err != nil {
			mainLogger.WithError(err).Fatal("Could not seed sample data")
		}
	}

	reporter := export.NewReporter(roster, export.ReportOptions{
		Organization: cfg.Organization,
		NotesPreview: cfg.ReportNotesPreview,
	})

	// Telegram bot (optional)
	var (
		bot      *telebot.Bot
		notifier domainTelegram.Client
	)
	if cfg.BotEnabled() {
		botLogger := logger.Component("telegram")
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				entry.Error("Telebot error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = telegram.NewTelebotAdapter(bot)

		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, cfg.Organization, botLogger)
		telegram.RegisterRosterHandlers(ctx, bot, roster, reporter, cfg.AdminTelegramID, botLogger)
		mainLogger.Info("Telegram command handlers registered.")
	}

	reportScheduler := scheduler.NewReportScheduler(reporter, notifier, cfg.AdminTelegramID, cfg.ReportDir, cfg.CronSpecReport, logger.Component("scheduler"))
	if err := reportScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start report scheduler")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(roster, reporter, logger.Component("http"))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	if bot != nil {
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		if err := notifier.SendMessage(cfg.AdminTelegramID, "Bot de entregas iniciado. Use /stats para ver el avance.", nil); err != nil {
			mainLogger.WithError(err).Warn("Could not notify admin about startup")
		}
	}

	mainLogger.Info("Application setup complete.")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server shutdown")
	}
	if bot != nil {
		bot.Stop()
	}
	reportScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
