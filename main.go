package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/commands"
	"github.com/harmonyhold/titlewarden/titlewarden/database"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/logger"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/services"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := titlewarden.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler("Titlewarden", cfg.Log.Level)))
	slog.Info("Starting Titlewarden Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, database.DBConfig(cfg.DB))
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	if err := db.SeedCatalog(ctx, titles.DefaultCatalog()); err != nil {
		slog.Error("Failed to seed title catalog", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := titlewarden.New(*cfg, version, commit)
	b.DB = db

	b.TitleRepository = repositories.NewTitleRepository(db.BunDB())
	b.ReservationRepository = repositories.NewReservationRepository(db.BunDB())
	b.ShiftRepository = repositories.NewShiftRepository(db.BunDB())
	b.SettingsRepository = repositories.NewSettingsRepository(db.BunDB())
	b.RequestLogRepository = repositories.NewRequestLogRepository(db.BunDB())

	var fanout notifier.Multi
	if cfg.Notify.WebhookURL != "" {
		wh, err := notifier.NewWebhook(cfg.Notify.WebhookURL, cfg.Bot.GuardianRoleID)
		if err != nil {
			slog.Error("Failed to configure reservation webhook", slog.Any("error", err))
			os.Exit(-1)
		}
		fanout = append(fanout, wh)
	}
	b.Announcer = notifier.NewAnnouncer(cfg.Bot.AnnounceChannel)
	fanout = append(fanout, b.Announcer)

	sink := notifier.NewAsync(fanout, cfg.Notify.QueueSize)
	defer sink.Close()

	b.Engine = titles.NewEngine(
		b.TitleRepository,
		b.ReservationRepository,
		b.ShiftRepository,
		b.SettingsRepository,
		b.RequestLogRepository,
		sink,
	)
	b.Scheduler = titles.NewScheduler(
		b.ReservationRepository,
		b.ShiftRepository,
		b.SettingsRepository,
		sink,
	)
	b.Projector = titles.NewProjector(
		b.TitleRepository,
		b.ReservationRepository,
		b.ShiftRepository,
		b.SettingsRepository,
	)

	b.IconService = services.NewIconService(
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.IconRoot,
	)
	var iconRefs []string
	for _, title := range titles.DefaultCatalog() {
		if title.IconURL != "" {
			iconRefs = append(iconRefs, title.IconURL)
		}
	}
	b.IconService.VerifyIcons(ctx, iconRefs)

	h := handler.New()
	commands.NewTitlesHandler(b).Register(h)
	commands.NewShiftHandler(b).Register(h)
	commands.NewScheduleHandler(b).Register(h)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	b.Scheduler.Start()
	defer b.Scheduler.Shutdown()

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
