package titlewarden

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/harmonyhold/titlewarden/titlewarden/database"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/services"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string
	DB        *database.DB

	TitleRepository       repositories.TitleRepository
	ReservationRepository repositories.ReservationRepository
	ShiftRepository       repositories.ShiftRepository
	SettingsRepository    repositories.SettingsRepository
	RequestLogRepository  repositories.RequestLogRepository

	Engine      *titles.Engine
	Scheduler   *titles.Scheduler
	Projector   *titles.Projector
	Announcer   *notifier.Announcer
	IconService *services.IconService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	if b.Announcer != nil {
		b.Announcer.SetClient(client)
	}
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Titlewarden is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the title rotation"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
