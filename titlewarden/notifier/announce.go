package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Announcer posts scheduler lifecycle messages to the configured
// announcement channel. The client is attached after the gateway comes
// up; events arriving before that are logged and dropped.
type Announcer struct {
	mu        sync.RWMutex
	client    bot.Client
	channelID snowflake.ID
}

func NewAnnouncer(channelID snowflake.ID) *Announcer {
	return &Announcer{channelID: channelID}
}

func (a *Announcer) SetClient(client bot.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = client
}

func (a *Announcer) Notify(ctx context.Context, event Event) {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()

	message := a.format(event)
	if message == "" {
		return
	}
	slog.Info(message, slog.String("type", "notify"))

	if client == nil || a.channelID == 0 {
		return
	}
	_, err := client.Rest().CreateMessage(a.channelID, discord.NewMessageCreateBuilder().
		SetContent(message).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to post announcement",
			slog.String("type", "notify"),
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (a *Announcer) format(event Event) string {
	switch event.Kind {
	case EventActivation:
		until := "never expires"
		if event.SlotEnd != nil {
			until = fmt.Sprintf("until %s UTC", event.SlotEnd.UTC().Format("2006-01-02 15:04"))
		}
		return fmt.Sprintf("AUTO-ACTIVATED: **%s** is now held by **%s** (%s), %s",
			event.Title, event.IGN, event.Coords, until)
	case EventRelease:
		reason := event.Reason
		if reason == "" {
			reason = "Released."
		}
		return fmt.Sprintf("TITLE RELEASED: **%s** is no longer held by **%s**. %s",
			event.Title, event.IGN, reason)
	case EventAssignment:
		return fmt.Sprintf("SHIFT CHANGE: **%s** was assigned to **%s** (%s) by %s",
			event.Title, event.IGN, event.Coords, event.Actor)
	default:
		return ""
	}
}
