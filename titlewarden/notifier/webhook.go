package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"
)

const embedColor = 0x2b2d31

// Webhook posts reservation embeds through a Discord webhook so they
// show up even when the gateway bot is down. Only reservation events
// are embedded; everything else is ignored here and handled by the
// channel announcer.
type Webhook struct {
	client webhook.Client
	// roleID, when set, is mentioned above the embed.
	roleID snowflake.ID
}

func NewWebhook(url string, roleID snowflake.ID) (*Webhook, error) {
	client, err := webhook.NewWithURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}
	return &Webhook{client: client, roleID: roleID}, nil
}

func (w *Webhook) Notify(ctx context.Context, event Event) {
	if event.Kind != EventReservation {
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("📋 New Title Reservation").
		SetColor(embedColor).
		AddField("Title", event.Title, true).
		AddField("In-Game Name", event.IGN, true).
		AddField("Coordinates", event.Coords, true).
		AddField("Slot (UTC)", event.SlotStart.UTC().Format("2006-01-02 15:04"), false).
		SetTimestamp(time.Now().UTC())

	if event.Actor != "" {
		embed.AddField("Submitted By", event.Actor, false)
	}

	message := discord.WebhookMessageCreate{
		Embeds: []discord.Embed{embed.Build()},
	}
	if w.roleID != 0 {
		message.Content = fmt.Sprintf("<@&%d>", w.roleID)
		message.AllowedMentions = &discord.AllowedMentions{
			Roles: []snowflake.ID{w.roleID},
		}
	}

	if _, err := w.client.CreateMessage(message, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to deliver reservation webhook",
			slog.String("type", "notify"),
			slog.String("title", event.Title),
			slog.String("error", err.Error()),
		)
	}
}
