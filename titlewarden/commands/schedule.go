package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/handlers"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

var Schedule = discord.SlashCommandCreate{
	Name:        "schedule",
	Description: "Browse the upcoming reservation calendar",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "days",
			Description: "How many days to show (default 7)",
			Required:    false,
			MinValue:    intPtr(1),
			MaxValue:    intPtr(30),
		},
	},
}

type ScheduleHandler struct {
	bot *titlewarden.Bot
}

func NewScheduleHandler(b *titlewarden.Bot) *ScheduleHandler {
	return &ScheduleHandler{bot: b}
}

func (h *ScheduleHandler) Register(r handler.Router) {
	r.Command("/schedule", handlers.WrapWithLogging("schedule", h.HandleSchedule))
}

func (h *ScheduleHandler) HandleSchedule(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	days := 7
	if v, ok := e.SlashCommandInteractionData().OptInt("days"); ok {
		days = v
	}

	window, err := h.bot.Projector.Schedule(ctx, days)
	if err != nil {
		return createError(e, "Failed to load the schedule. Try again.")
	}
	requestable, err := h.bot.Projector.RequestableTitleNames(ctx)
	if err != nil {
		return createError(e, "Failed to load the schedule. Try again.")
	}

	b := h.bot
	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			if page >= len(window.Days) {
				page = len(window.Days) - 1
			}
			day := window.Days[page]

			embed.
				SetTitle("📅 Title Schedule").
				SetDescription(buildDayDescription(window, requestable, day)).
				SetColor(embedColor).
				SetFooter(fmt.Sprintf("Day %d/%d • All times UTC", page+1, len(window.Days)), "")
		},
		Pages:      len(window.Days),
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

func buildDayDescription(window *titles.ScheduleWindow, requestable []string, day string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s**\n\n", day))

	empty := true
	for _, hour := range window.Hours {
		slots := window.Lookup[day][hour]
		if len(slots) == 0 {
			continue
		}
		empty = false

		sb.WriteString(fmt.Sprintf("**%s**\n", hour))
		for _, title := range requestable {
			entry, ok := slots[title]
			if !ok {
				continue
			}
			if entry.Coords != "" && entry.Coords != "-" {
				sb.WriteString(fmt.Sprintf("• %s — **%s** (%s)\n", title, entry.IGN, entry.Coords))
			} else {
				sb.WriteString(fmt.Sprintf("• %s — **%s**\n", title, entry.IGN))
			}
		}
		sb.WriteString("\n")
	}

	if empty {
		sb.WriteString("_No reservations for this day._")
	}
	return sb.String()
}
