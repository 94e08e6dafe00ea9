package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/handlers"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

var Shift = discord.SlashCommandCreate{
	Name:        "shift",
	Description: "Manage shift settings",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Set shift hours (1-72). Admin only",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "hours",
					Description: "Shift length in hours",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(72),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show the current shift length and slot grid",
		},
	},
}

type ShiftHandler struct {
	bot *titlewarden.Bot
}

func NewShiftHandler(b *titlewarden.Bot) *ShiftHandler {
	return &ShiftHandler{bot: b}
}

func (h *ShiftHandler) Register(r handler.Router) {
	r.Route("/shift", func(r handler.Router) {
		r.Command("/set", handlers.WrapWithLogging("shift-set", h.HandleSet))
		r.Command("/show", handlers.WrapWithLogging("shift-show", h.HandleShow))
	})
}

func (h *ShiftHandler) HandleSet(e *handler.CommandEvent) error {
	if !isManager(e) {
		return createError(e, "You need Manage Server permission for that.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	hours := e.SlashCommandInteractionData().Int("hours")
	if err := h.bot.Engine.SetShiftHours(ctx, hours); err != nil {
		if msg, ok := userMessage(err); ok {
			return createError(e, msg)
		}
		return createError(e, "Failed to update shift hours. Try again.")
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("🕒 Shift hours updated to **%d**.", hours),
		Flags:   discord.MessageFlagEphemeral,
	})
}

func (h *ShiftHandler) HandleShow(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	hours := h.bot.Engine.ShiftHours(ctx)
	grid := scheduling.Grid(hours)

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("🕒 Shifts run **%d hours**. Daily slot starts (UTC): **%s**.",
			hours, strings.Join(grid, ", ")),
		Flags: discord.MessageFlagEphemeral,
	})
}
