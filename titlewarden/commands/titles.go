package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/handlers"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

const (
	embedColor   = 0x2b2d31
	successColor = 0x57f287
	errorColor   = 0xed4245

	queryTimeout = 10 * time.Second
)

var Titles = discord.SlashCommandCreate{
	Name:        "titles",
	Description: "View and manage temple titles",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "View current title holders and expiry",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "filter",
					Description: "Filter the list",
					Required:    false,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "All", Value: "all"},
						{Name: "Only Available", Value: "available"},
						{Name: "Only Held", Value: "held"},
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reserve",
			Description: "Reserve a slot for a requestable title",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "title",
					Description:  "Title to reserve",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "ign",
					Description: "Your in-game name",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "coords",
					Description: "Coordinates (X:Y), or - if none",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "date",
					Description: "Date in UTC (YYYY-MM-DD)",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:         "time",
					Description:  "Start time in UTC (HH:MM)",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "cancel",
			Description: "Cancel a future reservation",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "title",
					Description:  "Title the reservation is for",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "date",
					Description: "Date in UTC (YYYY-MM-DD)",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:         "time",
					Description:  "Start time in UTC (HH:MM)",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "release",
			Description: "Force release a title (admin only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "title",
					Description:  "Title to release immediately",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "assign",
			Description: "Assign a title directly (admin only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "title",
					Description:  "Title to assign",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "ign",
					Description: "Holder's in-game name",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "hours",
					Description: "Shift length override in hours",
					Required:    false,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(72),
				},
				discord.ApplicationCommandOptionBool{
					Name:        "permanent",
					Description: "Assign without expiry",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "requestable",
			Description: "Open or close a title for reservations (admin only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "title",
					Description:  "Title to update",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionBool{
					Name:        "open",
					Description: "Whether members can reserve it",
					Required:    true,
				},
			},
		},
	},
}

type TitlesHandler struct {
	bot *titlewarden.Bot
}

func NewTitlesHandler(b *titlewarden.Bot) *TitlesHandler {
	return &TitlesHandler{bot: b}
}

func (h *TitlesHandler) Register(r handler.Router) {
	r.Route("/titles", func(r handler.Router) {
		r.Command("/show", handlers.WrapWithLogging("titles-show", h.HandleShow))
		r.Command("/reserve", handlers.WrapWithLogging("titles-reserve", h.HandleReserve))
		r.Command("/cancel", handlers.WrapWithLogging("titles-cancel", h.HandleCancel))
		r.Command("/release", handlers.WrapWithLogging("titles-release", h.HandleRelease))
		r.Command("/assign", handlers.WrapWithLogging("titles-assign", h.HandleAssign))
		r.Command("/requestable", handlers.WrapWithLogging("titles-requestable", h.HandleRequestable))

		r.Autocomplete("/reserve", ReserveAutocomplete(h.bot))
		r.Autocomplete("/cancel", ReserveAutocomplete(h.bot))
		r.Autocomplete("/release", AllTitleAutocomplete(h.bot))
		r.Autocomplete("/assign", AllTitleAutocomplete(h.bot))
		r.Autocomplete("/requestable", AllTitleAutocomplete(h.bot))
	})
}

func (h *TitlesHandler) HandleShow(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	filter := e.SlashCommandInteractionData().String("filter")
	cards, err := h.bot.Projector.StatusCards(ctx)
	if err != nil {
		return createError(e, "Failed to load title status.")
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Temple Title Status").
		SetColor(embedColor)

	for _, card := range cards {
		held := card.Holder != titles.VacantHolder
		if filter == "available" && held {
			continue
		}
		if filter == "held" && !held {
			continue
		}

		holder := "*Available*"
		if held {
			holder = fmt.Sprintf("**%s** (%s)", card.Holder, card.Coords)
		}
		value := fmt.Sprintf("**Holder:** %s\n**Expires:** %s", holder, card.ExpiresIn)
		if card.HeldFor != "" {
			value += fmt.Sprintf("\n**Held for:** %s", card.HeldFor)
		}
		embed.AddField(card.Name, value, false)
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{embed.Build()},
		Flags:  discord.MessageFlagEphemeral,
	})
}

func (h *TitlesHandler) HandleReserve(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	title := data.String("title")
	ign := strings.TrimSpace(data.String("ign"))
	coords := data.String("coords")
	date := data.String("date")
	slotTime := data.String("time")

	startAt, err := parseSlotInput(date, slotTime)
	if err != nil {
		return createError(e, "Invalid date/time. Use YYYY-MM-DD and HH:MM.")
	}

	_, err = h.bot.Engine.Reserve(ctx, titles.ReserveRequest{
		Title:   title,
		IGN:     ign,
		Coords:  coords,
		StartAt: startAt,
		Source:  "Discord Slash",
		Actor:   e.User().Username,
	})
	if err != nil {
		if msg, ok := userMessage(err); ok {
			return createError(e, msg)
		}
		return createError(e, "Internal error while booking. Try again.")
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ Reserved **%s** for **%s** on **%s** at **%s UTC**.",
			title, ign, date, slotTime),
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *TitlesHandler) HandleCancel(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	title := data.String("title")
	startAt, err := parseSlotInput(data.String("date"), data.String("time"))
	if err != nil {
		return createError(e, "Invalid date/time. Use YYYY-MM-DD and HH:MM.")
	}

	deleted, err := h.bot.Engine.Cancel(ctx, titles.CancelRequest{
		Title:   title,
		StartAt: startAt,
		Actor:   e.User().Username,
	})
	if err != nil {
		if msg, ok := userMessage(err); ok {
			return createError(e, msg)
		}
		return createError(e, "Internal error while cancelling. Try again.")
	}
	if !deleted {
		return createError(e, "No reservation found for that slot.")
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ Cancelled the **%s** reservation for **%s**.",
			title, startAt.Format("2006-01-02 15:04 UTC")),
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *TitlesHandler) HandleRelease(e *handler.CommandEvent) error {
	if !isManager(e) {
		return createError(e, "You need Manage Server permission for that.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	title := e.SlashCommandInteractionData().String("title")
	released, err := h.bot.Engine.Release(ctx, title, "Released by admin.", e.User().Username)
	if err != nil {
		return createError(e, "Internal error while releasing. Try again.")
	}
	if !released {
		return createError(e, "Could not release (unknown title or already free).")
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: "✅ Released.",
		Flags:   discord.MessageFlagEphemeral,
	})
}

func (h *TitlesHandler) HandleAssign(e *handler.CommandEvent) error {
	if !isManager(e) {
		return createError(e, "You need Manage Server permission for that.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	title := data.String("title")
	ign := strings.TrimSpace(data.String("ign"))
	hours := data.Int("hours")
	permanent := data.Bool("permanent")

	shift, err := h.bot.Engine.Assign(ctx, titles.AssignRequest{
		Title:     title,
		IGN:       ign,
		Hours:     hours,
		Permanent: permanent,
		Actor:     e.User().Username,
		Source:    "Discord Command",
	})
	if err != nil {
		if msg, ok := userMessage(err); ok {
			return createError(e, msg)
		}
		return createError(e, "Internal error while assigning. Try again.")
	}

	until := "never expires"
	if shift.ExpiresAt != nil {
		until = fmt.Sprintf("expires %s UTC", shift.ExpiresAt.UTC().Format("2006-01-02 15:04"))
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ Assigned **%s** to **%s** (%s).", title, ign, until),
		Flags:   discord.MessageFlagEphemeral,
	})
}

func (h *TitlesHandler) HandleRequestable(e *handler.CommandEvent) error {
	if !isManager(e) {
		return createError(e, "You need Manage Server permission for that.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	title := data.String("title")
	open := data.Bool("open")

	if err := h.bot.Engine.SetRequestable(ctx, title, open, e.User().Username); err != nil {
		if msg, ok := userMessage(err); ok {
			return createError(e, msg)
		}
		return createError(e, "Internal error while updating. Try again.")
	}

	state := "closed for"
	if open {
		state = "open for"
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ **%s** is now %s reservations.", title, state),
		Flags:   discord.MessageFlagEphemeral,
	})
}

// userMessage maps engine validation failures to text safe to echo at
// the user. Anything else is an internal error and stays generic.
func userMessage(err error) (string, bool) {
	var slotErr *titles.InvalidSlotError
	var takenErr *titles.SlotTakenError
	switch {
	case errors.As(err, &slotErr), errors.As(err, &takenErr):
		return capitalize(err.Error()) + ".", true
	case errors.Is(err, titles.ErrPastTime),
		errors.Is(err, titles.ErrInvalidCoordinates),
		errors.Is(err, titles.ErrUnknownTitle),
		errors.Is(err, titles.ErrNotRequestable),
		errors.Is(err, titles.ErrAlreadyStarted),
		errors.Is(err, titles.ErrInvalidShiftHours),
		errors.Is(err, titles.ErrSlotNotAllowed),
		errors.Is(err, titles.ErrAlwaysClosed):
		return capitalize(err.Error()) + ".", true
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func parseSlotInput(date, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04",
		strings.TrimSpace(date)+" "+strings.TrimSpace(clock), time.UTC)
}

func isManager(e *handler.CommandEvent) bool {
	member := e.Member()
	return member != nil && member.Permissions.Has(discord.PermissionManageGuild)
}

func createError(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: "❌ " + message,
			Color:       errorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func intPtr(i int) *int {
	return &i
}
