package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

const maxChoices = 25

// ReserveAutocomplete serves both autocompleted options of the
// reserve/cancel subcommands: requestable titles and grid slot times.
func ReserveAutocomplete(b *titlewarden.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		switch focused.Name {
		case "title":
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			names, err := b.Projector.RequestableTitleNames(ctx)
			if err != nil {
				slog.Error("Failed to list requestable titles",
					slog.String("type", "cmd"),
					slog.String("error", err.Error()))
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}
			return e.AutocompleteResult(matchNames(names, focusedString(focused)))
		case "time":
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			choices := make([]discord.AutocompleteChoice, 0, maxChoices)
			for _, slot := range scheduling.Grid(b.Engine.ShiftHours(ctx)) {
				choices = append(choices, discord.AutocompleteChoiceString{
					Name:  slot + " UTC",
					Value: slot,
				})
			}
			return e.AutocompleteResult(choices)
		}
		return nil
	}
}

// AllTitleAutocomplete matches against the full catalog, for the admin
// subcommands that may target non-requestable titles.
func AllTitleAutocomplete(b *titlewarden.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "title" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		allTitles, err := b.Projector.AllTitles(ctx)
		if err != nil {
			slog.Error("Failed to list titles",
				slog.String("type", "cmd"),
				slog.String("error", err.Error()))
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		names := make([]string, 0, len(allTitles))
		for _, title := range allTitles {
			names = append(names, title.Name)
		}
		return e.AutocompleteResult(matchNames(names, focusedString(focused)))
	}
}

// matchNames fuzzy-filters names by the typed prefix; an empty query
// returns everything in catalog order.
func matchNames(names []string, query string) []discord.AutocompleteChoice {
	ranked := names
	if query != "" {
		matches := fuzzy.Find(query, names)
		ranked = make([]string, 0, len(matches))
		for _, match := range matches {
			ranked = append(ranked, match.Str)
		}
	}

	choices := make([]discord.AutocompleteChoice, 0, maxChoices)
	for _, name := range ranked {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  name,
			Value: name,
		})
	}
	return choices
}

func focusedString(option discord.AutocompleteOption) string {
	if option.Value == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(option.Value, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
