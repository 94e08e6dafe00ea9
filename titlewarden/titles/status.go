package titles

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

const (
	statusCacheSize = 8
	statusCacheTTL  = 10 * time.Second
	statusCacheKey  = "status_cards"

	// VacantHolder is the placeholder rendered for unheld titles.
	VacantHolder = "-- Available --"
)

// StatusCard is the per-title row rendered by /titles show and the
// dashboard.
type StatusCard struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Buffs     string `json:"buffs"`
	Holder    string `json:"holder"`
	Coords    string `json:"coords,omitempty"`
	ExpiresIn string `json:"expires_in"`
	HeldFor   string `json:"held_for,omitempty"`
}

// ScheduleEntry is one booked slot in a calendar projection.
type ScheduleEntry struct {
	IGN    string `json:"ign"`
	Coords string `json:"coords"`
}

// ScheduleWindow is the calendar for a span of days: the day and hour
// axes plus the bookings indexed both by title and by day/time.
type ScheduleWindow struct {
	Days  []string `json:"days"`
	Hours []string `json:"hours"`
	// ByTitle maps title -> slot key -> entry.
	ByTitle map[string]map[string]ScheduleEntry `json:"by_title"`
	// Lookup maps day -> "HH:MM" -> title -> entry.
	Lookup map[string]map[string]map[string]ScheduleEntry `json:"lookup"`
}

type cachedCards struct {
	cards []StatusCard
	at    time.Time
}

// Projector serves the read side. Status cards are cached briefly
// behind an LRU with singleflight so a burst of dashboard polls costs
// one database round trip.
type Projector struct {
	titles       repositories.TitleRepository
	reservations repositories.ReservationRepository
	shifts       repositories.ShiftRepository
	settings     repositories.SettingsRepository

	cache *lru.Cache
	group singleflight.Group

	now func() time.Time
}

func NewProjector(
	titles repositories.TitleRepository,
	reservations repositories.ReservationRepository,
	shifts repositories.ShiftRepository,
	settings repositories.SettingsRepository,
) *Projector {
	cache, _ := lru.New(statusCacheSize)
	return &Projector{
		titles:       titles,
		reservations: reservations,
		shifts:       shifts,
		settings:     settings,
		cache:        cache,
		now:          time.Now,
	}
}

// StatusCards returns one card per catalog title in catalog order.
func (p *Projector) StatusCards(ctx context.Context) ([]StatusCard, error) {
	if entry, ok := p.cache.Get(statusCacheKey); ok {
		cached := entry.(cachedCards)
		if p.now().Sub(cached.at) < statusCacheTTL {
			return cached.cards, nil
		}
	}

	result, err, _ := p.group.Do(statusCacheKey, func() (interface{}, error) {
		cards, err := p.buildStatusCards(ctx)
		if err != nil {
			return nil, err
		}
		p.cache.Add(statusCacheKey, cachedCards{cards: cards, at: p.now()})
		return cards, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]StatusCard), nil
}

func (p *Projector) buildStatusCards(ctx context.Context) ([]StatusCard, error) {
	allTitles, err := p.titles.All(ctx)
	if err != nil {
		return nil, err
	}
	shifts, err := p.shifts.All(ctx)
	if err != nil {
		return nil, err
	}

	byTitle := make(map[string]*models.TitleShift, len(shifts))
	for _, shift := range shifts {
		byTitle[shift.TitleName] = shift
	}

	now := p.now()
	cards := make([]StatusCard, 0, len(allTitles))
	for _, title := range allTitles {
		card := StatusCard{
			Name:      title.Name,
			Icon:      title.IconURL,
			Buffs:     title.Buffs,
			Holder:    VacantHolder,
			ExpiresIn: "—",
		}

		if shift := byTitle[title.Name]; shift != nil {
			card.Holder = shift.HolderIGN
			card.Coords = shift.HolderCoords

			if now.Before(shift.ClaimedAt) {
				card.HeldFor = "0m"
			} else {
				card.HeldFor = FormatDuration(now.Sub(shift.ClaimedAt))
			}

			switch {
			case title.Name == NonExpiringTitle:
				card.ExpiresIn = "Never"
			case shift.ExpiresAt == nil:
				card.ExpiresIn = "Does not expire"
			case !now.Before(*shift.ExpiresAt):
				card.ExpiresIn = "Expired"
			default:
				card.ExpiresIn = FormatDuration(shift.ExpiresAt.Sub(now))
			}
		}

		cards = append(cards, card)
	}
	return cards, nil
}

// Schedule builds the calendar window covering `days` days starting
// today (UTC). Bookings whose time-of-day is no longer on the current
// grid are filtered out rather than rendered into nonexistent columns.
func (p *Projector) Schedule(ctx context.Context, days int) (*ScheduleWindow, error) {
	if days <= 0 {
		days = 7
	}

	start := p.now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, days)

	hours := scheduling.Grid(p.settings.ShiftHours(ctx))
	hourSet := make(map[string]struct{}, len(hours))
	for _, h := range hours {
		hourSet[h] = struct{}{}
	}

	window := &ScheduleWindow{
		Hours:   hours,
		ByTitle: make(map[string]map[string]ScheduleEntry),
		Lookup:  make(map[string]map[string]map[string]ScheduleEntry),
	}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		window.Days = append(window.Days, day.Format("2006-01-02"))
	}

	reservations, err := p.reservations.Window(ctx, start, end)
	if err != nil {
		return nil, err
	}

	for _, reservation := range reservations {
		slot := scheduling.CanonicalSlot(reservation.SlotAt)
		hhmm := slot.Format("15:04")
		if _, ok := hourSet[hhmm]; !ok {
			// Booked under an older grid; not addressable anymore.
			continue
		}

		entry := ScheduleEntry{IGN: reservation.IGN, Coords: reservation.Coords}
		day := slot.Format("2006-01-02")

		if window.ByTitle[reservation.TitleName] == nil {
			window.ByTitle[reservation.TitleName] = make(map[string]ScheduleEntry)
		}
		window.ByTitle[reservation.TitleName][scheduling.SlotKey(slot)] = entry

		if window.Lookup[day] == nil {
			window.Lookup[day] = make(map[string]map[string]ScheduleEntry)
		}
		if window.Lookup[day][hhmm] == nil {
			window.Lookup[day][hhmm] = make(map[string]ScheduleEntry)
		}
		window.Lookup[day][hhmm][reservation.TitleName] = entry
	}

	return window, nil
}

// RequestableTitleNames lists the titles open for reservation, in
// catalog order.
func (p *Projector) RequestableTitleNames(ctx context.Context) ([]string, error) {
	return p.titles.RequestableNames(ctx)
}

// AllTitles lists the full catalog in catalog order.
func (p *Projector) AllTitles(ctx context.Context) ([]*models.Title, error) {
	return p.titles.All(ctx)
}
