package migration

import "encoding/json"

// legacyState mirrors the JSON state file of the original Python
// deployment (titles_state.json).
type legacyState struct {
	Titles    map[string]legacyTitle          `json:"titles"`
	Config    legacyConfig                    `json:"config"`
	Schedules map[string]map[string]legacySlot `json:"schedules"`
	Activated map[string]map[string]bool      `json:"activated_slots"`
}

type legacyTitle struct {
	Holder     *legacyHolder `json:"holder"`
	ClaimDate  *string       `json:"claim_date"`
	ExpiryDate *string       `json:"expiry_date"`
}

type legacyHolder struct {
	Name      string `json:"name"`
	Coords    string `json:"coords"`
	DiscordID int64  `json:"discord_id"`
}

type legacyConfig struct {
	ShiftHours          int   `json:"shift_hours"`
	AnnouncementChannel int64 `json:"announcement_channel"`
}

// legacySlot tolerates both shapes the old file accumulated over time:
// a bare IGN string and the later {"ign": ..., "coords": ...} object.
type legacySlot struct {
	IGN    string
	Coords string
}

func (s *legacySlot) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.IGN = plain
		s.Coords = "-"
		return nil
	}

	var obj struct {
		IGN    string `json:"ign"`
		Coords string `json:"coords"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.IGN = obj.IGN
	s.Coords = obj.Coords
	if s.Coords == "" {
		s.Coords = "-"
	}
	return nil
}

// MigrationStats tracks per-table import counts.
type MigrationStats struct {
	ShiftsImported       int
	ReservationsImported int
	LogRowsImported      int
	Skipped              int
}
