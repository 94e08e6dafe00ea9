package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TitleShift is the currently active assignment of a title. At most one
// row per title; ExpiresAt nil means the shift never expires.
type TitleShift struct {
	bun.BaseModel `bun:"table:title_shifts,alias:ts"`

	ID           int64      `bun:"id,pk,autoincrement"`
	TitleName    string     `bun:"title_name,notnull,unique"`
	HolderIGN    string     `bun:"holder_ign,notnull"`
	HolderCoords string     `bun:"holder_coords,notnull,default:'-'"`
	ClaimedAt    time.Time  `bun:"claimed_at,notnull"`
	ExpiresAt    *time.Time `bun:"expires_at"`

	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired reports whether the shift has a deadline that now has passed.
func (s *TitleShift) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
