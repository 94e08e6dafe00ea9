package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RequestLog is the audit trail of reservation requests, kept for the
// web dashboard's log page.
type RequestLog struct {
	bun.BaseModel `bun:"table:request_log,alias:rl"`

	ID        int64     `bun:"id,pk,autoincrement"`
	LoggedAt  time.Time `bun:"logged_at,notnull"`
	TitleName string    `bun:"title_name,notnull"`
	IGN       string    `bun:"ign,notnull"`
	Coords    string    `bun:"coords"`
	Actor     string    `bun:"actor"`
	Source    string    `bun:"source"`
}
