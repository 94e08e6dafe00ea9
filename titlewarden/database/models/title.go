package models

import (
	"github.com/uptrace/bun"
)

type Title struct {
	bun.BaseModel `bun:"table:titles,alias:t"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull,unique"`
	IconURL     string `bun:"icon_url"`
	Buffs       string `bun:"buffs"`
	Requestable bool   `bun:"requestable,notnull,default:true"`
}
