package models

import (
	"github.com/uptrace/bun"
)

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

const (
	// SettingShiftHours stores the shift duration as a decimal string.
	SettingShiftHours = "shift_hours"

	DefaultShiftHours = 12
	MinShiftHours     = 1
	MaxShiftHours     = 72
)
