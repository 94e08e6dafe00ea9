// Package titles holds the reservation engine, the activation
// scheduler, and the read-side projections for the title rotation.
package titles

import (
	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
)

// NonExpiringTitle is held indefinitely once assigned and is never
// open for reservation.
const NonExpiringTitle = "Guardian of Harmony"

// DefaultCatalog is the static title catalog seeded at bootstrap.
// Order matters: every list surface renders titles in catalog order.
func DefaultCatalog() []*models.Title {
	return []*models.Title{
		{
			Name:        NonExpiringTitle,
			IconURL:     "/static/icons/guardian_harmony.png",
			Buffs:       "All benders' ATK +5%, All benders' DEF +5%, All Benders' recruiting speed +15%",
			Requestable: false,
		},
		{
			Name:        "Guardian of Fire",
			IconURL:     "/static/icons/guardian_fire.png",
			Buffs:       "All benders' ATK +5%, All benders' DEF +5%",
			Requestable: true,
		},
		{
			Name:        "Guardian of Water",
			IconURL:     "/static/icons/guardian_water.png",
			Buffs:       "All Benders' recruiting speed +15%",
			Requestable: true,
		},
		{
			Name:        "Guardian of Earth",
			IconURL:     "/static/icons/guardian_earth.png",
			Buffs:       "Construction Speed +10%, Research Speed +10%",
			Requestable: true,
		},
		{
			Name:        "Guardian of Air",
			IconURL:     "/static/icons/guardian_air.png",
			Buffs:       "All Resource Gathering Speed +20%, All Resource Production +20%",
			Requestable: true,
		},
		{
			Name:        "Architect",
			IconURL:     "/static/icons/architect.png",
			Buffs:       "Construction Speed +10%",
			Requestable: true,
		},
		{
			Name:        "General",
			IconURL:     "/static/icons/general.png",
			Buffs:       "All benders' ATK +5%",
			Requestable: true,
		},
		{
			Name:        "Governor",
			IconURL:     "/static/icons/governor.png",
			Buffs:       "All Benders' recruiting speed +10%",
			Requestable: true,
		},
		{
			Name:        "Prefect",
			IconURL:     "/static/icons/prefect.png",
			Buffs:       "Research Speed +10%",
			Requestable: true,
		},
	}
}
