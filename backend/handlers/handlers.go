// Package handlers implements the JSON API surface of the dashboard
// backend. Every mutation delegates to the same engine the bot uses, so
// the two surfaces can never disagree about validation.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/harmonyhold/titlewarden/titlewarden/database"
	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/services"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

const (
	slotTimeLayout = "2006-01-02 15:04"
	queryTimeout   = 10 * time.Second
)

// WebApp carries the shared dependencies for all route handlers.
type WebApp struct {
	DB          *database.DB
	Engine      *titles.Engine
	Projector   *titles.Projector
	IconService *services.IconService
	RequestLog  repositories.RequestLogRepository
	Version     string
	Commit      string
}

// HealthCheck reports process and database health.
func HealthCheck(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := app.DB.Ping(ctx); err != nil {
			dbStatus = "unreachable"
		}

		status := fiber.StatusOK
		if dbStatus != "ok" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(fiber.Map{
			"status":   dbStatus,
			"version":  app.Version,
			"commit":   app.Commit,
			"database": dbStatus,
		})
	}
}

// TitlesAPI returns the live status card for every catalog title.
func TitlesAPI(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		cards, err := app.Projector.StatusCards(ctx)
		if err != nil {
			return internalError(c, "failed to load title status")
		}

		for i := range cards {
			cards[i].Icon = app.IconService.IconURL(cards[i].Icon)
		}

		return c.JSON(fiber.Map{"titles": cards})
	}
}

// ScheduleAPI returns the reservation calendar for the coming days.
func ScheduleAPI(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		days := c.QueryInt("days", 7)
		if days < 1 || days > 30 {
			return badRequest(c, "days must be between 1 and 30")
		}

		window, err := app.Projector.Schedule(ctx, days)
		if err != nil {
			return internalError(c, "failed to load schedule")
		}

		return c.JSON(fiber.Map{
			"days":     window.Days,
			"hours":    window.Hours,
			"by_title": window.ByTitle,
		})
	}
}

// ShiftHoursAPI returns the configured shift length.
func ShiftHoursAPI(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		hours := app.Engine.ShiftHours(ctx)
		return c.JSON(fiber.Map{"shift_hours": hours})
	}
}

type reservationRequest struct {
	Title  string `json:"title"`
	IGN    string `json:"ign"`
	Coords string `json:"coords"`
	SlotAt string `json:"slot_at"`
}

// ReservationsCreate books a slot from the public web form.
func ReservationsCreate(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req reservationRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Title == "" || req.IGN == "" || req.SlotAt == "" {
			return badRequest(c, "title, ign and slot_at are required")
		}

		slotAt, err := time.ParseInLocation(slotTimeLayout, req.SlotAt, time.UTC)
		if err != nil {
			return badRequest(c, "slot_at must look like 2006-01-02 15:04 (UTC)")
		}

		reservation, err := app.Engine.Reserve(ctx, titles.ReserveRequest{
			Title:   req.Title,
			IGN:     req.IGN,
			Coords:  req.Coords,
			StartAt: slotAt,
			Source:  "Web Form",
			Actor:   req.IGN,
		})
		if err != nil {
			return engineError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"title":   reservation.TitleName,
			"ign":     reservation.IGN,
			"coords":  reservation.Coords,
			"slot_at": reservation.SlotAt.UTC().Format(slotTimeLayout),
		})
	}
}

type cancelRequest struct {
	Title  string `json:"title"`
	SlotAt string `json:"slot_at"`
}

// ReservationsDelete cancels a future booking.
func ReservationsDelete(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req cancelRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		slotAt, err := time.ParseInLocation(slotTimeLayout, req.SlotAt, time.UTC)
		if err != nil {
			return badRequest(c, "slot_at must look like 2006-01-02 15:04 (UTC)")
		}

		removed, err := app.Engine.Cancel(ctx, titles.CancelRequest{
			Title:   req.Title,
			StartAt: slotAt,
			Actor:   "web",
		})
		if err != nil {
			return engineError(c, err)
		}
		if !removed {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no reservation found for that slot",
			})
		}

		return c.JSON(fiber.Map{"removed": true})
	}
}

// RequestLogAPI returns the most recent reservation requests for the
// admin log page.
func RequestLogAPI(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			return badRequest(c, "limit must be between 1 and 1000")
		}

		rows, err := app.RequestLog.Recent(ctx, limit)
		if err != nil {
			return internalError(c, "failed to load request log")
		}

		entries := make([]fiber.Map, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, fiber.Map{
				"logged_at": row.LoggedAt.UTC().Format(slotTimeLayout),
				"title":     row.TitleName,
				"ign":       row.IGN,
				"coords":    row.Coords,
				"actor":     row.Actor,
				"source":    row.Source,
			})
		}
		return c.JSON(fiber.Map{"requests": entries})
	}
}

type adminReleaseRequest struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// AdminRelease vacates a title immediately.
func AdminRelease(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req adminReleaseRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Title == "" {
			return badRequest(c, "title is required")
		}
		if req.Reason == "" {
			req.Reason = "Released by admin."
		}

		released, err := app.Engine.Release(ctx, req.Title, req.Reason, "admin")
		if err != nil {
			return engineError(c, err)
		}

		return c.JSON(fiber.Map{"released": released})
	}
}

type adminAssignRequest struct {
	Title     string `json:"title"`
	IGN       string `json:"ign"`
	Coords    string `json:"coords"`
	Hours     int    `json:"hours"`
	Permanent bool   `json:"permanent"`
}

// AdminAssign installs a holder immediately, bypassing the slot grid.
func AdminAssign(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req adminAssignRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Title == "" || req.IGN == "" {
			return badRequest(c, "title and ign are required")
		}

		shift, err := app.Engine.Assign(ctx, titles.AssignRequest{
			Title:     req.Title,
			IGN:       req.IGN,
			Coords:    req.Coords,
			Hours:     req.Hours,
			Permanent: req.Permanent,
			Actor:     "admin",
			Source:    "Web Admin",
		})
		if err != nil {
			return engineError(c, err)
		}

		return c.JSON(shiftResponse(shift))
	}
}

type adminSlotRequest struct {
	Title  string `json:"title"`
	IGN    string `json:"ign"`
	SlotAt string `json:"slot_at"`
}

// AdminSlot installs a holder as if their reserved slot had just
// activated, with the expiry anchored to the slot start.
func AdminSlot(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req adminSlotRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Title == "" || req.IGN == "" {
			return badRequest(c, "title and ign are required")
		}

		slotAt, err := time.ParseInLocation(slotTimeLayout, req.SlotAt, time.UTC)
		if err != nil {
			return badRequest(c, "slot_at must look like 2006-01-02 15:04 (UTC)")
		}

		shift, err := app.Engine.AssignSlot(ctx, req.Title, req.IGN, slotAt, "admin")
		if err != nil {
			return engineError(c, err)
		}

		return c.JSON(shiftResponse(shift))
	}
}

type shiftHoursRequest struct {
	Hours int `json:"hours"`
}

// AdminShiftHours reconfigures the shift length and therefore the
// slot grid.
func AdminShiftHours(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
		defer cancel()

		var req shiftHoursRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		if err := app.Engine.SetShiftHours(ctx, req.Hours); err != nil {
			return engineError(c, err)
		}

		return c.JSON(fiber.Map{"shift_hours": req.Hours})
	}
}

func shiftResponse(shift *models.TitleShift) fiber.Map {
	resp := fiber.Map{
		"title":      shift.TitleName,
		"ign":        shift.HolderIGN,
		"coords":     shift.HolderCoords,
		"claimed_at": shift.ClaimedAt.UTC().Format(slotTimeLayout),
	}
	if shift.ExpiresAt != nil {
		resp["expires_at"] = shift.ExpiresAt.UTC().Format(slotTimeLayout)
	}
	return resp
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func internalError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

// engineError maps engine failures onto HTTP statuses, surfacing the
// validation message verbatim so the form can show it.
func engineError(c *fiber.Ctx, err error) error {
	var slotTaken *titles.SlotTakenError
	var invalidSlot *titles.InvalidSlotError

	switch {
	case errors.As(err, &slotTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": slotTaken.Error()})
	case errors.As(err, &invalidSlot),
		errors.Is(err, titles.ErrPastTime),
		errors.Is(err, titles.ErrInvalidCoordinates),
		errors.Is(err, titles.ErrNotRequestable),
		errors.Is(err, titles.ErrAlreadyStarted),
		errors.Is(err, titles.ErrInvalidShiftHours),
		errors.Is(err, titles.ErrSlotNotAllowed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, titles.ErrUnknownTitle):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return internalError(c, "internal error")
	}
}
