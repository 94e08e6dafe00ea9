// Backend serves the JSON API consumed by the alliance dashboard: the
// live title board, the reservation calendar, the public booking form
// and the PIN-gated admin operations. It runs alongside the bot process
// against the same database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/harmonyhold/titlewarden/backend/handlers"
	"github.com/harmonyhold/titlewarden/backend/middleware"
	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/database"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/logger"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/services"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "../config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := titlewarden.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler("Titlewarden-Backend", cfg.Log.Level)))
	slog.Info("Starting Titlewarden Backend API",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("type", "web"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig(cfg.DB))
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database connected successfully")

	titleRepo := repositories.NewTitleRepository(db.BunDB())
	reservationRepo := repositories.NewReservationRepository(db.BunDB())
	shiftRepo := repositories.NewShiftRepository(db.BunDB())
	settingsRepo := repositories.NewSettingsRepository(db.BunDB())
	requestLogRepo := repositories.NewRequestLogRepository(db.BunDB())

	// The backend has no gateway connection, so web-side events go out
	// through the reservation webhook only; channel announcements stay
	// with the bot process.
	var sink notifier.Sink = notifier.Discard{}
	var async *notifier.Async
	if cfg.Notify.WebhookURL != "" {
		wh, err := notifier.NewWebhook(cfg.Notify.WebhookURL, cfg.Bot.GuardianRoleID)
		if err != nil {
			slog.Error("Failed to configure reservation webhook", slog.Any("error", err))
			os.Exit(1)
		}
		async = notifier.NewAsync(wh, cfg.Notify.QueueSize)
		sink = async
	}

	engine := titles.NewEngine(titleRepo, reservationRepo, shiftRepo, settingsRepo, requestLogRepo, sink)
	projector := titles.NewProjector(titleRepo, reservationRepo, shiftRepo, settingsRepo)

	iconService := services.NewIconService(
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.IconRoot,
	)

	app := fiber.New(fiber.Config{
		AppName:      "Titlewarden Backend API",
		ServerHeader: "Titlewarden-Backend",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000,http://localhost:8080",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Admin-Pin",
	}))
	app.Use(middleware.LoggingMiddleware())

	webApp := &handlers.WebApp{
		DB:          db,
		Engine:      engine,
		Projector:   projector,
		IconService: iconService,
		RequestLog:  requestLogRepo,
		Version:     version,
		Commit:      commit,
	}

	setupRoutes(app, webApp, cfg.Web.AdminPIN)

	address := fmt.Sprintf(":%d", cfg.Web.Port)
	slog.Info("Starting backend server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	slog.Info("Shutting down backend server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	if async != nil {
		async.Close()
	}
	db.Close()

	slog.Info("Backend server shutdown complete")
}

// setupRoutes configures all application routes.
func setupRoutes(app *fiber.App, webApp *handlers.WebApp, adminPIN string) {
	app.Get("/health", handlers.HealthCheck(webApp))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Titlewarden Backend API",
			"version": webApp.Version,
			"status":  "running",
		})
	})

	api := app.Group("/api")
	api.Get("/titles", handlers.TitlesAPI(webApp))
	api.Get("/schedule", handlers.ScheduleAPI(webApp))
	api.Get("/shift-hours", handlers.ShiftHoursAPI(webApp))

	reservations := api.Group("/reservations")
	reservations.Post("/", middleware.ReservationRateLimit(), handlers.ReservationsCreate(webApp))
	reservations.Delete("/", handlers.ReservationsDelete(webApp))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminPIN(adminPIN))
	admin.Post("/release", middleware.AuditLogMiddleware("release"), handlers.AdminRelease(webApp))
	admin.Post("/assign", middleware.AuditLogMiddleware("assign"), handlers.AdminAssign(webApp))
	admin.Post("/slot", middleware.AuditLogMiddleware("slot-assign"), handlers.AdminSlot(webApp))
	admin.Put("/shift-hours", middleware.AuditLogMiddleware("shift-hours"), handlers.AdminShiftHours(webApp))
	admin.Get("/requests", handlers.RequestLogAPI(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("type", "web"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", middleware.GetIPAddress(c)),
		)
		return c.Status(404).JSON(fiber.Map{
			"error": "The requested endpoint does not exist",
		})
	})
}
