package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const pinHeader = "X-Admin-Pin"

// AdminPIN gates the admin routes behind a shared PIN, compared in
// constant time. An empty configured PIN disables the admin surface
// entirely rather than leaving it open.
func AdminPIN(pin string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pin == "" {
			slog.Warn("Admin route hit with no PIN configured",
				slog.String("path", c.Path()),
				slog.String("ip", GetIPAddress(c)))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access is not configured",
			})
		}

		provided := c.Get(pinHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(pin)) != 1 {
			slog.Warn("Admin PIN rejected",
				slog.String("path", c.Path()),
				slog.String("ip", GetIPAddress(c)))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin PIN",
			})
		}

		return c.Next()
	}
}

// GetIPAddress extracts the client IP address, honoring proxy headers.
func GetIPAddress(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := c.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return c.IP()
}
