// Package flash wraps the cookie flash messages shown on the server-rendered pages.
package flash

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// Error redirects to path with an error message.
func Error(c *fiber.Ctx, path, message string) error {
	return flash.WithError(c, fiber.Map{"type": "error", "message": message}).Redirect(path)
}

// Success redirects to path with a success message.
func Success(c *fiber.Ctx, path, message string) error {
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": message}).Redirect(path)
}

// Get returns the pending flash message, nil when there is none.
func Get(c *fiber.Ctx) fiber.Map {
	return flash.Get(c)
}
