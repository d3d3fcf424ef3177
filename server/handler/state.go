package handler

import (
	"github.com/gofiber/fiber/v2"
)

// GetState serves a snapshot of the whole engine: current phase, countdowns,
// the running match if any, and queue positions.
func GetState(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(engine.State())
	}
}
