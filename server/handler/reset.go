package handler

import (
	"github.com/gofiber/fiber/v2"
)

// PostReset forces a full server reset without waiting for the reset interval.
// Operator use only; the route should sit behind whatever auth fronts the server.
func PostReset(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := engine.ForceReset(); err != nil {
			return httpError(err)
		}
		return ctx.SendStatus(fiber.StatusOK)
	}
}
