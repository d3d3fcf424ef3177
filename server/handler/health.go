package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/arena-engine/matchstage"
)

type HealthResponse struct {
	IsServerRunning bool             `json:"isServerRunning"`
	Phase           matchstage.Stage `json:"phase"`
}

// GetHealth reports liveness plus the current match-cycle phase.
func GetHealth(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		phase := engine.State().Phase
		return ctx.JSON(HealthResponse{
			IsServerRunning: phase != matchstage.Init && phase != matchstage.ShutDown,
			Phase:           phase,
		})
	}
}
