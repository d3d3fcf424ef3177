package handler

import (
	"github.com/gofiber/fiber/v2"
)

type JoinQueueResponse struct {
	Position int `json:"position"`
}

// PostJoinQueue puts the session at the back of the join queue and reports
// its 1-based position.
func PostJoinQueue(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		position, err := engine.JoinQueue(ctx.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(JoinQueueResponse{Position: position})
	}
}
