package handler

import (
	"github.com/gofiber/fiber/v2"

	arena "pkg.world.dev/arena-engine"
)

type MatchResultRequest struct {
	MatchID string               `json:"matchId"`
	Results []arena.PlayerResult `json:"results"`
}

// PostMatchResult ends the running match early with the submitted standings.
// Only the match that is actually in progress is accepted; a stale ID gets a 404.
func PostMatchResult(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		req := new(MatchResultRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "request body must be valid json")
		}
		if req.MatchID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "matchId is required")
		}
		for _, r := range req.Results {
			if r.SessionID == "" || r.Rank < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "each result needs a sessionId and a positive rank")
			}
		}
		if err := engine.SubmitMatchResult(req.MatchID, req.Results); err != nil {
			return httpError(err)
		}
		return ctx.SendStatus(fiber.StatusOK)
	}
}
