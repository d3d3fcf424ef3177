package handler

import (
	"github.com/gofiber/fiber/v2"
)

type ClaimHandleRequest struct {
	Handle string `json:"handle"`
}

type ClaimHandleResponse struct {
	Handle string `json:"handle"`
}

// PostClaimHandle binds a display handle to the session for the whole epoch.
func PostClaimHandle(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		req := new(ClaimHandleRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "request body must be valid json")
		}
		if err := engine.ClaimHandle(ctx.Params("id"), req.Handle); err != nil {
			return httpError(err)
		}
		return ctx.JSON(ClaimHandleResponse{Handle: req.Handle})
	}
}
