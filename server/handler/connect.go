package handler

import (
	"github.com/gofiber/fiber/v2"
)

type ConnectResponse struct {
	SessionID string `json:"sessionId"`
}

// PostConnect admits a new client and hands back its session ID.
//
// The connection reference defaults to the client's address; a gateway that
// multiplexes clients can pass its own reference instead.
func PostConnect(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		connRef := ctx.Query("connRef", ctx.IP())
		sessionID, err := engine.Connect(connRef)
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(ConnectResponse{SessionID: sessionID})
	}
}

// DeleteSession tears a session's connection down. The session's handle stays
// reserved for the rest of the epoch.
func DeleteSession(engine Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := engine.Disconnect(ctx.Params("id")); err != nil {
			return httpError(err)
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}
