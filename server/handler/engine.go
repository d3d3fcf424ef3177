// Package handler implements the HTTP handlers for the arena server. Each
// handler is a thin adapter: decode the request, call the engine, map the
// engine's sentinel errors onto HTTP statuses.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	arena "pkg.world.dev/arena-engine"
	"pkg.world.dev/arena-engine/handle"
	"pkg.world.dev/arena-engine/queue"
)

// Engine is the slice of the match-cycle engine the handlers need.
type Engine interface {
	Connect(connRef string) (string, error)
	ClaimHandle(sessionID, handle string) error
	JoinQueue(sessionID string) (int, error)
	Disconnect(sessionID string) error
	SubmitMatchResult(matchID string, results []arena.PlayerResult) error
	ForceReset() error
	State() arena.Snapshot
}

// httpError maps an engine error to a fiber error with the right status. The
// engine's sentinel message (e.g. "duplicate-handle") becomes the response
// body so clients can branch on it.
func httpError(err error) error {
	switch {
	case errors.Is(err, handle.ErrInvalidHandle):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, arena.ErrUnknownSession),
		errors.Is(err, arena.ErrUnknownMatch):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, handle.ErrHandleTaken),
		errors.Is(err, handle.ErrAlreadyBound),
		errors.Is(err, queue.ErrAlreadyQueued):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, queue.ErrNoHandle),
		errors.Is(err, queue.ErrNotEligible):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, arena.ErrCapacityExceeded),
		errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, arena.ErrNotRunning):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
