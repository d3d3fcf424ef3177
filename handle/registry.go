// Package handle enforces the one-to-one, no-reuse-within-epoch mapping between
// display handles and sessions. A handle stays bound to its session for the
// whole epoch, even after that session disconnects; only a full reset frees it.
package handle

import (
	"errors"
	"regexp"
)

const (
	minimumHandleLength = 3
	maximumHandleLength = 16
)

var (
	// Regexp syntax is described here: https://github.com/google/re2/wiki/Syntax
	handleRegexp = regexp.MustCompile("^[a-zA-Z0-9_]+$")

	ErrInvalidHandle = errors.New("invalid-handle")
	ErrHandleTaken   = errors.New("duplicate-handle")
	ErrAlreadyBound  = errors.New("session-already-has-handle")
)

// IsValidHandle checks that a string is a valid display handle: alphanumeric + underscore
func IsValidHandle(s string) bool {
	if length := len(s); length < minimumHandleLength || length > maximumHandleLength {
		return false
	}
	return handleRegexp.MatchString(s)
}

type Registry struct {
	byHandle  map[string]string
	bySession map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byHandle:  map[string]string{},
		bySession: map[string]string{},
	}
}

// Claim binds the handle to the session. The claim either registers both
// directions of the mapping or registers nothing; a failed claim leaves the
// registry exactly as it was.
func (r *Registry) Claim(sessionID, handle string) error {
	if !IsValidHandle(handle) {
		return ErrInvalidHandle
	}
	if _, ok := r.byHandle[handle]; ok {
		return ErrHandleTaken
	}
	if _, ok := r.bySession[sessionID]; ok {
		return ErrAlreadyBound
	}
	r.byHandle[handle] = sessionID
	r.bySession[sessionID] = handle
	return nil
}

func (r *Registry) SessionFor(handle string) (string, bool) {
	sessionID, ok := r.byHandle[handle]
	return sessionID, ok
}

func (r *Registry) HandleFor(sessionID string) (string, bool) {
	handle, ok := r.bySession[sessionID]
	return handle, ok
}

// Count reports how many handles have been issued this epoch. Handles are
// never released mid-epoch, so this only grows until Reset.
func (r *Registry) Count() int {
	return len(r.byHandle)
}

// Reset clears every mapping. Only the epoch reset may call this.
func (r *Registry) Reset() {
	r.byHandle = map[string]string{}
	r.bySession = map[string]string{}
}
