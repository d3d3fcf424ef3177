package handle

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestClaimRegistersBothDirections(t *testing.T) {
	r := NewRegistry()
	assert.NilError(t, r.Claim("session-a", "Ace"))

	sessionID, ok := r.SessionFor("Ace")
	assert.Check(t, ok)
	assert.Equal(t, "session-a", sessionID)

	h, ok := r.HandleFor("session-a")
	assert.Check(t, ok)
	assert.Equal(t, "Ace", h)
	assert.Equal(t, 1, r.Count())
}

func TestClaimDuplicateHandleFails(t *testing.T) {
	r := NewRegistry()
	assert.NilError(t, r.Claim("session-a", "Ace"))

	err := r.Claim("session-b", "Ace")
	assert.ErrorIs(t, err, ErrHandleTaken)

	// The failed claim must leave the registry untouched.
	_, ok := r.HandleFor("session-b")
	assert.Check(t, !ok)
	assert.Equal(t, 1, r.Count())
}

func TestClaimSecondHandleForSameSessionFails(t *testing.T) {
	r := NewRegistry()
	assert.NilError(t, r.Claim("session-a", "Ace"))
	assert.ErrorIs(t, r.Claim("session-a", "Deuce"), ErrAlreadyBound)

	h, _ := r.HandleFor("session-a")
	assert.Equal(t, "Ace", h)
}

func TestClaimValidatesShapeBeforeUniqueness(t *testing.T) {
	r := NewRegistry()
	for _, bad := range []string{"", "ab", "this_handle_is_way_too_long", "no spaces", "bad!chars", "émile"} {
		assert.ErrorIs(t, r.Claim("session-a", bad), ErrInvalidHandle)
	}
	assert.Equal(t, 0, r.Count())

	assert.NilError(t, r.Claim("session-a", "ok_1"))
}

func TestHandleSurvivesOwnerDisconnect(t *testing.T) {
	// The registry has no notion of disconnect on purpose: nothing short of
	// Reset removes a mapping, so a handle can never be re-issued within an
	// epoch no matter what happens to its owner.
	r := NewRegistry()
	assert.NilError(t, r.Claim("session-a", "Ace"))
	assert.ErrorIs(t, r.Claim("session-b", "Ace"), ErrHandleTaken)
}

func TestResetClearsEverything(t *testing.T) {
	r := NewRegistry()
	assert.NilError(t, r.Claim("session-a", "Ace"))
	assert.NilError(t, r.Claim("session-b", "Deuce"))

	r.Reset()
	assert.Equal(t, 0, r.Count())

	// A new epoch may re-issue old handles.
	assert.NilError(t, r.Claim("session-c", "Ace"))
}
