package inmemory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/session"
)

func TestSetGetRemove(t *testing.T) {
	r := NewRepo(time.Hour)

	s := session.Session{Token: "tok-1", RoomID: "abc123", Host: true}
	require.NoError(t, r.Set(s), "set session")

	got, err := r.Get("tok-1")
	require.NoError(t, err, "get session")
	assert.Equal(t, s, got, "stored session")

	require.NoError(t, r.Remove("tok-1"), "remove session")

	_, err = r.Get("tok-1")
	assert.ErrorIs(t, err, session.ErrNotFound, "removed session is gone")
}

func TestSetDuplicateToken(t *testing.T) {
	r := NewRepo(time.Hour)

	s := session.Session{Token: "tok-1", RoomID: "abc123"}
	require.NoError(t, r.Set(s), "first set")
	assert.ErrorIs(t, r.Set(s), session.ErrAlreadyExists, "duplicate token rejected")
}

func TestRemoveNotFound(t *testing.T) {
	r := NewRepo(time.Hour)

	assert.ErrorIs(t, r.Remove("missing"), session.ErrNotFound)
}

func TestViewerSessionExpires(t *testing.T) {
	r := NewRepo(time.Hour)
	current := time.Now()
	r.now = func() time.Time { return current }

	require.NoError(t, r.Set(session.Session{Token: "viewer", RoomID: "abc123"}))
	require.NoError(t, r.Set(session.Session{Token: "host", RoomID: "abc123", Host: true}))

	current = current.Add(2 * time.Hour)

	_, err := r.Get("viewer")
	assert.ErrorIs(t, err, session.ErrNotFound, "idle viewer session must expire")

	_, err = r.Get("host")
	assert.NoError(t, err, "host session must survive for resume")
}

func TestViewerSessionRefreshedOnUse(t *testing.T) {
	r := NewRepo(time.Hour)
	current := time.Now()
	r.now = func() time.Time { return current }

	require.NoError(t, r.Set(session.Session{Token: "viewer", RoomID: "abc123"}))

	current = current.Add(45 * time.Minute)
	_, err := r.Get("viewer")
	require.NoError(t, err)

	// another 45 minutes would have exceeded the original deadline
	current = current.Add(45 * time.Minute)
	_, err = r.Get("viewer")
	assert.NoError(t, err, "use must slide the expiry forward")
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	r := NewRepo(time.Hour)
	current := time.Now()
	r.now = func() time.Time { return current }

	require.NoError(t, r.Set(session.Session{Token: "viewer", RoomID: "abc123"}))
	current = current.Add(2 * time.Hour)

	// any write visits the map; the stale entry must be gone afterwards
	require.NoError(t, r.Set(session.Session{Token: "other", RoomID: "abc123"}))

	r.mu.Lock()
	_, ok := r.sessions["viewer"]
	r.mu.Unlock()
	assert.False(t, ok, "expired entries must not accumulate")
}
