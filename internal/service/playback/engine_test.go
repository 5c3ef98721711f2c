package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	writes   []domain.RoomState
	failNext bool
}

func (s *fakeStore) Write(_ context.Context, _ string, state domain.RoomState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return errors.New("store unreachable")
	}

	s.writes = append(s.writes, state)
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.writes)
}

func (s *fakeStore) lastWrite() domain.RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes[len(s.writes)-1]
}

func (s *fakeStore) writeAt(i int) domain.RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes[i]
}

type fakePlayer struct {
	mu       sync.Mutex
	loads    []string
	seeks    []float64
	plays    []bool
	notices  []Notice
	position float64
	playing  bool
}

func (p *fakePlayer) Load(videoID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loads = append(p.loads, videoID)
	p.position = 0
	p.playing = false
}

func (p *fakePlayer) SeekTo(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seeks = append(p.seeks, seconds)
	p.position = seconds
}

func (p *fakePlayer) SetPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.plays = append(p.plays, playing)
	p.playing = playing
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.position
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.playing
}

func (p *fakePlayer) Notify(notice Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notices = append(p.notices, notice)
}

func (p *fakePlayer) commandCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.loads) + len(p.seeks) + len(p.plays)
}

type role bool

func (r role) IsHost() bool { return bool(r) }

const (
	asHost   role = true
	asViewer role = false
)

var testCfg = Config{
	ProgressDebounce: 40 * time.Millisecond,
	WriteCooldown:    20 * time.Millisecond,
	SeekTolerance:    2 * time.Second,
}

func newTestEngine(t *testing.T, r role) (*Engine, *fakeStore, *fakePlayer) {
	t.Helper()

	store := &fakeStore{}
	player := &fakePlayer{}
	engine := NewEngine(store, player, r, "abc123", testCfg, slog.Default())
	t.Cleanup(engine.Stop)

	return engine, store, player
}

func strPtr(s string) *string   { return &s }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestSubmitIntentRejectsViewer(t *testing.T) {
	engine, store, player := newTestEngine(t, asViewer)

	err := engine.SubmitIntent(context.Background(), Intent{IsPlaying: boolPtr(true)})
	require.ErrorIs(t, err, ErrNotHost)

	assert.Equal(t, 0, store.writeCount(), "no write may reach the store")
	require.Len(t, player.notices, 1)
	assert.Equal(t, NoticeError, player.notices[0].Level)
	assert.Contains(t, player.notices[0].Message, "only the host")
}

func TestVideoSwitchResetsPlayhead(t *testing.T) {
	engine, store, _ := newTestEngine(t, asHost)
	ctx := context.Background()

	engine.ApplyRemote(ctx, domain.RoomState{
		VideoID:     "aaaaaaaaaaa",
		IsPlaying:   true,
		CurrentTime: 120,
		LastUpdate:  1000,
	})

	err := engine.SubmitIntent(ctx, Intent{VideoID: strPtr("dQw4w9WgXcQ")})
	require.NoError(t, err)

	require.Equal(t, 1, store.writeCount())
	written := store.lastWrite()
	assert.Equal(t, "dQw4w9WgXcQ", written.VideoID)
	assert.Equal(t, float64(0), written.CurrentTime, "playhead must reset with the video")
	assert.False(t, written.IsPlaying, "playback must pause with the video")
	assert.Greater(t, written.LastUpdate, int64(1000))
}

func TestProgressWritesCoalesce(t *testing.T) {
	engine, store, _ := newTestEngine(t, asHost)
	ctx := context.Background()

	require.NoError(t, engine.SubmitIntent(ctx, Intent{CurrentTime: f64Ptr(10)}))
	require.NoError(t, engine.SubmitIntent(ctx, Intent{CurrentTime: f64Ptr(11)}))
	require.NoError(t, engine.SubmitIntent(ctx, Intent{CurrentTime: f64Ptr(12)}))

	assert.Equal(t, 0, store.writeCount(), "nothing may be written inside the window")

	require.Eventually(t, func() bool {
		return store.writeCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, float64(12), store.lastWrite().CurrentTime, "only the latest value may be sent")

	time.Sleep(3 * testCfg.ProgressDebounce)
	assert.Equal(t, 1, store.writeCount(), "the window must produce exactly one write")
}

func TestProgressWaitsOutWriteCooldown(t *testing.T) {
	cfg := Config{
		ProgressDebounce: 20 * time.Millisecond,
		WriteCooldown:    150 * time.Millisecond,
		SeekTolerance:    2 * time.Second,
	}
	store := &fakeStore{}
	engine := NewEngine(store, &fakePlayer{}, asHost, "abc123", cfg, slog.Default())
	t.Cleanup(engine.Stop)
	ctx := context.Background()

	require.NoError(t, engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)}))
	require.Equal(t, 1, store.writeCount())

	// the play command's event cascade reports a playhead right away
	require.NoError(t, engine.SubmitIntent(ctx, Intent{CurrentTime: f64Ptr(30)}))

	time.Sleep(3 * cfg.ProgressDebounce)
	assert.Equal(t, 1, store.writeCount(), "progress after an immediate write must wait out the cooldown")

	require.Eventually(t, func() bool {
		return store.writeCount() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(30), store.lastWrite().CurrentTime)
}

func TestOwnEchoIsIgnored(t *testing.T) {
	engine, store, player := newTestEngine(t, asHost)
	ctx := context.Background()

	require.NoError(t, engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)}))
	require.Equal(t, 1, store.writeCount())

	// the store notifying us of our own write
	engine.ApplyRemote(ctx, store.lastWrite())

	assert.Equal(t, 0, player.commandCount(), "echo must not produce player commands")
	assert.Equal(t, 1, store.writeCount(), "echo must not produce another write")
}

func TestStaleEchoIsIgnored(t *testing.T) {
	engine, store, player := newTestEngine(t, asHost)
	ctx := context.Background()

	require.NoError(t, engine.SubmitIntent(ctx, Intent{VideoID: strPtr("aaaaaaaaaaa")}))
	require.NoError(t, engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)}))
	require.Equal(t, 2, store.writeCount())

	// the first write's fan-out arriving after the second already applied
	engine.ApplyRemote(ctx, store.writeAt(0))

	assert.Equal(t, 0, player.commandCount(), "an old self-echo must not command the player")
	assert.Equal(t, store.writeAt(1), engine.Known(), "an old self-echo must not regress the known record")
	assert.False(t, engine.Suppressed(), "an old self-echo must not open a suppression window")
}

func TestReapplySameSnapshotIsIdempotent(t *testing.T) {
	engine, _, player := newTestEngine(t, asViewer)
	ctx := context.Background()

	snapshot := domain.RoomState{
		VideoID:     "dQw4w9WgXcQ",
		IsPlaying:   true,
		CurrentTime: 50,
		LastUpdate:  1000,
	}

	engine.ApplyRemote(ctx, snapshot)
	first := player.commandCount()
	assert.Greater(t, first, 0, "first application must command the player")

	engine.ApplyRemote(ctx, snapshot)
	assert.Equal(t, first, player.commandCount(), "second application must be a no-op")
}

func TestSeekToleranceDeadZone(t *testing.T) {
	engine, _, player := newTestEngine(t, asViewer)
	ctx := context.Background()

	player.position = 100

	engine.ApplyRemote(ctx, domain.RoomState{CurrentTime: 101.5, LastUpdate: 1000})
	assert.Empty(t, player.seeks, "drift within tolerance must not seek")

	engine.ApplyRemote(ctx, domain.RoomState{CurrentTime: 103.1, LastUpdate: 1001})
	require.Len(t, player.seeks, 1, "drift beyond tolerance must seek")
	assert.Equal(t, 103.1, player.seeks[0], "seek must target the exact remote playhead")
}

func TestRemotePlayStateApplies(t *testing.T) {
	engine, _, player := newTestEngine(t, asViewer)
	ctx := context.Background()

	engine.ApplyRemote(ctx, domain.RoomState{IsPlaying: true, LastUpdate: 1000})
	require.Equal(t, []bool{true}, player.plays)

	engine.ApplyRemote(ctx, domain.RoomState{IsPlaying: true, LastUpdate: 1001})
	assert.Len(t, player.plays, 1, "matching play state must not re-command")

	engine.ApplyRemote(ctx, domain.RoomState{IsPlaying: false, LastUpdate: 1002})
	assert.Equal(t, []bool{true, false}, player.plays)
}

func TestFailedWriteKeepsMarker(t *testing.T) {
	engine, store, player := newTestEngine(t, asHost)
	ctx := context.Background()

	initial := domain.RoomState{VideoID: "aaaaaaaaaaa", LastUpdate: 1000}
	engine.ApplyRemote(ctx, initial)

	store.failNext = true
	err := engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)})
	require.Error(t, err)
	assert.Equal(t, initial, engine.Known(), "failed write must not advance local state")

	var failureNotices int
	for _, n := range player.notices {
		if n.Level == NoticeError {
			failureNotices++
		}
	}
	assert.Equal(t, 1, failureNotices)

	// a later remote update overrides the failed local intent
	next := domain.RoomState{VideoID: "aaaaaaaaaaa", IsPlaying: true, LastUpdate: 2000}
	engine.ApplyRemote(ctx, next)
	assert.Equal(t, next, engine.Known())
	assert.Equal(t, []bool{true}, player.plays)
}

func TestRedundantToggleIsAbsorbed(t *testing.T) {
	engine, store, _ := newTestEngine(t, asHost)
	ctx := context.Background()

	engine.ApplyRemote(ctx, domain.RoomState{VideoID: "aaaaaaaaaaa", LastUpdate: 1000})

	require.NoError(t, engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)}))
	require.Equal(t, 1, store.writeCount())

	// widget echoing the state it was just put in
	require.NoError(t, engine.SubmitIntent(ctx, Intent{IsPlaying: boolPtr(true)}))
	assert.Equal(t, 1, store.writeCount(), "no-change intent must not write")
}

func TestSuppressionWindowExpires(t *testing.T) {
	engine, _, _ := newTestEngine(t, asViewer)

	current := time.UnixMilli(1_000_000)
	engine.now = func() time.Time { return current }

	engine.ApplyRemote(context.Background(), domain.RoomState{IsPlaying: true, LastUpdate: 1000})
	assert.True(t, engine.Suppressed())

	current = current.Add(testCfg.WriteCooldown + time.Millisecond)
	assert.False(t, engine.Suppressed(), "suppression must self-expire")
}
