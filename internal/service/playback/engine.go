package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/watchroom/server/internal/domain"
)

type iRecordStore interface {
	Write(ctx context.Context, roomID string, state domain.RoomState) error
}

// iPlayer is the engine's view of the local player: imperative controls,
// the player's actual state, and a sink for user-visible notices.
type iPlayer interface {
	Load(videoID string)
	SeekTo(seconds float64)
	SetPlaying(playing bool)
	Position() float64
	Playing() bool
	Notify(notice Notice)
}

type iRole interface {
	IsHost() bool
}

// Engine reconciles the local player with the shared room record. It decides
// when a local intent becomes a store write and when a remote snapshot
// becomes player commands, and it keeps the two from feeding back into each
// other: every write stamps a fresh logical clock value which the engine
// remembers, so the store's echo of its own write is recognized and dropped.
type Engine struct {
	store  iRecordStore
	player iPlayer
	role   iRole
	roomID string
	cfg    Config
	logger *slog.Logger

	mu              sync.Mutex
	known           domain.RoomState
	lastApplied     int64
	suppressedUntil time.Time
	lastWriteAt     time.Time
	pendingTime     *float64
	debounce        *time.Timer

	now func() time.Time
}

func NewEngine(store iRecordStore, player iPlayer, role iRole, roomID string, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		player: player,
		role:   role,
		roomID: roomID,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// SubmitIntent merges a partial update over the last known record and writes
// it. Non-hosts are rejected before anything touches the store. Playhead-only
// intents are debounced: at most one write per window, latest value wins.
// Anything else writes immediately.
func (e *Engine) SubmitIntent(ctx context.Context, intent Intent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.role.IsHost() {
		e.player.Notify(Notice{Level: NoticeError, Message: "only the host can control playback"})
		return ErrNotHost
	}

	if intent.VideoID == nil && intent.IsPlaying == nil && intent.CurrentTime == nil {
		return ErrEmptyIntent
	}

	if intent.VideoID == nil && intent.IsPlaying == nil {
		e.scheduleProgressWrite(*intent.CurrentTime)
		return nil
	}

	next := e.merge(intent)
	if next.Same(e.known) && e.lastApplied != 0 {
		// player-event cascade; the record already says this
		return nil
	}

	if err := e.write(ctx, next); err != nil {
		return err
	}

	return nil
}

// ApplyRemote brings the local player in line with a snapshot observed from
// the store. The engine's own echo (a logical clock value at or behind the
// one it last wrote or applied) is ignored. Commands issued here open a
// suppression window so
// that the player callbacks they trigger are not misread as new local intent.
func (e *Engine) ApplyRemote(ctx context.Context, state domain.RoomState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if state.LastUpdate <= e.lastApplied {
		// our own echo, or a stale one overtaken by a newer write
		if state.LastUpdate == e.lastApplied {
			e.known = state
		}
		return
	}

	e.logger.DebugContext(ctx, "applying remote state",
		"roomID", e.roomID,
		"lastUpdate", state.LastUpdate,
		"videoID", state.VideoID,
	)

	e.suppressedUntil = e.now().Add(e.cfg.WriteCooldown)

	if state.VideoID != e.known.VideoID {
		e.player.Load(state.VideoID)
	}

	if math.Abs(state.CurrentTime-e.player.Position()) > e.cfg.SeekTolerance.Seconds() {
		e.player.SeekTo(state.CurrentTime)
	}

	if state.IsPlaying != e.player.Playing() {
		e.player.SetPlaying(state.IsPlaying)
	}

	e.known = state
	e.lastApplied = state.LastUpdate
}

// Suppressed reports whether a remote-triggered player change was applied
// recently enough that player callbacks should not be treated as intent.
func (e *Engine) Suppressed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now().Before(e.suppressedUntil)
}

// Known returns the last room record the engine has seen.
func (e *Engine) Known() domain.RoomState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.known
}

// Stop releases the pending debounce timer, dropping any unsent playhead
// update.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
	e.pendingTime = nil
}

func (e *Engine) merge(intent Intent) domain.RoomState {
	next := e.known

	if intent.VideoID != nil && *intent.VideoID != next.VideoID {
		// switching media invalidates the playhead: the reset rides in
		// the same write so no observer sees the new video paired with
		// a stale position
		next.VideoID = *intent.VideoID
		next.CurrentTime = 0
		next.IsPlaying = false
		return next
	}

	if intent.IsPlaying != nil {
		next.IsPlaying = *intent.IsPlaying
	}
	if intent.CurrentTime != nil {
		next.CurrentTime = *intent.CurrentTime
	}

	return next
}

// write stamps the next logical clock value and moves the last-applied
// marker before the store call, so the write's own echo is already
// recognized whenever it arrives. A failed write rolls the marker back and
// surfaces a notice; the next remote snapshot is then authoritative.
func (e *Engine) write(ctx context.Context, next domain.RoomState) error {
	next.LastUpdate = e.stamp()
	next.HostSeen = next.LastUpdate

	prevKnown, prevApplied := e.known, e.lastApplied
	e.known = next
	e.lastApplied = next.LastUpdate

	if err := e.store.Write(ctx, e.roomID, next); err != nil {
		e.known, e.lastApplied = prevKnown, prevApplied
		e.logger.ErrorContext(ctx, "failed to write room state", "roomID", e.roomID, "error", err)
		e.player.Notify(Notice{Level: NoticeError, Message: "failed to update room state"})
		return fmt.Errorf("failed to write room state: %w", err)
	}

	e.lastWriteAt = e.now()

	return nil
}

func (e *Engine) stamp() int64 {
	ts := e.now().UnixMilli()
	if ts <= e.known.LastUpdate {
		ts = e.known.LastUpdate + 1
	}

	return ts
}

// scheduleProgressWrite coalesces playhead updates: the first one in a
// window opens the timer, later ones only replace the pending value. A
// recent write stretches the window so an immediate write's cascade is
// absorbed instead of producing a back-to-back store write.
func (e *Engine) scheduleProgressWrite(seconds float64) {
	e.pendingTime = &seconds

	if e.debounce != nil {
		return
	}

	delay := e.cfg.ProgressDebounce
	if remaining := e.cfg.WriteCooldown - e.now().Sub(e.lastWriteAt); remaining > delay {
		delay = remaining
	}

	e.debounce = time.AfterFunc(delay, e.flushProgress)
}

func (e *Engine) flushProgress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.debounce = nil
	if e.pendingTime == nil {
		return
	}

	seconds := *e.pendingTime
	e.pendingTime = nil

	if !e.role.IsHost() {
		return
	}

	next := e.known
	next.CurrentTime = seconds

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// best effort; the next progress event re-attempts
	e.write(ctx, next)
}
