package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/watchroom/server/pkg/ytid"
)

// PlayerConn is the command surface of the remote player widget. The
// transport layer implements it on top of the participant's websocket.
type PlayerConn interface {
	SendLoad(videoID string) error
	SendSeekTo(seconds float64) error
	SendSetPlaying(playing bool) error
	SendNotice(notice Notice) error
}

// Controller mediates between the widget and the engine. Widget callbacks
// become intents only when the gates allow it: the participant must be the
// host, the client must be foregrounded for playhead progress, and no
// remote-triggered change may be in flight. Engine deltas become widget
// commands unconditionally.
type Controller struct {
	conn   PlayerConn
	role   iRole
	logger *slog.Logger
	engine *Engine

	mu       sync.Mutex
	position float64
	playing  bool
	visible  bool
}

func NewController(conn PlayerConn, role iRole, logger *slog.Logger) *Controller {
	return &Controller{
		conn:    conn,
		role:    role,
		logger:  logger,
		visible: true,
	}
}

// Attach binds the engine the controller feeds intents into. Construction is
// two-phase because the engine in turn drives the controller as its player.
func (c *Controller) Attach(engine *Engine) {
	c.engine = engine
}

// OnPlay handles the widget's play callback.
func (c *Controller) OnPlay(ctx context.Context) error {
	return c.onToggle(ctx, true)
}

// OnPause handles the widget's pause callback.
func (c *Controller) OnPause(ctx context.Context) error {
	return c.onToggle(ctx, false)
}

func (c *Controller) onToggle(ctx context.Context, playing bool) error {
	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()

	if !c.role.IsHost() {
		// a viewer's widget only ever acknowledges commands it was sent
		return nil
	}

	if c.engine.Suppressed() {
		// callback fired by a command we just applied, not by the user
		return nil
	}

	if err := c.engine.SubmitIntent(ctx, Intent{IsPlaying: &playing}); err != nil {
		return fmt.Errorf("failed to submit play state: %w", err)
	}

	return nil
}

// OnProgress handles the widget's periodic playhead report. The position is
// always recorded so the engine can measure drift, but it produces an
// outbound write only for a foregrounded host while playback is running.
func (c *Controller) OnProgress(ctx context.Context, playedSeconds float64) error {
	c.mu.Lock()
	c.position = playedSeconds
	visible := c.visible
	c.mu.Unlock()

	if !c.role.IsHost() || !visible || c.engine.Suppressed() {
		return nil
	}

	if !c.engine.Known().IsPlaying {
		return nil
	}

	if err := c.engine.SubmitIntent(ctx, Intent{CurrentTime: &playedSeconds}); err != nil {
		return fmt.Errorf("failed to submit progress: %w", err)
	}

	return nil
}

// OnLoadVideo handles a request to load a new media reference. Malformed
// references are rejected before any write.
func (c *Controller) OnLoadVideo(ctx context.Context, ref string) error {
	videoID, err := ytid.Parse(ref)
	if err != nil {
		c.Notify(Notice{Level: NoticeError, Message: "invalid video link"})
		return nil
	}

	if err := c.engine.SubmitIntent(ctx, Intent{VideoID: &videoID}); err != nil {
		if err == ErrNotHost {
			return nil
		}
		return fmt.Errorf("failed to submit video: %w", err)
	}

	c.Notify(Notice{Level: NoticeInfo, Message: "video loaded"})

	return nil
}

// OnPlayerError handles an error surfaced by the widget. The shared record
// is left untouched: the error does not say which side is authoritative.
func (c *Controller) OnPlayerError(ctx context.Context, message string) error {
	c.logger.InfoContext(ctx, "player error", "message", message)
	c.Notify(Notice{Level: NoticeError, Message: "playback error: " + message})

	return nil
}

// SetVisible records whether the client is foregrounded. A backgrounded tab
// reports unreliable positions, so its progress must not fight the record.
func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = visible
}

// Load implements the engine's player surface.
func (c *Controller) Load(videoID string) {
	c.mu.Lock()
	c.position = 0
	c.playing = false
	c.mu.Unlock()

	if err := c.conn.SendLoad(videoID); err != nil {
		c.logger.Error("failed to send load command", "error", err)
	}
}

func (c *Controller) SeekTo(seconds float64) {
	c.mu.Lock()
	c.position = seconds
	c.mu.Unlock()

	if err := c.conn.SendSeekTo(seconds); err != nil {
		c.logger.Error("failed to send seek command", "error", err)
	}
}

func (c *Controller) SetPlaying(playing bool) {
	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()

	if err := c.conn.SendSetPlaying(playing); err != nil {
		c.logger.Error("failed to send play state command", "error", err)
	}
}

func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.position
}

func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playing
}

func (c *Controller) Notify(notice Notice) {
	if err := c.conn.SendNotice(notice); err != nil {
		c.logger.Error("failed to send notice", "error", err)
	}
}
