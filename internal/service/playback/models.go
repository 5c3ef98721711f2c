package playback

import (
	"errors"
	"time"
)

var (
	ErrNotHost     = errors.New("only the host can control playback")
	ErrEmptyIntent = errors.New("empty intent")
)

// Intent is a partial set of fields the local participant wants to change.
// Nil fields are left as they are in the shared record.
type Intent struct {
	VideoID     *string
	IsPlaying   *bool
	CurrentTime *float64
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible, non-fatal message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type Config struct {
	// ProgressDebounce bounds outbound playhead writes to one per window.
	ProgressDebounce time.Duration
	// WriteCooldown absorbs the player-event cascade that follows a write
	// or a remotely applied command.
	WriteCooldown time.Duration
	// SeekTolerance is the dead-zone within which a remote playhead is
	// accepted without seeking. Propagation jitter makes small
	// disagreements constant; seeking on each one would stutter playback.
	SeekTolerance time.Duration
}

const (
	defaultProgressDebounce = time.Second
	defaultWriteCooldown    = 750 * time.Millisecond
	defaultSeekTolerance    = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ProgressDebounce <= 0 {
		c.ProgressDebounce = defaultProgressDebounce
	}
	if c.WriteCooldown <= 0 {
		c.WriteCooldown = defaultWriteCooldown
	}
	if c.SeekTolerance <= 0 {
		c.SeekTolerance = defaultSeekTolerance
	}

	return c
}
