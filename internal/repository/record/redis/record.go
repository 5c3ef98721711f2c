package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/record"
)

func boolField(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

// Write replaces the whole room record and fans the new snapshot out to
// subscribers. Writes whose LastUpdate is not strictly greater than the
// stored one are rejected with record.ErrStaleWrite.
func (r repo) Write(ctx context.Context, roomID string, state domain.RoomState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}

	res, err := r.rc.EvalSha(ctx, r.conditionalWriteScript,
		[]string{r.getStateKey(roomID), r.getUpdatesChannel(roomID)},
		state.LastUpdate,
		state.VideoID,
		boolField(state.IsPlaying),
		strconv.FormatFloat(state.CurrentTime, 'f', -1, 64),
		boolField(state.Host),
		state.HostSeen,
		r.expireDuration.Milliseconds(),
		payload,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to write room state: %w", err)
	}

	if res == 0 {
		return record.ErrStaleWrite
	}

	return nil
}

// ReadOnce fetches the current record, or record.ErrRoomNotFound if the room
// does not exist.
func (r repo) ReadOnce(ctx context.Context, roomID string) (domain.RoomState, error) {
	stateKey := r.getStateKey(roomID)
	cmd := r.rc.HGetAll(ctx, stateKey)
	if err := cmd.Err(); err != nil {
		return domain.RoomState{}, fmt.Errorf("failed to read room state: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return domain.RoomState{}, record.ErrRoomNotFound
	}

	var state domain.RoomState
	if err := cmd.Scan(&state); err != nil {
		return domain.RoomState{}, fmt.Errorf("failed to scan room state: %w", err)
	}

	r.rc.Expire(ctx, stateKey, r.expireDuration)

	return state, nil
}

// Subscribe delivers every published snapshot for the room until the context
// is cancelled. Delivery is at-least-once; intermediate snapshots may be
// missed by slow consumers, which the sync protocol tolerates.
func (r repo) Subscribe(ctx context.Context, roomID string) (<-chan domain.RoomState, error) {
	pubsub := r.rc.Subscribe(ctx, r.getUpdatesChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room updates: %w", err)
	}

	out := make(chan domain.RoomState, 8)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var state domain.RoomState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					slog.Error("record.redis.Subscribe", "error", err, "roomID", roomID)
					continue
				}

				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// TouchHostSeen refreshes the host liveness timestamp without bumping the
// logical clock, so keepalives do not fan out as state changes.
func (r repo) TouchHostSeen(ctx context.Context, roomID string, seen int64) error {
	stateKey := r.getStateKey(roomID)
	res, err := r.rc.Exists(ctx, stateKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check room state: %w", err)
	}

	if res == 0 {
		return record.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, stateKey, "host_seen", seen).Err(); err != nil {
		return fmt.Errorf("failed to touch host seen: %w", err)
	}

	r.rc.Expire(ctx, stateKey, r.expireDuration)

	return nil
}
