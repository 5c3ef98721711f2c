package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/record"
	"github.com/watchroom/server/internal/repository/session"
)

type CreateRoomParams struct {
	InitialVideoID string
}

type CreateRoomResponse struct {
	RoomID       string
	SessionToken string
	State        domain.RoomState
}

// CreateRoom generates a fresh room code, writes the initial record and
// registers the creator as the room's host.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomID := s.generator.GenerateRandomString(roomCodeLength)
	slog.InfoContext(ctx, "create room", "roomID", roomID)

	now := s.now().UnixMilli()
	state := domain.RoomState{
		VideoID:     params.InitialVideoID,
		IsPlaying:   false,
		CurrentTime: 0,
		LastUpdate:  now,
		Host:        true,
		HostSeen:    now,
	}
	if err := s.recordRepo.Write(ctx, roomID, state); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to write initial room state: %w", err)
	}

	sess := session.Session{
		Token:  uuid.NewString(),
		RoomID: roomID,
		Host:   true,
	}
	if err := s.sessionRepo.Set(sess); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	return CreateRoomResponse{
		RoomID:       roomID,
		SessionToken: sess.Token,
		State:        state,
	}, nil
}

type JoinRoomParams struct {
	RoomID       string
	SessionToken string
}

type JoinRoomResponse struct {
	Session session.Session
	State   domain.RoomState
}

// JoinRoom attaches a participant to a room. Presenting the token handed out
// at create/join time resumes the stored session, which is how the host role
// survives a reconnect; otherwise the participant joins as a viewer. A room
// reached by deep link before anyone wrote to it is bootstrapped with an
// empty record.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	state, err := s.recordRepo.ReadOnce(ctx, params.RoomID)
	if err != nil {
		if !errors.Is(err, record.ErrRoomNotFound) {
			return JoinRoomResponse{}, fmt.Errorf("failed to read room state: %w", err)
		}

		now := s.now().UnixMilli()
		state = domain.RoomState{LastUpdate: now}
		if err := s.recordRepo.Write(ctx, params.RoomID, state); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to bootstrap room state: %w", err)
		}
	}

	if params.SessionToken != "" {
		sess, err := s.sessionRepo.Get(params.SessionToken)
		if err == nil && sess.RoomID == params.RoomID {
			slog.InfoContext(ctx, "session resumed", "roomID", params.RoomID, "host", sess.Host)
			return JoinRoomResponse{Session: sess, State: state}, nil
		}
	}

	sess := session.Session{
		Token:  uuid.NewString(),
		RoomID: params.RoomID,
		Host:   false,
	}
	if err := s.sessionRepo.Set(sess); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	return JoinRoomResponse{Session: sess, State: state}, nil
}

// RoomExists reports whether a record exists for the given room code.
func (s service) RoomExists(ctx context.Context, roomID string) (bool, error) {
	if _, err := s.recordRepo.ReadOnce(ctx, roomID); err != nil {
		if errors.Is(err, record.ErrRoomNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read room state: %w", err)
	}

	return true, nil
}

// LeaveRoom discards a participant's session. The room record stays; rooms
// are garbage-collected by store expiry, not by departures.
func (s service) LeaveRoom(ctx context.Context, sessionToken string) error {
	if err := s.sessionRepo.Remove(sessionToken); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}

		return fmt.Errorf("failed to remove session: %w", err)
	}

	return nil
}
