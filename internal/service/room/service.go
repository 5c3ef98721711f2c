package room

import (
	"context"
	"errors"
	"time"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/session"
	"github.com/watchroom/server/pkg/randstr"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrSessionNotFound = errors.New("session not found")
)

const roomCodeLength = 6

type iRecordRepo interface {
	ReadOnce(ctx context.Context, roomID string) (domain.RoomState, error)
	Write(ctx context.Context, roomID string, state domain.RoomState) error
}

type iSessionRepo interface {
	Set(s session.Session) error
	Get(token string) (session.Session, error)
	Remove(token string) error
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type service struct {
	recordRepo  iRecordRepo
	sessionRepo iSessionRepo
	generator   iGenerator
	now         func() time.Time
}

func NewService(recordRepo iRecordRepo, sessionRepo iSessionRepo) *service {
	s := service{
		recordRepo:  recordRepo,
		sessionRepo: sessionRepo,
		now:         time.Now,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
