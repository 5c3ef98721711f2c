package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/service/playback"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/validator"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	RoomExists(ctx context.Context, roomID string) (bool, error)
	LeaveRoom(ctx context.Context, sessionToken string) error
}

type iRecordRepo interface {
	Write(ctx context.Context, roomID string, state domain.RoomState) error
	Subscribe(ctx context.Context, roomID string) (<-chan domain.RoomState, error)
	TouchHostSeen(ctx context.Context, roomID string, seen int64) error
}

type controller struct {
	roomService iRoomService
	recordRepo  iRecordRepo
	syncCfg     playback.Config
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, recordRepo iRecordRepo, syncCfg playback.Config, logger *slog.Logger) *controller {
	return &controller{
		roomService: roomService,
		recordRepo:  recordRepo,
		syncCfg:     syncCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
