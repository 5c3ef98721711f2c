package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/session"
	"github.com/watchroom/server/internal/service/playback"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/rest"
	"github.com/watchroom/server/pkg/wsrouter"
)

var errClientLeft = errors.New("client left the room")

// joinRoom upgrades the connection and serves the participant's sync session
// until the connection drops or the client leaves.
func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")
	if roomID == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	joinRoomResp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomID:       roomID,
		SessionToken: r.URL.Query().Get("session_token"),
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "joinRoom", "err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to join room"})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "joinRoom", "upgrade err", err)
		return
	}

	c.serveSession(r.Context(), conn, joinRoomResp.Session, joinRoomResp.State)
}

func (c controller) serveSession(ctx context.Context, conn *websocket.Conn, sess session.Session, initial domain.RoomState) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pconn := newPlayerConn(conn)
	pc := playback.NewController(pconn, sess, c.logger)
	engine := playback.NewEngine(c.recordRepo, pc, sess, sess.RoomID, c.syncCfg, c.logger)
	pc.Attach(engine)
	defer engine.Stop()

	if err := pconn.SendRoomState(sess.RoomID, sess.IsHost(), initial); err != nil {
		c.logger.InfoContext(ctx, "serveSession", "send state err", err)
		conn.Close()
		return
	}

	// the first-join snapshot goes through the same reconciliation path
	// as any remote update, so a late joiner's widget catches up
	engine.ApplyRemote(ctx, initial)

	updates, err := c.recordRepo.Subscribe(ctx, sess.RoomID)
	if err != nil {
		c.logger.ErrorContext(ctx, "serveSession", "subscribe err", err)
		pconn.SendNotice(playback.Notice{Level: playback.NoticeError, Message: "failed to connect to room"})
		conn.Close()
		return
	}

	go func() {
		for state := range updates {
			engine.ApplyRemote(ctx, state)
		}
	}()

	if err := c.newWSRouter(pc, sess, cancel).ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "serveSession", "conn closed", err)
	}
}

func (c controller) newWSRouter(pc *playback.Controller, sess session.Session, cancel context.CancelFunc) *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ALIVE", c.handleAlive(sess))
	mux.Handle("LEAVE", c.handleLeave(sess, cancel))
	mux.Handle("VISIBILITY", c.handleVisibility(pc))

	// player widget callbacks
	mux.Handle("LOAD_VIDEO", c.handleLoadVideo(pc))
	mux.Handle("PLAY", c.handlePlay(pc))
	mux.Handle("PAUSE", c.handlePause(pc))
	mux.Handle("PROGRESS", c.handleProgress(pc))
	mux.Handle("PLAYER_ERROR", c.handlePlayerError(pc))

	return mux
}

func (c controller) handleAlive(sess session.Session) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		if !sess.IsHost() {
			return nil
		}

		if err := c.recordRepo.TouchHostSeen(ctx, sess.RoomID, time.Now().UnixMilli()); err != nil {
			c.logger.InfoContext(ctx, "handleAlive", "err", err)
		}

		return nil
	}
}

func (c controller) handleLeave(sess session.Session, cancel context.CancelFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		if err := c.roomService.LeaveRoom(ctx, sess.Token); err != nil {
			c.logger.InfoContext(ctx, "handleLeave", "err", err)
		}

		cancel()
		return errClientLeft
	}
}

type visibilityInput struct {
	Visible bool `json:"visible"`
}

func (c controller) handleVisibility(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input visibilityInput
		if err := json.Unmarshal(payload, &input); err != nil {
			c.logger.InfoContext(ctx, "handleVisibility", "unmarshal err", err)
			return nil
		}

		pc.SetVisible(input.Visible)
		return nil
	}
}

type loadVideoInput struct {
	VideoURL string `json:"video_url"`
}

func (c controller) handleLoadVideo(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input loadVideoInput
		if err := json.Unmarshal(payload, &input); err != nil {
			c.logger.InfoContext(ctx, "handleLoadVideo", "unmarshal err", err)
			return nil
		}

		if err := pc.OnLoadVideo(ctx, input.VideoURL); err != nil {
			c.logger.InfoContext(ctx, "handleLoadVideo", "err", err)
		}

		return nil
	}
}

func (c controller) handlePlay(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		if err := pc.OnPlay(ctx); err != nil {
			c.logger.InfoContext(ctx, "handlePlay", "err", err)
		}

		return nil
	}
}

func (c controller) handlePause(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		if err := pc.OnPause(ctx); err != nil {
			c.logger.InfoContext(ctx, "handlePause", "err", err)
		}

		return nil
	}
}

type progressInput struct {
	PlayedSeconds float64 `json:"played_seconds"`
}

func (c controller) handleProgress(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input progressInput
		if err := json.Unmarshal(payload, &input); err != nil {
			c.logger.InfoContext(ctx, "handleProgress", "unmarshal err", err)
			return nil
		}

		if err := pc.OnProgress(ctx, input.PlayedSeconds); err != nil {
			c.logger.InfoContext(ctx, "handleProgress", "err", err)
		}

		return nil
	}
}

type playerErrorInput struct {
	Message string `json:"message"`
}

func (c controller) handlePlayerError(pc *playback.Controller) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input playerErrorInput
		if err := json.Unmarshal(payload, &input); err != nil {
			c.logger.InfoContext(ctx, "handlePlayerError", "unmarshal err", err)
			return nil
		}

		return pc.OnPlayerError(ctx, input.Message)
	}
}
