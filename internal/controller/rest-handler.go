package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/rest"
	"github.com/watchroom/server/pkg/ytid"
)

type createRoomRequest struct {
	VideoURL string `json:"video_url" validate:"omitempty,max=200"`
}

type createRoomResponse struct {
	RoomID       string `json:"room_id"`
	SessionToken string `json:"session_token"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		c.logger.InfoContext(r.Context(), "createRoom", "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "createRoom", "validate err", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	var initialVideoID string
	if req.VideoURL != "" {
		videoID, err := ytid.Parse(req.VideoURL)
		if err != nil {
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "invalid video link"})
			return
		}
		initialVideoID = videoID
	}

	createRoomResp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		InitialVideoID: initialVideoID,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "createRoom", "err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create room"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		RoomID:       createRoomResp.RoomID,
		SessionToken: createRoomResp.SessionToken,
	}})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")
	if roomID == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	exists, err := c.roomService.RoomExists(r.Context(), roomID)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "getRoom", "err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to check room"})
		return
	}

	if !exists {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": map[string]string{"room_id": roomID}})
}
