package controller

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/service/playback"
)

type output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// playerConn is the widget bridge: engine commands and notices go out as
// typed websocket messages. Writes are serialized because the engine, the
// subscription goroutine and the read loop all produce output.
type playerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newPlayerConn(conn *websocket.Conn) *playerConn {
	return &playerConn{conn: conn}
}

func (p *playerConn) send(messageType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn.WriteJSON(output{Type: messageType, Payload: payload})
}

func (p *playerConn) SendLoad(videoID string) error {
	return p.send("LOAD", map[string]any{"video_id": videoID})
}

func (p *playerConn) SendSeekTo(seconds float64) error {
	return p.send("SEEK_TO", map[string]any{"seconds": seconds})
}

func (p *playerConn) SendSetPlaying(playing bool) error {
	return p.send("SET_PLAYING", map[string]any{"playing": playing})
}

func (p *playerConn) SendNotice(notice playback.Notice) error {
	return p.send("NOTICE", notice)
}

func (p *playerConn) SendRoomState(roomID string, isHost bool, state domain.RoomState) error {
	return p.send("ROOM_STATE", map[string]any{
		"room_id": roomID,
		"is_host": isHost,
		"state":   state,
	})
}
