package session

import "errors"

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// Session is the local-only record of a participant's role in a room. It is
// never written to the shared record store; the client resumes it by
// presenting the token it received at create/join time.
type Session struct {
	Token  string
	RoomID string
	Host   bool
}

func (s Session) IsHost() bool {
	return s.Host
}
