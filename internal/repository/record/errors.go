package record

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrStaleWrite   = errors.New("stale write rejected")
)
