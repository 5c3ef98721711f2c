package domain

// RoomState is the shared record describing what a room is watching.
// Exactly one full copy of it exists per room in the record store; every
// write replaces the whole record.
//
// LastUpdate is a logical clock, not a display value: the writer stamps it
// on every write and readers compare it against the last value they applied
// to tell their own echo apart from a genuine remote change.
type RoomState struct {
	VideoID     string  `json:"video_id" redis:"video_id"`
	IsPlaying   bool    `json:"is_playing" redis:"is_playing"`
	CurrentTime float64 `json:"current_time" redis:"current_time"`
	LastUpdate  int64   `json:"last_update" redis:"last_update"`
	Host        bool    `json:"host" redis:"host"`
	HostSeen    int64   `json:"host_seen" redis:"host_seen"`
}

// Same reports whether two records describe the same playback state,
// ignoring the write-ordering fields.
func (s RoomState) Same(other RoomState) bool {
	return s.VideoID == other.VideoID &&
		s.IsPlaying == other.IsPlaying &&
		s.CurrentTime == other.CurrentTime
}
