package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc                     *redis.Client
	conditionalWriteScript string
	expireDuration         time.Duration
}

// NewRepo loads the conditional-write script and returns a room record
// repository backed by the given client. Records expire after
// expireDuration unless touched.
func NewRepo(rc *redis.Client, expireDuration time.Duration) *repo {
	return &repo{
		rc: rc,
		// The record store is last-writer-wins, but a writer whose logical
		// clock is behind the stored one has raced another writer and loses.
		conditionalWriteScript: rc.ScriptLoad(context.Background(), `
			local stored = redis.call('HGET', KEYS[1], 'last_update')
			if stored and tonumber(stored) >= tonumber(ARGV[1]) then
				return 0
			end
			redis.call('HSET', KEYS[1],
				'video_id', ARGV[2],
				'is_playing', ARGV[3],
				'current_time', ARGV[4],
				'last_update', ARGV[1],
				'host', ARGV[5],
				'host_seen', ARGV[6])
			redis.call('PEXPIRE', KEYS[1], ARGV[7])
			redis.call('PUBLISH', KEYS[2], ARGV[8])
			return 1
		`).Val(),
		expireDuration: expireDuration,
	}
}

func (r repo) getStateKey(roomID string) string {
	return "room:" + roomID + ":state"
}

func (r repo) getUpdatesChannel(roomID string) string {
	return "room:" + roomID + ":updates"
}
