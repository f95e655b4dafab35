package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watchparty/server/internal/repository"
)

type repo struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRepo(rc *redis.Client, ttl time.Duration) *repo {
	return &repo{
		rc:  rc,
		ttl: ttl,
	}
}

func (r repo) getPlaybackInfoKey(itemID string) string {
	return "playback-info:" + itemID
}

func (r repo) GetPlaybackInfo(ctx context.Context, itemID string) (repository.PlaybackInfo, error) {
	data, err := r.rc.Get(ctx, r.getPlaybackInfoKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.PlaybackInfo{}, repository.ErrNotFound
		}
		return repository.PlaybackInfo{}, fmt.Errorf("failed to get playback info: %w", err)
	}

	var info repository.PlaybackInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return repository.PlaybackInfo{}, fmt.Errorf("failed to unmarshal playback info: %w", err)
	}

	return info, nil
}

func (r repo) SetPlaybackInfo(ctx context.Context, itemID string, info *repository.PlaybackInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal playback info: %w", err)
	}

	if err := r.rc.Set(ctx, r.getPlaybackInfoKey(itemID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set playback info: %w", err)
	}

	return nil
}
