// Package playback resolves playable manifest urls and title/duration
// metadata from the media catalog. The room synchronization core is agnostic
// to how these urls are obtained.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/watchparty/server/internal/repository"
)

var (
	ErrInvalidManifestURL = errors.New("invalid manifest url")
	ErrForeignOrigin      = errors.New("manifest url must point to the configured media origin")
)

// Info is a resolved playback target.
type Info struct {
	M3U8URL  string   `json:"m3u8Url"`
	Title    string   `json:"title"`
	Duration *float64 `json:"duration,omitempty"`
}

type iCacheRepo interface {
	GetPlaybackInfo(ctx context.Context, itemID string) (repository.PlaybackInfo, error)
	SetPlaybackInfo(ctx context.Context, itemID string, info *repository.PlaybackInfo) error
}

type Config struct {
	BaseURL string
	APIKey  string
}

type service struct {
	client    *jellyfinClient
	cacheRepo iCacheRepo
	baseURL   *url.URL
	apiKey    string
	logger    *slog.Logger
}

func NewService(cfg *Config, cacheRepo iCacheRepo, logger *slog.Logger) (*service, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if !baseURL.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}

	return &service{
		client:    newJellyfinClient(baseURL, cfg.APIKey),
		cacheRepo: cacheRepo,
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		logger:    logger,
	}, nil
}

// GetPlaybackInfo resolves the manifest url and metadata for a catalog item,
// serving from the cache when possible.
func (s *service) GetPlaybackInfo(ctx context.Context, itemID string) (Info, error) {
	if s.cacheRepo != nil {
		cached, err := s.cacheRepo.GetPlaybackInfo(ctx, itemID)
		if err == nil {
			return Info{
				M3U8URL:  cached.M3U8URL,
				Title:    cached.Title,
				Duration: cached.Duration,
			}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.WarnContext(ctx, "playback cache lookup failed", "itemId", itemID, "error", err)
		}
	}

	info, err := s.client.getPlaybackInfo(ctx, itemID)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get playback info: %w", err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetPlaybackInfo(ctx, itemID, &repository.PlaybackInfo{
			M3U8URL:  info.M3U8URL,
			Title:    info.Title,
			Duration: info.Duration,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to cache playback info", "itemId", itemID, "error", err)
		}
	}

	return info, nil
}

// SignManifestURL appends the catalog api key to a manifest url after
// checking it targets the configured media origin.
func (s *service) SignManifestURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return "", ErrInvalidManifestURL
	}

	if u.Host != s.baseURL.Host {
		return "", ErrForeignOrigin
	}

	return appendToken(rawURL, s.apiKey), nil
}
