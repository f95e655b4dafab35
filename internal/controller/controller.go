package controller

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/service/playback"
	"github.com/watchparty/server/pkg/validator"
)

type iRegistry interface {
	Join(roomID string, conn domain.Connection, displayName string)
	HandleControl(roomID string, action domain.Action, position float64)
	Stats() (rooms, participants int)
}

type iPlaybackService interface {
	GetPlaybackInfo(ctx context.Context, itemID string) (playback.Info, error)
	SignManifestURL(rawURL string) (string, error)
}

type Config struct {
	PublicURL      string
	TrackerURLs    []string
	ICEServers     []any
	AllowOrigins   []string
	MediaOrigin    *url.URL
	MediaAPIKey    string
	EnableHLSProxy bool
	StaticDir      string
}

type controller struct {
	registry        iRegistry
	playbackService iPlaybackService
	config          Config
	upgrader        websocket.Upgrader
	validate        *validator.Validator
	logger          *slog.Logger
}

func NewController(registry iRegistry, playbackService iPlaybackService, cfg Config, logger *slog.Logger) *controller {
	return &controller{
		registry:        registry,
		playbackService: playbackService,
		config:          cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
