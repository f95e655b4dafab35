package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchparty/server/internal/controller"
	"github.com/watchparty/server/internal/registry"
	redisRepo "github.com/watchparty/server/internal/repository/playback/redis"
	"github.com/watchparty/server/internal/service/playback"
	"github.com/watchparty/server/pkg/ctxlogger"
	"github.com/watchparty/server/pkg/redisclient"
)

type AppConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	LogLevel         string `json:"log_level"`
	PublicURL        string `json:"public_url"`
	JellyfinBaseURL  string `json:"jellyfin_base_url"`
	JellyfinAPIKey   string `json:"-"`
	AllowOrigins     string `json:"allow_origins"`
	TrackerURLs      string `json:"tracker_urls"`
	ICEServers       string `json:"ice_servers"`
	EnableHLSProxy   bool   `json:"enable_hls_proxy"`
	StaticDir        string `json:"static_dir"`
	RedisHost        string `json:"redis_host"`
	RedisPort        int    `json:"redis_port"`
	RedisPassword    string `json:"-"`
	PlaybackCacheTTL int    `json:"playback_cache_ttl"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.JellyfinBaseURL == "" {
		return fmt.Errorf("jellyfin base url is required")
	}
	u, err := url.Parse(cfg.JellyfinBaseURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("jellyfin base url must be an absolute url")
	}
	if cfg.JellyfinAPIKey == "" {
		return fmt.Errorf("jellyfin api key is required")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	playbackService, err := newPlaybackService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	roomRegistry := registry.New(logger)

	mediaOrigin, _ := url.Parse(cfg.JellyfinBaseURL)
	ctrl := controller.NewController(roomRegistry, playbackService, controller.Config{
		PublicURL:      cfg.PublicURL,
		TrackerURLs:    splitList(cfg.TrackerURLs),
		ICEServers:     parseICEServers(ctx, cfg.ICEServers, logger),
		AllowOrigins:   parseAllowOrigins(cfg.AllowOrigins),
		MediaOrigin:    mediaOrigin,
		MediaAPIKey:    cfg.JellyfinAPIKey,
		EnableHLSProxy: cfg.EnableHLSProxy,
		StaticDir:      cfg.StaticDir,
	}, logger)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

type iPlaybackService interface {
	GetPlaybackInfo(ctx context.Context, itemID string) (playback.Info, error)
	SignManifestURL(rawURL string) (string, error)
}

func newPlaybackService(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (iPlaybackService, error) {
	playbackCfg := &playback.Config{
		BaseURL: cfg.JellyfinBaseURL,
		APIKey:  cfg.JellyfinAPIKey,
	}

	if cfg.RedisHost == "" {
		logger.InfoContext(ctx, "playback cache disabled")
		return playback.NewService(playbackCfg, nil, logger)
	}

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	ttl := time.Duration(cfg.PlaybackCacheTTL) * time.Second
	return playback.NewService(playbackCfg, redisRepo.NewRepo(rc, ttl), logger)
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseAllowOrigins(value string) []string {
	origins := splitList(value)
	if len(origins) == 0 {
		return []string{"*"}
	}
	for _, origin := range origins {
		if origin == "*" {
			return []string{"*"}
		}
	}
	return origins
}

func parseICEServers(ctx context.Context, value string, logger *slog.Logger) []any {
	if value == "" {
		return []any{}
	}

	var servers []any
	if err := json.Unmarshal([]byte(value), &servers); err != nil {
		logger.WarnContext(ctx, "failed to parse ice servers, expected JSON array", "error", err)
		return []any{}
	}
	return servers
}
