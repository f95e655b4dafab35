package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchparty/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	publicURL = configVar[string]{
		envKey:       "PUBLIC_URL",
		flagKey:      "public-url",
		defaultValue: "http://localhost:8080",
	}
	jellyfinBaseURL = configVar[string]{
		envKey:       "JELLYFIN_BASE_URL",
		flagKey:      "jellyfin-base-url",
		defaultValue: "",
	}
	jellyfinAPIKey = configVar[string]{
		envKey:       "JELLYFIN_API_KEY",
		flagKey:      "jellyfin-api-key",
		defaultValue: "",
	}
	allowOrigins = configVar[string]{
		envKey:       "ALLOW_ORIGINS",
		flagKey:      "allow-origins",
		defaultValue: "*",
	}
	trackerURLs = configVar[string]{
		envKey:       "TRACKER_URLS",
		flagKey:      "tracker-urls",
		defaultValue: "",
	}
	iceServers = configVar[string]{
		envKey:       "ICE_SERVERS",
		flagKey:      "ice-servers",
		defaultValue: "",
	}
	enableHLSProxy = configVar[bool]{
		envKey:       "ENABLE_HLS_PROXY",
		flagKey:      "enable-hls-proxy",
		defaultValue: false,
	}
	staticDir = configVar[string]{
		envKey:       "STATIC_DIR",
		flagKey:      "static-dir",
		defaultValue: "",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	playbackCacheTTL = configVar[int]{
		envKey:       "PLAYBACK_CACHE_TTL",
		flagKey:      "playback-cache-ttl",
		defaultValue: 300,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(publicURL.flagKey, publicURL.defaultValue, "Public URL the server is reachable at")
	pflag.String(jellyfinBaseURL.flagKey, jellyfinBaseURL.defaultValue, "Jellyfin base URL")
	pflag.String(jellyfinAPIKey.flagKey, jellyfinAPIKey.defaultValue, "Jellyfin API key")
	pflag.String(allowOrigins.flagKey, allowOrigins.defaultValue, "Comma-separated list of allowed CORS origins")
	pflag.String(trackerURLs.flagKey, trackerURLs.defaultValue, "Comma-separated list of P2P tracker URLs")
	pflag.String(iceServers.flagKey, iceServers.defaultValue, "ICE servers as a JSON array")
	pflag.Bool(enableHLSProxy.flagKey, enableHLSProxy.defaultValue, "Enable the HLS proxy to the media origin")
	pflag.String(staticDir.flagKey, staticDir.defaultValue, "Directory with the built web client")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host (empty disables the playback cache)")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Int(playbackCacheTTL.flagKey, playbackCacheTTL.defaultValue, "Playback info cache TTL in seconds")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(publicURL.flagKey, publicURL.envKey)
	viper.BindEnv(jellyfinBaseURL.flagKey, jellyfinBaseURL.envKey)
	viper.BindEnv(jellyfinAPIKey.flagKey, jellyfinAPIKey.envKey)
	viper.BindEnv(allowOrigins.flagKey, allowOrigins.envKey)
	viper.BindEnv(trackerURLs.flagKey, trackerURLs.envKey)
	viper.BindEnv(iceServers.flagKey, iceServers.envKey)
	viper.BindEnv(enableHLSProxy.flagKey, enableHLSProxy.envKey)
	viper.BindEnv(staticDir.flagKey, staticDir.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(playbackCacheTTL.flagKey, playbackCacheTTL.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(publicURL.flagKey, publicURL.defaultValue)
	viper.SetDefault(jellyfinBaseURL.flagKey, jellyfinBaseURL.defaultValue)
	viper.SetDefault(jellyfinAPIKey.flagKey, jellyfinAPIKey.defaultValue)
	viper.SetDefault(allowOrigins.flagKey, allowOrigins.defaultValue)
	viper.SetDefault(trackerURLs.flagKey, trackerURLs.defaultValue)
	viper.SetDefault(iceServers.flagKey, iceServers.defaultValue)
	viper.SetDefault(enableHLSProxy.flagKey, enableHLSProxy.defaultValue)
	viper.SetDefault(staticDir.flagKey, staticDir.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(playbackCacheTTL.flagKey, playbackCacheTTL.defaultValue)

	return &app.AppConfig{
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		PublicURL:        viper.GetString(publicURL.flagKey),
		JellyfinBaseURL:  viper.GetString(jellyfinBaseURL.flagKey),
		JellyfinAPIKey:   viper.GetString(jellyfinAPIKey.flagKey),
		AllowOrigins:     viper.GetString(allowOrigins.flagKey),
		TrackerURLs:      viper.GetString(trackerURLs.flagKey),
		ICEServers:       viper.GetString(iceServers.flagKey),
		EnableHLSProxy:   viper.GetBool(enableHLSProxy.flagKey),
		StaticDir:        viper.GetString(staticDir.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
		PlaybackCacheTTL: viper.GetInt(playbackCacheTTL.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
