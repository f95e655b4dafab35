package controller

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.Get("/api/health", c.health)
	r.Get("/api/config", c.clientConfig)
	r.Get("/api/playback-info", c.playbackInfo)
	r.Get("/api/sign-m3u8", c.signManifest)
	r.Get("/api/stats", c.stats)
	r.HandleFunc("/ws", c.serveWS)

	if c.config.EnableHLSProxy {
		r.Handle("/proxy/hls/*", c.hlsProxy())
	}

	if c.config.StaticDir != "" {
		r.NotFound(c.serveStatic)
	}

	return cors.New(cors.Options{
		AllowedOrigins: c.config.AllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// serveStatic serves the built web client, falling back to index.html for
// client-side routes.
func (c controller) serveStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") || strings.HasPrefix(r.URL.Path, "/ws") || strings.HasPrefix(r.URL.Path, "/proxy") {
		http.NotFound(w, r)
		return
	}

	name := filepath.Join(c.config.StaticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, r, name)
		return
	}

	http.ServeFile(w, r, filepath.Join(c.config.StaticDir, "index.html"))
}
