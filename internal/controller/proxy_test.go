package controller

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHLSProxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Videos/42/master.m3u8", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Emby-Token"))
		assert.Equal(t, "key", r.Header.Get("X-MediaBrowser-Token"))
		io.WriteString(w, "#EXTM3U")
	}))
	defer backend.Close()

	origin, err := url.Parse(backend.URL)
	require.NoError(t, err)

	c := NewController(&stubRegistry{}, &stubPlaybackService{}, Config{
		AllowOrigins:   []string{"*"},
		MediaOrigin:    origin,
		MediaAPIKey:    "key",
		EnableHLSProxy: true,
	}, slog.Default())

	srv := httptest.NewServer(c.GetMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/proxy/hls/Videos/42/master.m3u8")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "#EXTM3U", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHLSProxyDisabled(t *testing.T) {
	origin, err := url.Parse("https://media.example")
	require.NoError(t, err)

	c := NewController(&stubRegistry{}, &stubPlaybackService{}, Config{
		AllowOrigins: []string{"*"},
		MediaOrigin:  origin,
		MediaAPIKey:  "key",
	}, slog.Default())

	rec := httptest.NewRecorder()
	c.GetMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/hls/x.m3u8", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
