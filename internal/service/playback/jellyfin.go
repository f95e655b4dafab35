package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Jellyfin reports durations in 100ns ticks.
const ticksInSecond = 10_000_000

type jellyfinClient struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
}

func newJellyfinClient(baseURL *url.URL, apiKey string) *jellyfinClient {
	return &jellyfinClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type playbackInfoResponse struct {
	MediaSources []struct {
		Path            string `json:"Path"`
		DirectStreamUrl string `json:"DirectStreamUrl"`
	} `json:"MediaSources"`
	NowPlayingItem *struct {
		Name         string `json:"Name"`
		RunTimeTicks int64  `json:"RunTimeTicks"`
	} `json:"NowPlayingItem"`
	Name         string `json:"Name"`
	RunTimeTicks int64  `json:"RunTimeTicks"`
}

func (c *jellyfinClient) getPlaybackInfo(ctx context.Context, itemID string) (Info, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, "Items", url.PathEscape(itemID), "PlaybackInfo")
	q := u.Query()
	q.Set("EnableHlsStreaming", "true")
	q.Set("AutoOpenLiveStream", "false")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader("{}"))
	if err != nil {
		return Info{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("X-MediaBrowser-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("failed to fetch playback info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Info{}, fmt.Errorf("failed to fetch playback info (%d): %s", resp.StatusCode, body)
	}

	var data playbackInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Info{}, fmt.Errorf("failed to decode playback info: %w", err)
	}

	manifestURL := ""
	if len(data.MediaSources) > 0 {
		source := data.MediaSources[0]
		if source.DirectStreamUrl != "" {
			manifestURL = source.DirectStreamUrl
		} else {
			manifestURL = source.Path
		}
	}
	if manifestURL == "" {
		fallback := *c.baseURL
		fallback.Path = path.Join(fallback.Path, "Videos", url.PathEscape(itemID), "master.m3u8")
		manifestURL = fallback.String()
	}

	title := ""
	durationTicks := data.RunTimeTicks
	if data.NowPlayingItem != nil {
		title = data.NowPlayingItem.Name
		if data.NowPlayingItem.RunTimeTicks != 0 {
			durationTicks = data.NowPlayingItem.RunTimeTicks
		}
	}
	if title == "" {
		title = data.Name
	}
	if title == "" {
		title = fmt.Sprintf("Item %s", itemID)
	}

	info := Info{
		M3U8URL: appendToken(manifestURL, c.apiKey),
		Title:   title,
	}
	if durationTicks > 0 {
		duration := float64(durationTicks) / ticksInSecond
		info.Duration = &duration
	}

	return info, nil
}

// appendToken adds the api_key query param to an absolute manifest url.
// Relative or unparseable urls are returned unchanged; the manifest may
// already be absolute with a token.
func appendToken(manifestURL, token string) string {
	u, err := url.Parse(manifestURL)
	if err != nil || !u.IsAbs() {
		return manifestURL
	}

	q := u.Query()
	if !q.Has("api_key") {
		q.Set("api_key", token)
		u.RawQuery = q.Encode()
	}

	return u.String()
}
