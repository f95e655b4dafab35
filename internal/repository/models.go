package repository

type PlaybackInfo struct {
	M3U8URL  string   `json:"m3u8_url"`
	Title    string   `json:"title"`
	Duration *float64 `json:"duration,omitempty"`
}
