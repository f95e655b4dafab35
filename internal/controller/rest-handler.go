package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/watchparty/server/internal/service/playback"
)

func (c controller) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.logger.Warn("failed to write json response", "error", err)
	}
}

func (c controller) writeError(w http.ResponseWriter, status int, message string) {
	c.writeJSON(w, status, map[string]string{"error": message})
}

func (c controller) health(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (c controller) clientConfig(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]any{
		"publicUrl":   c.config.PublicURL,
		"trackerUrls": c.config.TrackerURLs,
		"iceServers":  c.config.ICEServers,
	})
}

type playbackInfoRequest struct {
	ItemID string `json:"itemId" validate:"required"`
}

func (c controller) playbackInfo(w http.ResponseWriter, r *http.Request) {
	req := playbackInfoRequest{ItemID: r.URL.Query().Get("itemId")}
	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "itemId is required",
			"details": validationErrors,
		})
		return
	}

	info, err := c.playbackService.GetPlaybackInfo(r.Context(), req.ItemID)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to retrieve playback info", "itemId", req.ItemID, "error", err)
		c.writeError(w, http.StatusInternalServerError, "failed to retrieve playback info")
		return
	}

	c.writeJSON(w, http.StatusOK, info)
}

func (c controller) signManifest(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("m3u8")
	if rawURL == "" {
		c.writeError(w, http.StatusBadRequest, "m3u8 is required")
		return
	}

	signed, err := c.playbackService.SignManifestURL(rawURL)
	if err != nil {
		switch {
		case errors.Is(err, playback.ErrForeignOrigin):
			c.writeError(w, http.StatusBadRequest, "URL must point to configured media origin")
		case errors.Is(err, playback.ErrInvalidManifestURL):
			c.writeError(w, http.StatusBadRequest, "invalid URL")
		default:
			c.logger.ErrorContext(r.Context(), "failed to sign manifest url", "error", err)
			c.writeError(w, http.StatusInternalServerError, "failed to sign manifest url")
		}
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"m3u8Url": signed})
}

func (c controller) stats(w http.ResponseWriter, r *http.Request) {
	rooms, participants := c.registry.Stats()
	c.writeJSON(w, http.StatusOK, map[string]int{
		"rooms":        rooms,
		"participants": participants,
	})
}
