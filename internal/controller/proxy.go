package controller

import (
	"net/http"
	"net/http/httputil"
	"strings"
)

const hlsProxyPrefix = "/proxy/hls"

// hlsProxy passes playlist and segment fetches through to the media origin,
// injecting the catalog token so the browser never sees it.
func (c controller) hlsProxy() http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, hlsProxyPrefix)
			pr.SetURL(c.config.MediaOrigin)
			pr.SetXForwarded()
			pr.Out.Host = c.config.MediaOrigin.Host
			pr.Out.Header.Set("X-Emby-Token", c.config.MediaAPIKey)
			pr.Out.Header.Set("X-MediaBrowser-Token", c.config.MediaAPIKey)
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Set("Access-Control-Allow-Origin", "*")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			c.logger.WarnContext(r.Context(), "hls proxy error", "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
