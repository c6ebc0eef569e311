// Package tracking serves the public open-pixel and click-redirect endpoints.
// These URLs land in recipient inboxes, so the handlers are unauthenticated
// and must degrade gracefully: a broken or replayed link still gets its pixel
// or redirect, whatever happens to the database write.
package tracking

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Recorder persists open/click events. First event wins; repeats are no-ops.
type Recorder interface {
	MarkOpened(ctx context.Context, logID string, at time.Time) error
	MarkClicked(ctx context.Context, logID string, at time.Time) error
}

type Handler struct {
	rec Recorder
	now func() time.Time
}

func NewHandler(rec Recorder) *Handler {
	return &Handler{rec: rec, now: time.Now}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/open", h.HandleOpen)
	r.Get("/track/click", h.HandleClick)
	r.Get("/health", h.HandleHealth)
	return r
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	logID := r.URL.Query().Get("log_id")
	if logID != "" {
		if err := h.rec.MarkOpened(r.Context(), logID, h.now().UTC()); err != nil {
			log.Printf("OPEN record failed log=%s: %v", logID, err)
		} else {
			log.Printf("OPEN log=%s ip=%s", logID, realIP(r))
		}
	}
	h.servePixel(w)
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	logID := r.URL.Query().Get("log_id")
	redirect := r.URL.Query().Get("redirect_url")

	if logID != "" {
		if err := h.rec.MarkClicked(r.Context(), logID, h.now().UTC()); err != nil {
			log.Printf("CLICK record failed log=%s: %v", logID, err)
		} else {
			log.Printf("CLICK log=%s url=%s", logID, redirect)
		}
	}

	if !safeRedirect(redirect) {
		http.Error(w, "bad link", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// safeRedirect only allows absolute http(s) targets. Anything else could be
// abused as an open redirect into odd schemes.
func safeRedirect(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
