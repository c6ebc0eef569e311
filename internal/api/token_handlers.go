package api

import (
	"net/http"
	"strings"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/repository/postgres"
)

// SaveGoogleToken stores the refresh token obtained by the frontend's OAuth
// consent flow. The consent flow itself happens outside this service.
func (h *Handlers) SaveGoogleToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Email        string `json:"email"`
		RefreshToken string `json:"refresh_token"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.RefreshToken == "" {
		httputil.BadRequest(w, "email and refresh_token are required")
		return
	}

	err := h.Tokens.Save(r.Context(), &postgres.GoogleToken{
		UserID:       uid,
		Email:        body.Email,
		RefreshToken: body.RefreshToken,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "google account connected")
}

func (h *Handlers) DeleteGoogleToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Tokens.Delete(r.Context(), uid); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "google account disconnected")
}
