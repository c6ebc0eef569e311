// Package api is the dashboard-facing HTTP surface: campaign management,
// contact lists, templates, catalog CRUD and the AI drafting endpoints.
// Authentication lives at the gateway; handlers trust the forwarded user id.
package api

import (
	"net/http"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/ai"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/repository/postgres"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/campaign"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/catalog"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	Campaigns *campaign.Service
	Catalog   *catalog.Service
	Drafter   *ai.Drafter
	Contacts  *postgres.ContactRepo
	Templates *postgres.TemplateRepo
	Tokens    *postgres.TokenRepo
}

// userID returns the authenticated user forwarded by the gateway. Empty only
// happens when the gateway is misconfigured, so handlers treat it as a bad
// request rather than guessing.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		httputil.Error(w, http.StatusUnauthorized, "missing user identity")
		return "", false
	}
	return uid, true
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
