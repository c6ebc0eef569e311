package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
)

// draftRequest is shared across the draft kinds; each kind reads the fields
// it needs.
type draftRequest struct {
	Topic    string `json:"topic"`
	Audience string `json:"audience"`
	Post     string `json:"post"`
	Inquiry  string `json:"inquiry"`
	Request  string `json:"request"`
	Goal     string `json:"goal"`
	Tone     string `json:"tone"`
}

// Draft handles POST /api/ai/draft/{kind} where kind is one of
// post|comment|reply|quote|email.
func (h *Handlers) Draft(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req draftRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	var (
		out string
		err error
	)
	switch kind := chi.URLParam(r, "kind"); kind {
	case "post":
		if req.Topic == "" {
			httputil.BadRequest(w, "topic is required")
			return
		}
		out, err = h.Drafter.DraftPost(r.Context(), req.Topic, req.Audience)
	case "comment":
		if req.Post == "" {
			httputil.BadRequest(w, "post is required")
			return
		}
		out, err = h.Drafter.DraftComment(r.Context(), req.Post)
	case "reply":
		if req.Inquiry == "" {
			httputil.BadRequest(w, "inquiry is required")
			return
		}
		out, err = h.Drafter.DraftReply(r.Context(), req.Inquiry, "")
	case "quote":
		if req.Request == "" {
			httputil.BadRequest(w, "request is required")
			return
		}
		// The quote is grounded in the user's own price list.
		services, listErr := h.Catalog.ListServices(r.Context(), uid)
		if listErr != nil {
			httputil.InternalError(w, listErr)
			return
		}
		out, err = h.Drafter.DraftQuote(r.Context(), req.Request, services)
	case "email":
		if req.Goal == "" {
			httputil.BadRequest(w, "goal is required")
			return
		}
		out, err = h.Drafter.DraftEmailBody(r.Context(), req.Goal, req.Tone)
	default:
		httputil.BadRequest(w, "unknown draft kind "+kind)
		return
	}

	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "draft generation failed: "+err.Error())
		return
	}
	httputil.OK(w, map[string]string{"content": out})
}
