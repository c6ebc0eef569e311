package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/campaign"
)

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	campaigns, total, err := h.Campaigns.List(r.Context(), uid, campaign.ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": campaigns, "total": total})
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.Campaigns.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.Campaigns.Create(r.Context(), uid, input)
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.Created(w, c)
}

func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var fields campaign.UpdateFields
	if !httputil.Decode(w, r, &fields) {
		return
	}
	if err := h.Campaigns.Update(r.Context(), uid, chi.URLParam(r, "id"), fields); err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.Success(w, "campaign updated")
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Campaigns.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.Success(w, "campaign deleted")
}

func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input campaign.ScheduleInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if err := h.Campaigns.Schedule(r.Context(), uid, chi.URLParam(r, "id"), input); err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.Success(w, "campaign scheduled")
}

func (h *Handlers) ResendFailed(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	n, err := h.Campaigns.ResendFailed(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"resent": n})
}

func (h *Handlers) CampaignReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.Campaigns.Report(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"contacts": report})
}

// writeCampaignError maps service errors onto HTTP statuses.
func writeCampaignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrInvalidTransition),
		errors.Is(err, campaign.ErrNotEditable),
		errors.Is(err, campaign.ErrMissingList),
		errors.Is(err, campaign.ErrMissingTemplates),
		errors.Is(err, campaign.ErrValidation):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
