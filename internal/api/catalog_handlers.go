package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/catalog"
)

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httputil.NotFound(w, "record not found")
	case errors.Is(err, catalog.ErrValidation):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// ----- contracts -----

func (h *Handlers) ListContracts(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	contracts, err := h.Catalog.ListContracts(r.Context(), uid)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"contracts": contracts})
}

func (h *Handlers) CreateContract(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var c domain.Contract
	if !httputil.Decode(w, r, &c) {
		return
	}
	c.UserID = uid
	id, err := h.Catalog.CreateContract(r.Context(), &c)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) UpdateContract(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var c domain.Contract
	if !httputil.Decode(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := h.Catalog.UpdateContract(r.Context(), uid, &c); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "contract updated")
}

func (h *Handlers) DeleteContract(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteContract(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "contract deleted")
}

// ----- incomes -----

func (h *Handlers) ListIncomes(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	incomes, err := h.Catalog.ListIncomes(r.Context(), uid, r.URL.Query().Get("month"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"incomes": incomes})
}

func (h *Handlers) CreateIncome(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in domain.Income
	if !httputil.Decode(w, r, &in) {
		return
	}
	in.UserID = uid
	id, err := h.Catalog.CreateIncome(r.Context(), &in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteIncome(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "income deleted")
}

func (h *Handlers) IncomeReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	totals, err := h.Catalog.MonthlyTotals(r.Context(), uid)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"months": totals})
}

// ----- documents -----

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	docs, err := h.Catalog.ListDocuments(r.Context(), uid, r.URL.Query().Get("category"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"documents": docs})
}

func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var d domain.Document
	if !httputil.Decode(w, r, &d) {
		return
	}
	d.UserID = uid
	id, err := h.Catalog.CreateDocument(r.Context(), &d)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteDocument(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "document deleted")
}

// ----- services -----

func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	services, err := h.Catalog.ListServices(r.Context(), uid)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"services": services})
}

func (h *Handlers) CreateService(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var s domain.ServiceItem
	if !httputil.Decode(w, r, &s) {
		return
	}
	s.UserID = uid
	id, err := h.Catalog.CreateService(r.Context(), &s)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) UpdateService(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var s domain.ServiceItem
	if !httputil.Decode(w, r, &s) {
		return
	}
	s.ID = chi.URLParam(r, "id")
	if err := h.Catalog.UpdateService(r.Context(), uid, &s); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "service updated")
}

func (h *Handlers) DeleteService(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteService(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	httputil.Success(w, "service deleted")
}
