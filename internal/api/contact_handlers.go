package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/httputil"
)

func (h *Handlers) ListContactLists(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	lists, err := h.Contacts.Lists(r.Context(), uid)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"lists": lists})
}

func (h *Handlers) CreateContactList(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	id, err := h.Contacts.CreateList(r.Context(), uid, body.Name)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) DeleteContactList(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.Contacts.DeleteList(r.Context(), uid, chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "list not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "list deleted")
}

func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	contacts, err := h.Contacts.Contacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"contacts": contacts})
}

func (h *Handlers) AddContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		httputil.BadRequest(w, "a valid email is required")
		return
	}
	id, err := h.Contacts.AddContact(r.Context(), chi.URLParam(r, "id"), body.Email, body.Name)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	err := h.Contacts.DeleteContact(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "contactID"))
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "contact not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "contact deleted")
}

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	templates, err := h.Templates.List(r.Context(), uid)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"templates": templates})
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var t domain.EmailTemplate
	if !httputil.Decode(w, r, &t) {
		return
	}
	if t.Name == "" || t.Subject == "" {
		httputil.BadRequest(w, "name and subject are required")
		return
	}
	t.UserID = uid
	id, err := h.Templates.Create(r.Context(), &t)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": id})
}

func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var t domain.EmailTemplate
	if !httputil.Decode(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	err := h.Templates.Update(r.Context(), uid, &t)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "template not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "template updated")
}

func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.Templates.Delete(r.Context(), uid, chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "template not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Success(w, "template deleted")
}
