package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/ai"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/campaign"
)

// =============================================================================
// In-memory campaign repo, enough for handler tests
// =============================================================================

type memCampaignRepo struct {
	campaigns map[string]*domain.Campaign
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: make(map[string]*domain.Campaign)}
}

func (m *memCampaignRepo) Get(ctx context.Context, userID, id string) (*domain.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok || c.UserID != userID {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) List(ctx context.Context, userID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *memCampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	m.campaigns[c.ID] = c
	return c.ID, nil
}

func (m *memCampaignRepo) Update(ctx context.Context, userID, id string, u campaign.UpdateFields) error {
	c, ok := m.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return campaign.ErrNotEditable
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	return nil
}

func (m *memCampaignRepo) Delete(ctx context.Context, userID, id string) error {
	if _, ok := m.campaigns[id]; !ok {
		return campaign.ErrNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memCampaignRepo) Schedule(ctx context.Context, userID, id string, at time.Time, v int, unit domain.IntervalUnit) error {
	c := m.campaigns[id]
	c.Status = domain.CampaignScheduled
	c.ScheduledAt = &at
	c.SendIntervalValue = v
	c.SendIntervalUnit = unit
	return nil
}

func (m *memCampaignRepo) ReopenSending(ctx context.Context, userID, id string) error {
	c := m.campaigns[id]
	c.Status = domain.CampaignSending
	c.LastSentAt = nil
	return nil
}

type memLogRepo struct {
	report []domain.ContactReport
	failed int
}

func (m *memLogRepo) Report(ctx context.Context, campaignID, listID string) ([]domain.ContactReport, error) {
	return m.report, nil
}

func (m *memLogRepo) DeleteFailed(ctx context.Context, campaignID string) (int, error) {
	n := m.failed
	m.failed = 0
	return n, nil
}

type fakeProvider struct{ reply string }

func (f *fakeProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	return f.reply, nil
}

func newTestServer(t *testing.T, repo *memCampaignRepo, logs *memLogRepo) *httptest.Server {
	t.Helper()
	h := &Handlers{
		Campaigns: campaign.NewService(repo, logs),
		Drafter:   ai.NewDrafter(&fakeProvider{reply: "drafted content"}),
	}
	srv := httptest.NewServer(SetupRoutes(h))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "user-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

// =============================================================================
// Tests
// =============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newMemCampaignRepo(), &memLogRepo{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCampaignLifecycle(t *testing.T) {
	repo := newMemCampaignRepo()
	srv := newTestServer(t, repo, &memLogRepo{})

	// Create
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/campaigns", map[string]any{
		"name":         "Spring outreach",
		"list_id":      "list-1",
		"template_ids": []string{"tpl-1", "tpl-2"},
		"from_name":    "Media Team",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created domain.Campaign
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != domain.CampaignDraft {
		t.Errorf("new campaign status = %s", created.Status)
	}

	// Schedule
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/campaigns/"+created.ID+"/schedule", map[string]any{
		"scheduled_at":        time.Now().Add(time.Hour).Format(time.RFC3339),
		"send_interval_value": 2,
		"send_interval_unit":  "minute",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schedule status = %d", resp.StatusCode)
	}
	if repo.campaigns[created.ID].Status != domain.CampaignScheduled {
		t.Errorf("status after schedule = %s", repo.campaigns[created.ID].Status)
	}

	// Scheduling again is an invalid transition.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/campaigns/"+created.ID+"/schedule", map[string]any{
		"scheduled_at":        time.Now().Add(time.Hour).Format(time.RFC3339),
		"send_interval_value": 2,
		"send_interval_unit":  "minute",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("double schedule status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateCampaign_ValidationError(t *testing.T) {
	srv := newTestServer(t, newMemCampaignRepo(), &memLogRepo{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/campaigns", map[string]any{
		"name": "no list or templates",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestResendFailed(t *testing.T) {
	repo := newMemCampaignRepo()
	repo.campaigns["camp-1"] = &domain.Campaign{
		ID: "camp-1", UserID: "user-1", Status: domain.CampaignSent,
		ListID: "list-1", TemplateIDs: []string{"tpl-1"},
	}
	logs := &memLogRepo{failed: 2}
	srv := newTestServer(t, repo, logs)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/campaigns/camp-1/resend-failed", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Resent int `json:"resent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Resent != 2 {
		t.Errorf("resent = %d, want 2", out.Resent)
	}
	if repo.campaigns["camp-1"].Status != domain.CampaignSending {
		t.Errorf("status = %s, want sending", repo.campaigns["camp-1"].Status)
	}
}

func TestMissingUserIdentity(t *testing.T) {
	srv := newTestServer(t, newMemCampaignRepo(), &memLogRepo{})

	resp, err := http.Get(srv.URL + "/api/campaigns")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDraftEndpoint(t *testing.T) {
	srv := newTestServer(t, newMemCampaignRepo(), &memLogRepo{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/ai/draft/post", map[string]any{
		"topic": "new office opening",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Content != "drafted content" {
		t.Errorf("content = %q", out.Content)
	}
}

func TestDraftEndpoint_UnknownKind(t *testing.T) {
	srv := newTestServer(t, newMemCampaignRepo(), &memLogRepo{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/ai/draft/poem", map[string]any{"topic": "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
