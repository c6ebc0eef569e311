package tracking

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type memRecorder struct {
	opened  map[string]time.Time
	clicked map[string]time.Time
	err     error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{opened: make(map[string]time.Time), clicked: make(map[string]time.Time)}
}

func (m *memRecorder) MarkOpened(ctx context.Context, logID string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.opened[logID]; !ok {
		m.opened[logID] = at
	}
	return nil
}

func (m *memRecorder) MarkClicked(ctx context.Context, logID string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.clicked[logID]; !ok {
		m.clicked[logID] = at
	}
	return nil
}

func TestHandleOpen(t *testing.T) {
	rec := newMemRecorder()
	h := NewHandler(rec)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/track/open?log_id=log-1")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, ok := rec.opened["log-1"]; !ok {
		t.Error("open not recorded")
	}
}

func TestHandleOpen_FirstOpenWins(t *testing.T) {
	rec := newMemRecorder()
	h := NewHandler(rec)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	http.Get(srv.URL + "/track/open?log_id=log-1")
	first := rec.opened["log-1"]

	now = now.Add(time.Hour)
	http.Get(srv.URL + "/track/open?log_id=log-1")
	if got := rec.opened["log-1"]; !got.Equal(first) {
		t.Errorf("opened_at moved on second open: %v -> %v", first, got)
	}
}

func TestHandleOpen_RecordFailureStillServesPixel(t *testing.T) {
	rec := newMemRecorder()
	rec.err = errors.New("db down")
	h := NewHandler(rec)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/track/open?log_id=log-1")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("pixel withheld on db failure: status %d", resp.StatusCode)
	}
}

func TestHandleOpen_MissingLogIDStillServesPixel(t *testing.T) {
	rec := newMemRecorder()
	h := NewHandler(rec)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/track/open")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	if !bytes.Equal(body.Bytes(), pixelGIF) {
		t.Error("response is not the pixel")
	}
	if len(rec.opened) != 0 {
		t.Error("recorded an open with no log id")
	}
}

func TestHandleClick(t *testing.T) {
	rec := newMemRecorder()
	h := NewHandler(rec)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/track/click?log_id=log-1&redirect_url=https%3A%2F%2Fshop.example.com%2Fdeal")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://shop.example.com/deal" {
		t.Errorf("Location = %q", loc)
	}
	if _, ok := rec.clicked["log-1"]; !ok {
		t.Error("click not recorded")
	}
}

func TestHandleClick_UnsafeRedirectRejected(t *testing.T) {
	rec := newMemRecorder()
	h := NewHandler(rec)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	for _, target := range []string{"javascript:alert(1)", "ftp://x.example.com", "not-a-url", ""} {
		resp, err := http.Get(srv.URL + "/track/click?log_id=log-1&redirect_url=" + target)
		if err != nil {
			t.Fatalf("GET error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("redirect_url=%q: status = %d, want 400", target, resp.StatusCode)
		}
	}
}
