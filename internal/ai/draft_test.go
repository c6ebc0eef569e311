package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

type fakeProvider struct {
	lastReq Request
	reply   string
	err     error
}

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

func TestDrafter_StripsCodeFences(t *testing.T) {
	p := &fakeProvider{reply: "```html\n<p>Hello {{ name }}</p>\n```"}
	d := NewDrafter(p)

	out, err := d.DraftEmailBody(context.Background(), "spring promotion", "friendly")
	if err != nil {
		t.Fatalf("DraftEmailBody() error: %v", err)
	}
	if out != "<p>Hello {{ name }}</p>" {
		t.Errorf("DraftEmailBody() = %q, want fences stripped", out)
	}
}

func TestDrafter_QuoteUsesCatalog(t *testing.T) {
	p := &fakeProvider{reply: "quote text"}
	d := NewDrafter(p)

	services := []domain.ServiceItem{
		{Name: "Seeding", Price: 5000000, Description: "forum seeding package"},
		{Name: "Ads", Price: 12000000},
	}
	if _, err := d.DraftQuote(context.Background(), "need seeding for a launch", services); err != nil {
		t.Fatalf("DraftQuote() error: %v", err)
	}
	if !strings.Contains(p.lastReq.Prompt, "Seeding: 5000000") {
		t.Errorf("prompt missing catalog entry: %q", p.lastReq.Prompt)
	}
	if !strings.Contains(p.lastReq.Prompt, "do not invent") {
		t.Errorf("prompt missing grounding instruction: %q", p.lastReq.Prompt)
	}
}

func TestDrafter_SystemPromptAttached(t *testing.T) {
	p := &fakeProvider{reply: "a post"}
	d := NewDrafter(p)

	if _, err := d.DraftPost(context.Background(), "new office", "collaborators"); err != nil {
		t.Fatalf("DraftPost() error: %v", err)
	}
	if p.lastReq.System == "" {
		t.Error("system prompt not set")
	}
	if !strings.Contains(p.lastReq.Prompt, "new office") {
		t.Errorf("prompt missing topic: %q", p.lastReq.Prompt)
	}
}
