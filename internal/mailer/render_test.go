package mailer

import (
	"strings"
	"testing"
)

func TestRenderer_Bindings(t *testing.T) {
	r := NewRenderer("")
	subject, body, err := r.Render(
		"Hello {{ name | default: \"there\" }}",
		"<html><body><p>Hi {{ name }}, from {{ from_name }}</p></body></html>",
		RenderContext{RecipientEmail: "a@example.com", RecipientName: "An", FromName: "Media Team"},
		"log-1",
	)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Hello An" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "Hi An, from Media Team") {
		t.Errorf("body = %q", body)
	}
}

func TestRenderer_DefaultFilter(t *testing.T) {
	r := NewRenderer("")
	subject, _, err := r.Render("Hello {{ name | default: \"there\" }}", "x", RenderContext{}, "")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Hello there" {
		t.Errorf("subject = %q, want fallback applied", subject)
	}
}

func TestRenderer_TrackingInjection(t *testing.T) {
	r := NewRenderer("https://track.example.com")
	_, body, err := r.Render(
		"s",
		`<html><body><a href="https://shop.example.com/deal">Deal</a></body></html>`,
		RenderContext{RecipientEmail: "a@example.com"},
		"log-42",
	)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(body, "https://track.example.com/track/open?log_id=log-42") {
		t.Errorf("missing open pixel in body: %q", body)
	}
	if !strings.Contains(body, "/track/click?log_id=log-42&redirect_url=https%3A%2F%2Fshop.example.com%2Fdeal") {
		t.Errorf("link not rewritten: %q", body)
	}
	if idx := strings.Index(body, "<img"); idx > strings.Index(body, "</body>") {
		t.Error("pixel injected after </body>")
	}
}

func TestRenderer_NoTrackingWhenDisabled(t *testing.T) {
	r := NewRenderer("")
	_, body, err := r.Render("s", `<a href="https://x.example.com">x</a>`, RenderContext{}, "log-1")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(body, "/track/") {
		t.Errorf("tracking injected with no base URL: %q", body)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced html", "```html\n<p>hi</p>\n```", "<p>hi</p>"},
		{"fenced plain", "```\n<p>hi</p>\n```", "<p>hi</p>"},
		{"unfenced", "<p>hi</p>", "<p>hi</p>"},
		{"fence in middle stays", "before ``` after", "before ``` after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
