package mailer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// RenderContext is the typed variable set available inside email templates.
// Keeping it a struct instead of a free-form map means a template can never
// reference data the sender did not deliberately expose.
type RenderContext struct {
	RecipientEmail string
	RecipientName  string
	FromName       string
	CampaignName   string
}

// Renderer turns a stored template plus a recipient into the final HTML body,
// with the tracking pixel and rewritten links already injected. Parsed
// templates are cached by body text.
type Renderer struct {
	engine          *liquid.Engine
	cache           sync.Map // body string -> *liquid.Template
	trackingBaseURL string
}

// NewRenderer creates a renderer. trackingBaseURL is the public origin of the
// tracking service; empty disables open/click instrumentation.
func NewRenderer(trackingBaseURL string) *Renderer {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, fallback string) interface{} {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})
	return &Renderer{
		engine:          engine,
		trackingBaseURL: strings.TrimRight(trackingBaseURL, "/"),
	}
}

// Render produces subject and HTML body for one recipient. logID ties the
// injected tracking URLs back to the send-log row.
func (r *Renderer) Render(subject, htmlBody string, ctx RenderContext, logID string) (string, string, error) {
	bindings := map[string]interface{}{
		"email":         ctx.RecipientEmail,
		"name":          ctx.RecipientName,
		"from_name":     ctx.FromName,
		"campaign_name": ctx.CampaignName,
	}

	renderedSubject, err := r.renderOne(subject, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	renderedBody, err := r.renderOne(StripCodeFences(htmlBody), bindings)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	if r.trackingBaseURL != "" && logID != "" {
		renderedBody = r.rewriteLinks(renderedBody, logID)
		renderedBody = r.injectPixel(renderedBody, logID)
	}
	return renderedSubject, renderedBody, nil
}

func (r *Renderer) renderOne(text string, bindings map[string]interface{}) (string, error) {
	var tpl *liquid.Template
	if cached, ok := r.cache.Load(text); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := r.engine.ParseString(text)
		if err != nil {
			return "", err
		}
		r.cache.Store(text, parsed)
		tpl = parsed
	}
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", err
	}
	return out, nil
}

// injectPixel appends the 1x1 open-tracking image just before </body>, or at
// the end when the template has no body tag.
func (r *Renderer) injectPixel(html, logID string) string {
	pixel := fmt.Sprintf(
		`<img src="%s/track/open?log_id=%s" width="1" height="1" alt="" style="display:none;">`,
		r.trackingBaseURL, url.QueryEscape(logID))
	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return html[:idx] + pixel + html[idx:]
	}
	return html + pixel
}

var hrefRe = regexp.MustCompile(`(?i)href="(https?://[^"]+)"`)

// rewriteLinks routes every absolute link through the click endpoint.
// Anchors, mailto and relative links are left alone.
func (r *Renderer) rewriteLinks(html, logID string) string {
	return hrefRe.ReplaceAllStringFunc(html, func(match string) string {
		target := hrefRe.FindStringSubmatch(match)[1]
		if strings.HasPrefix(target, r.trackingBaseURL+"/track/") {
			return match
		}
		return fmt.Sprintf(`href="%s/track/click?log_id=%s&redirect_url=%s"`,
			r.trackingBaseURL, url.QueryEscape(logID), url.QueryEscape(target))
	})
}

var codeFenceRe = regexp.MustCompile("(?s)^\\s*```(?:html)?\\s*\\n?(.*?)\\n?```\\s*$")

// StripCodeFences unwraps AI-drafted bodies that arrive wrapped in a
// markdown code fence.
func StripCodeFences(s string) string {
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
