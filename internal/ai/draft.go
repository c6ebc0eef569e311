package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/mailer"
)

// Drafter generates copy for the collaborator dashboards. All operations
// return plain text or HTML with any markdown code fences already stripped.
type Drafter struct {
	provider Provider
}

// NewDrafter wraps a provider with the drafting prompts.
func NewDrafter(provider Provider) *Drafter {
	return &Drafter{provider: provider}
}

const systemPrompt = "You are a marketing assistant for a media services agency. " +
	"Write in the same language as the user's input. " +
	"Return only the requested content with no preamble and no markdown code fences."

// DraftPost writes a social media post about a topic.
func (d *Drafter) DraftPost(ctx context.Context, topic, audience string) (string, error) {
	prompt := fmt.Sprintf("Write a social media post about: %s.", topic)
	if audience != "" {
		prompt += fmt.Sprintf(" Target audience: %s.", audience)
	}
	return d.complete(ctx, prompt, 0.8)
}

// DraftComment writes a short engagement comment for someone else's post.
func (d *Drafter) DraftComment(ctx context.Context, postContent string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a short, natural comment responding to this post. Keep it under two sentences.\n\nPost:\n%s",
		postContent)
	return d.complete(ctx, prompt, 0.9)
}

// DraftReply writes a consulting reply to a customer inquiry.
func (d *Drafter) DraftReply(ctx context.Context, inquiry, serviceContext string) (string, error) {
	prompt := fmt.Sprintf("Write a helpful consulting reply to this customer inquiry:\n\n%s", inquiry)
	if serviceContext != "" {
		prompt += fmt.Sprintf("\n\nRelevant service information:\n%s", serviceContext)
	}
	return d.complete(ctx, prompt, 0.6)
}

// DraftQuote writes a price quote grounded in the service catalog so the
// model cannot invent prices.
func (d *Drafter) DraftQuote(ctx context.Context, request string, services []domain.ServiceItem) (string, error) {
	var catalog strings.Builder
	for _, s := range services {
		fmt.Fprintf(&catalog, "- %s: %.0f", s.Name, s.Price)
		if s.Description != "" {
			fmt.Fprintf(&catalog, " (%s)", s.Description)
		}
		catalog.WriteString("\n")
	}
	prompt := fmt.Sprintf(
		"Write a price quote for this request:\n\n%s\n\n"+
			"Use only these services and prices, do not invent any:\n%s",
		request, catalog.String())
	return d.complete(ctx, prompt, 0.4)
}

// DraftEmailBody writes an HTML email body for a campaign template variant.
func (d *Drafter) DraftEmailBody(ctx context.Context, campaignGoal, tone string) (string, error) {
	prompt := fmt.Sprintf(
		"Write an HTML email body for a marketing campaign. Goal: %s.", campaignGoal)
	if tone != "" {
		prompt += fmt.Sprintf(" Tone: %s.", tone)
	}
	prompt += " Use simple inline-styled HTML that renders well in email clients. " +
		"Liquid placeholders {{ name }} and {{ from_name }} are available."
	return d.complete(ctx, prompt, 0.7)
}

func (d *Drafter) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	out, err := d.provider.Complete(ctx, Request{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   2000,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(mailer.StripCodeFences(out)), nil
}
