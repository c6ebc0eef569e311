// Package ai drafts marketing copy: posts, comments, consulting replies,
// price quotes and campaign email bodies. Providers are interchangeable; the
// drafting prompts live here, not in the handlers.
package ai

import "context"

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider generates a completion. Unlike the mail send path, providers may
// retry transient failures internally.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
