package drip

import (
	"context"
	"errors"
	"fmt"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/mailer"
)

// TemplateGetter loads the subject/body pair for a template id.
type TemplateGetter interface {
	Get(ctx context.Context, id string) (*domain.EmailTemplate, error)
}

// MailDispatcher is the production Dispatcher: load the template, render it
// for the recipient with tracking baked in, and hand it to the sender.
type MailDispatcher struct {
	templates TemplateGetter
	renderer  *mailer.Renderer
	sender    mailer.Sender
}

// NewMailDispatcher wires the render-and-send path.
func NewMailDispatcher(templates TemplateGetter, renderer *mailer.Renderer, sender mailer.Sender) *MailDispatcher {
	return &MailDispatcher{templates: templates, renderer: renderer, sender: sender}
}

func (d *MailDispatcher) Dispatch(ctx context.Context, c *domain.Campaign, logID, templateID, toEmail string) (string, error) {
	tpl, err := d.templates.Get(ctx, templateID)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", templateID, err)
	}

	subject, body, err := d.renderer.Render(tpl.Subject, tpl.HTMLBody, mailer.RenderContext{
		RecipientEmail: toEmail,
		FromName:       c.FromName,
		CampaignName:   c.Name,
	}, logID)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", templateID, err)
	}

	res, err := d.sender.Send(ctx, c.UserID, mailer.Message{
		To:       toEmail,
		FromName: c.FromName,
		Subject:  subject,
		HTMLBody: body,
	})
	if err != nil {
		return "", err
	}
	if !res.Success {
		if res.Reconnect {
			return "", fmt.Errorf("%s: %w", res.Reason, mailer.ErrReconnectRequired)
		}
		return "", errors.New(res.Reason)
	}
	return res.MessageID, nil
}
