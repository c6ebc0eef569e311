package domain

import "time"

// SendLogStatus enumerates the lifecycle of one delivery attempt.
type SendLogStatus string

const (
	SendLogSending SendLogStatus = "sending"
	SendLogSuccess SendLogStatus = "success"
	SendLogFailed  SendLogStatus = "failed"
)

// SendLog is the durable record of one attempted delivery to one recipient
// for one campaign. At most one row exists per (campaign, contact email);
// presence of a row, regardless of status, marks that contact as attempted.
type SendLog struct {
	ID           string        `json:"id" db:"id"`
	CampaignID   string        `json:"campaign_id" db:"campaign_id"`
	ContactEmail string        `json:"contact_email" db:"contact_email"`
	TemplateID   string        `json:"template_id" db:"template_id"`
	Status       SendLogStatus `json:"status" db:"status"`
	Error        string        `json:"error,omitempty" db:"error"`
	MessageID    string        `json:"message_id,omitempty" db:"message_id"`
	SentAt       *time.Time    `json:"sent_at" db:"sent_at"`
	OpenedAt     *time.Time    `json:"opened_at" db:"opened_at"`
	ClickedAt    *time.Time    `json:"clicked_at" db:"clicked_at"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// ContactReport is one row of the per-campaign delivery report exposed to
// operators: pending contacts have no log row yet.
type ContactReport struct {
	ContactEmail string     `json:"contact_email"`
	Status       string     `json:"status"` // pending|sending|success|failed
	Error        string     `json:"error,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	ClickedAt    *time.Time `json:"clicked_at,omitempty"`
}
