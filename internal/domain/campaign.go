package domain

import (
	"fmt"
	"time"
)

// CampaignStatus enumerates the lifecycle states of a drip email campaign.
// Status only moves forward (draft -> scheduled -> sending -> sent); the one
// sanctioned backward move is resend-failed, which reopens 'sending'.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
)

// IntervalUnit is the unit of the delay between two consecutive sends
// of the same campaign.
type IntervalUnit string

const (
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
	IntervalDay    IntervalUnit = "day"
)

// Valid reports whether the unit is one of minute/hour/day.
func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalMinute, IntervalHour, IntervalDay:
		return true
	}
	return false
}

// Campaign represents a drip send job: one email per recipient, spaced by the
// configured interval, rotating through the ordered template list.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	UserID      string         `json:"user_id" db:"user_id"`
	Name        string         `json:"name" db:"name"`
	ListID      string         `json:"list_id" db:"list_id"`
	TemplateIDs []string       `json:"template_ids" db:"template_ids"`
	FromName    string         `json:"from_name" db:"from_name"`
	Status      CampaignStatus `json:"status" db:"status"`

	ScheduledAt       *time.Time   `json:"scheduled_at" db:"scheduled_at"`
	SendIntervalValue int          `json:"send_interval_value" db:"send_interval_value"`
	SendIntervalUnit  IntervalUnit `json:"send_interval_unit" db:"send_interval_unit"`
	LastSentAt        *time.Time   `json:"last_sent_at" db:"last_sent_at"`
	SentAt            *time.Time   `json:"sent_at" db:"sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Interval returns the configured gap between two consecutive sends.
// A zero or negative value collapses to zero (send on every pass).
func (c *Campaign) Interval() time.Duration {
	if c.SendIntervalValue <= 0 {
		return 0
	}
	switch c.SendIntervalUnit {
	case IntervalHour:
		return time.Duration(c.SendIntervalValue) * time.Hour
	case IntervalDay:
		return time.Duration(c.SendIntervalValue) * 24 * time.Hour
	default:
		return time.Duration(c.SendIntervalValue) * time.Minute
	}
}

// TemplateAt returns the template id for the k-th send (0-indexed), rotating
// through the ordered template list.
func (c *Campaign) TemplateAt(k int) (string, error) {
	if len(c.TemplateIDs) == 0 {
		return "", fmt.Errorf("campaign %s has no templates", c.ID)
	}
	if k < 0 {
		k = 0
	}
	return c.TemplateIDs[k%len(c.TemplateIDs)], nil
}

// CanTransition reports whether the status change is a legal forward move.
func (c *Campaign) CanTransition(to CampaignStatus) bool {
	switch c.Status {
	case CampaignDraft:
		return to == CampaignScheduled
	case CampaignScheduled:
		return to == CampaignSending
	case CampaignSending:
		return to == CampaignSent
	case CampaignSent:
		// resend-failed reopens sending
		return to == CampaignSending
	}
	return false
}

// EmailTemplate is one subject/body pair a campaign rotates through.
// Bodies may be AI-generated HTML.
type EmailTemplate struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	HTMLBody  string    `json:"html_body" db:"html_body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
