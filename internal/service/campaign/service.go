package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

// Service implements campaign business logic. It coordinates between the
// campaign repository and the send-log ledger. All public methods are safe
// for concurrent use if the underlying repositories are concurrency-safe.
type Service struct {
	repo Repository
	logs LogRepository
}

// NewService creates a campaign service backed by the given repositories.
func NewService(repo Repository, logs LogRepository) *Service {
	return &Service{repo: repo, logs: logs}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, userID, f)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name              string              `json:"name"`
	ListID            string              `json:"list_id"`
	TemplateIDs       []string            `json:"template_ids"`
	FromName          string              `json:"from_name"`
	SendIntervalValue int                 `json:"send_interval_value"`
	SendIntervalUnit  domain.IntervalUnit `json:"send_interval_unit"`
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.ListID == "" {
		return nil, ErrMissingList
	}
	if len(input.TemplateIDs) == 0 {
		return nil, ErrMissingTemplates
	}

	unit := input.SendIntervalUnit
	if unit == "" {
		unit = domain.IntervalHour
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("%w: invalid interval unit %q", ErrValidation, unit)
	}
	value := input.SendIntervalValue
	if value <= 0 {
		value = 1
	}

	c := &domain.Campaign{
		ID:                uuid.New().String(),
		UserID:            userID,
		Name:              input.Name,
		ListID:            input.ListID,
		TemplateIDs:       input.TemplateIDs,
		FromName:          input.FromName,
		Status:            domain.CampaignDraft,
		SendIntervalValue: value,
		SendIntervalUnit:  unit,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update modifies mutable campaign fields. Only draft campaigns may be
// edited; the repository enforces that.
func (s *Service) Update(ctx context.Context, userID, id string, u UpdateFields) error {
	return s.repo.Update(ctx, userID, id, u)
}

// Delete removes a campaign (draft only).
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// ScheduleInput holds the fields for scheduling a campaign.
type ScheduleInput struct {
	ScheduledAt       time.Time           `json:"scheduled_at"`
	SendIntervalValue int                 `json:"send_interval_value"`
	SendIntervalUnit  domain.IntervalUnit `json:"send_interval_unit"`
}

// Schedule transitions a draft campaign to scheduled. The drip scheduler
// picks it up once scheduled_at arrives.
func (s *Service) Schedule(ctx context.Context, userID, id string, input ScheduleInput) error {
	if input.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", ErrValidation)
	}
	if !input.SendIntervalUnit.Valid() {
		return fmt.Errorf("%w: invalid interval unit %q", ErrValidation, input.SendIntervalUnit)
	}
	if input.SendIntervalValue <= 0 {
		return fmt.Errorf("%w: send_interval_value must be positive", ErrValidation)
	}

	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !c.CanTransition(domain.CampaignScheduled) {
		return ErrInvalidTransition
	}
	if len(c.TemplateIDs) == 0 {
		return ErrMissingTemplates
	}

	return s.repo.Schedule(ctx, userID, id, input.ScheduledAt, input.SendIntervalValue, input.SendIntervalUnit)
}

// ResendFailed clears all failed log rows for a campaign and reopens it for
// sending with last_sent_at reset, so the next scheduler pass re-attempts
// exactly those contacts. Returns the number of rows cleared.
func (s *Service) ResendFailed(ctx context.Context, userID, id string) (int, error) {
	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if c.Status != domain.CampaignSending && c.Status != domain.CampaignSent {
		return 0, ErrInvalidTransition
	}

	n, err := s.logs.DeleteFailed(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("clear failed logs: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.repo.ReopenSending(ctx, userID, id); err != nil {
		return n, fmt.Errorf("reopen campaign: %w", err)
	}

	log.Printf("[campaign.Service] Campaign %s: cleared %d failed sends for re-attempt", id, n)
	return n, nil
}

// Report returns per-contact delivery status for a campaign so operators can
// see exactly which sends need the explicit resend action.
func (s *Service) Report(ctx context.Context, userID, id string) ([]domain.ContactReport, error) {
	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.logs.Report(ctx, id, c.ListID)
}
