package campaign

import (
	"context"
	"time"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, userID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter, ordered by created_at DESC.
	List(ctx context.Context, userID string, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Update modifies a campaign. Only non-nil fields in the update are applied.
	Update(ctx context.Context, userID, id string, u UpdateFields) error

	// Delete removes a campaign. Only draft campaigns can be deleted.
	Delete(ctx context.Context, userID, id string) error

	// Schedule moves a draft campaign to 'scheduled' with the given timing.
	// Returns ErrInvalidTransition if the campaign is not in draft.
	Schedule(ctx context.Context, userID, id string, at time.Time, intervalValue int, unit domain.IntervalUnit) error

	// ReopenSending resets a campaign to 'sending' with last_sent_at cleared,
	// used by the resend-failed operation.
	ReopenSending(ctx context.Context, userID, id string) error
}

// LogRepository is the slice of the send-log ledger the campaign service
// needs for reporting and resend.
type LogRepository interface {
	// Report returns per-contact delivery status for a campaign, including
	// contacts with no log row yet (status "pending").
	Report(ctx context.Context, campaignID, listID string) ([]domain.ContactReport, error)

	// DeleteFailed removes all failed rows for a campaign and returns how
	// many were removed.
	DeleteFailed(ctx context.Context, campaignID string) (int, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name        *string
	ListID      *string
	TemplateIDs *[]string
	FromName    *string
}
