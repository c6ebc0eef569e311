package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/drip"
)

const pqUniqueViolation = "23505"

// SendLogRepo is the Postgres-backed send-log ledger. The unique constraint
// on (campaign_id, contact_email) is what makes Claim safe under concurrent
// scheduler passes.
type SendLogRepo struct{ db *sql.DB }

// NewSendLogRepo creates a Postgres-backed send-log repository.
func NewSendLogRepo(db *sql.DB) *SendLogRepo { return &SendLogRepo{db: db} }

// Claim inserts a 'sending' row for the contact and returns its id. A unique
// violation means some other pass got there first; callers should skip the
// contact and move on.
func (r *SendLogRepo) Claim(ctx context.Context, campaignID, contactEmail, templateID string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_send_logs (id, campaign_id, contact_email, template_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'sending', NOW())
	`, id, campaignID, contactEmail, templateID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return "", drip.ErrAlreadyClaimed
		}
		return "", fmt.Errorf("claim contact: %w", err)
	}
	return id, nil
}

// MarkResult finalizes a claimed row with the delivery outcome.
func (r *SendLogRepo) MarkResult(ctx context.Context, logID string, status domain.SendLogStatus, messageID, sendErr string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_send_logs
		SET status = $1, message_id = $2, error = $3, sent_at = $4
		WHERE id = $5
	`, status, messageID, sendErr, at, logID)
	if err != nil {
		return fmt.Errorf("mark send result: %w", err)
	}
	return nil
}

// AttemptedEmails returns the set of contact emails that already have a log
// row for the campaign, regardless of row status.
func (r *SendLogRepo) AttemptedEmails(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT contact_email FROM email_send_logs WHERE campaign_id = $1
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("attempted emails: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan attempted email: %w", err)
		}
		out[email] = true
	}
	return out, rows.Err()
}

// DeleteFailed removes every failed row for the campaign so the scheduler
// will pick those contacts up again. Returns the number of rows removed.
func (r *SendLogRepo) DeleteFailed(ctx context.Context, campaignID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM email_send_logs WHERE campaign_id = $1 AND status = 'failed'
	`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("delete failed logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete failed logs: %w", err)
	}
	return int(n), nil
}

// MarkOpened stamps opened_at on first open only. Re-fires are no-ops.
func (r *SendLogRepo) MarkOpened(ctx context.Context, logID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_send_logs SET opened_at = $1
		WHERE id = $2 AND opened_at IS NULL
	`, at, logID)
	if err != nil {
		return fmt.Errorf("mark opened: %w", err)
	}
	return nil
}

// MarkClicked stamps clicked_at on first click only.
func (r *SendLogRepo) MarkClicked(ctx context.Context, logID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_send_logs SET clicked_at = $1
		WHERE id = $2 AND clicked_at IS NULL
	`, at, logID)
	if err != nil {
		return fmt.Errorf("mark clicked: %w", err)
	}
	return nil
}

// Report joins the campaign's contact list against the ledger. Contacts with
// no log row come back as "pending"; contacts removed from the list after
// being attempted still appear with their logged outcome.
func (r *SendLogRepo) Report(ctx context.Context, campaignID, listID string) ([]domain.ContactReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.email AS contact_email,
		       COALESCE(l.status, 'pending') AS status,
		       COALESCE(l.error, '') AS error,
		       l.sent_at, l.opened_at, l.clicked_at
		FROM contacts c
		LEFT JOIN email_send_logs l
			ON l.campaign_id = $1 AND l.contact_email = c.email
		WHERE c.list_id = $2
		UNION ALL
		SELECT l.contact_email, l.status, l.error, l.sent_at, l.opened_at, l.clicked_at
		FROM email_send_logs l
		WHERE l.campaign_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM contacts c WHERE c.list_id = $2 AND c.email = l.contact_email
		  )
		ORDER BY contact_email
	`, campaignID, listID)
	if err != nil {
		return nil, fmt.Errorf("campaign report: %w", err)
	}
	defer rows.Close()

	var out []domain.ContactReport
	for rows.Next() {
		var rep domain.ContactReport
		if err := rows.Scan(&rep.ContactEmail, &rep.Status, &rep.Error,
			&rep.SentAt, &rep.OpenedAt, &rep.ClickedAt); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
