package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL. It also
// exposes the due-campaign queries and status transitions used by the drip
// scheduler.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `
	id, user_id, name, COALESCE(list_id::text, ''), template_ids,
	COALESCE(from_name, ''), status, scheduled_at,
	send_interval_value, send_interval_unit, last_sent_at, sent_at,
	created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var templateIDs []byte
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.ListID, &templateIDs,
		&c.FromName, &c.Status, &c.ScheduledAt,
		&c.SendIntervalValue, &c.SendIntervalUnit, &c.LastSentAt, &c.SentAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(templateIDs) > 0 {
		if err := json.Unmarshal(templateIDs, &c.TemplateIDs); err != nil {
			return nil, fmt.Errorf("decode template_ids: %w", err)
		}
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, userID, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM email_campaigns
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, userID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM email_campaigns WHERE user_id = $1`
	countArgs := []any{userID}
	if f.Status != "" {
		countQ += ` AND status = $2`
		countArgs = append(countArgs, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignColumns + ` FROM email_campaigns WHERE user_id = $1`
	args := []any{userID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	templateIDs, err := json.Marshal(c.TemplateIDs)
	if err != nil {
		return "", fmt.Errorf("encode template_ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_campaigns
			(id, user_id, name, list_id, template_ids, from_name, status,
			 send_interval_value, send_interval_unit, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, NOW(), NOW())
	`, c.ID, c.UserID, c.Name, c.ListID, templateIDs, c.FromName, c.Status,
		c.SendIntervalValue, c.SendIntervalUnit)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) Update(ctx context.Context, userID, id string, u campaign.UpdateFields) error {
	sets := []string{}
	args := []any{}
	idx := 1
	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.ListID != nil {
		sets = append(sets, fmt.Sprintf("list_id = NULLIF($%d, '')::uuid", idx))
		args = append(args, *u.ListID)
		idx++
	}
	if u.TemplateIDs != nil {
		encoded, err := json.Marshal(*u.TemplateIDs)
		if err != nil {
			return fmt.Errorf("encode template_ids: %w", err)
		}
		add("template_ids", encoded)
	}
	if u.FromName != nil {
		add("from_name", *u.FromName)
	}
	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf(`UPDATE email_campaigns SET %s, updated_at = NOW()
		WHERE id = $%d AND user_id = $%d AND status = 'draft'`,
		strings.Join(sets, ", "), idx, idx+1)
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or not editable; disambiguate for the caller.
		if _, err := r.Get(ctx, userID, id); err != nil {
			return err
		}
		return campaign.ErrNotEditable
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM email_campaigns
		WHERE id = $1 AND user_id = $2 AND status = 'draft'
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Schedule(ctx context.Context, userID, id string, at time.Time, intervalValue int, unit domain.IntervalUnit) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'scheduled', scheduled_at = $1,
		    send_interval_value = $2, send_interval_unit = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5 AND status = 'draft'
	`, at, intervalValue, unit, id, userID)
	if err != nil {
		return fmt.Errorf("schedule campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, userID, id); err != nil {
			return err
		}
		return campaign.ErrInvalidTransition
	}
	return nil
}

func (r *CampaignRepo) ReopenSending(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'sending', last_sent_at = NULL, sent_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status IN ('sending', 'sent')
	`, id, userID)
	if err != nil {
		return fmt.Errorf("reopen campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// =============================================================================
// Drip scheduler queries
// =============================================================================

// Due returns campaigns the scheduler should look at this pass: scheduled
// campaigns whose time has arrived plus all campaigns still sending, oldest
// schedule first. The interval check for 'sending' campaigns happens in the
// scheduler because interval arithmetic lives on the domain type.
func (r *CampaignRepo) Due(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM email_campaigns
		WHERE (status = 'scheduled' AND scheduled_at <= $1)
		   OR status = 'sending'
		ORDER BY scheduled_at ASC NULLS LAST
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// MarkSending transitions scheduled -> sending. Rows already moved on by a
// concurrent pass are left alone.
func (r *CampaignRepo) MarkSending(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = 'sending', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`, id)
	if err != nil {
		return fmt.Errorf("mark sending: %w", err)
	}
	return nil
}

// MarkSent transitions sending -> sent and stamps sent_at.
func (r *CampaignRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = 'sent', sent_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'sending'
	`, at, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// TouchLastSent records the dispatch time used for interval spacing.
func (r *CampaignRepo) TouchLastSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET last_sent_at = $1, updated_at = NOW()
		WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("touch last_sent_at: %w", err)
	}
	return nil
}
