package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

// TemplateRepo stores the subject/body pairs campaigns rotate through.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

// Get loads a template by id without a user scope. The drip worker calls
// this with ids taken straight off the campaign row.
func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t := &domain.EmailTemplate{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, subject, html_body, created_at
		FROM email_templates WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLBody, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) List(ctx context.Context, userID string) ([]domain.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, subject, html_body, created_at
		FROM email_templates WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailTemplate
	for rows.Next() {
		var t domain.EmailTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLBody, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) Create(ctx context.Context, t *domain.EmailTemplate) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, user_id, name, subject, html_body, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, t.ID, t.UserID, t.Name, t.Subject, t.HTMLBody)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	return t.ID, nil
}

func (r *TemplateRepo) Update(ctx context.Context, userID string, t *domain.EmailTemplate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_templates SET name = $1, subject = $2, html_body = $3
		WHERE id = $4 AND user_id = $5
	`, t.Name, t.Subject, t.HTMLBody, t.ID, userID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM email_templates WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
