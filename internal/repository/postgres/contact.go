package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

// ContactRepo handles contact lists and their members.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// ListEmails resolves a contact list to its member emails in stable
// scheduling order (created_at, then id as tie-break). Duplicate emails
// inside one list collapse to a single entry; the first occurrence wins.
func (r *ContactRepo) ListEmails(ctx context.Context, listID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email FROM contacts
		WHERE list_id = $1
		ORDER BY created_at, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out, rows.Err()
}

func (r *ContactRepo) CreateList(ctx context.Context, userID, name string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_lists (id, user_id, name, created_at)
		VALUES ($1, $2, $3, NOW())
	`, id, userID, name)
	if err != nil {
		return "", fmt.Errorf("create contact list: %w", err)
	}
	return id, nil
}

func (r *ContactRepo) Lists(ctx context.Context, userID string) ([]domain.ContactList, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cl.id, cl.user_id, cl.name, cl.created_at,
		       (SELECT COUNT(*) FROM contacts c WHERE c.list_id = cl.id)
		FROM contact_lists cl
		WHERE cl.user_id = $1
		ORDER BY cl.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contact lists: %w", err)
	}
	defer rows.Close()

	var out []domain.ContactList
	for rows.Next() {
		var l domain.ContactList
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt, &l.ContactCount); err != nil {
			return nil, fmt.Errorf("scan contact list: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ContactRepo) DeleteList(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM contact_lists WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contact list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ContactRepo) AddContact(ctx context.Context, listID, email, name string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, list_id, email, name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, id, listID, email, name)
	if err != nil {
		return "", fmt.Errorf("add contact: %w", err)
	}
	return id, nil
}

func (r *ContactRepo) Contacts(ctx context.Context, listID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, list_id, email, name, created_at
		FROM contacts
		WHERE list_id = $1
		ORDER BY created_at, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.ListID, &c.Email, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ContactRepo) DeleteContact(ctx context.Context, listID, contactID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE id = $1 AND list_id = $2
	`, contactID, listID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
