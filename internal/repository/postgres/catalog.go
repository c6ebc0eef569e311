package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/service/catalog"
)

// CatalogRepo implements catalog.Repository for contracts, incomes,
// documents and services.
type CatalogRepo struct{ db *sql.DB }

// NewCatalogRepo creates a Postgres-backed catalog repository.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ----- contracts -----

func (r *CatalogRepo) ListContracts(ctx context.Context, userID string) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, collaborator, title, value, status, signed_at, created_at
		FROM contracts WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contract
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(&c.ID, &c.UserID, &c.Collaborator, &c.Title, &c.Value,
			&c.Status, &c.SignedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateContract(ctx context.Context, c *domain.Contract) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts (id, user_id, collaborator, title, value, status, signed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, c.ID, c.UserID, c.Collaborator, c.Title, c.Value, c.Status, c.SignedAt)
	if err != nil {
		return "", fmt.Errorf("create contract: %w", err)
	}
	return c.ID, nil
}

func (r *CatalogRepo) UpdateContract(ctx context.Context, userID string, c *domain.Contract) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET collaborator = $1, title = $2, value = $3, status = $4, signed_at = $5
		WHERE id = $6 AND user_id = $7
	`, c.Collaborator, c.Title, c.Value, c.Status, c.SignedAt, c.ID, userID)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) DeleteContract(ctx context.Context, userID, id string) error {
	return r.deleteByID(ctx, "contracts", userID, id)
}

// ----- incomes -----

func (r *CatalogRepo) ListIncomes(ctx context.Context, userID, month string) ([]domain.Income, error) {
	q := `SELECT id, user_id, COALESCE(contract_id::text, ''), amount, month, note, created_at
		FROM incomes WHERE user_id = $1`
	args := []any{userID}
	if month != "" {
		q += ` AND month = $2`
		args = append(args, month)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []domain.Income
	for rows.Next() {
		var in domain.Income
		if err := rows.Scan(&in.ID, &in.UserID, &in.ContractID, &in.Amount,
			&in.Month, &in.Note, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateIncome(ctx context.Context, in *domain.Income) (string, error) {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, contract_id, amount, month, note, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, NOW())
	`, in.ID, in.UserID, in.ContractID, in.Amount, in.Month, in.Note)
	if err != nil {
		return "", fmt.Errorf("create income: %w", err)
	}
	return in.ID, nil
}

func (r *CatalogRepo) DeleteIncome(ctx context.Context, userID, id string) error {
	return r.deleteByID(ctx, "incomes", userID, id)
}

func (r *CatalogRepo) MonthlyTotals(ctx context.Context, userID string) ([]catalog.MonthlyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, SUM(amount) FROM incomes
		WHERE user_id = $1
		GROUP BY month
		ORDER BY month DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []catalog.MonthlyTotal
	for rows.Next() {
		var t catalog.MonthlyTotal
		if err := rows.Scan(&t.Month, &t.Total); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ----- documents -----

func (r *CatalogRepo) ListDocuments(ctx context.Context, userID, category string) ([]domain.Document, error) {
	q := `SELECT id, user_id, title, category, file_url, created_at
		FROM documents WHERE user_id = $1`
	args := []any{userID}
	if category != "" {
		q += ` AND category = $2`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Category, &d.FileURL, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateDocument(ctx context.Context, d *domain.Document) (string, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, title, category, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, d.ID, d.UserID, d.Title, d.Category, d.FileURL)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return d.ID, nil
}

func (r *CatalogRepo) DeleteDocument(ctx context.Context, userID, id string) error {
	return r.deleteByID(ctx, "documents", userID, id)
}

// ----- services -----

func (r *CatalogRepo) ListServices(ctx context.Context, userID string) ([]domain.ServiceItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, price, created_at
		FROM services WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []domain.ServiceItem
	for rows.Next() {
		var s domain.ServiceItem
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.Price, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateService(ctx context.Context, s *domain.ServiceItem) (string, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (id, user_id, name, description, price, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, s.ID, s.UserID, s.Name, s.Description, s.Price)
	if err != nil {
		return "", fmt.Errorf("create service: %w", err)
	}
	return s.ID, nil
}

func (r *CatalogRepo) UpdateService(ctx context.Context, userID string, s *domain.ServiceItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE services SET name = $1, description = $2, price = $3
		WHERE id = $4 AND user_id = $5
	`, s.Name, s.Description, s.Price, s.ID, userID)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) DeleteService(ctx context.Context, userID, id string) error {
	return r.deleteByID(ctx, "services", userID, id)
}

func (r *CatalogRepo) deleteByID(ctx context.Context, table, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table), id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
