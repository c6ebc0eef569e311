// Package catalog covers the dashboard entities around the mailing core:
// contracts, incomes, documents and the service/price list.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

var contractStatuses = map[string]bool{"pending": true, "signed": true, "expired": true}

// MonthlyTotal is one row of the income report.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Repository is the data contract for all four catalog entities.
type Repository interface {
	ListContracts(ctx context.Context, userID string) ([]domain.Contract, error)
	CreateContract(ctx context.Context, c *domain.Contract) (string, error)
	UpdateContract(ctx context.Context, userID string, c *domain.Contract) error
	DeleteContract(ctx context.Context, userID, id string) error

	ListIncomes(ctx context.Context, userID, month string) ([]domain.Income, error)
	CreateIncome(ctx context.Context, in *domain.Income) (string, error)
	DeleteIncome(ctx context.Context, userID, id string) error
	MonthlyTotals(ctx context.Context, userID string) ([]MonthlyTotal, error)

	ListDocuments(ctx context.Context, userID, category string) ([]domain.Document, error)
	CreateDocument(ctx context.Context, d *domain.Document) (string, error)
	DeleteDocument(ctx context.Context, userID, id string) error

	ListServices(ctx context.Context, userID string) ([]domain.ServiceItem, error)
	CreateService(ctx context.Context, s *domain.ServiceItem) (string, error)
	UpdateService(ctx context.Context, userID string, s *domain.ServiceItem) error
	DeleteService(ctx context.Context, userID, id string) error
}

// Service validates and forwards to the repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListContracts(ctx context.Context, userID string) ([]domain.Contract, error) {
	return s.repo.ListContracts(ctx, userID)
}

func (s *Service) CreateContract(ctx context.Context, c *domain.Contract) (string, error) {
	if c.Collaborator == "" || c.Title == "" {
		return "", fmt.Errorf("%w: collaborator and title are required", ErrValidation)
	}
	if c.Status == "" {
		c.Status = "pending"
	}
	if !contractStatuses[c.Status] {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, c.Status)
	}
	return s.repo.CreateContract(ctx, c)
}

func (s *Service) UpdateContract(ctx context.Context, userID string, c *domain.Contract) error {
	if c.Status != "" && !contractStatuses[c.Status] {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, c.Status)
	}
	return s.repo.UpdateContract(ctx, userID, c)
}

func (s *Service) DeleteContract(ctx context.Context, userID, id string) error {
	return s.repo.DeleteContract(ctx, userID, id)
}

func (s *Service) ListIncomes(ctx context.Context, userID, month string) ([]domain.Income, error) {
	if month != "" && !monthRe.MatchString(month) {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrValidation)
	}
	return s.repo.ListIncomes(ctx, userID, month)
}

func (s *Service) CreateIncome(ctx context.Context, in *domain.Income) (string, error) {
	if in.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !monthRe.MatchString(in.Month) {
		return "", fmt.Errorf("%w: month must be YYYY-MM", ErrValidation)
	}
	return s.repo.CreateIncome(ctx, in)
}

func (s *Service) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.repo.DeleteIncome(ctx, userID, id)
}

// MonthlyTotals aggregates income per month, newest first.
func (s *Service) MonthlyTotals(ctx context.Context, userID string) ([]MonthlyTotal, error) {
	return s.repo.MonthlyTotals(ctx, userID)
}

func (s *Service) ListDocuments(ctx context.Context, userID, category string) ([]domain.Document, error) {
	return s.repo.ListDocuments(ctx, userID, category)
}

func (s *Service) CreateDocument(ctx context.Context, d *domain.Document) (string, error) {
	if d.Title == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	return s.repo.CreateDocument(ctx, d)
}

func (s *Service) DeleteDocument(ctx context.Context, userID, id string) error {
	return s.repo.DeleteDocument(ctx, userID, id)
}

func (s *Service) ListServices(ctx context.Context, userID string) ([]domain.ServiceItem, error) {
	return s.repo.ListServices(ctx, userID)
}

func (s *Service) CreateService(ctx context.Context, item *domain.ServiceItem) (string, error) {
	if item.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if item.Price < 0 {
		return "", fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	return s.repo.CreateService(ctx, item)
}

func (s *Service) UpdateService(ctx context.Context, userID string, item *domain.ServiceItem) error {
	if item.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	return s.repo.UpdateService(ctx, userID, item)
}

func (s *Service) DeleteService(ctx context.Context, userID, id string) error {
	return s.repo.DeleteService(ctx, userID, id)
}
