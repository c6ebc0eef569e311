package domain

import "time"

// Contract is a collaborator agreement tracked on the contracts dashboard.
type Contract struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Collaborator string     `json:"collaborator" db:"collaborator"`
	Title        string     `json:"title" db:"title"`
	Value        float64    `json:"value" db:"value"`
	Status       string     `json:"status" db:"status"` // pending|signed|expired
	SignedAt     *time.Time `json:"signed_at" db:"signed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Income is one revenue entry, optionally tied to a contract.
type Income struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ContractID string    `json:"contract_id,omitempty" db:"contract_id"`
	Amount     float64   `json:"amount" db:"amount"`
	Month      string    `json:"month" db:"month"` // YYYY-MM
	Note       string    `json:"note" db:"note"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Document is an entry in the shared document catalog.
type Document struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Category  string    `json:"category" db:"category"`
	FileURL   string    `json:"file_url" db:"file_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ServiceItem is an entry in the service/price catalog used when drafting
// quotes.
type ServiceItem struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
