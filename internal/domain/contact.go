package domain

import "time"

// ContactList is a named collection of recipients. Membership is the only
// relationship that matters to sending.
type ContactList struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	ContactCount int       `json:"contact_count" db:"contact_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Contact is an email address belonging to a list. Immutable once created.
type Contact struct {
	ID        string    `json:"id" db:"id"`
	ListID    string    `json:"list_id" db:"list_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
