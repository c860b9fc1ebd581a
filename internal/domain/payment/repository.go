package payment

import (
	"context"

	"github.com/google/uuid"
)

// SearchFilter narrows a repository search
type SearchFilter struct {
	// Search is matched case-insensitively against names, address, city, country and email
	Search string
	// Limit caps the rows returned, newest first; zero returns every match
	Limit int
}

// Repository defines the interface for payment persistence
type Repository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByEvidenceID finds the payment an evidence file is attached to
	FindByEvidenceID(ctx context.Context, evidenceID string) (*Payment, error)

	// Search returns every payment matching the filter, newest first
	Search(ctx context.Context, filter SearchFilter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, p *Payment) error

	// SaveBatch creates multiple payments in one transaction
	SaveBatch(ctx context.Context, payments []*Payment) error

	// Delete deletes a payment
	Delete(ctx context.Context, id uuid.UUID) error
}
