package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PostFilter struct {
	SupplierID    string
	Category      string
	FavoritesOnly bool
	CreatedAfter  time.Time
}

// PostRepo is the posts collection of the document store.
// Get returns (nil, nil) for unknown ids. Save is a compare-and-swap on
// Version: it fails with errs.ErrConflict when the stored version moved on,
// and bumps post.Version on success. Delete is idempotent. DeleteVersion
// removes the post only while its stored version equals version, with the
// same errors as Save.
// List returns posts newest first.
type PostRepo interface {
	Create(ctx context.Context, post *Post) error
	Get(ctx context.Context, id uuid.UUID) (*Post, error)
	List(ctx context.Context, filter PostFilter) ([]*Post, error)
	Save(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteVersion(ctx context.Context, id uuid.UUID, version int) error
}

// Matches applies filter to a single post. Repositories without query
// support use it to filter in memory.
func (f PostFilter) Matches(p *Post) bool {
	if f.SupplierID != "" && p.SupplierID != f.SupplierID {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.FavoritesOnly && !p.IsFavorite {
		return false
	}
	if !f.CreatedAfter.IsZero() && p.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	return true
}
