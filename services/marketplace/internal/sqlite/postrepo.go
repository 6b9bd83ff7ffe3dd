package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type postRow struct {
	ID               string `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	Category         string `gorm:"index"`
	Chef             string
	ChefAvatar       string
	SupplierID       string `gorm:"index;not null"`
	Price            string `gorm:"not null"`
	Quantity         string `gorm:"not null"`
	Rating           float64
	Images           []string `gorm:"serializer:json"`
	Ingredients      []string `gorm:"serializer:json"`
	Location         string
	SupplierPostcode string
	SupplierLat      *float64
	SupplierLng      *float64
	IsFavorite       bool
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
	Version          int `gorm:"not null"`
}

func (postRow) TableName() string {
	return "posts"
}

func toPostRow(p *feed.Post) *postRow {
	return &postRow{
		ID:               p.ID.String(),
		Title:            p.Title,
		Category:         p.Category,
		Chef:             p.Chef,
		ChefAvatar:       p.ChefAvatar,
		SupplierID:       p.SupplierID,
		Price:            p.Price,
		Quantity:         p.Quantity,
		Rating:           p.Rating,
		Images:           p.Images,
		Ingredients:      p.Ingredients,
		Location:         p.Location,
		SupplierPostcode: p.SupplierPostcode,
		SupplierLat:      p.SupplierLat,
		SupplierLng:      p.SupplierLng,
		IsFavorite:       p.IsFavorite,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		Version:          p.Version,
	}
}

func (r *postRow) toPost() (*feed.Post, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", r.ID, err)
	}
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return &feed.Post{
		ID:               id,
		Title:            r.Title,
		Category:         r.Category,
		Chef:             r.Chef,
		ChefAvatar:       r.ChefAvatar,
		SupplierID:       r.SupplierID,
		Price:            r.Price,
		Quantity:         r.Quantity,
		Rating:           r.Rating,
		Images:           images,
		Ingredients:      r.Ingredients,
		Location:         r.Location,
		SupplierPostcode: r.SupplierPostcode,
		SupplierLat:      r.SupplierLat,
		SupplierLng:      r.SupplierLng,
		IsFavorite:       r.IsFavorite,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Version:          r.Version,
	}, nil
}

type PostRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db: db}
}

func (r *PostRepo) Create(ctx context.Context, p *feed.Post) error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}

	p.Version = 1
	if err := r.db.WithContext(ctx).Create(toPostRow(p)).Error; err != nil {
		return fmt.Errorf("cannot create post: %w", err)
	}
	return nil
}

func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*feed.Post, error) {
	var row postRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get post: %w", err)
	}
	return row.toPost()
}

func (r *PostRepo) List(ctx context.Context, filter feed.PostFilter) ([]*feed.Post, error) {
	query := r.db.WithContext(ctx).Model(&postRow{})

	if filter.SupplierID != "" {
		query = query.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.FavoritesOnly {
		query = query.Where("is_favorite = ?", true)
	}
	if !filter.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedAfter)
	}

	var rows []postRow
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cannot list posts: %w", err)
	}

	result := make([]*feed.Post, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toPost()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Save writes the row only if its version still matches.
func (r *PostRepo) Save(ctx context.Context, p *feed.Post) error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}

	row := toPostRow(p)
	row.Version = p.Version + 1

	result := r.db.WithContext(ctx).
		Model(&postRow{}).
		Where("id = ? AND version = ?", row.ID, p.Version).
		Select("*").
		Updates(row)
	if result.Error != nil {
		return fmt.Errorf("cannot update post: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&postRow{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("cannot check post: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("post %s: %w", p.ID, errs.ErrNotFound)
		}
		return fmt.Errorf("post %s: %w", p.ID, errs.ErrConflict)
	}

	p.Version = row.Version
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&postRow{}, "id = ?", id.String()).Error; err != nil {
		return fmt.Errorf("cannot delete post: %w", err)
	}
	return nil
}

// DeleteVersion removes the row only if its version still matches.
func (r *PostRepo) DeleteVersion(ctx context.Context, id uuid.UUID, version int) error {
	result := r.db.WithContext(ctx).Delete(&postRow{}, "id = ? AND version = ?", id.String(), version)
	if result.Error != nil {
		return fmt.Errorf("cannot delete post: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&postRow{}).Where("id = ?", id.String()).Count(&count).Error; err != nil {
			return fmt.Errorf("cannot check post: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
		}
		return fmt.Errorf("post %s: %w", id, errs.ErrConflict)
	}

	return nil
}
