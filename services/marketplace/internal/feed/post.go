package feed

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	DefaultRating = 5.0
	DefaultUnit   = "Plates"
)

type Post struct {
	ID               uuid.UUID `json:"id" bson:"_id"`
	Title            string    `json:"title" bson:"title"`
	Category         string    `json:"category,omitempty" bson:"category,omitempty"`
	Chef             string    `json:"chef" bson:"chef"`
	ChefAvatar       string    `json:"chef_avatar,omitempty" bson:"chef_avatar,omitempty"`
	SupplierID       string    `json:"supplier_id" bson:"supplier_id"`
	Price            string    `json:"price" bson:"price"`
	Quantity         string    `json:"quantity" bson:"quantity"`
	Rating           float64   `json:"rating" bson:"rating"`
	Images           []string  `json:"images" bson:"images"`
	Ingredients      []string  `json:"ingredients,omitempty" bson:"ingredients,omitempty"`
	Location         string    `json:"location,omitempty" bson:"location,omitempty"`
	SupplierPostcode string    `json:"supplier_postcode,omitempty" bson:"supplier_postcode,omitempty"`
	SupplierLat      *float64  `json:"supplier_lat,omitempty" bson:"supplier_lat,omitempty"`
	SupplierLng      *float64  `json:"supplier_lng,omitempty" bson:"supplier_lng,omitempty"`
	IsFavorite       bool      `json:"is_favorite" bson:"is_favorite"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
	Version          int       `json:"-" bson:"version"`
}

func (p *Post) GetID() uuid.UUID {
	return p.ID
}

func (p *Post) ResourceType() string {
	return "post"
}

func (p *Post) SetID(id uuid.UUID) {
	p.ID = id
}

func NewPost() *Post {
	return &Post{
		ID:     apt.GenerateNewID(),
		Rating: DefaultRating,
		Images: []string{},
	}
}

func (p *Post) EnsureID() {
	if p.ID == uuid.Nil {
		p.ID = apt.GenerateNewID()
	}
}

func (p *Post) BeforeCreate() {
	p.EnsureID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
}

func (p *Post) BeforeUpdate() {
	p.UpdatedAt = time.Now()
}

// CoverImage returns the first image reference, or "" when there is none.
func (p *Post) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Remaining is the authoritative stock count encoded in Quantity.
func (p *Post) Remaining() int {
	return ParseCount(p.Quantity)
}

// SetRemaining rewrites the numeric prefix of Quantity, keeping its unit label.
func (p *Post) SetRemaining(n int) {
	p.Quantity = FormatQuantity(n, Unit(p.Quantity))
}

// Clone returns a deep copy so callers never share slices with stored posts.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Images = append([]string(nil), p.Images...)
	if p.Ingredients != nil {
		c.Ingredients = append([]string(nil), p.Ingredients...)
	}
	if p.SupplierLat != nil {
		lat := *p.SupplierLat
		c.SupplierLat = &lat
	}
	if p.SupplierLng != nil {
		lng := *p.SupplierLng
		c.SupplierLng = &lng
	}
	return &c
}
