package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/dawatapp/dawat/pkg/enums/foodcategory"
	"github.com/dawatapp/dawat/pkg/event"
	"github.com/dawatapp/dawat/pkg/keylock"
	"github.com/dawatapp/dawat/pkg/money"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/geocode"
	"github.com/google/uuid"
)

// DefaultFreshness hides posts older than four hours from the browse feed.
const DefaultFreshness = 4 * time.Hour

type PostInput struct {
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Chef             string   `json:"chef"`
	ChefAvatar       string   `json:"chef_avatar"`
	SupplierID       string   `json:"supplier_id"`
	Price            string   `json:"price"`
	Quantity         int      `json:"quantity"`
	Images           []string `json:"images"`
	Ingredients      []string `json:"ingredients"`
	Location         string   `json:"location"`
	SupplierPostcode string   `json:"supplier_postcode"`
	SupplierLat      *float64 `json:"supplier_lat"`
	SupplierLng      *float64 `json:"supplier_lng"`
}

// ListOptions narrows a feed listing. Fresh applies the freshness window.
type ListOptions struct {
	SupplierID    string
	Category      string
	FavoritesOnly bool
	Fresh         bool
}

type CatalogDeps struct {
	Repo      PostRepo
	Geocoder  geocode.Client
	Publisher events.Publisher
	Locks     *keylock.Set
	Freshness time.Duration
	Now       func() time.Time
}

// Catalog owns the posts collection. Every mutation of a single post runs
// under that post's lock.
type Catalog struct {
	repo      PostRepo
	geocoder  geocode.Client
	publisher events.Publisher
	locks     *keylock.Set
	freshness time.Duration
	now       func() time.Time
	logger    apt.Logger
}

func NewCatalog(deps CatalogDeps, logger apt.Logger) *Catalog {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.Geocoder == nil {
		deps.Geocoder = geocode.NewNoopClient()
	}
	if deps.Locks == nil {
		deps.Locks = keylock.New()
	}
	if deps.Freshness <= 0 {
		deps.Freshness = DefaultFreshness
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Catalog{
		repo:      deps.Repo,
		geocoder:  deps.Geocoder,
		publisher: deps.Publisher,
		locks:     deps.Locks,
		freshness: deps.Freshness,
		now:       deps.Now,
		logger:    logger,
	}
}

func (c *Catalog) Create(ctx context.Context, in PostInput) (*Post, error) {
	if problems := ValidatePostInput(in); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}

	price, _ := money.Normalize(in.Price)

	post := NewPost()
	post.Title = strings.TrimSpace(in.Title)
	if cat := foodcategory.ByName(in.Category); cat != nil {
		post.Category = cat.Code()
	}
	post.Chef = in.Chef
	post.ChefAvatar = in.ChefAvatar
	post.SupplierID = in.SupplierID
	post.Price = price
	post.Quantity = FormatQuantity(in.Quantity, DefaultUnit)
	post.Images = append([]string(nil), in.Images...)
	post.Ingredients = append([]string(nil), in.Ingredients...)
	post.Location = in.Location
	post.SupplierPostcode = strings.TrimSpace(in.SupplierPostcode)
	post.SupplierLat = in.SupplierLat
	post.SupplierLng = in.SupplierLng

	c.locate(ctx, post)

	post.EnsureID()
	post.CreatedAt = c.now()
	post.UpdatedAt = post.CreatedAt

	if err := c.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("cannot create post: %w", err)
	}

	c.logger.Info("post created", "post_id", post.ID.String(), "supplier_id", post.SupplierID, "quantity", post.Quantity)
	c.publish(ctx, event.EventPostCreated, post, nil)

	return post, nil
}

// locate fills supplier coordinates from the postcode when the caller did not
// provide them. A failed lookup leaves the post without coordinates.
func (c *Catalog) locate(ctx context.Context, post *Post) {
	if post.SupplierPostcode == "" || (post.SupplierLat != nil && post.SupplierLng != nil) {
		return
	}

	coords, err := c.geocoder.Lookup(ctx, post.SupplierPostcode)
	if err != nil {
		c.logger.Error("cannot geocode supplier postcode", "postcode", post.SupplierPostcode, "error", err)
		return
	}
	if coords == nil {
		c.logger.Debug("supplier postcode not found", "postcode", post.SupplierPostcode)
		return
	}

	lat, lng := coords.Latitude, coords.Longitude
	post.SupplierLat = &lat
	post.SupplierLng = &lng
}

// Edit overwrites quantity and price in place. An unknown id is not an error:
// it returns (nil, nil) and changes nothing.
func (c *Catalog) Edit(ctx context.Context, id uuid.UUID, quantity int, price string) (*Post, error) {
	if problems := ValidateStockUpdate(quantity, price); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}
	normalized, _ := money.Normalize(price)

	unlock := c.locks.Lock(id)
	defer unlock()

	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return nil, nil
	}

	post.SetRemaining(quantity)
	post.Price = normalized
	post.BeforeUpdate()

	if err := c.repo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("cannot save post: %w", err)
	}

	c.publish(ctx, event.EventPostUpdated, post, nil)
	return post, nil
}

// Delete removes a post. Deleting an unknown id succeeds.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return nil
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("cannot delete post: %w", err)
	}

	c.publish(ctx, event.EventPostDeleted, post, nil)
	return nil
}

// Repost publishes a fresh copy of an existing post with new stock and price.
// The source post is left untouched and does not need to be sold out.
func (c *Catalog) Repost(ctx context.Context, sourceID uuid.UUID, quantity int, price string) (*Post, error) {
	if problems := ValidateStockUpdate(quantity, price); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}
	normalized, _ := money.Normalize(price)

	source, err := c.repo.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("cannot load post: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("post %s: %w", sourceID, errs.ErrNotFound)
	}

	post := source.Clone()
	post.ID = apt.GenerateNewID()
	post.Version = 0
	post.SetRemaining(quantity)
	post.Price = normalized
	post.CreatedAt = c.now()
	post.UpdatedAt = post.CreatedAt

	if err := c.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("cannot create post: %w", err)
	}

	c.logger.Info("post reposted", "post_id", post.ID.String(), "source_post_id", sourceID.String())
	c.publish(ctx, event.EventPostReposted, post, &sourceID)

	return post, nil
}

// DecrementOnOrder takes ordered units out of stock and removes the post when
// nothing is left. An unknown id is silently ignored.
func (c *Catalog) DecrementOnOrder(ctx context.Context, id uuid.UUID, ordered int) error {
	if ordered < 1 {
		return fmt.Errorf("%w: ordered must be at least 1", errs.ErrValidation)
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	return c.decrement(ctx, id, ordered)
}

func (c *Catalog) decrement(ctx context.Context, id uuid.UUID, ordered int) error {
	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return nil
	}

	return c.take(ctx, post, ordered)
}

// take writes post back with ordered units removed. Both the save and the
// sold out removal are conditional on the version post was read at, so a
// concurrent writer elsewhere surfaces as errs.ErrConflict or errs.ErrNotFound.
func (c *Catalog) take(ctx context.Context, post *Post, ordered int) error {
	id := post.ID
	remaining := post.Remaining() - ordered
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 {
		if err := c.repo.DeleteVersion(ctx, id, post.Version); err != nil {
			return fmt.Errorf("cannot remove sold out post: %w", err)
		}
		post.SetRemaining(0)
		c.logger.Info("post sold out", "post_id", id.String())
		c.publish(ctx, event.EventPostSoldOut, post, nil)
		return nil
	}

	post.SetRemaining(remaining)
	post.BeforeUpdate()
	if err := c.repo.Save(ctx, post); err != nil {
		return fmt.Errorf("cannot save post: %w", err)
	}

	c.publish(ctx, event.EventPostUpdated, post, nil)
	return nil
}

// Reserve checks stock for quantity, runs place with a snapshot of the post
// and then decrements stock, all while holding the post lock. When place
// fails nothing is decremented. If another process changed the post after
// the stock check the decrement fails with errs.ErrConflict or errs.ErrNotFound.
func (c *Catalog) Reserve(ctx context.Context, id uuid.UUID, quantity int, place func(post *Post) error) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", errs.ErrValidation)
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}

	if remaining := post.Remaining(); quantity > remaining {
		return fmt.Errorf("%w: insufficient stock, %d left", errs.ErrValidation, remaining)
	}

	if err := place(post.Clone()); err != nil {
		return err
	}

	return c.take(ctx, post, quantity)
}

// UpdateRating overwrites the post rating, rounded to one decimal and kept in 0..5.
func (c *Catalog) UpdateRating(ctx context.Context, id uuid.UUID, avg float64) (*Post, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	return c.setRating(ctx, id, avg)
}

// RefreshRating runs compute and stores its average while holding the post
// lock, so refreshes of one post never overwrite a newer average with an
// older one. When compute reports ok false the post is left untouched and
// (nil, nil) is returned.
func (c *Catalog) RefreshRating(ctx context.Context, id uuid.UUID, compute func(ctx context.Context) (avg float64, ok bool, err error)) (*Post, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	avg, ok, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return c.setRating(ctx, id, avg)
}

func (c *Catalog) setRating(ctx context.Context, id uuid.UUID, avg float64) (*Post, error) {
	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}

	post.Rating = RoundRating(avg)
	post.BeforeUpdate()
	if err := c.repo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("cannot save post: %w", err)
	}

	c.publish(ctx, event.EventPostRerated, post, nil)
	return post, nil
}

func (c *Catalog) ToggleFavorite(ctx context.Context, id uuid.UUID) (*Post, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}

	post.IsFavorite = !post.IsFavorite
	post.BeforeUpdate()
	if err := c.repo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("cannot save post: %w", err)
	}

	return post, nil
}

// Get returns the post or (nil, nil) when it does not exist.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load post: %w", err)
	}
	return post, nil
}

// List returns posts newest first.
func (c *Catalog) List(ctx context.Context, opts ListOptions) ([]*Post, error) {
	filter := PostFilter{
		SupplierID:    opts.SupplierID,
		FavoritesOnly: opts.FavoritesOnly,
	}
	if opts.Category != "" {
		cat := foodcategory.ByName(opts.Category)
		if cat == nil {
			return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, opts.Category)
		}
		filter.Category = cat.Code()
	}
	if opts.Fresh {
		filter.CreatedAfter = c.now().Add(-c.freshness)
	}

	posts, err := c.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list posts: %w", err)
	}
	return posts, nil
}

// RoundRating keeps a rating within 0..5 with one decimal.
func RoundRating(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return math.Round(v*10) / 10
}

func (c *Catalog) publish(ctx context.Context, eventType string, post *Post, sourceID *uuid.UUID) {
	if c.publisher == nil {
		return
	}

	evt := event.PostEvent{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		PostID:     post.ID.String(),
		SupplierID: post.SupplierID,
		Title:      post.Title,
		Quantity:   post.Quantity,
		Price:      post.Price,
		Rating:     post.Rating,
	}
	if sourceID != nil {
		evt.SourcePostID = sourceID.String()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("cannot marshal post event", "event_type", eventType, "error", err)
		return
	}
	if err := c.publisher.Publish(ctx, event.PostsTopic, payload); err != nil {
		c.logger.Error("cannot publish post event", "event_type", eventType, "error", err)
	}
}
