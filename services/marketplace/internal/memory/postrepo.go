// Package memory keeps posts and orders in process. It is the default backend
// and loses everything on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/google/uuid"
)

type PostRepo struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*feed.Post
}

func NewPostRepo() *PostRepo {
	return &PostRepo{
		posts: make(map[uuid.UUID]*feed.Post),
	}
}

func (r *PostRepo) Create(ctx context.Context, post *feed.Post) error {
	if post == nil {
		return fmt.Errorf("post is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}

	post.Version = 1
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*feed.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return post.Clone(), nil
}

func (r *PostRepo) List(ctx context.Context, filter feed.PostFilter) ([]*feed.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*feed.Post, 0, len(r.posts))
	for _, post := range r.posts {
		if filter.Matches(post) {
			result = append(result, post.Clone())
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *PostRepo) Save(ctx context.Context, post *feed.Post) error {
	if post == nil {
		return fmt.Errorf("post is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %s: %w", post.ID, errs.ErrNotFound)
	}
	if stored.Version != post.Version {
		return fmt.Errorf("post %s: %w", post.ID, errs.ErrConflict)
	}

	post.Version++
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, id)
	return nil
}

func (r *PostRepo) DeleteVersion(ctx context.Context, id uuid.UUID, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}
	if stored.Version != version {
		return fmt.Errorf("post %s: %w", id, errs.ErrConflict)
	}

	delete(r.posts, id)
	return nil
}

// Reset drops every post.
func (r *PostRepo) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.posts = make(map[uuid.UUID]*feed.Post)
}
