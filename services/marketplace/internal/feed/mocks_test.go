package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dawatapp/dawat/pkg/event"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/geocode"
	"github.com/google/uuid"
)

// MockPublisher records published post events.
type MockPublisher struct {
	mu          sync.Mutex
	events      []event.PostEvent
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	var evt event.PostEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}

// MockGeocoder resolves postcodes through LookupFunc.
type MockGeocoder struct {
	calls      int
	LookupFunc func(ctx context.Context, postcode string) (*geocode.Coordinates, error)
}

func (m *MockGeocoder) Lookup(ctx context.Context, postcode string) (*geocode.Coordinates, error) {
	m.calls++
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, postcode)
	}
	return nil, nil
}

// MockPostRepo is an in-memory PostRepo with version checks.
type MockPostRepo struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]*Post
	CreateFunc func(ctx context.Context, post *Post) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Post, error)
	SaveFunc   func(ctx context.Context, post *Post) error
	DeleteFunc func(ctx context.Context, id uuid.UUID) error
}

func NewMockPostRepo() *MockPostRepo {
	return &MockPostRepo{
		posts: make(map[uuid.UUID]*Post),
	}
}

func (m *MockPostRepo) Create(ctx context.Context, post *Post) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	post.Version = 1
	m.posts[post.ID] = post.Clone()
	return nil
}

func (m *MockPostRepo) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return post.Clone(), nil
}

func (m *MockPostRepo) List(ctx context.Context, filter PostFilter) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []*Post{}
	for _, p := range m.posts {
		if filter.Matches(p) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockPostRepo) Save(ctx context.Context, post *Post) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, post)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	post.Version++
	m.posts[post.ID] = post.Clone()
	return nil
}

func (m *MockPostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func (m *MockPostRepo) DeleteVersion(ctx context.Context, id uuid.UUID, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}
	if stored.Version != version {
		return fmt.Errorf("post %s: %w", id, errs.ErrConflict)
	}
	delete(m.posts, id)
	return nil
}

func (m *MockPostRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts)
}

// put stores a post as-is, bypassing Create.
func (m *MockPostRepo) put(post *Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post.Clone()
}
