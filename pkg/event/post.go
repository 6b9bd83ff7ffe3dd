package event

import "time"

const (
	PostsTopic        = "dawat.posts"
	EventPostCreated  = "post.created"
	EventPostUpdated  = "post.updated"
	EventPostDeleted  = "post.deleted"
	EventPostReposted = "post.reposted"
	EventPostSoldOut  = "post.sold_out"
	EventPostRerated  = "post.rerated"
)

// PostEvent describes a catalog change.
type PostEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	PostID     string    `json:"post_id"`
	SupplierID string    `json:"supplier_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Quantity   string    `json:"quantity,omitempty"`
	Price      string    `json:"price,omitempty"`
	Rating     float64   `json:"rating,omitempty"`

	// SourcePostID is set on post.reposted
	SourcePostID string `json:"source_post_id,omitempty"`
}
