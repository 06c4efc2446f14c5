package db

import (
	"time"

	"gorm.io/datatypes"
)

// StatusPublish is the status of posts visible on the site.
const StatusPublish = "publish"

// Post is a content item of the host platform. Events are posts whose
// PostType is ticket-enabled.
type Post struct {
	ID uint64 `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	PostType string `gorm:"size:32;index;not null"`
	Title    string `gorm:"size:255;not null"`
	Status   string `gorm:"size:20;not null;default:publish"`

	// AuthorID is the user who submitted the post, 0 when created by the
	// system. Only the author and admins may open its community edit page.
	AuthorID uint `gorm:"index"`
}

// PostMeta is one key/value pair attached to a post. The store allows
// several rows per (post, key); single-value reads take the oldest row.
type PostMeta struct {
	ID uint64 `gorm:"primaryKey"`

	PostID    uint64 `gorm:"index;not null"`
	MetaKey   string `gorm:"size:255;index:idx_postmeta_key_value,priority:1;not null"`
	MetaValue string `gorm:"size:255;index:idx_postmeta_key_value,priority:2"`
}

func (PostMeta) TableName() string { return "postmeta" }

// Ticket is a ticket type sold for an event.
type Ticket struct {
	ID uint64 `gorm:"primaryKey"`

	CreatedAt time.Time

	EventID  uint64 `gorm:"index;not null"`
	Name     string `gorm:"size:128;not null"`
	Provider string `gorm:"size:32;not null"`

	// Attributes holds provider specific fields (price, capacity, sku)
	// without schema changes.
	Attributes datatypes.JSONMap `gorm:"type:json"`
}
