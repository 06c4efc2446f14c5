package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the host content store: posts, their metadata, tickets and users.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetPostMeta returns the single value stored under key for postID, "" when
// there is none. With duplicate rows the oldest one wins.
func (s *Store) GetPostMeta(ctx context.Context, postID uint64, key string) (string, error) {
	// Find with Limit so "not found" doesn't log as error.
	var m PostMeta
	if err := s.db.WithContext(ctx).
		Where("post_id = ? AND meta_key = ?", postID, key).
		Order("id").
		Limit(1).
		Find(&m).Error; err != nil {
		return "", err
	}
	return m.MetaValue, nil
}

// UpdatePostMeta sets key to value on every existing row for postID, or
// inserts a row when there is none.
func (s *Store) UpdatePostMeta(ctx context.Context, postID uint64, key, value string) error {
	res := s.db.WithContext(ctx).
		Model(&PostMeta{}).
		Where("post_id = ? AND meta_key = ?", postID, key).
		Update("meta_value", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&PostMeta{PostID: postID, MetaKey: key, MetaValue: value}).Error
}

// FindPostIDsByMeta returns ids of published posts of any type whose value
// for key equals value exactly, in ascending order. A limit <= 0 returns all.
func (s *Store) FindPostIDsByMeta(ctx context.Context, key, value string, limit int) ([]uint64, error) {
	q := s.db.WithContext(ctx).
		Model(&PostMeta{}).
		Joins("JOIN posts ON posts.id = postmeta.post_id").
		Where("postmeta.meta_key = ? AND postmeta.meta_value = ?", key, value).
		Where("posts.status = ?", StatusPublish).
		Distinct().
		Order("postmeta.post_id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var ids []uint64
	if err := q.Pluck("postmeta.post_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetPost(ctx context.Context, id uint64) (*Post, error) {
	var p Post
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// ListPosts returns the newest posts first. A limit <= 0 returns all.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var posts []Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsByAuthor returns the newest posts submitted by authorID first.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID uint, limit int) ([]Post, error) {
	q := s.db.WithContext(ctx).Where("author_id = ?", authorID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var posts []Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CreateTicket stores t for an existing event.
func (s *Store) CreateTicket(ctx context.Context, t *Ticket) error {
	if _, err := s.GetPost(ctx, t.EventID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) ListTickets(ctx context.Context, eventID uint64) ([]Ticket, error) {
	var tickets []Ticket
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
