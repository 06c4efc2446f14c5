package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MetaKey is the post meta key holding an event's check-in API key.
	MetaKey = "_et_event_api_key"

	// TextDomain names the translation catalog of the extension's UI strings.
	TextDomain = "et-per-event-checkin"
)

// MetaStore is the slice of the post meta store the handler needs.
type MetaStore interface {
	// GetPostMeta returns the single value stored for key, or "" when none.
	GetPostMeta(ctx context.Context, postID uint64, key string) (string, error)
	UpdatePostMeta(ctx context.Context, postID uint64, key, value string) error
	// FindPostIDsByMeta returns up to limit ids of posts, of any type,
	// whose value for key is exactly value.
	FindPostIDsByMeta(ctx context.Context, key, value string, limit int) ([]uint64, error)
}

// KeyGenerator produces new random API keys.
type KeyGenerator interface {
	NewAPIKey() (string, error)
}

// QRData is the part of a check-in request the validity filter looks at.
// APIKey is nil when the request carried no api_key field.
type QRData struct {
	APIKey  *string `json:"api_key,omitempty"`
	EventID uint64  `json:"event_id"`
}

// UnmarshalJSON accepts event_id as a JSON number or as a numeric string,
// since scanner apps send either.
func (q *QRData) UnmarshalJSON(b []byte) error {
	var raw struct {
		APIKey  *string         `json:"api_key"`
		EventID json.RawMessage `json:"event_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := parseEventID(raw.EventID)
	if err != nil {
		return err
	}
	q.APIKey = raw.APIKey
	q.EventID = id
	return nil
}

func parseEventID(raw json.RawMessage) (uint64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if s[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event_id %q: %w", s, err)
	}
	return id, nil
}

// Handler provisions per-event API keys and validates check-in requests
// against them.
type Handler struct {
	store MetaStore
	keys  KeyGenerator
}

func NewHandler(store MetaStore, keys KeyGenerator) *Handler {
	return &Handler{store: store, keys: keys}
}

// EnsureKey makes sure eventID has an API key, generating and storing one
// when none exists yet. It writes at most once.
func (h *Handler) EnsureKey(ctx context.Context, eventID uint64) error {
	existing, err := h.store.GetPostMeta(ctx, eventID, MetaKey)
	if err != nil {
		return fmt.Errorf("read api key for event %d: %w", eventID, err)
	}
	if existing != "" {
		return nil
	}

	key, err := h.keys.NewAPIKey()
	if err != nil {
		return fmt.Errorf("generate api key for event %d: %w", eventID, err)
	}
	if err := h.store.UpdatePostMeta(ctx, eventID, MetaKey, key); err != nil {
		return fmt.Errorf("store api key for event %d: %w", eventID, err)
	}
	return nil
}

// Key returns the stored API key for eventID, "" when none was provisioned.
func (h *Handler) Key(ctx context.Context, eventID uint64) (string, error) {
	return h.store.GetPostMeta(ctx, eventID, MetaKey)
}

// IsValid upgrades a failed default check to valid when the request's key
// belongs to exactly one post and that post is the requested event. It
// never turns true into false. On a store error valid is returned as given.
func (h *Handler) IsValid(ctx context.Context, valid bool, qr QRData) (bool, error) {
	if valid {
		return true, nil
	}
	if qr.APIKey == nil || *qr.APIKey == "" {
		return valid, nil
	}

	// Two results are enough to tell "unique" from "ambiguous".
	ids, err := h.store.FindPostIDsByMeta(ctx, MetaKey, *qr.APIKey, 2)
	if err != nil {
		return valid, fmt.Errorf("look up events by api key: %w", err)
	}
	if len(ids) != 1 {
		return valid, nil
	}
	if ids[0] != qr.EventID {
		return valid, nil
	}
	return true, nil
}
