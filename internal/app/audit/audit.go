/*
Package audit implements the room's append-only action log.

Entries are held most-recent-first in a bounded in-memory trail for the log
panel, mirrored to the structured logger, and optionally written through to
the database. Reading the trail is gated to Owner and Admin ranks.
*/
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
)

// MaxEntries bounds the in-memory trail. Older entries fall off the end.
const MaxEntries = 200

// Category classifies a log entry.
type Category string

const (
	CategoryInfo       Category = "info"
	CategoryAction     Category = "action"
	CategoryModeration Category = "moderation"
	CategorySystem     Category = "system"
	CategoryError      Category = "error"
)

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"type"`
	Message   string    `json:"message"`
}

// Persister writes entries to durable storage. Write failures are logged
// and do not block the in-memory trail.
type Persister interface {
	InsertAuditEntry(ctx context.Context, e Entry) error
}

// Trail is a concurrency-safe, bounded, most-recent-first audit log.
type Trail struct {
	mu        sync.RWMutex
	entries   []Entry
	persister Persister
	logger    zerolog.Logger
}

// NewTrail builds a Trail. persister may be nil for an in-memory-only trail.
func NewTrail(persister Persister) *Trail {
	return &Trail{
		persister: persister,
		logger:    logx.Logger().With().Str("component", "audit").Logger(),
	}
}

// Record appends an entry at the head of the trail.
func (t *Trail) Record(category Category, message string) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Category:  category,
		Message:   message,
	}

	t.mu.Lock()
	t.entries = append([]Entry{e}, t.entries...)
	if len(t.entries) > MaxEntries {
		t.entries = t.entries[:MaxEntries]
	}
	t.mu.Unlock()

	event := t.logger.Info()
	if category == CategoryError {
		event = t.logger.Error()
	}
	event.Str("category", string(category)).Msg(message)

	if t.persister != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.persister.InsertAuditEntry(ctx, e); err != nil {
				t.logger.Error().Err(err).Str("entry_id", e.ID).Msg("Failed to persist audit entry")
			}
		}()
	}

	return e
}

// Seed replaces the trail's contents with entries loaded from durable
// storage, newest first. Intended for startup, before the room opens.
func (t *Trail) Seed(entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	t.entries = append([]Entry(nil), entries...)
}

// Read returns a snapshot of the trail, newest first. Only Owner and Admin
// ranks may read; everyone else gets ErrLogAccessDenied.
func (t *Trail) Read(viewer user.User) ([]Entry, *errs.CustomError) {
	if !viewer.IsOwner && viewer.Rank != rank.Admin {
		return nil, errs.NewError(errs.ErrLogAccessDenied)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out, nil
}

// Len reports the current number of retained entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
