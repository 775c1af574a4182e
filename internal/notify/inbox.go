package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/txn"
)

// Inbox stores events as unread notifications under users/{uid}/notifications.
type Inbox struct {
	store  docstore.Store
	runner *txn.Runner
}

func NewInbox(store docstore.Store, runner *txn.Runner) *Inbox {
	return &Inbox{store: store, runner: runner}
}

func InboxCollection(uid string) string {
	return docstore.Path("users", uid, "notifications")
}

func (i *Inbox) Notify(ctx context.Context, e Event) error {
	if e.UserID == "" {
		return nil
	}
	data := map[string]any{}
	for k, v := range e.Data {
		data[k] = v
	}
	err := i.store.Set(ctx, InboxCollection(e.UserID), uuid.NewString(), docstore.Doc{
		"title":     e.Title,
		"body":      e.Body,
		"type":      string(e.Kind),
		"data":      data,
		"read":      false,
		"createdAt": e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("inbox %s: %w", e.UserID, err)
	}
	return nil
}

var ErrNotificationNotFound = fmt.Errorf("notification not found: %w", apperr.ErrNotFound)

type InboxItem struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Type      string            `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
}

type InboxPage struct {
	Notifications []InboxItem `json:"notifications"`
	UnreadCount   int         `json:"unreadCount"`
}

// List returns the newest notifications of uid, at most limit (default 50,
// max 100), with the total number still unread.
func (i *Inbox) List(ctx context.Context, uid string, unreadOnly bool, limit int) (*InboxPage, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	unread, err := i.store.Query(ctx, docstore.From(InboxCollection(uid)).Where("read", false))
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	var snaps []docstore.Snapshot
	if unreadOnly {
		// sorted here so the unread filter needs no composite index
		snaps = append(snaps, unread...)
		sort.SliceStable(snaps, func(a, b int) bool {
			return createdAt(snaps[a]).After(createdAt(snaps[b]))
		})
		if len(snaps) > limit {
			snaps = snaps[:limit]
		}
	} else {
		snaps, err = i.store.Query(ctx, docstore.From(InboxCollection(uid)).OrderBy("createdAt", true).Limit(limit))
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
	}

	page := &InboxPage{Notifications: make([]InboxItem, 0, len(snaps)), UnreadCount: len(unread)}
	for _, s := range snaps {
		page.Notifications = append(page.Notifications, InboxItem{
			ID:        s.ID,
			Title:     docstore.String(s.Data, "title"),
			Body:      docstore.String(s.Data, "body"),
			Type:      docstore.String(s.Data, "type"),
			Data:      docstore.StringMap(s.Data, "data"),
			Read:      docstore.Bool(s.Data, "read"),
			ReadAt:    docstore.Time(s.Data, "readAt"),
			CreatedAt: docstore.Time(s.Data, "createdAt"),
		})
	}
	return page, nil
}

func createdAt(s docstore.Snapshot) time.Time {
	if t := docstore.Time(s.Data, "createdAt"); t != nil {
		return *t
	}
	return time.Time{}
}

// MarkRead flags one notification, or every unread one when id is empty,
// and reports how many it touched.
func (i *Inbox) MarkRead(ctx context.Context, uid, id string) (int, error) {
	uid = strings.TrimSpace(uid)
	id = strings.TrimSpace(id)
	if uid == "" {
		return 0, apperr.ErrUnauthenticated
	}
	col := InboxCollection(uid)
	now := time.Now().UTC()

	if id != "" {
		err := i.runner.Run(ctx, "inbox.mark_read", func(ctx context.Context, tx docstore.Tx, _ *txn.AfterCommit) error {
			snap, err := tx.Get(col, id)
			if err != nil {
				return err
			}
			if !snap.Exists {
				return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
			}
			return tx.Update(col, id, docstore.Field(true, "read"), docstore.Field(now, "readAt"))
		})
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	unread, err := i.store.Query(ctx, docstore.From(col).Where("read", false))
	if err != nil {
		return 0, fmt.Errorf("list unread notifications: %w", err)
	}
	b := i.store.Batch()
	for n, s := range unread {
		s.Data["read"] = true
		s.Data["readAt"] = now
		b.Set(col, s.ID, s.Data)
		if b.Len() == docstore.MaxBatchWrites || n == len(unread)-1 {
			if err := b.Commit(ctx); err != nil {
				return 0, fmt.Errorf("mark notifications read: %w", err)
			}
			b = i.store.Batch()
		}
	}
	return len(unread), nil
}
