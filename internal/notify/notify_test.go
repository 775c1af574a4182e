package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/docstore/memstore"
	"resitrack/backend/internal/txn"
)

var at = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func bookingEvent() Event {
	return Event{
		Kind:       KindBookingConfirmed,
		UserID:     "u1",
		Title:      "Booking confirmed",
		Body:       "Gym on 2024-06-01, 06:00-07:00",
		Data:       map[string]string{"facilityId": "gym"},
		OccurredAt: at,
	}
}

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "projects/p/messages/1", nil
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func newInbox(t *testing.T, store *memstore.Store) *Inbox {
	t.Helper()
	runner, err := txn.NewRunner(store, txn.WithInlineHooks(),
		txn.WithPolicy(txn.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))
	require.NoError(t, err)
	return NewInbox(store, runner)
}

type failing struct{ err error }

func (f failing) Notify(context.Context, Event) error { return f.err }

func TestInboxWritesUnreadNotification(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	require.NoError(t, newInbox(t, store).Notify(ctx, bookingEvent()))

	hits, err := store.Query(ctx, docstore.From(InboxCollection("u1")))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Booking confirmed", hits[0].Data["title"])
	assert.Equal(t, string(KindBookingConfirmed), hits[0].Data["type"])
	assert.Equal(t, false, hits[0].Data["read"])
}

func TestInboxListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	inbox := newInbox(t, store)
	for i := 0; i < 3; i++ {
		e := bookingEvent()
		e.Title = fmt.Sprintf("n%d", i)
		e.OccurredAt = at.Add(time.Duration(i) * time.Minute)
		require.NoError(t, inbox.Notify(ctx, e))
	}

	page, err := inbox.List(ctx, "u1", false, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "n2", page.Notifications[0].Title, "newest first")
	assert.Equal(t, 3, page.UnreadCount)
	assert.Equal(t, "gym", page.Notifications[0].Data["facilityId"])

	n, err := inbox.MarkRead(ctx, "u1", page.Notifications[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	page, err = inbox.List(ctx, "u1", true, 0)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "n1", page.Notifications[0].Title, "unread newest first")
	assert.Equal(t, 2, page.UnreadCount)
	page, err = inbox.List(ctx, "u1", true, 1)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "n1", page.Notifications[0].Title)

	n, err = inbox.MarkRead(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	page, err = inbox.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.UnreadCount)
	for _, item := range page.Notifications {
		assert.True(t, item.Read)
		assert.NotNil(t, item.ReadAt)
	}

	_, err = inbox.MarkRead(ctx, "u1", "missing")
	assert.True(t, apperr.IsErrNotFound(err))
	_, err = inbox.List(ctx, "", false, 0)
	assert.True(t, apperr.IsErrUnauthenticated(err))
}

func TestInboxMarkReadRetriesContention(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	inbox := newInbox(t, store)
	require.NoError(t, inbox.Notify(ctx, bookingEvent()))
	page, err := inbox.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)

	store.FailNextCommit(docstore.ErrConflict)
	n, err := inbox.MarkRead(ctx, "u1", page.Notifications[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err = inbox.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.True(t, page.Notifications[0].Read)
	assert.Equal(t, 0, page.UnreadCount)
}

func TestConflictIsAppConflict(t *testing.T) {
	assert.True(t, apperr.IsErrConflict(docstore.ErrConflict))
	assert.True(t, apperr.IsErrConflict(fmt.Errorf("mark read: %w", docstore.ErrConflict)))
}

func TestPushSendsToRegisteredToken(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	sender := &fakeSender{}
	push := NewPush(store, sender)

	require.NoError(t, push.Notify(ctx, bookingEvent()))
	assert.Empty(t, sender.sent)

	tokens := NewTokens(store)
	require.NoError(t, tokens.Register(ctx, authctx.Session{UID: "u1"}, " device-token "))
	require.NoError(t, push.Notify(ctx, bookingEvent()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "device-token", sender.sent[0].Token)
	assert.Equal(t, "Booking confirmed", sender.sent[0].Notification.Title)
	assert.Equal(t, "gym", sender.sent[0].Data["facilityId"])
	assert.Equal(t, string(KindBookingConfirmed), sender.sent[0].Data["kind"])
}

func TestTokensRegisterValidation(t *testing.T) {
	tokens := NewTokens(memstore.New())
	assert.True(t, apperr.IsErrUnauthenticated(tokens.Register(context.Background(), authctx.Session{}, "x")))
	err := tokens.Register(context.Background(), authctx.Session{UID: "u1"}, "  ")
	assert.True(t, IsErrEmptyToken(err))
	assert.True(t, apperr.IsErrValidation(err))
}

func TestBrokerPublishesByKind(t *testing.T) {
	ch := &fakeChannel{}
	b := NewBroker(ch, "resitrack.events")

	require.NoError(t, b.Notify(context.Background(), bookingEvent()))
	assert.Equal(t, "resitrack.events", ch.exchange)
	assert.Equal(t, "booking.confirmed", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Contains(t, string(ch.msg.Body), `"userId":"u1"`)
}

func TestFanoutJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	down := errors.New("down")
	err := Fanout{failing{down}, rec, nil}.Notify(context.Background(), bookingEvent())
	assert.ErrorIs(t, err, down)
	assert.Len(t, rec.Events(), 1)
	assert.Len(t, rec.OfKind(KindBookingConfirmed), 1)
	assert.Empty(t, rec.OfKind(KindCycleCreated))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, Log{Logger: zap.New(core)}.Notify(context.Background(), bookingEvent()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "booking.confirmed", logs.All()[0].ContextMap()["kind"])
}

func TestComposeInvitationEmail(t *testing.T) {
	e := ComposeInvitationEmail("Asha", "new@x.com", "AB12CD")
	assert.Equal(t, "new@x.com", e.To)
	assert.Equal(t, "Your Invitation to Join ResiTrack", e.Subject)
	assert.Contains(t, e.Body, "Hello Asha,")
	assert.Contains(t, e.Body, "Invitation Code: AB12CD")
}
