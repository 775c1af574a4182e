package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"resitrack/backend/internal/docstore"
)

// MessageSender is the part of *messaging.Client that Push uses.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Push sends an FCM notification to the device registered in fcmTokens/{uid}.
// Users without a token are skipped.
type Push struct {
	store  docstore.Reader
	sender MessageSender
}

func NewPush(store docstore.Reader, sender MessageSender) *Push {
	return &Push{store: store, sender: sender}
}

func (p *Push) Notify(ctx context.Context, e Event) error {
	if e.UserID == "" || p.sender == nil {
		return nil
	}
	snap, err := p.store.Get(ctx, TokensCollection, e.UserID)
	if err != nil {
		return fmt.Errorf("push token %s: %w", e.UserID, err)
	}
	token := docstore.String(snap.Data, "token")
	if !snap.Exists || token == "" {
		return nil
	}

	data := map[string]string{"kind": string(e.Kind)}
	for k, v := range e.Data {
		data[k] = v
	}
	_, err = p.sender.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: e.Title,
			Body:  e.Body,
		},
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", e.UserID, err)
	}
	return nil
}
