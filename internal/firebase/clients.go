package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"resitrack/backend/internal/config"
)

// Clients bundles the Firebase clients the API process needs.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	Messaging *messaging.Client

	ProjectID string
}

func NewClients(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}

	// On Cloud Run, Application Default Credentials are picked up without options.
	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccountJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore: %w", err)
	}

	c := &Clients{
		App:       app,
		Auth:      authClient,
		Firestore: fs,
		ProjectID: cfg.ProjectID,
	}

	if cfg.PushEnabled {
		msg, err := app.Messaging(ctx)
		if err != nil {
			// push is optional
			logger.Warn("firebase messaging unavailable, push disabled", zap.Error(err))
		} else {
			c.Messaging = msg
		}
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil || c.Firestore == nil {
		return
	}
	_ = c.Firestore.Close()
}
