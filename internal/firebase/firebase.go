package firebase

import (
	"context"
	"fmt"

	"cardlink/backend/internal/config"

	"cloud.google.com/go/firestore"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Clients bundles the Firebase + GCP clients shared by the API process.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	// IAM signs upload URLs; nil when the credentials API is unreachable.
	IAM *credentials.IamCredentialsClient

	ProjectID string
	Bucket    string
}

func clientOptions(cfg config.Config) []option.ClientOption {
	// FIREBASE_SERVICE_ACCOUNT_JSON (raw json) wins over a credentials file.
	// With neither set, Application Default Credentials are used.
	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccountJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

func NewApp(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	appCfg := &firebase.Config{StorageBucket: cfg.StorageBucket}
	if cfg.ProjectID != "" {
		appCfg.ProjectID = cfg.ProjectID
	}
	return firebase.NewApp(ctx, appCfg, clientOptions(cfg)...)
}

func NewClients(ctx context.Context, cfg config.Config) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}

	app, err := NewApp(ctx, cfg)
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

	iamClient, err := credentials.NewIamCredentialsClient(ctx, clientOptions(cfg)...)
	if err != nil {
		iamClient = nil
	}

	return &Clients{
		App:       app,
		Auth:      authClient,
		Firestore: fs,
		IAM:       iamClient,
		ProjectID: cfg.ProjectID,
		Bucket:    cfg.StorageBucket,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Firestore != nil {
		_ = c.Firestore.Close()
	}
	if c.IAM != nil {
		_ = c.IAM.Close()
	}
}
