package gcp

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitFirebaseAuth initializes the Firebase App and returns an Auth client.
// credentialsPath is optional; empty falls back to ambient credentials
// (GOOGLE_APPLICATION_CREDENTIALS or workload identity).
func InitFirebaseAuth(ctx context.Context, credentialsPath string) (*firebase.App, *firebaseauth.Client, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsPath) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	firebaseApp, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase app: %w", err)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase auth: %w", err)
	}

	return firebaseApp, fbAuth, nil
}
