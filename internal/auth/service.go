package auth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// scopes returns the Calendar scope matching cfg.
func (c Config) scopes() []string {
	if c.ReadOnly {
		return []string{gcal.CalendarReadonlyScope}
	}
	return []string{gcal.CalendarEventsScope}
}

// serviceAccountSource builds a self-signing token source from a service account
// key file. With a subject set, tokens are minted on behalf of that user, which
// requires domain-wide delegation on the account.
func serviceAccountSource(ctx context.Context, cfg Config) (oauth2.TokenSource, string, error) {
	data, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read service account key: %w", err)
	}

	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, "", err
	}
	if credType != CredentialTypeServiceAccount {
		return nil, "", fmt.Errorf("expected service account credentials, got %s", credType)
	}

	jwt, err := google.JWTConfigFromJSON(data, cfg.scopes()...)
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse service account key: %w", err)
	}
	jwt.Subject = cfg.Subject

	return jwt.TokenSource(ctx), jwt.Email, nil
}
