package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned when no credential source is configured.
var ErrNoCredentials = errors.New("no credentials configured (need access_token, token_file or service_account_file)")

// GetClient returns an HTTP client that adds credentials to every request.
// A base client can be supplied through the oauth2.HTTPClient context key.
func GetClient(ctx context.Context, cfg Config, logger *zap.Logger) (*http.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch {
	case cfg.AccessToken != "":
		logger.Debug("authenticating with static access token")
		return staticClient(ctx, &oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}), nil

	case cfg.TokenFile != "":
		tok, err := LoadToken(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("authenticating with saved token",
			zap.String("token_file", cfg.TokenFile),
			zap.Time("expiry", tok.Expiry))
		return staticClient(ctx, tok), nil

	case cfg.ServiceAccountFile != "":
		src, email, err := serviceAccountSource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("service account %s: %w", cfg.ServiceAccountFile, err)
		}
		logger.Debug("authenticating with service account",
			zap.String("key_file", cfg.ServiceAccountFile),
			zap.String("client_email", email),
			zap.String("subject", cfg.Subject),
			zap.Strings("scopes", cfg.scopes()))
		return oauth2.NewClient(ctx, src), nil

	default:
		return nil, ErrNoCredentials
	}
}

// staticClient never refreshes tok.
func staticClient(ctx context.Context, tok *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
}
