package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// ErrTokenExpired is returned for a saved token past its expiry. Tokens are
// never refreshed here; obtain a new one out of band.
var ErrTokenExpired = errors.New("token expired")

// LoadToken loads an OAuth token from the specified file path
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	f, err := os.Open(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	if err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}

	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token file %s has no access_token", tokenPath)
	}
	if !tok.Expiry.IsZero() && !tok.Valid() {
		return nil, fmt.Errorf("%w: %s expired at %s", ErrTokenExpired, tokenPath, tok.Expiry)
	}

	return tok, nil
}
