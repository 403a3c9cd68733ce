package auth

import (
	"errors"

	"github.com/tidwall/gjson"
)

// CredentialType represents the type of authentication credentials
type CredentialType int

const (
	CredentialTypeUnknown CredentialType = iota
	CredentialTypeOAuthClient
	CredentialTypeServiceAccount
	CredentialTypeToken
)

// DetectCredentialType tells a service account key, a saved token and an
// OAuth client secret apart by their top-level keys.
func DetectCredentialType(data []byte) (CredentialType, error) {
	if !gjson.ValidBytes(data) {
		return CredentialTypeUnknown, errors.New("failed to parse credential file: invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.Get("type").String() == "service_account":
		return CredentialTypeServiceAccount, nil
	case doc.Get("access_token").String() != "":
		return CredentialTypeToken, nil
	case doc.Get("installed").Exists(), doc.Get("web").Exists():
		return CredentialTypeOAuthClient, nil
	}

	return CredentialTypeUnknown, errors.New("unknown credential type")
}

func (t CredentialType) String() string {
	switch t {
	case CredentialTypeOAuthClient:
		return "OAuth Client"
	case CredentialTypeServiceAccount:
		return "Service Account"
	case CredentialTypeToken:
		return "Token"
	default:
		return "Unknown"
	}
}
