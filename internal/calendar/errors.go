package calendar

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedInput reports a provider record the adapter cannot hydrate.
	ErrMalformedInput = errors.New("malformed input")
	// ErrTransport reports a connection level failure.
	ErrTransport = errors.New("transport failure")
)

// Provider error kinds. A *ProviderError unwraps to exactly one of them.
var (
	ErrBadRequest                  = errors.New("bad request")
	ErrInvalidCredentials          = errors.New("invalid credentials")
	ErrForbidden                   = errors.New("forbidden")
	ErrDailyLimitExceeded          = errors.New("daily limit exceeded")
	ErrUserRateLimitExceeded       = errors.New("user rate limit exceeded")
	ErrRateLimitExceeded           = errors.New("rate limit exceeded")
	ErrCalendarUsageLimitsExceeded = errors.New("calendar usage limits exceeded")
	ErrNotFound                    = errors.New("not found")
	ErrIdentifierAlreadyExists     = errors.New("identifier already exists")
	ErrGone                        = errors.New("gone")
	ErrPrecondition                = errors.New("precondition failed")
	ErrBackend                     = errors.New("backend error")
)

// 403 responses are told apart by their reason phrase, or failing that by the
// reason code in the error body.
var (
	forbiddenPhrases = map[string]error{
		"Daily Limit Exceeded":            ErrDailyLimitExceeded,
		"User Rate Limit Exceeded":        ErrUserRateLimitExceeded,
		"Rate Limit Exceeded":             ErrRateLimitExceeded,
		"Calendar usage limits exceeded.": ErrCalendarUsageLimitsExceeded,
	}
	forbiddenCodes = map[string]error{
		"dailyLimitExceeded":    ErrDailyLimitExceeded,
		"userRateLimitExceeded": ErrUserRateLimitExceeded,
		"rateLimitExceeded":     ErrRateLimitExceeded,
		"quotaExceeded":         ErrCalendarUsageLimitsExceeded,
	}
)

// ProviderError is a non-successful provider response.
type ProviderError struct {
	Kind       error
	StatusCode int
	Reason     string
	// Message is the provider's error message, or the reason phrase when the
	// body carries none.
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("request failed and returned an invalid status code (%d): %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

// CheckResponse maps a response to the error taxonomy. Codes in [200,400) are
// successful.
func CheckResponse(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}

	message := gjson.GetBytes(resp.Body, "error.message").String()
	if message == "" {
		message = resp.Reason
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &ProviderError{
		Kind:       kindOf(resp),
		StatusCode: resp.StatusCode,
		Reason:     resp.Reason,
		Message:    message,
	}
}

func kindOf(resp *Response) error {
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrInvalidCredentials
	case http.StatusForbidden:
		if kind, ok := forbiddenPhrases[resp.Reason]; ok {
			return kind
		}
		code := gjson.GetBytes(resp.Body, "error.errors.0.reason").String()
		if kind, ok := forbiddenCodes[code]; ok {
			return kind
		}
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrIdentifierAlreadyExists
	case http.StatusGone:
		return ErrGone
	case http.StatusPreconditionFailed:
		return ErrPrecondition
	default:
		return ErrBackend
	}
}
