package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/drewfead/calendart/internal/calendar"
)

// Transport is a mock implementation of calendar.Transport
type Transport struct {
	mock.Mock
}

func (m *Transport) Do(ctx context.Context, req *calendar.Request) (*calendar.Response, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*calendar.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// JSON builds a 200 response carrying body.
func JSON(body string) *calendar.Response {
	return &calendar.Response{StatusCode: 200, Reason: "OK", Body: []byte(body)}
}
