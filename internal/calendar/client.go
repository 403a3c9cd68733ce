package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/drewfead/calendart/internal/criterion"
)

// eventFields is the projection hydrated into Event.
var eventFields = []criterion.Field{
	criterion.NewField("id"),
	criterion.NewField("end"),
	criterion.NewField("etag"),
	criterion.NewField("start"),
	criterion.NewField("status"),
	criterion.NewField("created"),
	criterion.NewField("updated"),
	criterion.NewField("summary"),
	criterion.NewField("location"),
	criterion.NewField("organizer"),
	criterion.NewField("visibility"),
	criterion.NewField("description"),
	criterion.NewField("transparency"),
	criterion.NewField("endTimeUnspecified"),
	criterion.NewField("creator",
		criterion.NewField("email"),
		criterion.NewField("displayName")),
	criterion.NewField("attendees",
		criterion.NewField("email"),
		criterion.NewField("optional"),
		criterion.NewField("resource"),
		criterion.NewField("organizer"),
		criterion.NewField("displayName"),
		criterion.NewField("responseStatus")),
	criterion.NewField("attachments",
		criterion.NewField("fileId"),
		criterion.NewField("fileUrl"),
		criterion.NewField("title"),
		criterion.NewField("iconLink"),
		criterion.NewField("mimeType")),
}

var calendarFields = []criterion.Field{
	criterion.NewField("id"),
	criterion.NewField("summary"),
	criterion.NewField("timeZone"),
}

// Client talks to the Calendar API through a Transport.
type Client struct {
	transport Transport
	logger    *zap.Logger

	mu   sync.Mutex
	apis map[*Calendar]*EventAPI
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Calendar API client.
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    zap.NewNop(),
		apis:      make(map[*Calendar]*EventAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the event API bound to cal.
func (c *Client) Events(cal *Calendar) *EventAPI {
	c.mu.Lock()
	defer c.mu.Unlock()

	if api, ok := c.apis[cal]; ok {
		return api
	}

	api := &EventAPI{client: c, calendar: cal, fields: eventFields}
	c.apis[cal] = api
	return api
}

// Calendar fetches calendar metadata.
func (c *Client) Calendar(ctx context.Context, id string) (*Calendar, error) {
	query := criterion.Build(criterion.Fields(criterion.FieldsKey, calendarFields...))

	resp, err := c.do(ctx, &Request{Method: http.MethodGet, Path: calendarPath(id), Query: query})
	if err != nil {
		return nil, fmt.Errorf("unable to get calendar %s: %w", id, err)
	}

	var wire gcal.Calendar
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("%w: calendar %s: %v", ErrMalformedInput, id, err)
	}

	return HydrateCalendar(&wire)
}

// do sends req and maps non-successful statuses to errors.
func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := CheckResponse(resp); err != nil {
		c.logger.Debug("provider request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, err
	}

	return resp, nil
}

// EventAPI reads and writes the events of one calendar.
type EventAPI struct {
	client   *Client
	calendar *Calendar
	fields   []criterion.Field
}

// Calendar returns the calendar the API is bound to.
func (a *EventAPI) Calendar() *Calendar {
	return a.calendar
}

// Get fetches a single event and attaches it to the API's calendar.
func (a *EventAPI) Get(ctx context.Context, id string, crit *criterion.Collection) (*Event, error) {
	base := criterion.NewCollection("", criterion.Fields(criterion.FieldsKey, a.fields...))

	tree, err := criterion.MergeAll(base, crit)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.do(ctx, &Request{
		Method: http.MethodGet,
		Path:   eventPath(a.calendar.ID, id),
		Query:  criterion.Build(tree),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get event %s: %w", id, err)
	}

	return HydrateEvent(a.calendar, resp.Body)
}

// Patchable is an entity that can be sent as a partial update.
type Patchable interface {
	ID() string
	Calendar() *Calendar
	Export() Document
}

// Persist sends a PATCH with the entity's export as body. A PartialEvent only
// sends the properties it changed.
func (a *EventAPI) Persist(ctx context.Context, event Patchable) error {
	if event.ID() == "" {
		return fmt.Errorf("%w: cannot patch an event without an identifier", ErrMalformedInput)
	}

	// Default to the API's calendar when the event is not attached
	cal := event.Calendar()
	if cal == nil {
		cal = a.calendar
	}

	body, err := json.Marshal(event.Export())
	if err != nil {
		return fmt.Errorf("unable to encode event %s: %w", event.ID(), err)
	}

	_, err = a.client.do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   eventPath(cal.ID, event.ID()),
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("unable to patch event %s: %w", event.ID(), err)
	}

	a.client.logger.Debug("patched event",
		zap.String("calendar", cal.ID),
		zap.String("event", event.ID()),
		zap.Int("bytes", len(body)))

	return nil
}

func calendarPath(calendarID string) string {
	return "calendars/" + url.PathEscape(calendarID)
}

func eventsPath(calendarID string) string {
	return calendarPath(calendarID) + "/events"
}

func eventPath(calendarID, eventID string) string {
	return eventsPath(calendarID) + "/" + url.PathEscape(eventID)
}
