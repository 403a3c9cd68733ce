package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drewfead/calendart/internal/criterion"
)

const (
	showDeletedKey = "showDeleted"
	pageTokenKey   = "pageToken"
)

// listPage is the envelope of an events listing. Items stay raw so that each
// event keeps its source payload.
type listPage struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
	NextSyncToken string            `json:"nextSyncToken"`
}

// List walks every page of the calendar's events and returns them keyed by
// identifier. Events organized by another calendar are hydrated onto that
// calendar and cross-listed on the primary one.
//
// Nothing is attached to any calendar until the last page has been read: a
// failure on any page discards the whole walk, and the sync token is only
// stored once the provider has handed out the final one.
func (a *EventAPI) List(ctx context.Context, crit *criterion.Collection) (*EventSet, error) {
	query, showDeleted, err := a.listQuery(crit)
	if err != nil {
		return nil, err
	}

	w := newWalk(a.calendar, showDeleted)
	logger := a.client.logger.With(zap.String("calendar", a.calendar.ID))

	var (
		pageToken string
		syncToken string
	)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := query
		if pageToken != "" {
			current = current.With(pageTokenKey, pageToken)
		}

		resp, err := a.client.do(ctx, &Request{
			Method: http.MethodGet,
			Path:   eventsPath(a.calendar.ID),
			Query:  current,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to list events of %s (page %d): %w", a.calendar.ID, page, err)
		}

		var result listPage
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return nil, fmt.Errorf("%w: events page %d of %s: %v", ErrMalformedInput, page, a.calendar.ID, err)
		}

		kept, err := w.consume(result.Items)
		if err != nil {
			return nil, err
		}

		logger.Debug("listed events page",
			zap.Int("page", page),
			zap.Int("items", len(result.Items)),
			zap.Int("kept", kept),
			zap.Bool("more", result.NextPageToken != ""))

		if result.NextPageToken == "" {
			syncToken = result.NextSyncToken
			break
		}
		pageToken = result.NextPageToken
	}

	w.commit(syncToken)

	logger.Debug("events synchronized",
		zap.Int("events", w.result.Len()),
		zap.Int("calendars", len(w.calendars.byID)))

	return w.result, nil
}

// listQuery merges the caller criterion into the mandatory projection.
func (a *EventAPI) listQuery(crit *criterion.Collection) (criterion.Query, bool, error) {
	base := criterion.NewCollection("",
		criterion.Fields(criterion.FieldsKey,
			criterion.NewField("nextSyncToken"),
			criterion.NewField("nextPageToken"),
			criterion.NewField("items", a.fields...)))

	tree, err := criterion.MergeAll(base, crit)
	if err != nil {
		return criterion.Query{}, false, err
	}

	showDeleted, err := criterion.FindBool(tree, showDeletedKey, false)
	if err != nil {
		return criterion.Query{}, false, err
	}

	return criterion.Build(tree), showDeleted, nil
}

// walk is the state of a single List call. It is never shared.
type walk struct {
	primary     *Calendar
	showDeleted bool
	calendars   *registry
	result      *EventSet
}

func newWalk(primary *Calendar, showDeleted bool) *walk {
	return &walk{
		primary:     primary,
		showDeleted: showDeleted,
		calendars:   newRegistry(primary),
		result:      NewEventSet(),
	}
}

// consume decodes one page of records into the staged result.
func (w *walk) consume(items []json.RawMessage) (int, error) {
	kept := 0
	for _, raw := range items {
		// Cancelled instances are dropped unless deleted events were requested
		if !w.showDeleted && gjson.GetBytes(raw, "status").String() == string(StatusCancelled) {
			continue
		}

		event, err := DecodeEvent(raw)
		if err != nil {
			return kept, err
		}

		event.calendar = w.calendars.resolve(event.organizer)
		w.result.Add(event)
		kept++
	}
	return kept, nil
}

// commit attaches the staged events and stores the sync token.
func (w *walk) commit(syncToken string) {
	for _, event := range w.result.All() {
		event.calendar.Events().Add(event)
		if event.calendar != w.primary {
			w.primary.Events().Add(event)
		}
	}
	w.primary.SyncToken = syncToken
}

// registry maps calendar identifiers to the calendars met during a walk.
type registry struct {
	primary *Calendar
	byID    map[string]*Calendar
}

func newRegistry(primary *Calendar) *registry {
	return &registry{
		primary: primary,
		byID:    map[string]*Calendar{primary.ID: primary},
	}
}

// resolve returns the calendar owning an event organized by org. Events
// organized by the primary calendar, or whose organizer cannot be identified,
// belong to the primary calendar.
func (r *registry) resolve(org *Organizer) *Calendar {
	if org == nil || org.Self {
		return r.primary
	}

	// The email is usually an identifier for the calendar
	id := org.ID
	if id == "" {
		id = org.Email
	}
	if id == "" {
		return r.primary
	}

	if cal, ok := r.byID[id]; ok {
		return cal
	}

	name := org.DisplayName
	if name == "" {
		name = org.Email
	}

	cal := NewCalendar(id, name, nil)
	r.byID[id] = cal
	return cal
}

// SyncAll lists several calendars concurrently, at most limit at a time
// (limit <= 0 means unbounded). Each calendar is walked independently; the
// first failure cancels the remaining walks. Calendars must be distinct.
func SyncAll(ctx context.Context, client *Client, calendars []*Calendar, crit *criterion.Collection, limit int) (map[string]*EventSet, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*EventSet, len(calendars))
	for i, cal := range calendars {
		g.Go(func() error {
			set, err := client.Events(cal).List(ctx, crit)
			if err != nil {
				return fmt.Errorf("sync calendar %s: %w", cal.ID, err)
			}
			results[i] = set
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*EventSet, len(calendars))
	for i, cal := range calendars {
		out[cal.ID] = results[i]
	}
	return out, nil
}
