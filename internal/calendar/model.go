package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the provider status of an event.
type Status string

const (
	StatusTentative Status = "tentative"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a provider status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusTentative, StatusConfirmed, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("status %q not recognized", s)
	}
}

// Visibility controls who can see event details.
type Visibility string

const (
	VisibilityDefault      Visibility = "default"
	VisibilityPublic       Visibility = "public"
	VisibilityPrivate      Visibility = "private"
	VisibilityConfidential Visibility = "confidential"
)

// ResponseStatus is an attendee's answer to an invitation.
type ResponseStatus string

const (
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseAccepted    ResponseStatus = "accepted"
)

// Calendar is a provider calendar and the events hydrated onto it.
type Calendar struct {
	ID       string
	Name     string
	Location *time.Location
	// SyncToken is the provider cursor for the next incremental listing.
	SyncToken string

	events *EventSet
}

// NewCalendar creates an empty calendar. A nil location means UTC.
func NewCalendar(id, name string, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{
		ID:       id,
		Name:     name,
		Location: loc,
		events:   NewEventSet(),
	}
}

// Events returns the calendar's event set.
func (c *Calendar) Events() *EventSet {
	if c.events == nil {
		c.events = NewEventSet()
	}
	return c.events
}

func (c *Calendar) attach(e *Event) {
	e.calendar = c
	c.Events().Add(e)
}

// EventSet is an insertion-ordered set of events keyed by identifier.
// Adding an event whose identifier is already present replaces it in place.
type EventSet struct {
	order []string
	byID  map[string]*Event
}

// NewEventSet creates an empty set.
func NewEventSet() *EventSet {
	return &EventSet{byID: make(map[string]*Event)}
}

// Add inserts or replaces e. The zero EventSet is ready to use.
func (s *EventSet) Add(e *Event) {
	if s.byID == nil {
		s.byID = make(map[string]*Event)
	}
	if _, ok := s.byID[e.id]; !ok {
		s.order = append(s.order, e.id)
	}
	s.byID[e.id] = e
}

// Get returns the event with the given identifier.
func (s *EventSet) Get(id string) (*Event, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Len returns the number of events.
func (s *EventSet) Len() int { return len(s.order) }

// IDs returns identifiers in insertion order.
func (s *EventSet) IDs() []string {
	return append([]string(nil), s.order...)
}

// All returns events in insertion order.
func (s *EventSet) All() []*Event {
	out := make([]*Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// DateTime is an event boundary. All-day boundaries carry a date only.
type DateTime struct {
	Time   time.Time
	AllDay bool
}

// Organizer references the calendar that owns an event.
type Organizer struct {
	ID          string
	Email       string
	DisplayName string
	Self        bool
}

// Participation is an attendee of an event.
type Participation struct {
	Email       string
	DisplayName string
	Status      ResponseStatus
	Organizer   bool
	Resource    bool
	Optional    bool
}

// Attachment is a file linked to an event.
type Attachment struct {
	ID       string
	Name     string
	URI      string
	Icon     string
	MimeType string
	// Raw is the provider payload of the attachment.
	Raw json.RawMessage
}

// Event is a provider event owned by one calendar.
type Event struct {
	id          string
	etag        string
	status      Status
	name        string
	description string
	location    string
	visibility  Visibility
	stackable   bool
	start       *DateTime
	end         *DateTime
	organizer   *Organizer

	participations []*Participation
	attachments    []*Attachment

	calendar *Calendar
	raw      json.RawMessage
}

// NewEvent creates an event that is not yet attached to any calendar.
func NewEvent(status Status) *Event {
	return &Event{status: status, visibility: VisibilityDefault}
}

// ID returns the provider identifier.
func (e *Event) ID() string { return e.id }

// Etag returns the provider version tag of the event.
func (e *Event) Etag() string { return e.etag }

// Status returns the event status.
func (e *Event) Status() Status { return e.status }

// Name returns the event summary.
func (e *Event) Name() string { return e.name }

// Description returns the free-form event description.
func (e *Event) Description() string { return e.description }

// Location returns the free-form event location.
func (e *Event) Location() string { return e.location }

// Visibility returns who can see the event details.
func (e *Event) Visibility() Visibility { return e.visibility }

// Stackable reports whether the event leaves the time free (transparent).
func (e *Event) Stackable() bool { return e.stackable }

// Start returns the event start, or nil when unknown.
func (e *Event) Start() *DateTime { return e.start }

// End returns the event end, or nil when unspecified.
func (e *Event) End() *DateTime { return e.end }

// Organizer returns the organizer reference, if the provider sent one.
func (e *Event) Organizer() *Organizer { return e.organizer }

// Participations returns the attendees in provider order.
func (e *Event) Participations() []*Participation { return e.participations }

// Attachments returns the files attached to the event.
func (e *Event) Attachments() []*Attachment { return e.attachments }

// Calendar returns the owning calendar, or nil before hydration.
func (e *Event) Calendar() *Calendar { return e.calendar }

// Raw returns the provider payload the event was hydrated from.
func (e *Event) Raw() json.RawMessage { return e.raw }

// SetName changes the event summary.
func (e *Event) SetName(name string) { e.name = name }

// SetDescription changes the event description.
func (e *Event) SetDescription(description string) { e.description = description }

// SetLocation changes the event location.
func (e *Event) SetLocation(location string) { e.location = location }

// SetStackable marks the event transparent (true) or opaque (false).
func (e *Event) SetStackable(stackable bool) { e.stackable = stackable }

// SetStart changes the event start.
func (e *Event) SetStart(start DateTime) { e.start = &start }

// SetEnd changes the event end.
func (e *Event) SetEnd(end DateTime) { e.end = &end }

// SetStatus changes the event status.
func (e *Event) SetStatus(status Status) error {
	st, err := ParseStatus(string(status))
	if err != nil {
		return err
	}
	e.status = st
	return nil
}

// SetVisibility changes the event visibility; "" resets it to the default.
func (e *Event) SetVisibility(v Visibility) error {
	switch v {
	case "":
		e.visibility = VisibilityDefault
	case VisibilityDefault, VisibilityPublic, VisibilityPrivate, VisibilityConfidential:
		e.visibility = v
	default:
		return fmt.Errorf("visibility %q not recognized", v)
	}
	return nil
}

// AddParticipation appends an attendee.
func (e *Event) AddParticipation(p *Participation) error {
	if p == nil || p.Email == "" {
		return fmt.Errorf("%w: participation requires an email", ErrMalformedInput)
	}
	if p.Status == "" {
		p.Status = ResponseNeedsAction
	}
	e.participations = append(e.participations, p)
	return nil
}
