package calendar

import "sort"

// Exporter is an entity with a full canonical export.
type Exporter interface {
	Export() Document
}

// ChangeSet is the set of export keys mutated during an edit session.
type ChangeSet struct {
	keys map[string]struct{}
}

// Mark records key as changed.
func (c *ChangeSet) Mark(key string) {
	if c.keys == nil {
		c.keys = make(map[string]struct{})
	}
	c.keys[key] = struct{}{}
}

// Has reports whether key was changed.
func (c *ChangeSet) Has(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// Len returns the number of changed keys.
func (c *ChangeSet) Len() int { return len(c.keys) }

// Keys returns the changed keys, sorted.
func (c *ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filter keeps the properties of doc whose key was changed, in doc's order.
func (c *ChangeSet) Filter(doc Document) Document {
	out := Document{}
	for _, p := range doc {
		if c.Has(p.Key) {
			out = append(out, p)
		}
	}
	return out
}

// Tracker wraps an entity and records which of its export keys were written.
// A key is marked as soon as a mutation is requested, even when the new value
// equals the old one or the mutation is rejected.
type Tracker[T Exporter] struct {
	entity  T
	changes ChangeSet
}

// Track starts an edit session on entity.
func Track[T Exporter](entity T) *Tracker[T] {
	return &Tracker[T]{entity: entity}
}

// Entity returns the wrapped entity.
func (t *Tracker[T]) Entity() T { return t.entity }

// Changes returns the keys written so far.
func (t *Tracker[T]) Changes() *ChangeSet { return &t.changes }

// Mutate marks key and applies fn to the entity.
func (t *Tracker[T]) Mutate(key string, fn func(T) error) error {
	t.changes.Mark(key)
	return fn(t.entity)
}

// Export returns the entity's export restricted to the changed keys. An
// untouched entity exports an empty document.
func (t *Tracker[T]) Export() Document {
	if t.changes.Len() == 0 {
		return Document{}
	}
	return t.changes.Filter(t.entity.Export())
}

// PartialEvent is an edit session on an existing remote event. Only the
// properties set through it are sent by EventAPI.Persist.
type PartialEvent struct {
	*Tracker[*Event]
}

// NewPartialEvent addresses the event id of cal. The event is not added to the
// calendar's event set.
func NewPartialEvent(cal *Calendar, id string) *PartialEvent {
	e := NewEvent(StatusConfirmed)
	e.id = id
	e.calendar = cal
	return &PartialEvent{Tracker: Track(e)}
}

// ID returns the identifier the partial event was seeded with.
func (p *PartialEvent) ID() string { return p.Entity().ID() }

// Calendar returns the calendar the patch targets.
func (p *PartialEvent) Calendar() *Calendar { return p.Entity().Calendar() }

// SetName changes the summary and marks it for the next patch.
func (p *PartialEvent) SetName(name string) {
	_ = p.Mutate(KeySummary, func(e *Event) error {
		e.SetName(name)
		return nil
	})
}

// SetDescription changes the description and marks it.
func (p *PartialEvent) SetDescription(description string) {
	_ = p.Mutate(KeyDescription, func(e *Event) error {
		e.SetDescription(description)
		return nil
	})
}

// SetLocation changes the location and marks it.
func (p *PartialEvent) SetLocation(location string) {
	_ = p.Mutate(KeyLocation, func(e *Event) error {
		e.SetLocation(location)
		return nil
	})
}

// SetStart changes the start and marks it.
func (p *PartialEvent) SetStart(start DateTime) {
	_ = p.Mutate(KeyStart, func(e *Event) error {
		e.SetStart(start)
		return nil
	})
}

// SetEnd changes the end and marks it.
func (p *PartialEvent) SetEnd(end DateTime) {
	_ = p.Mutate(KeyEnd, func(e *Event) error {
		e.SetEnd(end)
		return nil
	})
}

// SetStackable toggles whether the event blocks time (the transparency key).
func (p *PartialEvent) SetStackable(stackable bool) {
	_ = p.Mutate(KeyTransparency, func(e *Event) error {
		e.SetStackable(stackable)
		return nil
	})
}

// SetStatus changes the status. The key is marked even when status is
// rejected.
func (p *PartialEvent) SetStatus(status Status) error {
	return p.Mutate(KeyStatus, func(e *Event) error {
		return e.SetStatus(status)
	})
}

// SetVisibility changes the visibility. The key is marked even when v is
// rejected.
func (p *PartialEvent) SetVisibility(v Visibility) error {
	return p.Mutate(KeyVisibility, func(e *Event) error {
		return e.SetVisibility(v)
	})
}

// AddParticipation appends an attendee. The whole attendee list is sent, as
// the provider replaces it on patch.
func (p *PartialEvent) AddParticipation(part *Participation) error {
	return p.Mutate(KeyAttendees, func(e *Event) error {
		return e.AddParticipation(part)
	})
}
