package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/tidwall/gjson"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	dateLayout          = "2006-01-02"
	localDateTimeLayout = "2006-01-02T15:04:05"

	attachmentsKey = "attachments"
)

// DecodeEvent converts a raw provider record into an Event without attaching
// it to any calendar.
func DecodeEvent(raw []byte) (*Event, error) {
	var wire gcal.Event
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: event record: %v", ErrMalformedInput, err)
	}

	if wire.Id == "" || wire.Etag == "" || wire.Status == "" {
		return nil, fmt.Errorf(`%w: missing at least one of the mandatory properties "id", "etag", "status"; got [%s]`,
			ErrMalformedInput, strings.Join(presentKeys(raw), ", "))
	}

	status, err := ParseStatus(wire.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: event %s: %v", ErrMalformedInput, wire.Id, err)
	}

	start, err := decodeDate(KeyStart, wire.Start)
	if err != nil {
		return nil, err
	}

	// An open-ended event must say so explicitly.
	if start != nil && wire.End == nil && !wire.EndTimeUnspecified {
		return nil, fmt.Errorf(`%w: event %s: when "end" is missing, "endTimeUnspecified" must be true`, ErrMalformedInput, wire.Id)
	}

	end, err := decodeDate(KeyEnd, wire.End)
	if err != nil {
		return nil, err
	}

	event := NewEvent(status)
	event.id = wire.Id
	event.etag = wire.Etag
	event.name = wire.Summary
	event.description = wire.Description
	event.location = wire.Location
	event.stackable = wire.Transparency == "transparent"
	event.start = start
	event.end = end
	event.raw = append(json.RawMessage(nil), raw...)

	if wire.Visibility != "" {
		if err := event.SetVisibility(Visibility(wire.Visibility)); err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrMalformedInput, wire.Id, err)
		}
	}

	if wire.Organizer != nil {
		event.organizer = &Organizer{
			ID:          wire.Organizer.Id,
			Email:       wire.Organizer.Email,
			DisplayName: wire.Organizer.DisplayName,
			Self:        wire.Organizer.Self,
		}
	}

	for _, a := range wire.Attendees {
		if a == nil {
			continue
		}
		event.participations = append(event.participations, &Participation{
			Email:       a.Email,
			DisplayName: a.DisplayName,
			Status:      ResponseStatus(a.ResponseStatus),
			Organizer:   a.Organizer,
			Resource:    a.Resource,
			Optional:    a.Optional,
		})
	}

	attachments, err := decodeAttachments(wire.Id, raw)
	if err != nil {
		return nil, err
	}
	event.attachments = attachments

	return event, nil
}

// decodeAttachments reads the attachments array of an event record; fileId is
// mandatory on every entry.
func decodeAttachments(eventID string, raw []byte) ([]*Attachment, error) {
	items := gjson.GetBytes(raw, attachmentsKey)
	if !items.IsArray() {
		return nil, nil
	}

	var out []*Attachment
	for _, item := range items.Array() {
		var wire gcal.EventAttachment
		if err := json.Unmarshal([]byte(item.Raw), &wire); err != nil {
			return nil, fmt.Errorf("%w: event %s attachment: %v", ErrMalformedInput, eventID, err)
		}
		if wire.FileId == "" {
			return nil, fmt.Errorf(`%w: event %s: missing at least one of the mandatory attachment properties "fileId"; got [%s]`,
				ErrMalformedInput, eventID, strings.Join(presentKeys([]byte(item.Raw)), ", "))
		}
		out = append(out, &Attachment{
			ID:       wire.FileId,
			Name:     wire.Title,
			URI:      wire.FileUrl,
			Icon:     wire.IconLink,
			MimeType: wire.MimeType,
			Raw:      json.RawMessage(item.Raw),
		})
	}
	return out, nil
}

// HydrateEvent decodes raw and attaches the event to cal. The calendar is left
// untouched when the record is malformed.
func HydrateEvent(cal *Calendar, raw []byte) (*Event, error) {
	event, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}
	cal.attach(event)
	return event, nil
}

// HydrateCalendar converts a provider calendar resource.
func HydrateCalendar(wire *gcal.Calendar) (*Calendar, error) {
	if wire == nil || wire.Id == "" {
		return nil, fmt.Errorf(`%w: calendar record is missing "id"`, ErrMalformedInput)
	}
	return NewCalendar(wire.Id, wire.Summary, loadLocation(wire.TimeZone)), nil
}

// decodeDate reads a {date} or {dateTime, timeZone} block.
func decodeDate(name string, d *gcal.EventDateTime) (*DateTime, error) {
	if d == nil {
		return nil, nil
	}
	if d.Date == "" && d.DateTime == "" {
		return nil, fmt.Errorf(`%w: %q date is malformed: expected a "date" or "dateTime" key`, ErrMalformedInput, name)
	}

	loc := loadLocation(d.TimeZone)

	if d.Date != "" {
		t, err := time.ParseInLocation(dateLayout, d.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %q date: %v", ErrMalformedInput, name, err)
		}
		return &DateTime{Time: t, AllDay: true}, nil
	}

	t, err := time.Parse(time.RFC3339, d.DateTime)
	if err != nil {
		// Some records omit the offset; read them in the block's zone.
		t, err = time.ParseInLocation(localDateTimeLayout, d.DateTime, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %q dateTime: %v", ErrMalformedInput, name, err)
		}
	}
	if d.TimeZone != "" {
		t = t.In(loc)
	}
	return &DateTime{Time: t}, nil
}

// loadLocation resolves a provider zone name. The provider may send zones the
// local tz database does not know; those fall back to UTC.
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func presentKeys(raw []byte) []string {
	var keys []string
	gjson.ParseBytes(raw).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Export returns the full provider representation of the event.
func (e *Event) Export() Document {
	transparency := "opaque"
	if e.stackable {
		transparency = "transparent"
	}

	visibility := e.visibility
	if visibility == "" {
		visibility = VisibilityDefault
	}

	attendees := make([]*gcal.EventAttendee, 0, len(e.participations))
	for _, p := range e.participations {
		attendees = append(attendees, exportParticipation(p))
	}

	doc := Document{
		{Key: KeySummary, Value: e.name},
		{Key: KeyDescription, Value: e.description},
		{Key: KeyLocation, Value: e.location},
		{Key: KeyStatus, Value: string(e.status)},
		{Key: KeyVisibility, Value: string(visibility)},
		{Key: KeyTransparency, Value: transparency},
		{Key: KeyAttendees, Value: attendees},
	}
	if e.start != nil {
		doc = append(doc, Property{Key: KeyStart, Value: exportDate(*e.start)})
	}
	if e.end != nil {
		doc = append(doc, Property{Key: KeyEnd, Value: exportDate(*e.end)})
	}
	return doc
}

func exportParticipation(p *Participation) *gcal.EventAttendee {
	return &gcal.EventAttendee{
		Email:          p.Email,
		DisplayName:    p.DisplayName,
		ResponseStatus: string(p.Status),
		Organizer:      p.Organizer,
		Resource:       p.Resource,
		Optional:       p.Optional,
	}
}

func exportDate(d DateTime) *gcal.EventDateTime {
	if d.AllDay {
		return &gcal.EventDateTime{Date: d.Time.Format(dateLayout)}
	}

	out := &gcal.EventDateTime{DateTime: d.Time.Format(time.RFC3339)}
	if zone := d.Time.Location().String(); zone != "Local" {
		out.TimeZone = zone
	}
	return out
}
