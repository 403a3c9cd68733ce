package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

func record(extra string) []byte {
	base := `"id": "1", "etag": "1", "status": "confirmed",
		"creator": {"displayName": "John Doe"}, "created": "2015-01-01T00:00:00Z",
		"start": {"dateTime": "2015-01-01T10:00:00"}`
	if extra != "" {
		base += ", " + extra
	}
	return []byte("{" + base + "}")
}

func TestDecodeEvent_EndRules(t *testing.T) {
	t.Run("missing end", func(t *testing.T) {
		for _, extra := range []string{"", `"endTimeUnspecified": false`} {
			_, err := DecodeEvent(record(extra))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), `"endTimeUnspecified" must be true`)
		}
	})

	t.Run("end is not an object", func(t *testing.T) {
		_, err := DecodeEvent(record(`"end": "foo"`))
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("missing end with endTimeUnspecified", func(t *testing.T) {
		event, err := DecodeEvent(record(`"endTimeUnspecified": true`))
		require.NoError(t, err)
		assert.Nil(t, event.End())
	})

	t.Run("end with endTimeUnspecified", func(t *testing.T) {
		event, err := DecodeEvent(record(`"end": {"dateTime": "2015-01-01T11:00:00"}, "endTimeUnspecified": true`))
		require.NoError(t, err)
		require.NotNil(t, event.End())
		assert.Equal(t, "2015-01-01 11:00:00", event.End().Time.Format("2006-01-02 15:04:05"))
	})
}

func TestDecodeEvent_MandatoryProperties(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"id": "e1", "summary": "x", "start": {"date": "2015-01-01"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), `"id", "etag", "status"; got [id, summary, start]`)
}

func TestDecodeEvent_UnknownStatus(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"id": "e1", "etag": "1", "status": "maybe"}`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestDecodeEvent_Dates(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []struct {
		name    string
		block   string
		want    time.Time
		allDay  bool
		wantErr bool
	}{
		{
			name:   "all day",
			block:  `{"date": "2015-03-02"}`,
			want:   time.Date(2015, 3, 2, 0, 0, 0, 0, time.UTC),
			allDay: true,
		},
		{
			name:  "offset date time in zone",
			block: `{"dateTime": "2015-03-02T10:00:00+01:00", "timeZone": "Europe/Paris"}`,
			want:  time.Date(2015, 3, 2, 10, 0, 0, 0, paris),
		},
		{
			name:  "local date time in zone",
			block: `{"dateTime": "2015-03-02T10:00:00", "timeZone": "Europe/Paris"}`,
			want:  time.Date(2015, 3, 2, 10, 0, 0, 0, paris),
		},
		{
			name:  "unknown zone is ignored",
			block: `{"dateTime": "2015-03-02T10:00:00Z", "timeZone": "Mars/Olympus_Mons"}`,
			want:  time.Date(2015, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "neither date nor dateTime",
			block:   `{"timeZone": "UTC"}`,
			wantErr: true,
		},
		{
			name:    "garbage",
			block:   `{"dateTime": "tomorrow"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"id": "e1", "etag": "1", "status": "confirmed", "start": ` + tt.block + `, "end": ` + tt.block + `}`)
			event, err := DecodeEvent(raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, event.Start())
			assert.True(t, tt.want.Equal(event.Start().Time), "got %s", event.Start().Time)
			assert.Equal(t, tt.allDay, event.Start().AllDay)
		})
	}
}

func TestDecodeEvent_Properties(t *testing.T) {
	raw := []byte(`{
		"id": "e1", "etag": "\"3\"", "status": "tentative",
		"summary": "Standup", "description": "daily", "location": "Room 1",
		"visibility": "private", "transparency": "transparent",
		"organizer": {"email": "boss@example.com", "displayName": "Boss"},
		"attendees": [
			{"email": "a@example.com", "responseStatus": "accepted"},
			{"email": "room@example.com", "resource": true, "optional": true, "responseStatus": "needsAction"}
		],
		"start": {"date": "2015-01-01"}, "end": {"date": "2015-01-02"}
	}`)

	event, err := DecodeEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "e1", event.ID())
	assert.Equal(t, `"3"`, event.Etag())
	assert.Equal(t, StatusTentative, event.Status())
	assert.Equal(t, "Standup", event.Name())
	assert.Equal(t, "daily", event.Description())
	assert.Equal(t, "Room 1", event.Location())
	assert.Equal(t, VisibilityPrivate, event.Visibility())
	assert.True(t, event.Stackable())
	assert.Nil(t, event.Calendar())
	assert.JSONEq(t, string(raw), string(event.Raw()))

	require.NotNil(t, event.Organizer())
	assert.Equal(t, "boss@example.com", event.Organizer().Email)
	assert.False(t, event.Organizer().Self)

	require.Len(t, event.Participations(), 2)
	assert.Equal(t, ResponseAccepted, event.Participations()[0].Status)
	assert.True(t, event.Participations()[1].Resource)
	assert.True(t, event.Participations()[1].Optional)
}

func TestHydrateEvent(t *testing.T) {
	cal := NewCalendar("test@calendart.com", "Test", nil)

	_, err := HydrateEvent(cal, []byte(`{"id": "e1"}`))
	require.Error(t, err)
	assert.Equal(t, 0, cal.Events().Len(), "a malformed record leaves the calendar untouched")

	event, err := HydrateEvent(cal, []byte(`{"id": "e1", "etag": "1", "status": "confirmed"}`))
	require.NoError(t, err)
	assert.Same(t, cal, event.Calendar())
	got, ok := cal.Events().Get("e1")
	require.True(t, ok)
	assert.Same(t, event, got)
}

func TestHydrateCalendar(t *testing.T) {
	cal, err := HydrateCalendar(&gcal.Calendar{Id: "c1", Summary: "Work", TimeZone: "Europe/Paris"})
	require.NoError(t, err)
	assert.Equal(t, "c1", cal.ID)
	assert.Equal(t, "Work", cal.Name)
	assert.Equal(t, "Europe/Paris", cal.Location.String())

	cal, err = HydrateCalendar(&gcal.Calendar{Id: "c2", TimeZone: "Nowhere/Special"})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location)

	_, err = HydrateCalendar(&gcal.Calendar{Summary: "anonymous"})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestEvent_Export(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	event := NewEvent(StatusConfirmed)
	event.SetName("Review")
	event.SetStart(DateTime{Time: time.Date(2015, 1, 1, 10, 0, 0, 0, paris)})
	event.SetEnd(DateTime{Time: time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC), AllDay: true})
	require.NoError(t, event.AddParticipation(&Participation{Email: "a@example.com"}))

	doc := event.Export()
	assert.Equal(t, []string{
		KeySummary, KeyDescription, KeyLocation, KeyStatus, KeyVisibility,
		KeyTransparency, KeyAttendees, KeyStart, KeyEnd,
	}, doc.Keys())

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"summary": "Review",
		"description": "",
		"location": "",
		"status": "confirmed",
		"visibility": "default",
		"transparency": "opaque",
		"attendees": [{"email": "a@example.com", "responseStatus": "needsAction"}],
		"start": {"dateTime": "2015-01-01T10:00:00+01:00", "timeZone": "Europe/Paris"},
		"end": {"date": "2015-01-02"}
	}`, string(data))
}

func TestEvent_ExportWithoutDates(t *testing.T) {
	doc := NewEvent(StatusTentative).Export()

	_, ok := doc.Get(KeyStart)
	assert.False(t, ok)
	_, ok = doc.Get(KeyEnd)
	assert.False(t, ok)

	attendees, ok := doc.Get(KeyAttendees)
	require.True(t, ok)
	assert.NotNil(t, attendees)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attendees":[]`)
}

func TestEvent_Setters(t *testing.T) {
	event := NewEvent(StatusConfirmed)

	assert.Error(t, event.SetStatus("maybe"))
	assert.Equal(t, StatusConfirmed, event.Status())
	require.NoError(t, event.SetStatus(StatusCancelled))
	assert.Equal(t, StatusCancelled, event.Status())

	assert.Error(t, event.SetVisibility("secret"))
	require.NoError(t, event.SetVisibility(VisibilityPublic))
	require.NoError(t, event.SetVisibility(""))
	assert.Equal(t, VisibilityDefault, event.Visibility())

	assert.ErrorIs(t, event.AddParticipation(&Participation{}), ErrMalformedInput)
	assert.ErrorIs(t, event.AddParticipation(nil), ErrMalformedInput)
}

func TestEventSet_ReplacesInPlace(t *testing.T) {
	set := NewEventSet()
	first := &Event{id: "a", name: "first"}
	set.Add(first)
	set.Add(&Event{id: "b"})
	set.Add(&Event{id: "a", name: "again"})

	assert.Equal(t, []string{"a", "b"}, set.IDs())
	got, _ := set.Get("a")
	assert.Equal(t, "again", got.Name())
	assert.Len(t, set.All(), 2)
}

func TestEventSet_ZeroValue(t *testing.T) {
	var set EventSet
	set.Add(&Event{id: "a"})

	assert.Equal(t, []string{"a"}, set.IDs())
	got, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())
}

func TestDecodeEvent_Attachments(t *testing.T) {
	event, err := DecodeEvent(record(`"endTimeUnspecified": true, "attachments": [
		{"fileId": "f1", "title": "Agenda", "fileUrl": "https://drive.google.com/f1",
		 "iconLink": "https://drive.google.com/icon.png", "mimeType": "application/pdf"},
		{"fileId": "f2"}
	]`))
	require.NoError(t, err)
	require.Len(t, event.Attachments(), 2)

	first := event.Attachments()[0]
	assert.Equal(t, "f1", first.ID)
	assert.Equal(t, "Agenda", first.Name)
	assert.Equal(t, "https://drive.google.com/f1", first.URI)
	assert.Equal(t, "https://drive.google.com/icon.png", first.Icon)
	assert.Equal(t, "application/pdf", first.MimeType)
	assert.JSONEq(t, `{"fileId": "f1", "title": "Agenda", "fileUrl": "https://drive.google.com/f1",
		"iconLink": "https://drive.google.com/icon.png", "mimeType": "application/pdf"}`, string(first.Raw))

	second := event.Attachments()[1]
	assert.Equal(t, "f2", second.ID)
	assert.Empty(t, second.Name)

	t.Run("none", func(t *testing.T) {
		event, err := DecodeEvent(record(`"endTimeUnspecified": true`))
		require.NoError(t, err)
		assert.Empty(t, event.Attachments())
	})

	t.Run("missing fileId", func(t *testing.T) {
		cal := NewCalendar("primary", "", nil)
		_, err := HydrateEvent(cal, record(`"endTimeUnspecified": true, "attachments": [{"title": "Agenda", "fileUrl": "x"}]`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedInput)
		assert.Contains(t, err.Error(), `"fileId"`)
		assert.Contains(t, err.Error(), "got [title, fileUrl]")
		assert.Zero(t, cal.Events().Len())
	})
}

func TestDocument_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Document{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	data, err = json.Marshal(Document{{Key: "b", Value: 1}, {Key: "a", Value: "x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"x"}`, string(data))
}
