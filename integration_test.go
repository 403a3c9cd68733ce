package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/drewfead/calendart/internal/calendar"
	"github.com/drewfead/calendart/pkg/googlecaltest"
)

type listOutput struct {
	Calendar  string        `json:"calendar"`
	SyncToken string        `json:"syncToken"`
	Events    []eventOutput `json:"events"`
}

type eventOutput struct {
	ID       string         `json:"id"`
	Etag     string         `json:"etag"`
	Calendar string         `json:"calendar"`
	Event    map[string]any `json:"event"`
}

// run executes the CLI against server with an isolated home directory and
// returns what it printed.
func run(t *testing.T, server *googlecaltest.Server, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &bytes.Buffer{}

	argv := append([]string{
		"calendart",
		"--env-dir", t.TempDir(),
		"--endpoint", server.URL + "/calendar/v3",
		"--access-token", "test-token",
		"--log-level", "error",
	}, args...)

	err := cmd.Run(context.Background(), argv)
	return out.String(), err
}

func newServer(t *testing.T) *googlecaltest.Server {
	t.Helper()
	server := googlecaltest.NewServer()
	t.Cleanup(server.Close)
	return server
}

func ids(events []eventOutput) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestCLI_List(t *testing.T) {
	server := newServer(t)
	server.SetPageSize(1)
	server.AddEvent("primary", &gcal.Event{Id: "a", Summary: "A", Start: &gcal.EventDateTime{Date: "2025-03-01"}})
	server.AddEvent("primary", &gcal.Event{Id: "b", Summary: "B", Organizer: &gcal.EventOrganizer{Email: "team@example.com"}})
	server.AddEvent("primary", &gcal.Event{Id: "gone", Status: "cancelled"})

	out, err := run(t, server, "list")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "primary", got.Calendar)
	assert.NotEmpty(t, got.SyncToken)
	assert.Equal(t, []string{"a", "b"}, ids(got.Events))
	assert.Equal(t, "A", got.Events[0].Event["summary"])
	assert.Equal(t, "primary", got.Events[0].Calendar)
	assert.Equal(t, "team@example.com", got.Events[1].Calendar)
	assert.NotEmpty(t, got.Events[0].Etag)

	assert.Len(t, server.Requests(), 2)
}

func TestCLI_ListCriterion(t *testing.T) {
	server := newServer(t)
	server.AddEvent("primary", &gcal.Event{Id: "gone", Status: "cancelled"})

	out, err := run(t, server, "list",
		"--show-deleted",
		"--filter", "timeMin=2025-01-01T00:00:00Z",
		"--field", "hangoutLink")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"gone"}, ids(got.Events))

	query := server.Requests()[0].Query
	assert.Equal(t, "true", query.Get("showDeleted"))
	assert.Equal(t, "2025-01-01T00:00:00Z", query.Get("timeMin"))
	assert.Contains(t, query.Get("fields"), "hangoutLink")
	assert.Contains(t, query.Get("fields"), "nextSyncToken")
}

func TestCLI_ListInvalidFilter(t *testing.T) {
	server := newServer(t)

	_, err := run(t, server, "list", "--filter", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
	assert.Empty(t, server.Requests())
}

func TestCLI_Get(t *testing.T) {
	server := newServer(t)
	server.AddEvent("work@example.com", &gcal.Event{Id: "e1", Summary: "Planning", Location: "Room 4"})

	out, err := run(t, server, "get", "--calendar", "work@example.com", "e1")
	require.NoError(t, err)

	var got eventOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "work@example.com", got.Calendar)
	assert.Equal(t, "Planning", got.Event["summary"])
	assert.Equal(t, "Room 4", got.Event["location"])
}

func TestCLI_GetErrors(t *testing.T) {
	server := newServer(t)

	_, err := run(t, server, "get")
	assert.ErrorContains(t, err, "missing <event-id>")

	_, err = run(t, server, "get", "missing")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

func TestCLI_Patch(t *testing.T) {
	server := newServer(t)
	server.AddEvent("primary", &gcal.Event{Id: "e1", Summary: "Old", Description: "keep me"})

	out, err := run(t, server, "patch",
		"--summary", "New",
		"--start", "2025-02-03",
		"--transparent",
		"e1")
	require.NoError(t, err)

	requests := server.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPatch, requests[0].Method)
	assert.JSONEq(t, `{"summary": "New", "start": {"date": "2025-02-03"}, "transparency": "transparent"}`,
		string(requests[0].Body))

	var got eventOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "New", got.Event["summary"])
	assert.NotContains(t, got.Event, "description")

	stored := server.GetEvent("primary", "e1")
	assert.Equal(t, "New", stored.Summary)
	assert.Equal(t, "keep me", stored.Description)
	assert.Equal(t, "transparent", stored.Transparency)
}

func TestCLI_PatchRejected(t *testing.T) {
	server := newServer(t)
	server.AddEvent("primary", &gcal.Event{Id: "e1", Summary: "Old"})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no changes", args: []string{"patch", "e1"}, want: "nothing to patch"},
		{name: "no id", args: []string{"patch", "--summary", "x"}, want: "missing <event-id>"},
		{name: "bad status", args: []string{"patch", "--status", "maybe", "e1"}, want: "maybe"},
		{name: "bad visibility", args: []string{"patch", "--visibility", "secret", "e1"}, want: "secret"},
		{name: "bad start", args: []string{"patch", "--start", "tomorrow", "e1"}, want: "invalid --start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, server, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Empty(t, server.Requests())
	assert.Equal(t, "Old", server.GetEvent("primary", "e1").Summary)
}

func TestCLI_Sync(t *testing.T) {
	server := newServer(t)
	server.AddEvent("a@example.com", &gcal.Event{Id: "a1", Summary: "A1"})
	server.AddEvent("b@example.com", &gcal.Event{Id: "b1", Summary: "B1"})
	server.AddEvent("b@example.com", &gcal.Event{Id: "b2", Summary: "B2"})

	out, err := run(t, server, "sync",
		"--calendar", "a@example.com",
		"--calendar", "b@example.com",
		"--calendar", "a@example.com")
	require.NoError(t, err)

	var got []listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "a@example.com", got[0].Calendar)
	assert.Equal(t, []string{"a1"}, ids(got[0].Events))
	assert.Equal(t, "b@example.com", got[1].Calendar)
	assert.Equal(t, []string{"b1", "b2"}, ids(got[1].Events))
	assert.NotEmpty(t, got[1].SyncToken)
}

func TestCLI_SyncFailure(t *testing.T) {
	server := newServer(t)
	server.FailNext(http.StatusForbidden, "rateLimitExceeded", "Rate Limit Exceeded")

	_, err := run(t, server, "sync")
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrRateLimitExceeded)
	assert.True(t, strings.HasPrefix(err.Error(), "sync calendar primary:"), err.Error())
}

func TestCLI_Calendar(t *testing.T) {
	server := newServer(t)
	server.AddCalendar(&gcal.Calendar{Id: "team@example.com", Summary: "Team", TimeZone: "Europe/Paris"})

	out, err := run(t, server, "calendar", "team@example.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "team@example.com", "name": "Team", "timeZone": "Europe/Paris"}`, out)
}

func TestCLI_RequiresCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	cmd.ErrWriter = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"calendart", "--env-dir", t.TempDir(), "list"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get authenticated client")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-05-06")
	require.NoError(t, err)
	assert.True(t, d.AllDay)
	assert.Equal(t, 6, d.Time.Day())

	d, err = parseDate("2025-05-06T10:30:00+02:00")
	require.NoError(t, err)
	assert.False(t, d.AllDay)
	assert.Equal(t, 10, d.Time.Hour())

	_, err = parseDate("06/05/2025")
	assert.Error(t, err)
}
