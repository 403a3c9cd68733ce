// Package googlecaltest provides a mock Google Calendar API server for testing.
// It implements a subset of the Google Calendar API v3 Calendars and Events endpoints.
package googlecaltest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// DefaultPageSize is used when a list request carries no maxResults.
const DefaultPageSize = 250

// Request is a request received by the server.
type Request struct {
	Method string
	// Path is the decoded path after the API prefix, e.g. calendars/primary/events.
	Path  string
	Query url.Values
	Body  []byte
}

type failure struct {
	status  int
	reason  string
	message string
}

// Server is a mock Google Calendar API server for testing.
type Server struct {
	*httptest.Server

	mu        sync.RWMutex
	calendars map[string]*calendar.Calendar
	events    map[string][]*calendar.Event // calendarID -> events in insertion order
	nextID    int
	version   int
	pageSize  int
	failures  []failure
	requests  []Request
}

// NewServer creates a new mock Google Calendar API server.
func NewServer() *Server {
	s := &Server{
		calendars: make(map[string]*calendar.Calendar),
		events:    make(map[string][]*calendar.Event),
		nextID:    1,
		pageSize:  DefaultPageSize,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

// handleRequest records and routes all requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	path, ok := apiPath(r.URL.EscapedPath())
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", "unsupported endpoint")
		return
	}
	decoded, _ := apiPath(r.URL.Path)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: decoded, Query: r.URL.Query(), Body: body})
	var fail *failure
	if len(s.failures) > 0 {
		fail = &s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if fail != nil {
		writeError(w, fail.status, fail.reason, fail.message)
		return
	}

	s.handleCalendars(w, r, path, body)
}

// apiPath strips everything before the calendars/ segment.
func apiPath(path string) (string, bool) {
	idx := strings.Index(path, "/calendars/")
	if idx == -1 {
		return "", false
	}
	return strings.Trim(path[idx+1:], "/"), true
}

// handleCalendars routes calendar-related requests.
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request, path string, body []byte) {
	// Parse path: calendars/{calendarId}[/events[/{eventId}]]
	raw := strings.Split(path, "/")
	parts := make([]string, len(raw))
	for i, p := range raw {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid", fmt.Sprintf("invalid path segment %q", p))
			return
		}
		parts[i] = unescaped
	}

	if len(parts) < 2 {
		writeError(w, http.StatusBadRequest, "invalid", fmt.Sprintf("invalid path: expected calendars/{calendarId}, got %v", parts))
		return
	}

	calendarID := parts[1]

	switch {
	case len(parts) == 2:
		// calendars/{calendarId}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid", "method not allowed")
			return
		}
		s.getCalendar(w, calendarID)
	case parts[2] != "events":
		writeError(w, http.StatusNotImplemented, "invalid", "unsupported resource")
	case len(parts) == 3:
		// calendars/{calendarId}/events
		switch r.Method {
		case http.MethodGet:
			s.listEvents(w, r, calendarID)
		case http.MethodPost:
			s.insertEvent(w, body, calendarID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid", "method not allowed")
		}
	case len(parts) == 4:
		// calendars/{calendarId}/events/{eventId}
		eventID := parts[3]
		switch r.Method {
		case http.MethodGet:
			s.getEvent(w, calendarID, eventID)
		case http.MethodPut:
			s.updateEvent(w, body, calendarID, eventID, false)
		case http.MethodPatch:
			s.updateEvent(w, body, calendarID, eventID, true)
		case http.MethodDelete:
			s.deleteEvent(w, calendarID, eventID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid", "method not allowed")
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid", "invalid path")
	}
}

// getCalendar handles GET /calendars/{calendarId}
func (s *Server) getCalendar(w http.ResponseWriter, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal := s.calendars[calendarID]
	if cal == nil {
		writeError(w, http.StatusNotFound, "notFound", "Not Found")
		return
	}
	writeJSON(w, cal)
}

// insertEvent handles POST /calendars/{calendarId}/events
func (s *Server) insertEvent(w http.ResponseWriter, body []byte, calendarID string) {
	var event calendar.Event
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "parseError", fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Generate event ID
	event.Id = fmt.Sprintf("event%d", s.nextID)
	s.nextID++

	// Set metadata
	event.Status = "confirmed"
	event.Created = time.Now().UTC().Format(time.RFC3339)
	event.Updated = event.Created
	event.HtmlLink = fmt.Sprintf("https://calendar.google.com/event?eid=%s", event.Id)
	s.touch(&event)

	s.events[calendarID] = append(s.events[calendarID], &event)

	writeJSON(w, event)
}

// listEvents handles GET /calendars/{calendarId}/events
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := r.URL.Query()
	timeMin := query.Get("timeMin")
	timeMax := query.Get("timeMax")
	showDeleted := query.Get("showDeleted") == "true"

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		if evt.Status == "cancelled" && !showDeleted {
			continue
		}
		// Apply time filters
		if timeMin != "" && evt.Start != nil && evt.Start.DateTime != "" && evt.Start.DateTime < timeMin {
			continue
		}
		if timeMax != "" && evt.Start != nil && evt.Start.DateTime != "" && evt.Start.DateTime > timeMax {
			continue
		}
		events = append(events, evt)
	}

	if query.Get("orderBy") == "startTime" && query.Get("singleEvents") == "true" {
		sort.SliceStable(events, func(i, j int) bool {
			return startOf(events[i]) < startOf(events[j])
		})
	}

	// Simple pagination: token is the start index
	startIdx := 0
	if token := query.Get("pageToken"); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(events) {
			writeError(w, http.StatusBadRequest, "invalid", "Invalid page token")
			return
		}
		startIdx = n
	}

	pageSize := s.pageSize
	if maxResults := query.Get("maxResults"); maxResults != "" {
		if n, err := strconv.Atoi(maxResults); err == nil && n > 0 {
			pageSize = n
		}
	}

	endIdx := min(startIdx+pageSize, len(events))

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   events[startIdx:endIdx],
	}
	if resp.Items == nil {
		resp.Items = []*calendar.Event{}
	}

	// The sync token only comes with the last page
	if endIdx < len(events) {
		resp.NextPageToken = strconv.Itoa(endIdx)
	} else {
		resp.NextSyncToken = fmt.Sprintf("sync%d", s.version)
	}

	writeJSON(w, resp)
}

// getEvent handles GET /calendars/{calendarId}/events/{eventId}
func (s *Server) getEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event := s.find(calendarID, eventID)
	if event == nil {
		writeError(w, http.StatusNotFound, "notFound", "Not Found")
		return
	}
	writeJSON(w, event)
}

// updateEvent handles PUT/PATCH /calendars/{calendarId}/events/{eventId}.
// PATCH only overwrites the properties present in the body.
func (s *Server) updateEvent(w http.ResponseWriter, body []byte, calendarID, eventID string, patch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.find(calendarID, eventID)
	if existing == nil {
		writeError(w, http.StatusNotFound, "notFound", "Not Found")
		return
	}

	updated, err := applyUpdate(existing, body, patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parseError", fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	// Preserve ID and metadata
	updated.Id = eventID
	updated.Created = existing.Created
	updated.Updated = time.Now().UTC().Format(time.RFC3339)
	updated.HtmlLink = existing.HtmlLink
	if updated.Status == "" {
		updated.Status = existing.Status
	}
	s.touch(updated)

	*existing = *updated

	writeJSON(w, existing)
}

func applyUpdate(existing *calendar.Event, body []byte, patch bool) (*calendar.Event, error) {
	var updated calendar.Event
	if !patch {
		if err := json.Unmarshal(body, &updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	var changes map[string]json.RawMessage
	if err := json.Unmarshal(body, &changes); err != nil {
		return nil, err
	}

	current, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return nil, err
	}
	for k, v := range changes {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// deleteEvent handles DELETE /calendars/{calendarId}/events/{eventId}.
// Deleted events stay listable with showDeleted=true, as cancelled.
func (s *Server) deleteEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := s.find(calendarID, eventID)
	if event == nil || event.Status == "cancelled" {
		writeError(w, http.StatusGone, "deleted", "Resource has been deleted")
		return
	}

	event.Status = "cancelled"
	s.touch(event)
	w.WriteHeader(http.StatusNoContent)
}

// find must be called with s.mu held.
func (s *Server) find(calendarID, eventID string) *calendar.Event {
	for _, evt := range s.events[calendarID] {
		if evt.Id == eventID {
			return evt
		}
	}
	return nil
}

// touch bumps the server version and the event etag. Must be called with s.mu held.
func (s *Server) touch(event *calendar.Event) {
	s.version++
	event.Etag = strconv.Quote(strconv.Itoa(s.version))
}

func startOf(evt *calendar.Event) string {
	if evt.Start == nil {
		return ""
	}
	if evt.Start.DateTime != "" {
		return evt.Start.DateTime
	}
	return evt.Start.Date
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error in the Google API error format.
func writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"errors": []map[string]string{{
				"domain":  "global",
				"reason":  reason,
				"message": message,
			}},
		},
	})
}

// Reset clears all calendars, events, recorded requests and pending failures.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars = make(map[string]*calendar.Calendar)
	s.events = make(map[string][]*calendar.Event)
	s.failures = nil
	s.requests = nil
	s.nextID = 1
	s.version = 0
}

// SetPageSize sets the page size used when a list request carries no maxResults.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		n = DefaultPageSize
	}
	s.pageSize = n
}

// FailNext makes the next request fail with status. reason is the error code
// reported in the body, e.g. "rateLimitExceeded".
func (s *Server) FailNext(status int, reason, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, reason: reason, message: message})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// AddCalendar registers calendar metadata (for test setup).
func (s *Server) AddCalendar(cal *calendar.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[cal.Id] = cal
}

// GetEvents returns all events for a calendar, cancelled ones included (for test assertions).
func (s *Server) GetEvents(calendarID string) []*calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*calendar.Event(nil), s.events[calendarID]...)
}

// GetEvent returns one event (for test assertions).
func (s *Server) GetEvent(calendarID, eventID string) *calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(calendarID, eventID)
}

// AddEvent adds a pre-configured event to the server (for test setup).
// Missing identifier, status and etag are filled in.
func (s *Server) AddEvent(calendarID string, event *calendar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	}
	if event.Status == "" {
		event.Status = "confirmed"
	}
	if event.Etag == "" {
		s.touch(event)
	}

	s.events[calendarID] = append(s.events[calendarID], event)
}
