// Package googlecaltest provides a mock Google Calendar API server for testing.
//
// The mock server implements a subset of the Google Calendar API v3 Calendars and
// Events endpoints, allowing tests to run without authentication or network access.
//
// # Supported Operations
//
// The mock server supports the following Google Calendar API operations:
//
//   - Get Calendar: GET /calendars/{calendarId}
//   - Insert Event: POST /calendars/{calendarId}/events
//   - List Events: GET /calendars/{calendarId}/events (with pagination, showDeleted, time filters, sorting)
//   - Get Event: GET /calendars/{calendarId}/events/{eventId}
//   - Update Event: PUT /calendars/{calendarId}/events/{eventId}
//   - Patch Event: PATCH /calendars/{calendarId}/events/{eventId} (only the properties sent are changed)
//   - Delete Event: DELETE /calendars/{calendarId}/events/{eventId} (the event becomes cancelled)
//
// # Basic Usage
//
//	// Create mock server
//	server := googlecaltest.NewServer()
//	defer server.Close()
//
//	// Point the adapter at the mock
//	transport, err := calendar.NewHTTPTransport(server.Client(), server.URL)
//	client := calendar.NewClient(transport)
//
//	// Or the official client
//	svc, err := gcal.NewService(ctx,
//	    option.WithHTTPClient(&http.Client{}),
//	    option.WithEndpoint(server.URL))
//
// # Test Helpers
//
// The server provides helper methods for test setup and assertions:
//
//	// Pre-populate calendars and events
//	server.AddCalendar(&gcal.Calendar{Id: "primary", TimeZone: "UTC"})
//	server.AddEvent("primary", &gcal.Event{Id: "test-event-1", Summary: "Existing Event"})
//
//	// Shrink pages to exercise pagination
//	server.SetPageSize(2)
//
//	// Fail the next request with a Google error body
//	server.FailNext(http.StatusForbidden, "rateLimitExceeded", "Rate Limit Exceeded")
//
//	// Inspect state and traffic
//	events := server.GetEvents("primary")
//	requests := server.Requests()
//
//	// Clear all data between tests
//	server.Reset()
//
// # Features
//
//   - Thread-safe: Uses mutex for concurrent access
//   - Pagination: maxResults and pageToken; nextSyncToken is sent with the last page only
//   - Deleted events: listed as cancelled only with showDeleted=true
//   - Etags: every write bumps the event etag
//   - Multiple calendars: Each calendar ID maintains separate event storage
//   - Errors: Google API error bodies with a reason code
package googlecaltest
