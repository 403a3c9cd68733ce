package googlecaltest_test

import (
	"context"
	"fmt"
	"net/http"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/drewfead/calendart/internal/calendar"
	"github.com/drewfead/calendart/pkg/googlecaltest"
)

// Example demonstrates how to use the mock server with the official client.
func Example() {
	// Create mock server
	server := googlecaltest.NewServer()
	defer server.Close()

	// Create Google Calendar service pointing to mock
	ctx := context.Background()
	svc, err := gcal.NewService(ctx,
		option.WithHTTPClient(&http.Client{}),
		option.WithEndpoint(server.URL))
	if err != nil {
		panic(err)
	}

	// Pre-populate some events
	server.AddEvent("primary", &gcal.Event{
		Id:      "event1",
		Summary: "Team Meeting",
		Start:   &gcal.EventDateTime{Date: "2025-01-01"},
		End:     &gcal.EventDateTime{Date: "2025-01-02"},
	})

	// Use the service
	events, err := svc.Events.List("primary").Do()
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d events\n", len(events.Items))
	// Output: Found 1 events
}

// Example_adapter shows a full synchronization and patch round trip.
func Example_adapter() {
	server := googlecaltest.NewServer()
	defer server.Close()
	server.SetPageSize(1)

	server.AddEvent("primary", &gcal.Event{Id: "standup", Summary: "Standup"})
	server.AddEvent("primary", &gcal.Event{Id: "retro", Summary: "Retro"})

	transport, err := calendar.NewHTTPTransport(server.Client(), server.URL)
	if err != nil {
		panic(err)
	}
	client := calendar.NewClient(transport)

	ctx := context.Background()
	primary := calendar.NewCalendar("primary", "Primary", nil)

	events, err := client.Events(primary).List(ctx, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(events.IDs(), primary.SyncToken != "")

	partial := calendar.NewPartialEvent(primary, "retro")
	partial.SetLocation("Room B")
	if err := client.Events(primary).Persist(ctx, partial); err != nil {
		panic(err)
	}

	stored := server.GetEvent("primary", "retro")
	fmt.Println(stored.Summary, stored.Location)
	// Output:
	// [standup retro] true
	// Retro Room B
}
