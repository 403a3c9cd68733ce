package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/drewfead/calendart/internal/auth"
	"github.com/drewfead/calendart/internal/calendar"
	"github.com/drewfead/calendart/internal/config"
	"github.com/drewfead/calendart/internal/criterion"
	"github.com/drewfead/calendart/internal/logger"
)

const dateLayout = "2006-01-02"

// app holds what the root command's Before hook builds.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *calendar.Client
}

// eventView is the JSON rendering of one event.
type eventView struct {
	ID       string            `json:"id"`
	Etag     string            `json:"etag,omitempty"`
	Calendar string            `json:"calendar,omitempty"`
	Event    calendar.Document `json:"event"`
}

type listView struct {
	Calendar  string      `json:"calendar"`
	SyncToken string      `json:"syncToken,omitempty"`
	Events    []eventView `json:"events"`
}

func newEventView(e *calendar.Event) eventView {
	v := eventView{ID: e.ID(), Etag: e.Etag(), Event: e.Export()}
	if cal := e.Calendar(); cal != nil {
		v.Calendar = cal.ID
	}
	return v
}

func newListView(cal *calendar.Calendar, set *calendar.EventSet) listView {
	out := listView{Calendar: cal.ID, SyncToken: cal.SyncToken, Events: []eventView{}}
	for _, e := range set.All() {
		out.Events = append(out.Events, newEventView(e))
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func calendarFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "calendar",
		Aliases: []string{"c"},
		Usage:   "calendar identifier",
		Value:   "primary",
	}
}

func criterionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "show-deleted", Usage: "include cancelled events"},
		&cli.StringSliceFlag{Name: "filter", Usage: "extra query parameter, key=value"},
		&cli.StringSliceFlag{Name: "field", Usage: "extra event property to request"},
	}
}

// newCommand builds the calendart command tree.
func newCommand() *cli.Command {
	a := &app{}

	return &cli.Command{
		Name:  "calendart",
		Usage: "Synchronize and patch Google Calendar events",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file", Sources: cli.EnvVars("CALENDART_CONFIG")},
			&cli.StringFlag{Name: "env-dir", Usage: "directory holding a .env file", Value: "."},
			&cli.StringFlag{Name: "endpoint", Usage: "Calendar API base URL"},
			&cli.StringFlag{Name: "access-token", Usage: "OAuth access token (not refreshed)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every event of a calendar",
				Flags:  append([]cli.Flag{calendarFlag()}, criterionFlags()...),
				Action: a.list,
			},
			{
				Name:      "get",
				Usage:     "Show one event",
				ArgsUsage: "<event-id>",
				Flags:     []cli.Flag{calendarFlag()},
				Action:    a.get,
			},
			{
				Name:      "patch",
				Usage:     "Change some properties of an event",
				ArgsUsage: "<event-id>",
				Flags: []cli.Flag{
					calendarFlag(),
					&cli.StringFlag{Name: "summary"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "status", Usage: "tentative, confirmed or cancelled"},
					&cli.StringFlag{Name: "visibility", Usage: "default, public, private or confidential"},
					&cli.BoolFlag{Name: "transparent", Usage: "do not block time"},
					&cli.StringFlag{Name: "start", Usage: "RFC3339 instant or YYYY-MM-DD"},
					&cli.StringFlag{Name: "end", Usage: "RFC3339 instant or YYYY-MM-DD"},
					&cli.StringSliceFlag{Name: "attendee", Usage: "attendee email"},
				},
				Action: a.patch,
			},
			{
				Name:  "sync",
				Usage: "List the configured calendars concurrently",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "calendar", Aliases: []string{"c"}, Usage: "calendar identifiers (default: from config)"},
				}, criterionFlags()...),
				Action: a.sync,
			},
			{
				Name:      "calendar",
				Usage:     "Show calendar metadata",
				ArgsUsage: "<calendar-id>",
				Action:    a.calendar,
			},
		},
	}
}

// setup loads configuration and builds the provider client.
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.LoadConfig(cmd.String("env-dir"), cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if cmd.IsSet("endpoint") {
		cfg.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("access-token") {
		cfg.Auth = auth.Config{AccessToken: cmd.String("access-token")}
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return ctx, err
	}

	httpClient, err := auth.GetClient(ctx, cfg.Auth, log)
	if err != nil {
		return ctx, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	transport, err := calendar.NewHTTPTransport(httpClient, cfg.Endpoint)
	if err != nil {
		return ctx, err
	}

	a.cfg = cfg
	a.logger = log
	a.client = calendar.NewClient(transport, calendar.WithLogger(log))

	log.Debug("client ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.Stringer("auth", cfg.Auth.Method()))

	return ctx, nil
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := a.cfg.Timeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// criterionFrom turns list flags into a criterion tree.
func criterionFrom(cmd *cli.Command) (*criterion.Collection, error) {
	var items []criterion.Node

	if cmd.Bool("show-deleted") {
		items = append(items, criterion.Bool("showDeleted", true))
	}

	for _, f := range cmd.StringSlice("filter") {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", f)
		}
		items = append(items, criterion.NewParam(key, value))
	}

	if fields := cmd.StringSlice("field"); len(fields) > 0 {
		children := make([]criterion.Field, 0, len(fields))
		for _, name := range fields {
			children = append(children, criterion.NewField(name))
		}
		items = append(items, criterion.Fields(criterion.FieldsKey, criterion.NewField("items", children...)))
	}

	if len(items) == 0 {
		return nil, nil
	}

	crit := criterion.NewCollection("", items...)
	if err := criterion.Validate(crit); err != nil {
		return nil, err
	}
	return &crit, nil
}

func (a *app) list(ctx context.Context, cmd *cli.Command) error {
	crit, err := criterionFrom(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cal := calendar.NewCalendar(cmd.String("calendar"), "", nil)
	events, err := a.client.Events(cal).List(ctx, crit)
	if err != nil {
		return err
	}

	return writeJSON(cmd.Root().Writer, newListView(cal, events))
}

func (a *app) get(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("missing <event-id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cal := calendar.NewCalendar(cmd.String("calendar"), "", nil)
	event, err := a.client.Events(cal).Get(ctx, id, nil)
	if err != nil {
		return err
	}

	return writeJSON(cmd.Root().Writer, newEventView(event))
}

func (a *app) patch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("missing <event-id>")
	}

	cal := calendar.NewCalendar(cmd.String("calendar"), "", nil)
	partial := calendar.NewPartialEvent(cal, id)
	if err := applyPatchFlags(cmd, partial); err != nil {
		return err
	}
	if partial.Changes().Len() == 0 {
		return errors.New("nothing to patch")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Events(cal).Persist(ctx, partial); err != nil {
		return err
	}

	return writeJSON(cmd.Root().Writer, eventView{ID: id, Calendar: cal.ID, Event: partial.Export()})
}

// applyPatchFlags marks only the flags given on the command line.
func applyPatchFlags(cmd *cli.Command, partial *calendar.PartialEvent) error {
	if cmd.IsSet("summary") {
		partial.SetName(cmd.String("summary"))
	}
	if cmd.IsSet("description") {
		partial.SetDescription(cmd.String("description"))
	}
	if cmd.IsSet("location") {
		partial.SetLocation(cmd.String("location"))
	}
	if cmd.IsSet("status") {
		if err := partial.SetStatus(calendar.Status(cmd.String("status"))); err != nil {
			return err
		}
	}
	if cmd.IsSet("visibility") {
		if err := partial.SetVisibility(calendar.Visibility(cmd.String("visibility"))); err != nil {
			return err
		}
	}
	if cmd.IsSet("transparent") {
		partial.SetStackable(cmd.Bool("transparent"))
	}
	if cmd.IsSet("start") {
		start, err := parseDate(cmd.String("start"))
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		partial.SetStart(start)
	}
	if cmd.IsSet("end") {
		end, err := parseDate(cmd.String("end"))
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		partial.SetEnd(end)
	}
	for _, email := range cmd.StringSlice("attendee") {
		if err := partial.AddParticipation(&calendar.Participation{Email: email}); err != nil {
			return err
		}
	}
	return nil
}

func parseDate(s string) (calendar.DateTime, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return calendar.DateTime{Time: t, AllDay: true}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return calendar.DateTime{}, fmt.Errorf("expected RFC3339 or %s: %w", dateLayout, err)
	}
	return calendar.DateTime{Time: t}, nil
}

func (a *app) sync(ctx context.Context, cmd *cli.Command) error {
	crit, err := criterionFrom(cmd)
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("calendar")
	if len(ids) == 0 {
		ids = a.cfg.Calendars
	}

	calendars := make([]*calendar.Calendar, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		calendars = append(calendars, calendar.NewCalendar(id, "", nil))
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	results, err := calendar.SyncAll(ctx, a.client, calendars, crit, a.cfg.Concurrency)
	if err != nil {
		return err
	}

	out := make([]listView, 0, len(calendars))
	for _, cal := range calendars {
		out = append(out, newListView(cal, results[cal.ID]))
	}

	a.logger.Info("sync complete", zap.Int("calendars", len(calendars)))
	return writeJSON(cmd.Root().Writer, out)
}

func (a *app) calendar(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("missing <calendar-id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cal, err := a.client.Calendar(ctx, id)
	if err != nil {
		return err
	}

	return writeJSON(cmd.Root().Writer, map[string]string{
		"id":       cal.ID,
		"name":     cal.Name,
		"timeZone": cal.Location.String(),
	})
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "calendart:", err)
		os.Exit(1)
	}
}
