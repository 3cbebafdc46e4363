// Package googlecal implements the Google Calendar event backend. Sync
// enumerates the user's calendar list, then fetches today's events from each
// calendar concurrently; a failed calendar is logged and skipped.
package googlecal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
	"tabdash/internal/session"
)

const (
	// DataKey is the persisted snapshot key.
	DataKey = "google_calendar_data"

	// primaryCalendar is the API alias for the user's main calendar.
	primaryCalendar = "primary"

	// untitledEvent fills in for events saved without a summary.
	untitledEvent = "(No title)"

	statusCancelled = "cancelled"

	maxEvents = 50
)

// storedEvent is the snapshot form of an event. Times are kept as the raw
// API strings so reload never loses the all-day distinction.
type storedEvent struct {
	ID           string `json:"id"`
	Summary      string `json:"summary"`
	Description  string `json:"description,omitempty"`
	Location     string `json:"location,omitempty"`
	HangoutLink  string `json:"hangout_link,omitempty"`
	HTMLLink     string `json:"html_link,omitempty"`
	Start        string `json:"start"`
	End          string `json:"end"`
	AllDay       bool   `json:"all_day"`
	Status       string `json:"status"`
	CalendarName string `json:"calendar_name"`
	Color        string `json:"color,omitempty"`
}

type snapshot struct {
	Events    []storedEvent `json:"events"`
	Timestamp int64         `json:"timestamp"`
}

// Provider is the Google Calendar backend.
type Provider struct {
	svc     *calendar.Service
	session *session.Manager
	store   kvstore.Store
	logger  *slog.Logger
	cache   *provider.Cache
	now     func() time.Time

	mu     sync.Mutex
	data   snapshot
	loaded bool
}

// New creates a Google Calendar provider authenticating through the session
// manager. Extra client options let tests point the service at a local
// server.
func New(ctx context.Context, sess *session.Manager, store kvstore.Store, logger *slog.Logger, extra ...option.ClientOption) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := append([]option.ClientOption{option.WithTokenSource(sess.TokenSource(ctx))}, extra...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Provider{
		svc:     svc,
		session: sess,
		store:   store,
		logger:  logger,
		cache:   provider.NewCache(provider.SnapshotTTL),
		now:     time.Now,
	}, nil
}

// SetClock replaces the clock for tests, including the cache clock.
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
	p.cache.SetClock(now)
}

func (p *Provider) restore(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return
	}
	p.loaded = true
	stored, err := kvstore.Get(ctx, p.store, DataKey, snapshot{})
	if err != nil {
		p.logger.Error("failed to restore calendar snapshot, starting empty", "error", err)
		return
	}
	p.data = stored
	p.cache.Restore(stored.Timestamp)
}

// Sync implements provider.EventProvider. Calendar-list enumeration failure
// is fatal; per-calendar fetch failures are tolerated.
func (p *Provider) Sync(ctx context.Context) error {
	p.restore(ctx)

	const op = "google calendar: list calendars"
	list, err := p.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return classify(op, err)
	}

	timeMin, timeMax := provider.TodayBounds(p.now())

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		events []storedEvent
	)
	for _, cal := range list.Items {
		wg.Add(1)
		go func(cal *calendar.CalendarListEntry) {
			defer wg.Done()
			fetched, err := p.fetchCalendar(ctx, cal, timeMin, timeMax)
			if err != nil {
				p.logger.Warn("skipping calendar after fetch failure",
					"calendar", cal.Summary, "error", err)
				return
			}
			mu.Lock()
			events = append(events, fetched...)
			mu.Unlock()
		}(cal)
	}
	wg.Wait()

	syncedAt := p.now()
	fresh := snapshot{Events: events, Timestamp: syncedAt.UnixMilli()}

	p.mu.Lock()
	p.data = fresh
	p.mu.Unlock()

	if err := p.store.Set(ctx, DataKey, fresh); err != nil {
		return errs.Wrap("google calendar: persist snapshot", err)
	}
	p.cache.Touch(syncedAt)
	p.logger.Debug("google calendar sync complete", "calendars", len(list.Items), "events", len(events))
	return nil
}

func (p *Provider) fetchCalendar(ctx context.Context, cal *calendar.CalendarListEntry, timeMin, timeMax time.Time) ([]storedEvent, error) {
	op := "google calendar: list events in " + cal.Summary
	resp, err := p.svc.Events.List(cal.Id).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEvents).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(op, err)
	}

	events := make([]storedEvent, 0, len(resp.Items))
	for _, ev := range resp.Items {
		if ev.Start == nil || ev.End == nil {
			continue
		}
		events = append(events, storedEvent{
			ID:           ev.Id,
			Summary:      ev.Summary,
			Description:  ev.Description,
			Location:     ev.Location,
			HangoutLink:  ev.HangoutLink,
			HTMLLink:     ev.HtmlLink,
			Start:        eventTime(ev.Start),
			End:          eventTime(ev.End),
			AllDay:       ev.Start.DateTime == "",
			Status:       ev.Status,
			CalendarName: cal.Summary,
			Color:        cal.BackgroundColor,
		})
	}
	return events, nil
}

// Events implements provider.EventProvider. Cancelled events are dropped and
// the past/ongoing flags are evaluated against read time.
func (p *Provider) Events() []provider.Event {
	p.mu.Lock()
	data := p.data
	p.mu.Unlock()

	now := p.now()
	out := make([]provider.Event, 0, len(data.Events))
	for _, se := range data.Events {
		if se.Status == statusCancelled {
			continue
		}
		start, err := parseEventTime(se.Start, se.AllDay)
		if err != nil {
			continue
		}
		end, err := parseEventTime(se.End, se.AllDay)
		if err != nil {
			continue
		}
		title := se.Summary
		if title == "" {
			title = untitledEvent
		}
		ev := provider.Event{
			ID:           se.ID,
			Title:        title,
			Description:  se.Description,
			Location:     se.Location,
			MeetLink:     se.HangoutLink,
			Permalink:    se.HTMLLink,
			Start:        start,
			End:          end,
			AllDay:       se.AllDay,
			CalendarName: se.CalendarName,
			Color:        se.Color,
		}
		out = append(out, provider.DecorateEvent(ev, now))
	}
	provider.SortEvents(out)
	return out
}

// CreateMeetLink implements provider.EventProvider. A throwaway conference
// event is inserted to mint the link, then deleted; a failed delete only
// logs since the link is already in hand.
func (p *Provider) CreateMeetLink(ctx context.Context) (string, error) {
	const op = "google calendar: create meet link"
	start := p.now()
	end := start.Add(30 * time.Minute)
	event := &calendar.Event{
		Summary: "Instant Meeting",
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}

	created, err := p.svc.Events.Insert(primaryCalendar, event).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(op, err)
	}

	link := created.HangoutLink
	if link == "" {
		return "", errs.Validation(op, errors.New("no meet link on created event"))
	}

	if err := p.svc.Events.Delete(primaryCalendar, created.Id).Context(ctx).Do(); err != nil {
		p.logger.Warn("failed to delete throwaway meet event", "event", created.Id, "error", err)
	}
	return link, nil
}

// IsCacheStale implements provider.EventProvider.
func (p *Provider) IsCacheStale() bool { return p.cache.Stale() }

// InvalidateCache implements provider.EventProvider.
func (p *Provider) InvalidateCache() { p.cache.Invalidate() }

// ClearLocalData implements provider.EventProvider.
func (p *Provider) ClearLocalData(ctx context.Context) error {
	if err := p.store.Remove(ctx, DataKey); err != nil {
		return err
	}
	p.mu.Lock()
	p.data = snapshot{}
	p.loaded = false
	p.mu.Unlock()
	p.cache.Invalidate()
	return nil
}

// eventTime prefers the timed form of an API boundary, falling back to the
// all-day date.
func eventTime(t *calendar.EventDateTime) string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// parseEventTime parses a snapshot time string. All-day dates resolve to
// local midnight so they compare sensibly with timed events.
func parseEventTime(value string, allDay bool) (time.Time, error) {
	if allDay {
		return time.ParseInLocation("2006-01-02", value, time.Local)
	}
	return time.Parse(time.RFC3339, value)
}

// classify maps SDK failures onto the shared taxonomy.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return errs.FromStatus(op, gerr.Code, gerr.Header.Get("Retry-After"))
	}
	if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, session.ErrSessionExpired) {
		return &errs.Error{Kind: errs.KindAuth, Op: op, Err: err}
	}
	return errs.Network(op, err)
}
