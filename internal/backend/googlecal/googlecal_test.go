package googlecal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/session"
)

type stubTokenAPI struct{}

func (stubTokenAPI) Token(ctx context.Context, interactive bool) (session.Grant, error) {
	return session.Grant{AccessToken: "test-token", ExpiresIn: 3600}, nil
}

func (stubTokenAPI) Revoke(ctx context.Context, token string) error { return nil }

// apiFixture emulates enough of the Calendar REST surface for sync and
// meet-link tests.
type apiFixture struct {
	provider *Provider
	store    *kvstore.MemStore

	mu           sync.Mutex
	deleteCalls  int
	deleteStatus int    // status for the throwaway-event delete
	meetLink     string // hangoutLink returned by insert
	brokenCalID  string // calendar whose events fetch fails
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		deleteStatus: http.StatusNoContent,
		meetLink:     "https://meet.google.com/abc-defg-hij",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"scope": "https://www.googleapis.com/auth/calendar"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"email": "dev@example.com"})
	})
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"id": "primary", "summary": "Work"},
				{"id": "cal2", "summary": "Family"},
			},
		})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f.mu.Lock()
			link := f.meetLink
			f.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{
				"id":          "throwaway-1",
				"hangoutLink": link,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id": "e1", "summary": "Standup", "status": "confirmed",
					"start": map[string]string{"dateTime": "2025-06-01T09:00:00Z"},
					"end":   map[string]string{"dateTime": "2025-06-01T09:30:00Z"},
				},
			},
		})
	})
	mux.HandleFunc("/calendars/primary/events/throwaway-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleteCalls++
		status := f.deleteStatus
		f.mu.Unlock()
		w.WriteHeader(status)
	})
	mux.HandleFunc("/calendars/cal2/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		broken := f.brokenCalID == "cal2"
		f.mu.Unlock()
		if broken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id": "e2", "summary": "Dinner", "status": "confirmed",
					"start": map[string]string{"dateTime": "2025-06-01T18:00:00Z"},
					"end":   map[string]string{"dateTime": "2025-06-01T19:00:00Z"},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	sess := session.New(kvstore.NewMemStore(0), session.Config{
		ClientID: "test-client",
		TokenAPI: stubTokenAPI{},
		Endpoints: session.Endpoints{
			TokenInfo: srv.URL + "/tokeninfo",
			UserInfo:  srv.URL + "/userinfo",
			Revoke:    srv.URL + "/revoke",
		},
	}, nil)
	if err := sess.Init(ctx); err != nil {
		t.Fatalf("init session: %v", err)
	}
	if err := sess.SignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	f.store = kvstore.NewMemStore(0)
	p, err := New(ctx, sess, f.store, nil, option.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return now })
	f.provider = p
	return f
}

func TestSync(t *testing.T) {
	f := newAPIFixture(t)

	if err := f.provider.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	events := f.provider.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Title != "Standup" || events[0].CalendarName != "Work" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if !events[0].IsPast {
		t.Error("expected the morning event to be past at noon")
	}
}

func TestSync_SkipsBrokenCalendar(t *testing.T) {
	f := newAPIFixture(t)
	f.brokenCalID = "cal2"

	if err := f.provider.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	events := f.provider.Events()
	if len(events) != 1 || events[0].ID != "e1" {
		t.Fatalf("expected events from the healthy calendar only, got %+v", events)
	}
}

func TestCreateMeetLink(t *testing.T) {
	f := newAPIFixture(t)

	link, err := f.provider.CreateMeetLink(context.Background())
	if err != nil {
		t.Fatalf("create meet link: %v", err)
	}
	if link != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("unexpected link %q", link)
	}
	if f.deleteCalls != 1 {
		t.Errorf("expected the throwaway event to be deleted, got %d calls", f.deleteCalls)
	}
}

func TestCreateMeetLink_SurvivesDeleteFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.deleteStatus = http.StatusInternalServerError

	// The link is already minted when the delete runs, so a failed delete
	// must not lose it.
	link, err := f.provider.CreateMeetLink(context.Background())
	if err != nil {
		t.Fatalf("create meet link: %v", err)
	}
	if link != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("unexpected link %q", link)
	}
	if f.deleteCalls != 1 {
		t.Errorf("expected a delete attempt, got %d calls", f.deleteCalls)
	}
}

func TestCreateMeetLink_NoLinkOnEvent(t *testing.T) {
	f := newAPIFixture(t)
	f.meetLink = ""

	if _, err := f.provider.CreateMeetLink(context.Background()); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected a validation error without a link, got %v", err)
	}
}
