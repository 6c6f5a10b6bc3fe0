package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"teammood/internal/adapters/email"
	"teammood/internal/adapters/http/middleware"
	"teammood/internal/adapters/storage/storagetest"
	"teammood/internal/adapters/token"
	accountDomain "teammood/internal/domain/account"
	moodDomain "teammood/internal/domain/mood"
	teamDomain "teammood/internal/domain/team"

	accountStore "teammood/internal/adapters/storage/account"
	moodStore "teammood/internal/adapters/storage/mood"
	outboxStore "teammood/internal/adapters/storage/outbox"
	preferenceStore "teammood/internal/adapters/storage/preference"
	teamStore "teammood/internal/adapters/storage/team"
)

// testNow is Thursday 14 March 2024, mid-morning UTC.
var testNow = time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)

const testResetSecret = "0123456789abcdef0123456789abcdef"

// Session fixtures for the seeded accounts.
var (
	anaSession = middleware.Session{AccountID: "a-ana", Email: "ana@example.com", DisplayName: "Ana"}
	benSession = middleware.Session{AccountID: "a-ben", Email: "ben@example.com", DisplayName: "Ben"}
	cySession  = middleware.Session{AccountID: "a-cy", Email: "cy@example.com", DisplayName: "Cy"}
)

// newFullStores builds every store over one migrated in-memory database.
func newFullStores(t *testing.T) *Stores {
	t.Helper()
	db := storagetest.OpenDB(t)
	return &Stores{
		AccountStore:    accountStore.NewSQLiteStore(db),
		TeamStore:       teamStore.NewSQLiteStore(db),
		MoodStore:       moodStore.NewSQLiteStore(db),
		PreferenceStore: preferenceStore.NewSQLiteStore(db),
		OutboxStore:     outboxStore.NewSQLiteStore(db),
	}
}

// setupWeb resets package globals the way NewMux would and seeds three
// password-less accounts. It returns the email sender for inspection.
func setupWeb(t *testing.T) *email.NoopSender {
	t.Helper()
	stores = newFullStores(t)
	sessions = middleware.NewSessionStore()
	sender := email.NewNoopSender()
	emailSender = sender
	resetTokens = token.NewResetSigner(testResetSecret, time.Hour, func() time.Time { return testNow })
	resetTTL = time.Hour
	baseURL = "http://teammood.test"
	trendLimit = 0
	dbHealth = nil
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = time.Now })

	for _, s := range []middleware.Session{anaSession, benSession, cySession} {
		seedAccount(t, accountDomain.Account{ID: s.AccountID, Email: s.Email, DisplayName: s.DisplayName, CreatedAt: testNow})
	}
	return sender
}

func seedAccount(t *testing.T, a accountDomain.Account) {
	t.Helper()
	if err := stores.AccountStore.Save(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", a.ID, err)
	}
}

// seedTeam creates a team owned by owner with the given extra members.
func seedTeam(t *testing.T, id, name, code, owner string, members ...string) {
	t.Helper()
	ctx := context.Background()
	tm := teamDomain.Team{ID: id, Name: name, InviteCode: code, CreatedBy: owner, CreatedAt: testNow}
	own := teamDomain.Member{ID: id + "-" + owner, TeamID: id, AccountID: owner, Role: teamDomain.RoleOwner, CreatedAt: testNow}
	if err := stores.TeamStore.Create(ctx, tm, own); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	for _, acct := range members {
		m := teamDomain.Member{ID: id + "-" + acct, TeamID: id, AccountID: acct, Role: teamDomain.RoleMember, CreatedAt: testNow}
		if err := stores.TeamStore.SaveMember(ctx, m); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
}

// seedMood records a valued mood directly through the store.
func seedMood(t *testing.T, accountID, teamID, date string, value int) {
	t.Helper()
	day, err := moodDomain.ParseDate(date, time.UTC)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	e := moodDomain.Entry{
		ID:        accountID + teamID + date,
		AccountID: accountID,
		TeamID:    teamID,
		Date:      day,
		Value:     value,
		CreatedAt: testNow,
	}
	if err := stores.MoodStore.Save(context.Background(), e); err != nil {
		t.Fatalf("seed mood: %v", err)
	}
}

// authRequest builds a JSON request carrying sess in its context.
func authRequest(method, target, body string, sess middleware.Session) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.ContextWithSession(req.Context(), sess))
}

// formRequest builds a urlencoded POST; sess may be nil for anonymous requests.
func formRequest(target string, form url.Values, sess *middleware.Session) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sess != nil {
		req = req.WithContext(middleware.ContextWithSession(req.Context(), *sess))
	}
	return req
}

// pageRequest builds a GET for an HTML page; sess may be nil.
func pageRequest(target string, sess *middleware.Session) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	req.Header.Set("Accept", "text/html")
	if sess != nil {
		req = req.WithContext(middleware.ContextWithSession(req.Context(), *sess))
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rr.Body.String())
	}
}

// redirectQuery returns the Location of a 303 and its parsed query.
func redirectQuery(t *testing.T, rr *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	return loc.Path, loc.Query()
}
