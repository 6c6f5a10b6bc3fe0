package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	"teammood/internal/adapters/email"
	web "teammood/internal/adapters/http"
	"teammood/internal/adapters/storage"
	accountStore "teammood/internal/adapters/storage/account"
	moodStore "teammood/internal/adapters/storage/mood"
	outboxStore "teammood/internal/adapters/storage/outbox"
	preferenceStore "teammood/internal/adapters/storage/preference"
	teamStore "teammood/internal/adapters/storage/team"
	"teammood/internal/adapters/token"
	"teammood/internal/application/orchestrators"
)

const (
	testEmail    = "owner@test.com"
	testPassword = "TestPass123!xyz"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
	Mail    *email.NoopSender
	OwnerID string
}

// newTestApp creates a fully wired app with a temp SQLite DB and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := storage.MigrateDB(db, dbPath); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	stores := &web.Stores{
		AccountStore:    accountStore.NewSQLiteStore(db),
		TeamStore:       teamStore.NewSQLiteStore(db),
		MoodStore:       moodStore.NewSQLiteStore(db),
		PreferenceStore: preferenceStore.NewSQLiteStore(db),
		OutboxStore:     outboxStore.NewSQLiteStore(db),
	}

	ctx := context.Background()
	owner, err := orchestrators.ExecuteSignup(ctx, orchestrators.SignupInput{
		Email:       testEmail,
		Password:    testPassword,
		DisplayName: "Olive Owner",
	}, orchestrators.SignupDeps{
		AccountStore:    stores.AccountStore,
		PreferenceStore: stores.PreferenceStore,
		GenerateID:      func() string { return fmt.Sprintf("acct-%d", time.Now().UnixNano()) },
		Now:             time.Now,
	})
	if err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	mail := email.NewNoopSender()
	mux := web.NewMux(stores, web.Options{
		TrustedOrigins: []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)},
		RateLimit:      1000,
		BaseURL:        baseURL,
		ResetTokens:    token.NewResetSigner("browser-test-secret-0123456789abcdef", time.Hour, nil),
		EmailSender:    mail,
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/login")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
		Mail:    mail,
		OwnerID: owner.ID,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login navigates to the login page and signs in as the seeded owner.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=Email]").Fill(testEmail); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=Password]").Fill(testPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("main button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	a.waitFor(t, page, "/dashboard")
}

// waitFor blocks until the page URL starts with path.
func (a *testApp) waitFor(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	if err := page.WaitForURL(a.BaseURL+path+"**", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("did not reach %s: %v", path, err)
	}
}

// fill sets an input and fails the test on error.
func fill(t *testing.T, page playwright.Page, selector, value string) {
	t.Helper()
	if err := page.Locator(selector).Fill(value); err != nil {
		t.Fatalf("fill %s: %v", selector, err)
	}
}

// click presses an element and fails the test on error.
func click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	if err := page.Locator(selector).Click(); err != nil {
		t.Fatalf("click %s: %v", selector, err)
	}
}

// bodyText returns the visible text of the main element.
func bodyText(t *testing.T, page playwright.Page) string {
	t.Helper()
	text, err := page.Locator("main").InnerText()
	if err != nil {
		t.Fatalf("read main text: %v", err)
	}
	return text
}
