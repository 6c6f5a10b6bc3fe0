package web

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"

	"teammood/internal/adapters/http/middleware"
	moodDomain "teammood/internal/domain/mood"
	preferenceDomain "teammood/internal/domain/preference"
)

// ViewContext is the per-request presentation state passed to every template.
type ViewContext struct {
	Theme       string
	Lang        string
	Dir         string // "ltr" or "rtl"
	LoggedIn    bool
	Email       string
	DisplayName string
	CSRFToken   string
	Path        string
}

// IsDark reports whether the dark theme is active.
func (v ViewContext) IsDark() bool {
	return v.Theme == preferenceDomain.ThemeDark
}

// viewContext resolves theme and language from the caller's stored
// preferences, falling back to Accept-Language for anonymous visitors.
func viewContext(r *http.Request) ViewContext {
	view := ViewContext{
		Theme:     preferenceDomain.ThemeLight,
		Lang:      preferenceDomain.MatchAcceptLanguage(r.Header.Get("Accept-Language")),
		CSRFToken: csrf.Token(r),
		Path:      r.URL.Path,
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		view.LoggedIn = true
		view.Email = sess.Email
		view.DisplayName = sess.DisplayName
		prefs, err := stores.PreferenceStore.Get(r.Context(), sess.AccountID)
		switch {
		case err == nil:
			view.Theme = prefs.Theme
			view.Lang = prefs.Language
		case !errors.Is(err, sql.ErrNoRows):
			slog.Warn("view_preferences_failed", "account_id", sess.AccountID, "error", err)
		}
	}
	view.Dir = "ltr"
	if preferenceDomain.IsRTL(view.Lang) {
		view.Dir = "rtl"
	}
	return view
}

// templateFuncs are the helpers available to every page.
func templateFuncs(view ViewContext) template.FuncMap {
	return template.FuncMap{
		"csrfToken":  func() string { return view.CSRFToken },
		"isLoggedIn": func() bool { return view.LoggedIn },
		"navActive":  func(path string) bool { return view.Path == path },
		"bandClass": func(band int) string {
			return "band-" + strconv.Itoa(band)
		},
		"oneDecimal": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64)
		},
		"dayKey": func(t time.Time) string { return moodDomain.DateKey(t) },
		"dayNum": func(t time.Time) int { return t.Day() },
		"longDate": func(t time.Time) string {
			return t.Format("Monday, January 2, 2006")
		},
		"monthTitle": func(t time.Time) string { return t.Format("January 2006") },
		"monthKey":   func(t time.Time) string { return t.Format("2006-01") },
		"channelOn":  channelOn,
	}
}

// renderTemplate executes layout.html with the named page.
// PRE: templateName exists under templates/
// POST: page written with 200, or a 500 on template failure
func renderTemplate(w http.ResponseWriter, view ViewContext, templateName string, data map[string]any) {
	renderTemplateStatus(w, http.StatusOK, view, templateName, data)
}

// renderTemplateStatus is renderTemplate with an explicit status code.
func renderTemplateStatus(w http.ResponseWriter, status int, view ViewContext, templateName string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["View"] = view

	tpl, err := template.New("layout.html").Funcs(templateFuncs(view)).ParseFS(templatesFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse %s: %w", templateName, err))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// channelOn reads one channel flag by field name for checkbox rendering.
func channelOn(ch preferenceDomain.Channels, name string) bool {
	switch name {
	case "Email":
		return ch.Email
	case "Slack":
		return ch.Slack
	case "Teams":
		return ch.Teams
	case "Discord":
		return ch.Discord
	case "Realtime":
		return ch.Realtime
	}
	return false
}
