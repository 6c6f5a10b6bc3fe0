package web

import (
	"net/http"
)

// registerRoutes maps every page, form and API path.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/healthz", handleHealth)

	// Auth
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/signup", handleSignup)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/forgot-password", handleForgotPassword)
	mux.HandleFunc("/reset-password", handleResetPassword)
	mux.HandleFunc("/change-password", handleChangePassword)

	// Pages and their form posts
	mux.HandleFunc("/dashboard", handleDashboard)
	mux.HandleFunc("/moods", handleMoodForm)
	mux.HandleFunc("/calendar", handleCalendar)
	mux.HandleFunc("/teams", handleTeams)
	mux.HandleFunc("/teams/join", handleJoinTeamForm)
	mux.HandleFunc("/teams/members", handleTeamMembersForm)
	mux.HandleFunc("/settings", handleSettings)

	// JSON API
	mux.HandleFunc("/api/moods", handleAPIMoods)
	mux.HandleFunc("/api/moods/trends", handleAPIMoodTrends)
	mux.HandleFunc("/api/moods/calendar", handleAPIMoodCalendar)
	mux.HandleFunc("/api/teams", handleAPITeams)
	mux.HandleFunc("/api/teams/join", handleAPIJoinTeam)
	mux.HandleFunc("/api/teams/members", handleAPITeamMembers)
	mux.HandleFunc("/api/preferences", handleAPIPreferences)
}

// handleRoot redirects / to the dashboard; every other unmatched path is a 404.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		if isHTMLRequest(r) {
			renderTemplateStatus(w, http.StatusNotFound, viewContext(r), "not_found.html", nil)
			return
		}
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
