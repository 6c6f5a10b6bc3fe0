package web

import (
	"net/http"
	"sort"

	"teammood/internal/application/orchestrators"
	"teammood/internal/application/projections"
	moodDomain "teammood/internal/domain/mood"
	preferenceDomain "teammood/internal/domain/preference"
	teamDomain "teammood/internal/domain/team"
)

// pageError answers a page request that failed: known domain errors get
// their status with the message, anything else is an internal error.
func pageError(w http.ResponseWriter, err error) {
	if status, ok := errorStatus(err); ok {
		http.Error(w, err.Error(), status)
		return
	}
	internalError(w, err)
}

// teamAverage is one row of the dashboard's latest-day panel.
type teamAverage struct {
	Name  string
	Mean  float64
	Count int
	Band  int
}

// latestAverages returns the most recent day's per-team averages, by name.
func latestAverages(days []moodDomain.DailyTeamAverages) (string, []teamAverage) {
	if len(days) == 0 {
		return "", nil
	}
	last := days[len(days)-1]
	rows := make([]teamAverage, 0, len(last.Averages))
	for name, agg := range last.Averages {
		rows = append(rows, teamAverage{Name: name, Mean: agg.Mean, Count: agg.Count, Band: agg.Band()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return moodDomain.DateKey(last.Date), rows
}

// handleDashboard handles GET /dashboard
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	renderDashboard(w, r, session.AccountID, map[string]any{
		"Notice": r.URL.Query().Get("notice"),
		"Error":  r.URL.Query().Get("error"),
	})
}

// renderDashboard loads the mood input, latest averages and trend chart.
func renderDashboard(w http.ResponseWriter, r *http.Request, accountID string, data map[string]any) {
	ctx := r.Context()

	teams, err := stores.TeamStore.ListForAccount(ctx, accountID)
	if err != nil {
		internalError(w, err)
		return
	}
	labels := projections.TeamLabels(teams)
	type teamOption struct {
		ID, Label string
	}
	options := make([]teamOption, len(teams))
	for i, t := range teams {
		options[i] = teamOption{ID: t.ID, Label: labels[t.ID]}
	}

	today := moodDomain.Day(timeNow().UTC())
	entries, err := stores.MoodStore.ListForAccountOn(ctx, accountID, today)
	if err != nil {
		internalError(w, err)
		return
	}
	logged := make(map[string]string, len(entries))
	for _, e := range entries {
		key := moodDomain.OptionOutOfOffice
		if !e.OutOfOffice {
			key = moodOptionKey(e.Value)
		}
		logged[labels[e.TeamID]] = key
	}

	trends, err := projections.QueryGetMoodTrends(ctx, projections.GetMoodTrendsQuery{
		AccountID: accountID,
		Limit:     trendLimit,
	}, projections.GetMoodTrendsDeps{
		SubmissionStore: stores.MoodStore,
		TeamStore:       stores.TeamStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	latestDate, latest := latestAverages(trends.Days)

	data["Teams"] = options
	data["Options"] = moodDomain.Options()
	data["Today"] = moodDomain.DateKey(today)
	data["Logged"] = logged
	data["HasTeams"] = trends.HasTeams
	data["Chart"] = buildTrendChart(trends)
	data["Series"] = trends.Series
	data["LatestDate"] = latestDate
	data["Latest"] = latest
	renderTemplate(w, viewContext(r), "dashboard.html", data)
}

func moodOptionKey(value int) string {
	for _, o := range moodDomain.Options() {
		if o.Value == value && !o.IsOutOfOffice() {
			return o.Key
		}
	}
	return ""
}

// handleMoodForm handles POST /moods from the dashboard mood input.
func handleMoodForm(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.SubmitMoodInput{
		AccountID: session.AccountID,
		TeamID:    r.FormValue("TeamID"),
		Option:    r.FormValue("Option"),
		Date:      r.FormValue("Date"),
	}
	if _, err := orchestrators.ExecuteSubmitMood(r.Context(), input, submitMoodDeps()); err != nil {
		redirectWithNotice(w, r, "/dashboard", "error", userMessage(err))
		return
	}
	redirectWithNotice(w, r, "/dashboard", "notice", "Thank you for sharing your mood today!")
}

func submitMoodDeps() orchestrators.SubmitMoodDeps {
	return orchestrators.SubmitMoodDeps{
		TeamStore:  stores.TeamStore,
		MoodStore:  stores.MoodStore,
		GenerateID: generateID,
		Now:        timeNow,
	}
}

// handleCalendar handles GET /calendar?month=YYYY-MM&team=&selected=YYYY-MM-DD
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	result, err := projections.QueryGetMoodCalendar(r.Context(), projections.GetMoodCalendarQuery{
		AccountID: session.AccountID,
		Month:     q.Get("month"),
		TeamID:    q.Get("team"),
		Selected:  q.Get("selected"),
		Now:       timeNow().UTC(),
	}, projections.GetMoodCalendarDeps{
		SubmissionStore: stores.MoodStore,
		TeamStore:       stores.TeamStore,
	})
	if err != nil {
		pageError(w, err)
		return
	}

	renderTemplate(w, viewContext(r), "calendar.html", map[string]any{
		"Calendar":   result,
		"TeamLabels": projections.TeamLabels(result.Teams),
		"Weekdays":   []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	})
}

// handleTeams handles GET (list) and POST (create) for /teams
func handleTeams(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		views, err := projections.QueryGetTeams(r.Context(), projections.GetTeamsQuery{AccountID: session.AccountID}, projections.GetTeamsDeps{
			TeamStore: stores.TeamStore,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		renderTemplate(w, viewContext(r), "teams.html", map[string]any{
			"Teams":     views,
			"Roles":     teamDomain.ValidRoles,
			"AccountID": session.AccountID,
			"Notice":    r.URL.Query().Get("notice"),
			"Error":     r.URL.Query().Get("error"),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		t, err := orchestrators.ExecuteCreateTeam(r.Context(), orchestrators.CreateTeamInput{
			AccountID: session.AccountID,
			Name:      r.FormValue("Name"),
		}, createTeamDeps())
		if err != nil {
			redirectWithNotice(w, r, "/teams", "error", userMessage(err))
			return
		}
		redirectWithNotice(w, r, "/teams", "notice", "Created "+t.Name+". Share invite code "+t.InviteCode+" with your team.")
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func createTeamDeps() orchestrators.CreateTeamDeps {
	return orchestrators.CreateTeamDeps{
		TeamStore:    stores.TeamStore,
		GenerateID:   generateID,
		GenerateCode: teamDomain.GenerateInviteCode,
		Now:          timeNow,
	}
}

// handleJoinTeamForm handles POST /teams/join
func handleJoinTeamForm(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	t, err := orchestrators.ExecuteJoinTeam(r.Context(), orchestrators.JoinTeamInput{
		AccountID:  session.AccountID,
		InviteCode: r.FormValue("InviteCode"),
	}, orchestrators.JoinTeamDeps{
		TeamStore:  stores.TeamStore,
		GenerateID: generateID,
		Now:        timeNow,
	})
	if err != nil {
		redirectWithNotice(w, r, "/teams", "error", userMessage(err))
		return
	}
	redirectWithNotice(w, r, "/teams", "notice", "You are a member of "+t.Name)
}

// handleTeamMembersForm handles POST /teams/members.
// Action selects add, role or remove.
func handleTeamMembersForm(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	teamID := r.FormValue("TeamID")
	var (
		notice string
		err    error
	)
	switch r.FormValue("Action") {
	case "add":
		var m teamDomain.Member
		m, err = orchestrators.ExecuteAddTeamMember(ctx, orchestrators.AddTeamMemberInput{
			ActorID: session.AccountID,
			TeamID:  teamID,
			Email:   r.FormValue("Email"),
			Role:    r.FormValue("Role"),
		}, orchestrators.AddTeamMemberDeps{
			TeamStore:    stores.TeamStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		notice = "Added " + r.FormValue("Email") + " as " + m.Role
	case "role":
		var m teamDomain.Member
		m, err = orchestrators.ExecuteUpdateMemberRole(ctx, orchestrators.UpdateMemberRoleInput{
			ActorID:   session.AccountID,
			TeamID:    teamID,
			AccountID: r.FormValue("AccountID"),
			Role:      r.FormValue("Role"),
		}, orchestrators.UpdateMemberRoleDeps{TeamStore: stores.TeamStore})
		notice = "Role updated to " + m.Role
	case "remove":
		err = orchestrators.ExecuteRemoveTeamMember(ctx, orchestrators.RemoveTeamMemberInput{
			ActorID:   session.AccountID,
			TeamID:    teamID,
			AccountID: r.FormValue("AccountID"),
		}, orchestrators.RemoveTeamMemberDeps{TeamStore: stores.TeamStore})
		notice = "Member removed"
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err != nil {
		redirectWithNotice(w, r, "/teams", "error", userMessage(err))
		return
	}
	redirectWithNotice(w, r, "/teams", "notice", notice)
}

// handleSettings handles GET (form) and POST (save) for /settings
func handleSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		result, err := projections.QueryGetPreferences(r.Context(), projections.GetPreferencesQuery{
			AccountID:      session.AccountID,
			AcceptLanguage: r.Header.Get("Accept-Language"),
		}, projections.GetPreferencesDeps{
			PreferenceStore: stores.PreferenceStore,
			TeamStore:       stores.TeamStore,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		renderTemplate(w, viewContext(r), "settings.html", map[string]any{
			"Prefs":    result,
			"Channels": channelFields,
			"Notice":   r.URL.Query().Get("notice"),
			"Error":    r.URL.Query().Get("error"),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		teams, err := stores.TeamStore.ListForAccount(r.Context(), session.AccountID)
		if err != nil {
			internalError(w, err)
			return
		}

		input := orchestrators.UpdatePreferencesInput{
			AccountID: session.AccountID,
			Theme:     r.FormValue("Theme"),
			Language:  r.FormValue("Language"),
			Channels:  channelsFromForm(r, "Channel."),
		}
		for _, t := range teams {
			prefix := "Team." + t.ID + "."
			input.Overrides = append(input.Overrides, preferenceDomain.TeamOverride{
				TeamID:         t.ID,
				OverrideGlobal: r.FormValue(prefix+"Override") == "on",
				Channels:       channelsFromForm(r, prefix),
			})
		}

		if _, err := orchestrators.ExecuteUpdatePreferences(r.Context(), input, updatePreferencesDeps()); err != nil {
			redirectWithNotice(w, r, "/settings", "error", userMessage(err))
			return
		}
		redirectWithNotice(w, r, "/settings", "notice", "Preferences saved")
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func updatePreferencesDeps() orchestrators.UpdatePreferencesDeps {
	return orchestrators.UpdatePreferencesDeps{
		PreferenceStore: stores.PreferenceStore,
		TeamStore:       stores.TeamStore,
		Now:             timeNow,
	}
}

// channelField names one notification channel checkbox.
type channelField struct {
	Name  string
	Label string
}

var channelFields = []channelField{
	{"Email", "Email"},
	{"Slack", "Slack"},
	{"Teams", "Microsoft Teams"},
	{"Discord", "Discord"},
	{"Realtime", "In-app"},
}

// channelsFromForm reads checkboxes named prefix+Email, prefix+Slack, and so on.
func channelsFromForm(r *http.Request, prefix string) preferenceDomain.Channels {
	on := func(name string) bool { return r.FormValue(prefix+name) == "on" }
	return preferenceDomain.Channels{
		Email:    on("Email"),
		Slack:    on("Slack"),
		Teams:    on("Teams"),
		Discord:  on("Discord"),
		Realtime: on("Realtime"),
	}
}

// handleHealth handles GET /healthz
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{"Status": "ok"}
	if dbHealth != nil {
		if err := dbHealth.PingContext(r.Context()); err != nil {
			logInternal(err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"Status": "unavailable"})
			return
		}
		stats := dbHealth.Stats()
		resp["Queries"] = stats.Queries
		resp["SlowQueries"] = stats.SlowQueries
	}
	if counts, err := stores.OutboxStore.CountByStatus(r.Context()); err == nil {
		resp["Outbox"] = counts
	}
	writeJSON(w, http.StatusOK, resp)
}
