package web

import (
	"net/http"
	"strconv"

	"teammood/internal/application/orchestrators"
	"teammood/internal/application/projections"
	"teammood/internal/domain/calendar"
	moodDomain "teammood/internal/domain/mood"
	preferenceDomain "teammood/internal/domain/preference"
)

// moodResponse is the JSON shape of a recorded mood.
type moodResponse struct {
	ID          string
	TeamID      string
	Date        string
	Value       int
	OutOfOffice bool
}

// handleAPIMoods handles POST /api/moods
func handleAPIMoods(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input struct {
		TeamID string
		Option string
		Date   string
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	e, err := orchestrators.ExecuteSubmitMood(r.Context(), orchestrators.SubmitMoodInput{
		AccountID: session.AccountID,
		TeamID:    input.TeamID,
		Option:    input.Option,
		Date:      input.Date,
	}, submitMoodDeps())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, moodResponse{
		ID:          e.ID,
		TeamID:      e.TeamID,
		Date:        moodDomain.DateKey(e.Date),
		Value:       e.Value,
		OutOfOffice: e.OutOfOffice,
	})
}

// trendsResponse is the JSON shape of the trend chart data.
type trendsResponse struct {
	Dates    []string
	Series   []projections.TrendSeries
	HasTeams bool
}

// handleAPIMoodTrends handles GET /api/moods/trends?limit=N
func handleAPIMoodTrends(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := trendLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTrendLimit())
	}

	res, err := projections.QueryGetMoodTrends(r.Context(), projections.GetMoodTrendsQuery{
		AccountID: session.AccountID,
		Limit:     limit,
	}, projections.GetMoodTrendsDeps{
		SubmissionStore: stores.MoodStore,
		TeamStore:       stores.TeamStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trendsResponse{Dates: res.Dates, Series: res.Series, HasTeams: res.HasTeams})
}

// maxTrendLimit caps ?limit= at ten times the configured window.
func maxTrendLimit() int {
	base := trendLimit
	if base <= 0 {
		base = projections.DefaultTrendLimit
	}
	return 10 * base
}

// calendarCell is the JSON shape of one grid cell. Mean is nil for days
// without submissions.
type calendarCell struct {
	Date           string
	InCurrentMonth bool
	Mean           *float64
	Count          int
	Band           int
}

type calendarDay struct {
	Date    string
	HasData bool
	Mean    float64
	Count   int
}

type calendarResponse struct {
	Month    string
	TeamID   string
	Weeks    [][]calendarCell
	Selected *calendarDay
}

// handleAPIMoodCalendar handles GET /api/moods/calendar?month=YYYY-MM&team=&selected=YYYY-MM-DD
func handleAPIMoodCalendar(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	res, err := projections.QueryGetMoodCalendar(r.Context(), projections.GetMoodCalendarQuery{
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
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(res))
}

func toCalendarResponse(res projections.GetMoodCalendarResult) calendarResponse {
	resp := calendarResponse{
		Month:  res.Grid.Month.Format(projections.MonthLayout),
		TeamID: res.TeamID,
		Weeks:  make([][]calendarCell, len(res.Grid.Weeks)),
	}
	for i, week := range res.Grid.Weeks {
		row := make([]calendarCell, len(week))
		for j, c := range week {
			row[j] = toCalendarCell(c)
		}
		resp.Weeks[i] = row
	}
	if s := res.Selected; s != nil {
		resp.Selected = &calendarDay{
			Date:    moodDomain.DateKey(s.Date),
			HasData: s.HasData,
			Mean:    s.Aggregate.Mean,
			Count:   s.Aggregate.Count,
		}
	}
	return resp
}

func toCalendarCell(c calendar.Cell) calendarCell {
	cell := calendarCell{Date: c.Key(), InCurrentMonth: c.InCurrentMonth}
	if c.Aggregate != nil {
		mean := c.Aggregate.Mean
		cell.Mean = &mean
		cell.Count = c.Aggregate.Count
		cell.Band = c.Aggregate.Band()
	}
	return cell
}

// handleAPITeams handles GET (list) and POST (create) for /api/teams
func handleAPITeams(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		views, err := projections.QueryGetTeams(r.Context(), projections.GetTeamsQuery{AccountID: session.AccountID}, projections.GetTeamsDeps{
			TeamStore: stores.TeamStore,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)

	case "POST":
		var input struct {
			Name string
		}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		t, err := orchestrators.ExecuteCreateTeam(r.Context(), orchestrators.CreateTeamInput{
			AccountID: session.AccountID,
			Name:      input.Name,
		}, createTeamDeps())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAPIJoinTeam handles POST /api/teams/join
func handleAPIJoinTeam(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input struct {
		InviteCode string
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	t, err := orchestrators.ExecuteJoinTeam(r.Context(), orchestrators.JoinTeamInput{
		AccountID:  session.AccountID,
		InviteCode: input.InviteCode,
	}, orchestrators.JoinTeamDeps{
		TeamStore:  stores.TeamStore,
		GenerateID: generateID,
		Now:        timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleAPITeamMembers handles POST (add), PATCH (role) and DELETE (remove) for /api/teams/members
func handleAPITeamMembers(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}

	var input struct {
		TeamID    string
		AccountID string
		Email     string
		Role      string
	}
	if r.Method == "POST" || r.Method == "PATCH" || r.Method == "DELETE" {
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	switch r.Method {
	case "POST":
		m, err := orchestrators.ExecuteAddTeamMember(ctx, orchestrators.AddTeamMemberInput{
			ActorID: session.AccountID,
			TeamID:  input.TeamID,
			Email:   input.Email,
			Role:    input.Role,
		}, orchestrators.AddTeamMemberDeps{
			TeamStore:    stores.TeamStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)

	case "PATCH":
		m, err := orchestrators.ExecuteUpdateMemberRole(ctx, orchestrators.UpdateMemberRoleInput{
			ActorID:   session.AccountID,
			TeamID:    input.TeamID,
			AccountID: input.AccountID,
			Role:      input.Role,
		}, orchestrators.UpdateMemberRoleDeps{TeamStore: stores.TeamStore})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)

	case "DELETE":
		err := orchestrators.ExecuteRemoveTeamMember(ctx, orchestrators.RemoveTeamMemberInput{
			ActorID:   session.AccountID,
			TeamID:    input.TeamID,
			AccountID: input.AccountID,
		}, orchestrators.RemoveTeamMemberDeps{TeamStore: stores.TeamStore})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAPIPreferences handles GET and PUT for /api/preferences
func handleAPIPreferences(w http.ResponseWriter, r *http.Request) {
	session, ok := apiSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		res, err := projections.QueryGetPreferences(r.Context(), projections.GetPreferencesQuery{
			AccountID:      session.AccountID,
			AcceptLanguage: r.Header.Get("Accept-Language"),
		}, projections.GetPreferencesDeps{
			PreferenceStore: stores.PreferenceStore,
			TeamStore:       stores.TeamStore,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case "PUT":
		var input struct {
			Theme     string
			Language  string
			Channels  preferenceDomain.Channels
			Overrides []preferenceDomain.TeamOverride
		}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		prefs, err := orchestrators.ExecuteUpdatePreferences(r.Context(), orchestrators.UpdatePreferencesInput{
			AccountID: session.AccountID,
			Theme:     input.Theme,
			Language:  input.Language,
			Channels:  input.Channels,
			Overrides: input.Overrides,
		}, updatePreferencesDeps())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
