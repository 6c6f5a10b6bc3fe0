package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"teammood/internal/adapters/token"
	"teammood/internal/application/orchestrators"
	"teammood/internal/application/projections"
	moodDomain "teammood/internal/domain/mood"
	teamDomain "teammood/internal/domain/team"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		ok     bool
	}{
		{orchestrators.ErrInvalidCredentials, http.StatusUnauthorized, true},
		{orchestrators.ErrAccountLocked, http.StatusLocked, true},
		{teamDomain.ErrNotMember, http.StatusForbidden, true},
		{fmt.Errorf("submit: %w", teamDomain.ErrNotManager), http.StatusForbidden, true},
		{orchestrators.ErrOwnerRequired, http.StatusForbidden, true},
		{orchestrators.ErrTeamNotFound, http.StatusNotFound, true},
		{orchestrators.ErrEmailAlreadyExists, http.StatusConflict, true},
		{teamDomain.ErrLastOwner, http.StatusConflict, true},
		{moodDomain.ErrUnknownOption, http.StatusBadRequest, true},
		{orchestrators.ErrFutureMood, http.StatusBadRequest, true},
		{projections.ErrInvalidMonth, http.StatusBadRequest, true},
		{token.ErrExpiredToken, http.StatusBadRequest, true},
		{errors.New("database is locked"), 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, ok := errorStatus(tc.err)
			if status != tc.status || ok != tc.ok {
				t.Errorf("errorStatus = %d, %v; want %d, %v", status, ok, tc.status, tc.ok)
			}
		})
	}
}

// TestWriteError tests that unexpected errors never reach the client.
func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, teamDomain.ErrLastOwner)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), `"Error":"a team must keep at least one owner"`) {
		t.Errorf("known error = %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	writeError(rr, errors.New("no such table: mood_submission"))
	if rr.Code != http.StatusInternalServerError || strings.Contains(rr.Body.String(), "mood_submission") {
		t.Errorf("internal error leaked: %d %s", rr.Code, rr.Body.String())
	}

	if msg := userMessage(errors.New("disk I/O error")); strings.Contains(msg, "disk") {
		t.Errorf("userMessage leaked detail: %q", msg)
	}
}
