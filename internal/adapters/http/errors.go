package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"teammood/internal/adapters/token"
	"teammood/internal/application/orchestrators"
	"teammood/internal/application/projections"
	accountDomain "teammood/internal/domain/account"
	moodDomain "teammood/internal/domain/mood"
	preferenceDomain "teammood/internal/domain/preference"
	teamDomain "teammood/internal/domain/team"
)

// errorStatus maps known domain errors to a client status.
// ok is false for anything unexpected, which must go through internalError.
func errorStatus(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, orchestrators.ErrAccountLocked):
		return http.StatusLocked, true
	case errors.Is(err, teamDomain.ErrNotMember),
		errors.Is(err, teamDomain.ErrNotManager),
		errors.Is(err, orchestrators.ErrOwnerRequired):
		return http.StatusForbidden, true
	case errors.Is(err, orchestrators.ErrTeamNotFound),
		errors.Is(err, orchestrators.ErrAccountNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, orchestrators.ErrEmailAlreadyExists),
		errors.Is(err, teamDomain.ErrAlreadyMember),
		errors.Is(err, teamDomain.ErrLastOwner):
		return http.StatusConflict, true
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, true
		}
	}
	return 0, false
}

// badRequestErrors are validation failures the caller can fix.
var badRequestErrors = []error{
	accountDomain.ErrInvalidEmail,
	accountDomain.ErrEmptyEmail,
	accountDomain.ErrNameTooLong,
	accountDomain.ErrEmptyPassword,
	accountDomain.ErrPasswordTooShort,
	orchestrators.ErrCurrentPasswordWrong,
	orchestrators.ErrNewPasswordSame,
	orchestrators.ErrPasswordFieldsEmpty,
	orchestrators.ErrResetLinkUsed,
	token.ErrInvalidToken,
	token.ErrExpiredToken,
	moodDomain.ErrUnknownOption,
	moodDomain.ErrValueOutOfRange,
	moodDomain.ErrEmptyTeam,
	moodDomain.ErrEmptyDate,
	orchestrators.ErrFutureMood,
	orchestrators.ErrInvalidMoodDate,
	teamDomain.ErrEmptyName,
	teamDomain.ErrNameTooLong,
	teamDomain.ErrInvalidInviteCode,
	teamDomain.ErrInvalidRole,
	preferenceDomain.ErrInvalidTheme,
	preferenceDomain.ErrInvalidLanguage,
	preferenceDomain.ErrDuplicateTeam,
	projections.ErrInvalidMonth,
	projections.ErrInvalidDay,
}

// userMessage returns the text shown on a form for err.
// Unexpected errors are logged and replaced with a generic message.
func userMessage(err error) string {
	if _, ok := errorStatus(err); ok {
		return err.Error()
	}
	logInternal(err)
	return "Something went wrong. Please try again."
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends a JSON error for known domain errors and a generic 500 otherwise.
func writeError(w http.ResponseWriter, err error) {
	status, ok := errorStatus(err)
	if !ok {
		internalError(w, err)
		return
	}
	writeJSON(w, status, map[string]string{"Error": err.Error()})
}
