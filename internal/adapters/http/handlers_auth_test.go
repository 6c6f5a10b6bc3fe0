package web

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"teammood/internal/adapters/http/middleware"
)

const strongPassword = "correct-horse-battery"

// signup registers an account through the form and returns its session cookie.
func signup(t *testing.T, emailAddr, name, password string) *http.Cookie {
	t.Helper()
	rr := serve(handleSignup, formRequest("/signup", url.Values{
		"Email":           {emailAddr},
		"DisplayName":     {name},
		"Password":        {password},
		"ConfirmPassword": {password},
	}, nil))
	if path, _ := redirectQuery(t, rr); path != "/dashboard" {
		t.Fatalf("signup redirected to %s", path)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("signup set no session cookie")
	return nil
}

// TestSignupThenLogin tests that a new account can sign back in with the same password.
func TestSignupThenLogin(t *testing.T) {
	setupWeb(t)
	cookie := signup(t, "Dee@Example.com", "Dee", strongPassword)
	sess, ok := sessions.Get(cookie.Value)
	if !ok || sess.Email != "dee@example.com" || sess.DisplayName != "Dee" {
		t.Fatalf("session = %+v, %v", sess, ok)
	}

	prefs, err := stores.PreferenceStore.Get(context.Background(), sess.AccountID)
	if err != nil || prefs.Theme != "light" {
		t.Errorf("signup should store default preferences: %+v, %v", prefs, err)
	}

	rr := serve(handleLogin, formRequest("/login", url.Values{"Email": {"dee@example.com"}, "Password": {strongPassword}}, nil))
	if path, _ := redirectQuery(t, rr); path != "/dashboard" {
		t.Errorf("login redirected to %s", path)
	}
}

// TestSignup_Rejects tests form validation on signup.
func TestSignup_Rejects(t *testing.T) {
	setupWeb(t)
	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{"mismatch", url.Values{"Email": {"x@example.com"}, "Password": {strongPassword}, "ConfirmPassword": {"something-else-entirely"}}, "Passwords do not match"},
		{"short password", url.Values{"Email": {"x@example.com"}, "Password": {"short"}, "ConfirmPassword": {"short"}}, "at least 12 characters"},
		{"taken email", url.Values{"Email": {"ana@example.com"}, "Password": {strongPassword}, "ConfirmPassword": {strongPassword}}, "already"},
		{"bad email", url.Values{"Email": {"not-an-email"}, "Password": {strongPassword}, "ConfirmPassword": {strongPassword}}, "email must contain"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(handleSignup, formRequest("/signup", tc.form, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want the form re-rendered", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.wantMsg) {
				t.Errorf("body missing %q", tc.wantMsg)
			}
		})
	}
}

// TestLogin_WrongPassword tests that a failed login re-renders the form with the email kept.
func TestLogin_WrongPassword(t *testing.T) {
	setupWeb(t)
	signup(t, "dee@example.com", "Dee", strongPassword)

	rr := serve(handleLogin, formRequest("/login", url.Values{"Email": {"dee@example.com"}, "Password": {"wrong-password-here"}}, nil))
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "invalid email or password") {
		t.Fatalf("status = %d; body: %s", rr.Code, body)
	}
	if !strings.Contains(body, `value="dee@example.com"`) {
		t.Error("email should be kept in the form")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("failed login must not set a cookie")
	}
}

// TestLogin_RedirectsWhenSignedIn tests the login and signup forms for an existing session.
func TestLogin_RedirectsWhenSignedIn(t *testing.T) {
	setupWeb(t)
	for _, h := range []http.HandlerFunc{handleLogin, handleSignup} {
		rr := serve(h, pageRequest("/login", &anaSession))
		if path, _ := redirectQuery(t, rr); path != "/dashboard" {
			t.Errorf("redirected to %s", path)
		}
	}
	rr := serve(handleLogin, pageRequest("/login?notice=Welcome+back", nil))
	if !strings.Contains(rr.Body.String(), "Welcome back") {
		t.Error("login page should show the notice")
	}
}

// TestLogout tests that the session is dropped and the cookie cleared.
func TestLogout(t *testing.T) {
	setupWeb(t)
	cookie := signup(t, "dee@example.com", "Dee", strongPassword)

	req := formRequest("/logout", url.Values{}, nil)
	req.AddCookie(cookie)
	rr := serve(handleLogout, req)
	if path, _ := redirectQuery(t, rr); path != "/login" {
		t.Errorf("redirected to %s", path)
	}
	if _, ok := sessions.Get(cookie.Value); ok {
		t.Error("session should be deleted")
	}

	rr = serve(handleLogout, pageRequest("/logout", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET logout status = %d, want 405", rr.Code)
	}
}

var resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9._-]+)`)

// TestPasswordReset_Flow tests request, reset, session revocation and single use.
func TestPasswordReset_Flow(t *testing.T) {
	sender := setupWeb(t)
	oldCookie := signup(t, "dee@example.com", "Dee", strongPassword)

	rr := serve(handleForgotPassword, formRequest("/forgot-password", url.Values{"Email": {"DEE@example.com"}}, nil))
	if !strings.Contains(rr.Body.String(), "a reset link is on its way") {
		t.Fatalf("body: %s", rr.Body.String())
	}
	msg, ok := sender.Last()
	if !ok || msg.To[0] != "dee@example.com" {
		t.Fatalf("no reset email sent: %+v", msg)
	}
	if !strings.Contains(msg.HTML, "http://teammood.test/reset-password?token=") {
		t.Errorf("email should link to the configured base URL: %s", msg.HTML)
	}
	m := resetTokenPattern.FindStringSubmatch(msg.HTML)
	if m == nil {
		t.Fatalf("no token in email: %s", msg.HTML)
	}
	raw := m[1]

	rr = serve(handleResetPassword, pageRequest("/reset-password?token="+raw, nil))
	if body := rr.Body.String(); !strings.Contains(body, `name="NewPassword"`) {
		t.Fatalf("reset form not shown: %s", body)
	}

	const newPassword = "a-much-better-passphrase"
	reset := url.Values{"Token": {raw}, "NewPassword": {newPassword}, "ConfirmPassword": {newPassword}}
	rr = serve(handleResetPassword, formRequest("/reset-password", reset, nil))
	path, q := redirectQuery(t, rr)
	if path != "/login" || !strings.Contains(q.Get("notice"), "password has been updated") {
		t.Fatalf("redirect = %s %v", path, q)
	}
	if _, ok := sessions.Get(oldCookie.Value); ok {
		t.Error("existing sessions should be revoked after a reset")
	}

	rr = serve(handleLogin, formRequest("/login", url.Values{"Email": {"dee@example.com"}, "Password": {newPassword}}, nil))
	if path, _ := redirectQuery(t, rr); path != "/dashboard" {
		t.Errorf("login with new password redirected to %s", path)
	}

	rr = serve(handleResetPassword, formRequest("/reset-password", reset, nil))
	if !strings.Contains(rr.Body.String(), "reset link has already been used") {
		t.Errorf("reused link should be rejected: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), `name="NewPassword"`) {
		t.Error("a dead link should not offer the password form")
	}
}

// TestPasswordReset_UnknownEmail tests that unknown addresses look the same as known ones.
func TestPasswordReset_UnknownEmail(t *testing.T) {
	sender := setupWeb(t)
	rr := serve(handleForgotPassword, formRequest("/forgot-password", url.Values{"Email": {"nobody@example.com"}}, nil))
	if !strings.Contains(rr.Body.String(), "a reset link is on its way") {
		t.Errorf("body: %s", rr.Body.String())
	}
	if len(sender.Sent()) != 0 {
		t.Error("no email should go to an unknown address")
	}
}

// TestResetPassword_BadLinks tests invalid tokens and mismatched passwords.
func TestResetPassword_BadLinks(t *testing.T) {
	setupWeb(t)

	rr := serve(handleResetPassword, pageRequest("/reset-password?token=garbage", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "reset link is invalid") || !strings.Contains(body, "Request a new reset link") {
		t.Errorf("invalid link page: %s", body)
	}

	rr = serve(handleResetPassword, formRequest("/reset-password", url.Values{"Token": {"x"}, "NewPassword": {strongPassword}, "ConfirmPassword": {"different-password!"}}, nil))
	if !strings.Contains(rr.Body.String(), "Passwords do not match") {
		t.Errorf("mismatch body: %s", rr.Body.String())
	}
}

// TestChangePassword tests the settings password form.
func TestChangePassword(t *testing.T) {
	setupWeb(t)
	cookie := signup(t, "dee@example.com", "Dee", strongPassword)
	sess, _ := sessions.Get(cookie.Value)

	tests := []struct {
		name    string
		form    url.Values
		wantKey string
		wantMsg string
	}{
		{"mismatch", url.Values{"CurrentPassword": {strongPassword}, "NewPassword": {"new-password-one"}, "ConfirmPassword": {"new-password-two"}}, "error", "New passwords do not match"},
		{"wrong current", url.Values{"CurrentPassword": {"not-my-password"}, "NewPassword": {"new-password-one"}, "ConfirmPassword": {"new-password-one"}}, "error", "current password"},
		{"empty", url.Values{}, "error", "all fields are required"},
		{"success", url.Values{"CurrentPassword": {strongPassword}, "NewPassword": {"new-password-one"}, "ConfirmPassword": {"new-password-one"}}, "notice", "Password changed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(handleChangePassword, formRequest("/change-password", tc.form, &sess))
			path, q := redirectQuery(t, rr)
			if path != "/settings" || !strings.Contains(q.Get(tc.wantKey), tc.wantMsg) {
				t.Errorf("redirect = %s %v, want %s containing %q", path, q, tc.wantKey, tc.wantMsg)
			}
		})
	}

	rr := serve(handleLogin, formRequest("/login", url.Values{"Email": {"dee@example.com"}, "Password": {"new-password-one"}}, nil))
	if path, _ := redirectQuery(t, rr); path != "/dashboard" {
		t.Errorf("login with changed password redirected to %s", path)
	}
}
