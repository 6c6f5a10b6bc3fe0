package web

import (
	"errors"
	"log/slog"
	"net/http"

	"teammood/internal/adapters/http/middleware"
	"teammood/internal/adapters/token"
	"teammood/internal/application/orchestrators"
)

// handleLogin handles GET (form) and POST (sign in) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		// If already logged in, redirect to dashboard
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, viewContext(r), "login.html", map[string]any{
			"Notice": r.URL.Query().Get("notice"),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.LoginInput{
			Email:    r.FormValue("Email"),
			Password: r.FormValue("Password"),
		}

		deps := orchestrators.LoginDeps{
			AccountStore: stores.AccountStore,
			Now:          timeNow,
		}

		result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
		if err != nil {
			renderTemplate(w, viewContext(r), "login.html", map[string]any{
				"Email": input.Email,
				"Error": userMessage(err),
			})
			return
		}

		startSession(w, r, result.AccountID, result.Email, result.DisplayName)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// startSession creates a session, sets the cookie and redirects to the dashboard.
func startSession(w http.ResponseWriter, r *http.Request, accountID, email, displayName string) {
	sessionToken, err := sessions.Create(accountID, email, displayName)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, sessionToken)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleSignup handles GET (form) and POST (create account) for /signup
func handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, viewContext(r), "signup.html", nil)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.SignupInput{
			Email:          r.FormValue("Email"),
			Password:       r.FormValue("Password"),
			DisplayName:    r.FormValue("DisplayName"),
			AcceptLanguage: r.Header.Get("Accept-Language"),
		}
		form := map[string]any{
			"Email":       input.Email,
			"DisplayName": input.DisplayName,
		}

		if input.Password != r.FormValue("ConfirmPassword") {
			form["Error"] = "Passwords do not match"
			renderTemplate(w, viewContext(r), "signup.html", form)
			return
		}

		deps := orchestrators.SignupDeps{
			AccountStore:    stores.AccountStore,
			PreferenceStore: stores.PreferenceStore,
			GenerateID:      generateID,
			Now:             timeNow,
		}

		acct, err := orchestrators.ExecuteSignup(r.Context(), input, deps)
		if err != nil {
			form["Error"] = userMessage(err)
			renderTemplate(w, viewContext(r), "signup.html", form)
			return
		}

		startSession(w, r, acct.ID, acct.Email, acct.DisplayName)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleForgotPassword handles GET (form) and POST (send link) for /forgot-password
func handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		renderTemplate(w, viewContext(r), "forgot_password.html", nil)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.RequestPasswordResetInput{Email: r.FormValue("Email")}
		deps := orchestrators.RequestPasswordResetDeps{
			AccountStore: stores.AccountStore,
			Tokens:       resetTokens,
			EmailSender:  emailSender,
			OutboxStore:  stores.OutboxStore,
			BaseURL:      baseURL,
			TTL:          resetTTL,
			GenerateID:   generateID,
			Now:          timeNow,
		}

		if err := orchestrators.ExecuteRequestPasswordReset(r.Context(), input, deps); err != nil {
			renderTemplate(w, viewContext(r), "forgot_password.html", map[string]any{
				"Email": input.Email,
				"Error": userMessage(err),
			})
			return
		}

		// Same response whether or not the account exists.
		renderTemplate(w, viewContext(r), "forgot_password.html", map[string]any{
			"Sent": true,
		})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleResetPassword handles GET (form) and POST (set password) for /reset-password
func handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		raw := r.URL.Query().Get("token")
		data := map[string]any{"Token": raw}
		if _, err := resetTokens.Verify(raw); err != nil {
			data["Error"] = err.Error()
			data["Invalid"] = true
		}
		renderTemplate(w, viewContext(r), "reset_password.html", data)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.ResetPasswordInput{
			Token:       r.FormValue("Token"),
			NewPassword: r.FormValue("NewPassword"),
		}
		if input.NewPassword != r.FormValue("ConfirmPassword") {
			renderTemplate(w, viewContext(r), "reset_password.html", map[string]any{
				"Token": input.Token,
				"Error": "Passwords do not match",
			})
			return
		}

		deps := orchestrators.ResetPasswordDeps{
			AccountStore: stores.AccountStore,
			Tokens:       resetTokens,
		}

		accountID, err := orchestrators.ExecuteResetPassword(r.Context(), input, deps)
		if err != nil {
			renderTemplate(w, viewContext(r), "reset_password.html", map[string]any{
				"Token":   input.Token,
				"Error":   userMessage(err),
				"Invalid": isLinkError(err),
			})
			return
		}

		if n := sessions.DeleteAccount(accountID); n > 0 {
			slog.Info("auth_event", "event", "sessions_revoked", "account_id", accountID, "count", n)
		}
		middleware.ClearSessionCookie(w)
		redirectWithNotice(w, r, "/login", "notice", "Your password has been updated. Please sign in.")
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// isLinkError reports whether err means the reset link itself cannot be used.
func isLinkError(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrExpiredToken) ||
		errors.Is(err, orchestrators.ErrResetLinkUsed)
}

// handleChangePassword handles POST /change-password from the settings page.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := pageSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Form error", http.StatusBadRequest)
		return
	}

	if r.FormValue("NewPassword") != r.FormValue("ConfirmPassword") {
		redirectWithNotice(w, r, "/settings", "error", "New passwords do not match")
		return
	}

	input := orchestrators.ChangePasswordInput{
		AccountID:       session.AccountID,
		CurrentPassword: r.FormValue("CurrentPassword"),
		NewPassword:     r.FormValue("NewPassword"),
	}
	deps := orchestrators.ChangePasswordDeps{
		AccountStore: stores.AccountStore,
	}

	if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
		redirectWithNotice(w, r, "/settings", "error", userMessage(err))
		return
	}
	redirectWithNotice(w, r, "/settings", "notice", "Password changed")
}
