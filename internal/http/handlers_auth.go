package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"expirygenie/internal/auth"
	"expirygenie/internal/core"
	"expirygenie/internal/store"
)

// handleAuthPage renders the combined login/signup page.
func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	// Already logged in: go straight to the dashboard.
	if _, ok := s.sessions.FromRequest(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	s.renderTemplate(w, r, "auth.html", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	name := sanitizeInput(r.Form.Get("name"))
	password := r.Form.Get("password")

	if len(password) < 6 {
		UnprocessableEntityError("Password must be at least 6 characters").Write(w)
		return
	}

	u := core.User{
		Email:        email,
		Name:         name,
		PasswordHash: auth.HashPassword(password),
	}
	if err := u.Validate(); err != nil {
		UnprocessableEntityError("Invalid signup data: " + err.Error()).Write(w)
		return
	}

	if err := s.users.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			UnprocessableEntityError("An account with this email already exists").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "User creation failed", "email", email, "error", err)
		InternalServerError("Could not create account").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "email", email)
	s.startSession(w, email)

	NewHTMXResponse().
		Header("HX-Redirect", "/dashboard").
		TriggerSuccessNotification("Welcome, "+name+"!").
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	password := r.Form.Get("password")

	u, err := s.users.UserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			slog.ErrorContext(r.Context(), "User lookup failed", "email", email, "error", err)
		}
		UnauthorizedError("Invalid email or password").Write(w)
		return
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		slog.WarnContext(r.Context(), "Failed login attempt", "email", email)
		UnauthorizedError("Invalid email or password").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "email", email)
	s.startSession(w, email)

	NewHTMXResponse().
		Header("HX-Redirect", "/dashboard").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		s.sessions.End(c.Value)
	}
	http.SetCookie(w, auth.ClearCookie())

	NewHTMXResponse().
		Header("HX-Redirect", "/").
		Write(w)
}

// handleResetPassword sets a new password after re-verifying the old
// one. There is no email flow; this mirrors the in-app reset form.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	oldPassword := r.Form.Get("old_password")
	newPassword := r.Form.Get("new_password")

	if len(newPassword) < 6 {
		UnprocessableEntityError("New password must be at least 6 characters").Write(w)
		return
	}

	u, err := s.users.UserByEmail(r.Context(), email)
	if err != nil || !auth.VerifyPassword(oldPassword, u.PasswordHash) {
		UnauthorizedError("Invalid email or password").Write(w)
		return
	}

	if err := s.users.UpdatePassword(r.Context(), email, auth.HashPassword(newPassword)); err != nil {
		slog.ErrorContext(r.Context(), "Password update failed", "email", email, "error", err)
		InternalServerError("Could not update password").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Password reset", "email", email)
	NewHTMXResponse().
		BodyHTML(`<div class="success">Password updated. You can log in with the new one.</div>`).
		Write(w)
}

func (s *Server) startSession(w http.ResponseWriter, email string) {
	token := s.sessions.Start(email)
	http.SetCookie(w, s.sessions.Cookie(token))
}

// handleIndex renders the landing page, or the dashboard redirect for
// logged-in users.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if _, ok := s.sessions.FromRequest(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, "index.html", struct {
		Categories []string
	}{Categories: core.Categories})
}

// greetingName falls back to the email's local part when the stored
// name is blank.
func greetingName(u core.User) template.HTML {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			name = u.Email[:at]
		} else {
			name = u.Email
		}
	}
	return template.HTML(template.HTMLEscapeString(name))
}
