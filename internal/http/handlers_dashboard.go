package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"expirygenie/internal/core"
)

// handleDashboard renders the inventory page shell; the item list
// itself loads as an HTMX partial from /ui/items.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	u, err := s.users.UserByEmail(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "User lookup failed", "email", email, "error", err)
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	data := struct {
		Name       template.HTML
		Email      string
		Today      string
		Categories []string
		Statuses   []core.ExpiryStatus
		MoneySaved string
	}{
		Name:       greetingName(u),
		Email:      u.Email,
		Today:      core.Today().String(),
		Categories: core.Categories,
		Statuses:   []core.ExpiryStatus{core.StatusSafe, core.StatusSoon, core.StatusExpired},
		MoneySaved: formatDollars(u.MoneySavedCents),
	}
	s.renderTemplate(w, r, "dashboard.html", data)
}
