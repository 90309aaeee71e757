package http

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"expirygenie/internal/core"
)

func (s *Server) handleStatsPage(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.renderTemplate(w, r, "stats.html", nil)
}

// handleStatsOverview renders the stats partial: status and category
// breakdowns with proportional bars, estimated value and money saved.
func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats item load failed", "email", email, "error", err)
		InternalServerError("Could not load your stats").Write(w)
		return
	}

	summary := core.SummarizeWithin(items, core.Today(), s.soonWindow)

	u, err := s.users.UserByEmail(r.Context(), email)
	if err != nil {
		slog.WarnContext(r.Context(), "User lookup failed for stats", "email", email, "error", err)
	} else {
		summary.MoneySavedCents = u.MoneySavedCents
	}

	type row struct {
		Name  string
		Count int
		Width int
	}

	data := struct {
		Total      int
		Safe       int
		Soon       int
		Expired    int
		SafePct    int
		SoonPct    int
		ExpiredPct int
		Value      string
		MoneySaved string
		Categories []row
		Methods    []row
	}{
		Total:      summary.Total,
		Safe:       summary.Safe,
		Soon:       summary.Soon,
		Expired:    summary.Expired,
		Value:      formatDollars(summary.ValueCents),
		MoneySaved: formatDollars(summary.MoneySavedCents),
	}
	if summary.Total > 0 {
		data.SafePct = summary.Safe * 100 / summary.Total
		data.SoonPct = summary.Soon * 100 / summary.Total
		data.ExpiredPct = summary.Expired * 100 / summary.Total
	}

	maxCat := 0
	for _, c := range summary.ByCategory {
		if c.Count > maxCat {
			maxCat = c.Count
		}
	}
	for _, c := range summary.ByCategory {
		data.Categories = append(data.Categories, row{
			Name:  c.Name,
			Count: c.Count,
			Width: barWidth(c.Count, maxCat),
		})
	}
	for _, m := range summary.ByMethod {
		data.Methods = append(data.Methods, row{
			Name:  string(m.Method),
			Count: m.Count,
			Width: barWidth(m.Count, summary.Total),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "stats_overview.html", data)
}

// barWidth converts a count to a rounded bar percentage, keeping tiny
// non-zero values visible.
func barWidth(count, max int) int {
	if max <= 0 || count <= 0 {
		return 0
	}
	width := (count*100 + max/2) / max
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// handleExportCSV streams the user's inventory as a CSV download with
// computed days-left and status columns.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "email", email, "error", err)
		InternalServerError("Could not export your items").Write(w)
		return
	}

	today := core.Today()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="expirygenie_%s.csv"`, today))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"name", "category", "quantity", "purchase_date", "expiry_date",
		"opened", "added_method", "days_left", "status",
	})
	for _, it := range items {
		_ = cw.Write([]string{
			it.Name,
			it.Category,
			it.Quantity,
			it.PurchaseDate.String(),
			it.ExpiryDate.String(),
			strconv.FormatBool(it.Opened),
			string(it.AddedMethod),
			strconv.Itoa(today.DaysUntil(it.ExpiryDate)),
			string(core.StatusWithin(it.ExpiryDate, today, s.soonWindow)),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "CSV write failed", "email", email, "error", err)
	}
}

// handleRecipes asks the advisor for recipe ideas built around items
// that are about to expire.
func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.advisor == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI suggestions are not configured").Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recipe item load failed", "email", email, "error", err)
		InternalServerError("Could not load your items").Write(w)
		return
	}

	today := core.Today()
	expiring := core.ExpiringWithin(items, today, s.soonWindow)
	if len(expiring) == 0 {
		NewHTMXResponse().
			BodyHTML(`<div class="info">Nothing is expiring soon. No rescue recipes needed!</div>`).
			Write(w)
		return
	}

	advice, err := s.advisor.SuggestRecipes(r.Context(), expiring)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recipe suggestion failed", "email", email, "error", err)
		InternalServerError("Could not fetch recipe ideas right now").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "recipes.html", struct {
		Count  int
		Advice string
	}{Count: len(expiring), Advice: advice})
}

// handleWasteAnalysis asks the advisor what keeps going to waste and
// how to break the pattern.
func (s *Server) handleWasteAnalysis(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.advisor == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI suggestions are not configured").Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Waste analysis item load failed", "email", email, "error", err)
		InternalServerError("Could not load your items").Write(w)
		return
	}

	expired := core.ExpiredItems(items, core.Today())
	if len(expired) == 0 {
		NewHTMXResponse().
			BodyHTML(`<div class="info">No expired items. Nothing is going to waste!</div>`).
			Write(w)
		return
	}

	advice, err := s.advisor.AnalyzeWaste(r.Context(), expired)
	if err != nil {
		slog.ErrorContext(r.Context(), "Waste analysis failed", "email", email, "error", err)
		InternalServerError("Could not analyze waste patterns right now").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "advice.html", struct {
		Lead   string
		Advice string
	}{Lead: strconv.Itoa(len(expired)) + " expired item(s) reviewed.", Advice: advice})
}

// handleShoppingList asks the advisor what to buy given current stock.
func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.advisor == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI suggestions are not configured").Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Shopping list item load failed", "email", email, "error", err)
		InternalServerError("Could not load your items").Write(w)
		return
	}

	advice, err := s.advisor.ShoppingList(r.Context(), items)
	if err != nil {
		slog.ErrorContext(r.Context(), "Shopping list failed", "email", email, "error", err)
		InternalServerError("Could not build a shopping list right now").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "advice.html", struct {
		Lead   string
		Advice string
	}{Lead: "Based on " + strconv.Itoa(len(items)) + " stocked item(s).", Advice: advice})
}
