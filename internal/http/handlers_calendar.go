package http

import (
	"log/slog"
	"net/http"
	"time"

	"expirygenie/internal/core"
)

// calendarDay is one cell in the month grid. Zero Day means padding.
type calendarDay struct {
	Day         int
	Today       bool
	Items       []itemView
	BucketClass string
}

type calendarMonth struct {
	Year      int
	Month     int
	MonthName string
	PrevYear  int
	PrevMonth int
	NextYear  int
	NextMonth int
	Weekdays  []string
	Weeks     [][]calendarDay
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	year, month := parseYearMonth(r)
	s.renderTemplate(w, r, "calendar.html", struct {
		Year  int
		Month int
	}{Year: year, Month: month})
}

// handleCalendarMonth renders the month grid partial: each cell lists
// items expiring that day, colored by the worst bucket among them.
func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	year, month := parseYearMonth(r)

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Calendar item load failed",
			"email", email, "year", year, "month", month, "error", err)
		InternalServerError("Could not load the calendar").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "calendar_month.html", buildCalendarMonth(items, year, month, core.Today(), s.soonWindow))
}

func buildCalendarMonth(items []core.FoodItem, year, month int, today core.Date, soonDays int) calendarMonth {
	first := core.NewDate(year, month, 1)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	// Items keyed by expiry day within this month.
	byDay := make(map[int][]core.FoodItem)
	for _, it := range items {
		if it.ExpiryDate.Year() == year && int(it.ExpiryDate.Month()) == month {
			d := it.ExpiryDate.Day()
			byDay[d] = append(byDay[d], it)
		}
	}

	cm := calendarMonth{
		Year:      year,
		Month:     month,
		MonthName: time.Month(month).String(),
		Weekdays:  weekdayNames,
	}
	cm.PrevYear, cm.PrevMonth = year, month-1
	if cm.PrevMonth < 1 {
		cm.PrevYear, cm.PrevMonth = year-1, 12
	}
	cm.NextYear, cm.NextMonth = year, month+1
	if cm.NextMonth > 12 {
		cm.NextYear, cm.NextMonth = year+1, 1
	}

	week := make([]calendarDay, 0, 7)
	for i := 0; i < int(first.Weekday()); i++ {
		week = append(week, calendarDay{})
	}
	for day := 1; day <= daysInMonth; day++ {
		date := core.NewDate(year, month, day)
		cell := calendarDay{
			Day:   day,
			Today: date.Equal(today.Time),
			Items: makeItemViews(byDay[day], today, soonDays),
		}
		cell.BucketClass = dominantBucketClass(byDay[day], today, soonDays)
		week = append(week, cell)
		if len(week) == 7 {
			cm.Weeks = append(cm.Weeks, week)
			week = make([]calendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, calendarDay{})
		}
		cm.Weeks = append(cm.Weeks, week)
	}
	return cm
}

// dominantBucketClass picks the most urgent bucket among a day's items:
// expired beats soon beats safe.
func dominantBucketClass(items []core.FoodItem, today core.Date, soonDays int) string {
	if len(items) == 0 {
		return ""
	}
	worst := core.StatusSafe
	for _, it := range items {
		switch core.StatusWithin(it.ExpiryDate, today, soonDays) {
		case core.StatusExpired:
			worst = core.StatusExpired
		case core.StatusSoon:
			if worst != core.StatusExpired {
				worst = core.StatusSoon
			}
		}
	}
	return statusClass(worst)
}
