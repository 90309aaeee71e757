package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expirygenie/internal/core"
)

// parseYearMonth extracts year and month from query parameters, falling
// back to the current year/month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= 1970 && y <= 9999 {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, month
}

// parseItemID parses an item id from a form value.
func parseItemID(v string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", v)
	}
	return id, nil
}

// formatDollars formats cents as a dollar string (e.g. "$12.34").
func formatDollars(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// daysLeftLabel renders a human days-until-expiry label.
func daysLeftLabel(expiry, today core.Date) string {
	left := today.DaysUntil(expiry)
	switch {
	case left < 0:
		if left == -1 {
			return "expired yesterday"
		}
		return fmt.Sprintf("expired %d days ago", -left)
	case left == 0:
		return "expires today"
	case left == 1:
		return "expires tomorrow"
	default:
		return fmt.Sprintf("%d days left", left)
	}
}

// statusClass maps an expiry bucket to its CSS class.
func statusClass(s core.ExpiryStatus) string {
	switch s {
	case core.StatusExpired:
		return "status-expired"
	case core.StatusSoon:
		return "status-soon"
	default:
		return "status-safe"
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
