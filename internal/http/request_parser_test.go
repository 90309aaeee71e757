package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expirygenie/internal/core"
)

func TestRequestBodyParserForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/extract/voice",
		strings.NewReader("transcript=two+gallons+of+milk&kind=photo"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.IsJSON() {
		t.Error("form body misdetected as JSON")
	}
	if got := p.Get("transcript"); got != "two gallons of milk" {
		t.Errorf("Get(transcript) = %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParserJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/extract/voice",
		strings.NewReader(`{"transcript": "a dozen eggs", "count": 12}`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !p.IsJSON() {
		t.Error("JSON body not detected")
	}
	if got := p.Get("transcript"); got != "a dozen eggs" {
		t.Errorf("Get(transcript) = %q", got)
	}
	if got := p.Get("count"); got != "12" {
		t.Errorf("Get(count) = %q, want 12", got)
	}
}

func TestRequestBodyParserBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"broken`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Error("Parse() should fail on malformed JSON")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  milk  ", "milk"},
		{"milk\x00\x01", "milk"},
		{"line1\nline2", "line1\nline2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseItemID(t *testing.T) {
	if id, err := parseItemID(" 42 "); err != nil || id != 42 {
		t.Errorf("parseItemID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parseItemID(bad); err == nil {
			t.Errorf("parseItemID(%q) should fail", bad)
		}
	}
}

func TestDaysLeftLabel(t *testing.T) {
	today := core.NewDate(2025, 6, 5)
	tests := []struct {
		expiry core.Date
		want   string
	}{
		{core.NewDate(2025, 6, 5), "expires today"},
		{core.NewDate(2025, 6, 6), "expires tomorrow"},
		{core.NewDate(2025, 6, 10), "5 days left"},
		{core.NewDate(2025, 6, 4), "expired yesterday"},
		{core.NewDate(2025, 6, 1), "expired 4 days ago"},
	}
	for _, tt := range tests {
		if got := daysLeftLabel(tt.expiry, today); got != tt.want {
			t.Errorf("daysLeftLabel(%s) = %q, want %q", tt.expiry, got, tt.want)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{350, "$3.50"},
		{1205, "$12.05"},
		{-99, "-$0.99"},
	}
	for _, tt := range tests {
		if got := formatDollars(tt.cents); got != tt.want {
			t.Errorf("formatDollars(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
