package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"expirygenie/internal/core"
)

type extractedItem struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	Category   string `json:"category"`
	ExpiryDays int    `json:"expiry_days"`
}

// ParseExtraction turns a model response into item drafts. The model
// sometimes wraps JSON in markdown fences or returns a single object
// instead of an array; both are tolerated. Missing categories and
// expiry estimates are filled from the name.
func ParseExtraction(raw string, today core.Date) ([]core.FoodItem, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, nil
	}

	var extracted []extractedItem
	if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
		var single extractedItem
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil {
			return nil, fmt.Errorf("parse extraction response: %w", err)
		}
		extracted = []extractedItem{single}
	}

	var items []core.FoodItem
	for _, e := range extracted {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}

		category := e.Category
		if !core.ValidCategory(category) {
			category = core.Categorize(name)
		}

		days := e.ExpiryDays
		if days <= 0 {
			days = core.ShelfLifeDays(name)
		}

		quantity := strings.TrimSpace(e.Quantity)
		if quantity == "" {
			quantity = "1"
		}

		items = append(items, core.FoodItem{
			Name:         name,
			Category:     category,
			PurchaseDate: today,
			ExpiryDate:   today.AddDays(days),
			Quantity:     quantity,
		})
	}
	return items, nil
}

// ParseDuplicateReport turns a model response into a DuplicateReport.
// Blank names are dropped; an empty response means no duplicates.
func ParseDuplicateReport(raw string) (DuplicateReport, error) {
	raw = stripFences(raw)
	if raw == "" {
		return DuplicateReport{}, nil
	}

	var parsed struct {
		Duplicates      []string `json:"duplicates"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return DuplicateReport{}, fmt.Errorf("parse duplicate response: %w", err)
	}

	report := DuplicateReport{}
	for _, name := range parsed.Duplicates {
		if name = strings.TrimSpace(name); name != "" {
			report.Duplicates = append(report.Duplicates, name)
		}
	}
	for _, rec := range parsed.Recommendations {
		if rec = strings.TrimSpace(rec); rec != "" {
			report.Recommendations = append(report.Recommendations, rec)
		}
	}
	return report, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
