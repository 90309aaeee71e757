package gemini

import (
	"testing"

	"expirygenie/internal/core"
)

func TestParseExtraction(t *testing.T) {
	today := core.NewDate(2025, 6, 1)

	tests := []struct {
		name  string
		raw   string
		want  int
		check func(t *testing.T, items []core.FoodItem)
	}{
		{
			name: "plain array",
			raw:  `[{"name":"Milk","quantity":"1 gallon","category":"Dairy","expiry_days":7}]`,
			want: 1,
			check: func(t *testing.T, items []core.FoodItem) {
				item := items[0]
				if item.Name != "Milk" || item.Category != "Dairy" || item.Quantity != "1 gallon" {
					t.Errorf("item = %+v", item)
				}
				if item.ExpiryDate.String() != "2025-06-08" {
					t.Errorf("ExpiryDate = %s, want 2025-06-08", item.ExpiryDate)
				}
				if item.PurchaseDate.String() != "2025-06-01" {
					t.Errorf("PurchaseDate = %s, want 2025-06-01", item.PurchaseDate)
				}
			},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n[{\"name\":\"Bread\",\"expiry_days\":4}]\n```",
			want: 1,
			check: func(t *testing.T, items []core.FoodItem) {
				if items[0].Name != "Bread" || items[0].ExpiryDate.String() != "2025-06-05" {
					t.Errorf("item = %+v", items[0])
				}
			},
		},
		{
			name: "single object instead of array",
			raw:  `{"name":"Eggs","category":"Dairy","expiry_days":21}`,
			want: 1,
		},
		{
			name: "missing category falls back to keyword match",
			raw:  `[{"name":"chicken breast","expiry_days":2}]`,
			want: 1,
			check: func(t *testing.T, items []core.FoodItem) {
				if items[0].Category != "Meat & Poultry" {
					t.Errorf("Category = %s, want Meat & Poultry", items[0].Category)
				}
			},
		},
		{
			name: "missing expiry days falls back to shelf life",
			raw:  `[{"name":"milk"}]`,
			want: 1,
			check: func(t *testing.T, items []core.FoodItem) {
				if items[0].ExpiryDate.String() != "2025-06-08" {
					t.Errorf("ExpiryDate = %s, want 2025-06-08 (7 day shelf life)", items[0].ExpiryDate)
				}
				if items[0].Quantity != "1" {
					t.Errorf("Quantity = %q, want 1", items[0].Quantity)
				}
			},
		},
		{
			name: "nameless entries skipped",
			raw:  `[{"name":""},{"name":"Milk","expiry_days":7}]`,
			want: 1,
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: 0,
		},
		{
			name: "empty response",
			raw:  "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseExtraction(tt.raw, today)
			if err != nil {
				t.Fatalf("ParseExtraction() error = %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("len(items) = %d, want %d: %+v", len(items), tt.want, items)
			}
			if tt.check != nil {
				tt.check(t, items)
			}
		})
	}
}

func TestParseExtractionGarbage(t *testing.T) {
	if _, err := ParseExtraction("I could not find any food items.", core.NewDate(2025, 6, 1)); err == nil {
		t.Error("ParseExtraction(prose) error = nil, want parse error")
	}
}

func TestParseDuplicateReport(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantDups []string
		wantRecs int
		wantErr  bool
	}{
		{
			name:     "plain object",
			raw:      `{"duplicates": ["Milk", "Eggs"], "recommendations": ["Use the open milk first."]}`,
			wantDups: []string{"Milk", "Eggs"},
			wantRecs: 1,
		},
		{
			name:     "fenced object with blank entries",
			raw:      "```json\n{\"duplicates\": [\" Milk \", \"\"], \"recommendations\": []}\n```",
			wantDups: []string{"Milk"},
		},
		{
			name: "empty response",
			raw:  "",
		},
		{
			name:    "prose instead of JSON",
			raw:     "Nothing looks duplicated.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseDuplicateReport(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseDuplicateReport() error = nil, want parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuplicateReport() error = %v", err)
			}
			if len(report.Duplicates) != len(tt.wantDups) {
				t.Fatalf("duplicates = %v, want %v", report.Duplicates, tt.wantDups)
			}
			for i, want := range tt.wantDups {
				if report.Duplicates[i] != want {
					t.Errorf("duplicates[%d] = %q, want %q", i, report.Duplicates[i], want)
				}
			}
			if len(report.Recommendations) != tt.wantRecs {
				t.Errorf("recommendations = %v, want %d entries", report.Recommendations, tt.wantRecs)
			}
		})
	}
}
