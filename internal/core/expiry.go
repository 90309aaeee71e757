// Package core provides the food inventory domain: items, expiry
// bucketing and shelf-life estimation.
//
// This file contains the expiry date heuristics. Shelf lives are
// keyword-matched defaults; real expiry is whatever the user (or the
// extraction model) supplies.
package core

import (
	"sort"
	"strings"
)

const (
	StatusSafe    ExpiryStatus = "Safe"
	StatusSoon    ExpiryStatus = "Expiring Soon"
	StatusExpired ExpiryStatus = "Expired"
)

// SoonWindowDays is the default number of days ahead of expiry that puts
// an item in the "Expiring Soon" bucket.
const SoonWindowDays = 3

// ExpiryStatus classifies an item relative to the current date. The UI
// color-codes on it: green / yellow / red.
type ExpiryStatus string

// defaultShelfLife maps food name keywords to shelf life in days.
var defaultShelfLife = map[string]int{
	// Dairy
	"milk":   7,
	"cheese": 14,
	"yogurt": 10,
	"butter": 30,
	"cream":  5,

	// Meat & poultry
	"ground beef":    2,
	"ground chicken": 2,
	"chicken":        3,
	"beef":           5,
	"pork":           4,
	"fish":           2,

	// Fruits
	"apple":      14,
	"banana":     7,
	"orange":     10,
	"grapes":     7,
	"strawberry": 5,
	"blueberry":  10,

	// Vegetables
	"lettuce":  7,
	"tomato":   7,
	"carrot":   21,
	"potato":   30,
	"onion":    30,
	"broccoli": 7,

	// Pantry
	"bread":  7,
	"rice":   365,
	"pasta":  730,
	"cereal": 365,
	"flour":  365,

	// Beverages
	"juice": 7,
	"soda":  90,
	"beer":  120,
	"wine":  1825,
}

// shelfLifeKeys holds the keyword lookup order: longer keywords first so
// "ground beef" wins over "beef".
var shelfLifeKeys = func() []string {
	keys := make([]string, 0, len(defaultShelfLife))
	for k := range defaultShelfLife {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// ShelfLifeDays returns the default shelf life for a food name, with a
// 7-day fallback for unknown foods.
func ShelfLifeDays(name string) int {
	lower := strings.ToLower(name)
	for _, k := range shelfLifeKeys {
		if strings.Contains(lower, k) {
			return defaultShelfLife[k]
		}
	}
	return 7
}

// EstimateExpiry estimates an expiry date from the food name and
// purchase date. Opened (or cooked) items get a reduced shelf life.
func EstimateExpiry(name string, purchase Date, opened bool) Date {
	days := ShelfLifeDays(name)
	if opened {
		if days > 7 {
			days = min(7, days/3)
		} else {
			days = max(1, days/2)
		}
	}
	return purchase.AddDays(days)
}

// StatusOn classifies expiry against the given day using the default
// soon-window.
func StatusOn(expiry, today Date) ExpiryStatus {
	return StatusWithin(expiry, today, SoonWindowDays)
}

// StatusWithin classifies expiry against today with an explicit
// soon-window in days.
func StatusWithin(expiry, today Date, soonDays int) ExpiryStatus {
	left := today.DaysUntil(expiry)
	switch {
	case left < 0:
		return StatusExpired
	case left <= soonDays:
		return StatusSoon
	default:
		return StatusSafe
	}
}

// categoryKeywords drives automatic categorization of free-form food
// names coming from voice or image extraction.
var categoryKeywords = map[string][]string{
	"Dairy":          {"milk", "cheese", "yogurt", "butter", "cream"},
	"Meat & Poultry": {"chicken", "beef", "pork", "fish", "turkey", "lamb", "ground"},
	"Fruits":         {"apple", "banana", "orange", "grape", "strawberry", "blueberry", "mango"},
	"Vegetables":     {"tomato", "lettuce", "carrot", "potato", "onion", "broccoli", "pepper"},
	"Pantry":         {"rice", "pasta", "cereal", "flour", "sugar", "salt", "oil"},
	"Beverages":      {"juice", "soda", "beer", "wine", "water", "coffee", "tea"},
	"Bakery":         {"bread", "bagel", "muffin", "cake", "cookie", "pie"},
	"Frozen":         {"frozen", "ice cream", "popsicle"},
	"Condiments":     {"sauce", "dressing", "ketchup", "mustard", "mayo"},
}

// categoryOrder keeps Categorize deterministic across map iteration.
var categoryOrder = []string{
	"Dairy", "Meat & Poultry", "Fruits", "Vegetables", "Pantry",
	"Beverages", "Bakery", "Frozen", "Condiments",
}

// Categorize guesses a category from a food name, defaulting to Grocery.
func Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return "Grocery"
}

// commonFoods backs the autocomplete suggestions on the dashboard form.
var commonFoods = []string{
	"Milk", "Bread", "Eggs", "Chicken", "Beef", "Fish", "Cheese", "Yogurt",
	"Apple", "Banana", "Orange", "Tomato", "Lettuce", "Carrot", "Potato",
	"Rice", "Pasta", "Cereal", "Juice", "Butter", "Onion", "Broccoli",
	"Ground Beef", "Chicken Breast", "Salmon", "Strawberry", "Blueberry",
	"Bell Pepper", "Cucumber", "Spinach", "Mushroom", "Garlic",
}

// Suggest returns up to five food name suggestions matching the partial
// input, case-insensitively.
func Suggest(partial string) []string {
	lower := strings.ToLower(strings.TrimSpace(partial))
	if lower == "" {
		return nil
	}
	var out []string
	for _, f := range commonFoods {
		if strings.Contains(strings.ToLower(f), lower) {
			out = append(out, f)
			if len(out) == 5 {
				break
			}
		}
	}
	return out
}

// FilterItems returns items matching the category and/or status.
// "All" (or empty) matches everything; status is evaluated against today
// using the default soon window.
func FilterItems(items []FoodItem, category string, status ExpiryStatus, today Date) []FoodItem {
	return FilterItemsWithin(items, category, status, today, SoonWindowDays)
}

// FilterItemsWithin is FilterItems with an explicit soon window.
func FilterItemsWithin(items []FoodItem, category string, status ExpiryStatus, today Date, soonDays int) []FoodItem {
	out := make([]FoodItem, 0, len(items))
	for _, it := range items {
		if category != "" && category != "All" && it.Category != category {
			continue
		}
		if status != "" && status != "All" && StatusWithin(it.ExpiryDate, today, soonDays) != status {
			continue
		}
		out = append(out, it)
	}
	return out
}

// SortItems sorts items in place by the given field. Supported fields:
// expiry_date (default), purchase_date, name, category.
func SortItems(items []FoodItem, field string, ascending bool) {
	less := func(i, j int) bool { return items[i].ExpiryDate.Before(items[j].ExpiryDate.Time) }
	switch field {
	case "purchase_date":
		less = func(i, j int) bool { return items[i].PurchaseDate.Before(items[j].PurchaseDate.Time) }
	case "name":
		less = func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		}
	case "category":
		less = func(i, j int) bool { return items[i].Category < items[j].Category }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if ascending {
			return less(i, j)
		}
		return less(j, i)
	})
}

// ExpiringWithin returns items whose expiry falls between today and
// today+days inclusive.
func ExpiringWithin(items []FoodItem, today Date, days int) []FoodItem {
	var out []FoodItem
	for _, it := range items {
		left := today.DaysUntil(it.ExpiryDate)
		if left >= 0 && left <= days {
			out = append(out, it)
		}
	}
	return out
}

// ExpiredItems returns items past their expiry date.
func ExpiredItems(items []FoodItem, today Date) []FoodItem {
	var out []FoodItem
	for _, it := range items {
		if it.ExpiryDate.Before(today.Time) {
			out = append(out, it)
		}
	}
	return out
}
