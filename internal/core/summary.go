package core

import (
	"regexp"
	"strconv"
	"strings"
)

// StatusCount pairs an expiry bucket with its item count.
type StatusCount struct {
	Status ExpiryStatus
	Count  int
}

// CategoryCount pairs a category name with its item count.
type CategoryCount struct {
	Name  string
	Count int
}

// MethodCount pairs an added method with its item count.
type MethodCount struct {
	Method AddedMethod
	Count  int
}

// InventorySummary is a compact summary of a user's inventory for the
// stats dashboard.
type InventorySummary struct {
	Total           int
	Safe            int
	Soon            int
	Expired         int
	ByCategory      []CategoryCount
	ByMethod        []MethodCount
	ValueCents      int64
	MoneySavedCents int64
}

// Summarize computes inventory metrics against the given day using the
// default soon window.
func Summarize(items []FoodItem, today Date) InventorySummary {
	return SummarizeWithin(items, today, SoonWindowDays)
}

// SummarizeWithin is Summarize with an explicit soon window.
func SummarizeWithin(items []FoodItem, today Date, soonDays int) InventorySummary {
	s := InventorySummary{Total: len(items)}
	catCounts := map[string]int{}
	methodCounts := map[AddedMethod]int{}

	for _, it := range items {
		switch StatusWithin(it.ExpiryDate, today, soonDays) {
		case StatusExpired:
			s.Expired++
		case StatusSoon:
			s.Soon++
		default:
			s.Safe++
		}
		catCounts[it.Category]++
		methodCounts[it.AddedMethod]++
		s.ValueCents += EstimateValueCents(it.Name, it.Quantity)
	}

	for _, c := range Categories {
		if n := catCounts[c]; n > 0 {
			s.ByCategory = append(s.ByCategory, CategoryCount{Name: c, Count: n})
		}
	}
	for _, m := range []AddedMethod{MethodManual, MethodVoice, MethodImage} {
		if n := methodCounts[m]; n > 0 {
			s.ByMethod = append(s.ByMethod, MethodCount{Method: m, Count: n})
		}
	}
	return s
}

// priceEstimatesCents holds rough per-unit prices for common foods.
var priceEstimatesCents = map[string]int64{
	"milk":    350,
	"bread":   250,
	"chicken": 800,
	"beef":    1200,
	"fish":    1000,
	"eggs":    300,
	"cheese":  500,
	"apple":   150,
	"banana":  100,
	"rice":    200,
	"pasta":   150,
	"yogurt":  400,
}

// priceOrder fixes the keyword match order for deterministic estimates.
var priceOrder = []string{
	"milk", "bread", "chicken", "beef", "fish", "eggs",
	"cheese", "apple", "banana", "rice", "pasta", "yogurt",
}

var leadingNumber = regexp.MustCompile(`\d+`)

// EstimateValueCents gives a rough monetary value for an item. The
// quantity multiplier is capped at 5x to avoid extreme values.
func EstimateValueCents(name, quantity string) int64 {
	var base int64 = 300
	lower := strings.ToLower(name)
	for _, food := range priceOrder {
		if strings.Contains(lower, food) {
			base = priceEstimatesCents[food]
			break
		}
	}

	mult := int64(1)
	ql := strings.ToLower(quantity)
	switch {
	case strings.Contains(ql, "lb"), strings.Contains(ql, "pound"),
		strings.Contains(ql, "gallon"), strings.Contains(ql, "dozen"):
		// Unit sizes already priced per container.
	default:
		if m := leadingNumber.FindString(ql); m != "" {
			if n, err := strconv.ParseInt(m, 10, 64); err == nil && n > 0 {
				mult = n
			}
		}
	}
	if mult > 5 {
		mult = 5
	}
	return base * mult
}
