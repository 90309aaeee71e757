package services

import (
	"testing"
	"time"

	"expirygenie/internal/core"
)

func TestDailyCadence(t *testing.T) {
	now := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSent time.Time
		want     bool
	}{
		{"never sent", time.Time{}, true},
		{"sent yesterday", now.AddDate(0, 0, -1), true},
		{"sent earlier today", now.Add(-2 * time.Hour), false},
		{"sent last week", now.AddDate(0, 0, -7), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (DailyCadence{}).IsDue(tt.lastSent, now); got != tt.want {
				t.Errorf("DailyCadence.IsDue(%v, %v) = %v, want %v", tt.lastSent, now, got, tt.want)
			}
		})
	}
}

func TestDailyCadenceMixedLocations(t *testing.T) {
	// Stored timestamps are UTC; now may arrive in a local zone. The
	// same instant rendered in both must still count as one day.
	east := time.FixedZone("UTC+11", 11*60*60)

	// 23:30 local on June 5 is already June 5 12:30 UTC; a reminder
	// stored then must suppress a second send later that UTC day.
	lastSent := time.Date(2025, 6, 5, 12, 30, 0, 0, time.UTC)
	nowLocal := time.Date(2025, 6, 5, 23, 30, 0, 0, east).Add(2 * time.Hour)

	if nowLocal.UTC().Format("2006-01-02") != "2025-06-05" {
		t.Fatal("test setup: now should still be June 5 in UTC")
	}
	if (DailyCadence{}).IsDue(lastSent, nowLocal) {
		t.Error("reminder sent earlier the same UTC day should not be due again")
	}

	// Next UTC day it is due, regardless of the local rendering.
	nextDay := time.Date(2025, 6, 6, 0, 30, 0, 0, time.UTC).In(east)
	if !(DailyCadence{}).IsDue(lastSent, nextDay) {
		t.Error("reminder should be due on the next UTC day")
	}
}

func TestWeeklyCadence(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSent time.Time
		want     bool
	}{
		{"never sent", time.Time{}, true},
		{"sent 8 days ago", now.AddDate(0, 0, -8), true},
		{"sent exactly 7 days ago", now.AddDate(0, 0, -7), true},
		{"sent 3 days ago", now.AddDate(0, 0, -3), false},
		{"sent today", now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (WeeklyCadence{}).IsDue(tt.lastSent, now); got != tt.want {
				t.Errorf("WeeklyCadence.IsDue(%v, %v) = %v, want %v", tt.lastSent, now, got, tt.want)
			}
		})
	}
}

func TestNeverCadence(t *testing.T) {
	now := time.Now()
	if (NeverCadence{}).IsDue(time.Time{}, now) {
		t.Error("NeverCadence.IsDue(zero, now) = true, want false")
	}
	if (NeverCadence{}).IsDue(now.AddDate(0, 0, -30), now) {
		t.Error("NeverCadence.IsDue(old, now) = true, want false")
	}
}

func TestGetCadenceChecker(t *testing.T) {
	for _, bucket := range []core.ExpiryStatus{core.StatusSafe, core.StatusSoon, core.StatusExpired} {
		if _, err := GetCadenceChecker(bucket); err != nil {
			t.Errorf("GetCadenceChecker(%s) error = %v", bucket, err)
		}
	}
	if _, err := GetCadenceChecker("Mystery"); err == nil {
		t.Error("GetCadenceChecker(unknown) error = nil, want error")
	}
}
