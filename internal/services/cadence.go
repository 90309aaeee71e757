// This file implements the Strategy Pattern for reminder cadence
// checking. Each expiry bucket has its own strategy that decides how
// often a reminder for an item in that bucket may go out.

package services

import (
	"fmt"
	"time"

	"expirygenie/internal/core"
)

// CadenceChecker is the strategy interface for reminder pacing.
type CadenceChecker interface {
	// IsDue returns true if another reminder should go out given when
	// the last one was sent. A zero lastSent means none was ever sent.
	IsDue(lastSent, now time.Time) bool
}

// DailyCadence sends at most one reminder per calendar day.
type DailyCadence struct{}

func (DailyCadence) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	// sent_at rows come back in UTC; normalize both sides so a local
	// now near midnight does not skew the calendar-day comparison.
	return lastSent.UTC().Format("2006-01-02") != now.UTC().Format("2006-01-02")
}

// WeeklyCadence sends at most one reminder per 7 days.
type WeeklyCadence struct{}

func (WeeklyCadence) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return now.Sub(lastSent).Hours()/24 >= 7
}

// NeverCadence suppresses reminders entirely.
type NeverCadence struct{}

func (NeverCadence) IsDue(_, _ time.Time) bool { return false }

// cadenceStrategies maps expiry buckets to their pacing. Soon items
// nag daily while they can still be saved; expired items get a weekly
// nudge to be cleared out.
var cadenceStrategies = map[core.ExpiryStatus]CadenceChecker{
	core.StatusSoon:    DailyCadence{},
	core.StatusExpired: WeeklyCadence{},
	core.StatusSafe:    NeverCadence{},
}

// GetCadenceChecker returns the pacing strategy for an expiry bucket.
func GetCadenceChecker(bucket core.ExpiryStatus) (CadenceChecker, error) {
	checker, ok := cadenceStrategies[bucket]
	if !ok {
		return nil, fmt.Errorf("unknown expiry bucket: %s", bucket)
	}
	return checker, nil
}

// RegisterCadenceChecker installs a custom pacing strategy for a
// bucket, replacing the default.
func RegisterCadenceChecker(bucket core.ExpiryStatus, checker CadenceChecker) {
	cadenceStrategies[bucket] = checker
}
