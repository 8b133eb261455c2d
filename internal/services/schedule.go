// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense scheduling.
// Each frequency has its own rule that decides which calendar days carry an
// occurrence, so the scheduler can replay any missed window day by day.
package services

import (
	"fmt"
	"time"

	"tesoreria/internal/core"
)

// OccurrenceRule is the strategy interface for recurring expense schedules.
// Matches reports whether the given calendar day carries an occurrence.
type OccurrenceRule interface {
	Matches(day time.Time) bool
}

// DailyRule generates an occurrence every day.
type DailyRule struct{}

func (DailyRule) Matches(time.Time) bool { return true }

// WeeklyRule generates an occurrence every Monday.
type WeeklyRule struct{}

func (WeeklyRule) Matches(day time.Time) bool {
	return day.Weekday() == time.Monday
}

// BiweeklyRule generates occurrences on the 15th and on the second-to-last
// day of each month, matching the club's two payroll dates.
type BiweeklyRule struct{}

func (BiweeklyRule) Matches(day time.Time) bool {
	if day.Day() == 15 {
		return true
	}
	lastDay := time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, day.Location()).Day()
	return day.Day() == lastDay-1
}

// MonthlyRule generates an occurrence on the first day of each month.
type MonthlyRule struct{}

func (MonthlyRule) Matches(day time.Time) bool { return day.Day() == 1 }

// occurrenceRules maps frequencies to their corresponding rules.
// This registry enables O(1) lookup and easy extension for new frequencies.
var occurrenceRules = map[core.Frequency]OccurrenceRule{
	core.Daily:    DailyRule{},
	core.Weekly:   WeeklyRule{},
	core.Biweekly: BiweeklyRule{},
	core.Monthly:  MonthlyRule{},
}

// GetOccurrenceRule returns the rule for a frequency, or an error if the
// frequency is not supported.
func GetOccurrenceRule(frequency core.Frequency) (OccurrenceRule, error) {
	rule, ok := occurrenceRules[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return rule, nil
}

// DueDatesBetween walks the calendar from 'from' through 'to' inclusive and
// collects the days the rule matches. Both bounds are truncated to midnight
// before walking.
func DueDatesBetween(rule OccurrenceRule, from, to time.Time) []time.Time {
	from = truncateToDay(from)
	to = truncateToDay(to)

	var dates []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if rule.Matches(day) {
			dates = append(dates, day)
		}
	}
	return dates
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
