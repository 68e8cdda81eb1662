package engine

import (
	"math"
	"time"
)

const (
	// WeeklySurveyIntervalDays is how long after the reference date the weekly survey becomes due.
	WeeklySurveyIntervalDays = 7
	// WeeklySurveyGraceDays is how long a due weekly survey may still be postponed.
	WeeklySurveyGraceDays = 2
)

// Urgency of the weekly survey.
type Urgency int

const (
	NotDue Urgency = iota
	DueDismissible
	DueMandatory
)

func (u Urgency) String() string {
	switch u {
	case DueDismissible:
		return "dismissible"
	case DueMandatory:
		return "mandatory"
	default:
		return "not_due"
	}
}

// SurveyStatus is the survey cadence of one user at one instant.
type SurveyStatus struct {
	InitialCompleted bool
	// LastWeekly is the last weekly completion, nil if none.
	LastWeekly *time.Time
	// DaysSinceLastWeekly counts from the last weekly survey, or from the initial one when
	// no weekly survey exists yet. Nil while the initial survey is outstanding.
	DaysSinceLastWeekly *int
	Weekly              Urgency
}

// InitialDue reports whether the initial survey still blocks the app.
func (s SurveyStatus) InitialDue() bool { return !s.InitialCompleted }

// WeeklyDue reports whether the weekly survey is due, dismissible or not.
func (s SurveyStatus) WeeklyDue() bool { return s.Weekly != NotDue }

// WeeklyMandatory reports whether the weekly survey can no longer be postponed.
func (s SurveyStatus) WeeklyMandatory() bool { return s.Weekly == DueMandatory }

// Blocking reports whether protected routes must refuse service until a survey is done.
func (s SurveyStatus) Blocking() bool { return s.InitialDue() || s.WeeklyMandatory() }

// EvaluateSurvey applies the cadence policy to the stored timestamps.
func EvaluateSurvey(initialCompleted, lastWeekly *time.Time, now time.Time) SurveyStatus {
	status := SurveyStatus{
		InitialCompleted: initialCompleted != nil,
		LastWeekly:       lastWeekly,
	}
	if initialCompleted == nil {
		return status
	}

	ref := *initialCompleted
	if lastWeekly != nil {
		ref = *lastWeekly
	}
	days := WholeDaysSince(ref, now)
	status.DaysSinceLastWeekly = &days
	status.Weekly = WeeklyUrgency(days)
	return status
}

// WeeklyUrgency maps days since the reference date onto the three tiers.
func WeeklyUrgency(daysSince int) Urgency {
	switch {
	case daysSince < WeeklySurveyIntervalDays:
		return NotDue
	case daysSince <= WeeklySurveyIntervalDays+WeeklySurveyGraceDays:
		return DueDismissible
	default:
		return DueMandatory
	}
}

// WholeDaysSince is floor((now - ref) / 24h), never negative.
func WholeDaysSince(ref, now time.Time) int {
	d := int(math.Floor(now.Sub(ref).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}
