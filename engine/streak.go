package engine

import "fmt"

// Streak is the persisted streak state. LastCompletion is "" when the user never completed a day.
type Streak struct {
	Current        int
	Longest        int
	Total          int
	LastCompletion string
}

// Transition classifies today against the last completion day.
type Transition int

const (
	TransitionFirst Transition = iota
	TransitionConsecutive
	TransitionSameDay
	TransitionGap
)

func (t Transition) String() string {
	switch t {
	case TransitionFirst:
		return "first"
	case TransitionConsecutive:
		return "consecutive"
	case TransitionSameDay:
		return "same_day"
	case TransitionGap:
		return "gap"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// Classify decides which transition applies when today's tasks are all done.
// A last completion after today (the user moved to an earlier zone) counts as already done.
func Classify(lastCompletion, today string) (Transition, error) {
	if lastCompletion == "" {
		return TransitionFirst, nil
	}
	gap, err := DaysBetween(lastCompletion, today)
	if err != nil {
		return 0, err
	}
	switch {
	case gap <= 0:
		return TransitionSameDay, nil
	case gap == 1:
		return TransitionConsecutive, nil
	default:
		return TransitionGap, nil
	}
}

// Advance applies a full-day completion on today. It is idempotent within a day:
// the same-day transition returns s unchanged.
func Advance(s Streak, today string) (Streak, Transition, error) {
	tr, err := Classify(s.LastCompletion, today)
	if err != nil {
		return s, 0, err
	}

	next := s
	switch tr {
	case TransitionSameDay:
		return s, tr, nil
	case TransitionConsecutive:
		next.Current = s.Current + 1
	case TransitionFirst, TransitionGap:
		next.Current = 1
	}
	if next.Longest < next.Current {
		next.Longest = next.Current
	}
	next.Total = s.Total + 1
	next.LastCompletion = today
	return next, tr, nil
}

// Effective is the streak as it should be reported on today: a streak whose last
// completion is older than yesterday has lapsed and reads as 0.
func Effective(s Streak, today string) Streak {
	if s.LastCompletion == "" {
		s.Current = 0
		return s
	}
	gap, err := DaysBetween(s.LastCompletion, today)
	if err != nil || gap > 1 {
		s.Current = 0
	}
	return s
}
