package engine

import "time"

// DailyPopupCooldown is how long a dismissed daily-task popup stays hidden.
const DailyPopupCooldown = 10 * time.Minute

// ReminderPrefs is the per-user reminder dismissal state.
type ReminderPrefs struct {
	DailyPopupShownOn     string     `json:"daily_popup_shown_on,omitempty"`
	DailyPopupDismissedAt *time.Time `json:"daily_popup_dismissed_at,omitempty"`
	WeeklyModalShownOn    string     `json:"weekly_modal_shown_on,omitempty"`
	StreakIntroSeen       bool       `json:"streak_intro_seen"`
}

// ShouldShowDailyPopup: at most once per day, never while all tasks are done,
// and not within the cooldown after a dismissal.
func (p ReminderPrefs) ShouldShowDailyPopup(now time.Time, allTasksDone bool) bool {
	if allTasksDone {
		return false
	}
	if p.DailyPopupShownOn == DayOf(now) {
		return false
	}
	if p.DailyPopupDismissedAt != nil && now.Sub(*p.DailyPopupDismissedAt) < DailyPopupCooldown {
		return false
	}
	return true
}

// ShouldShowWeeklyModal: a mandatory survey is shown on every check; a dismissible one once per day.
func (p ReminderPrefs) ShouldShowWeeklyModal(now time.Time, status SurveyStatus) bool {
	switch status.Weekly {
	case DueMandatory:
		return true
	case DueDismissible:
		return p.WeeklyModalShownOn != DayOf(now)
	default:
		return false
	}
}

// MarkDailyPopupShown records that the popup was shown today, optionally dismissed now.
func (p *ReminderPrefs) MarkDailyPopupShown(now time.Time, dismissed bool) {
	p.DailyPopupShownOn = DayOf(now)
	if dismissed {
		at := now
		p.DailyPopupDismissedAt = &at
	}
}

// MarkWeeklyModalShown records that the dismissible weekly modal was shown today.
func (p *ReminderPrefs) MarkWeeklyModalShown(now time.Time) {
	p.WeeklyModalShownOn = DayOf(now)
}
