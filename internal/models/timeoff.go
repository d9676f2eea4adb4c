package models

import "time"

// TimeOffEntry blocks a technician's calendar over an inclusive date range.
type TimeOffEntry struct {
	ID        string    `db:"id" json:"id"`
	TechID    string    `db:"tech_id" json:"tech_id"`
	StartDate string    `db:"start_date" json:"start_date"`
	EndDate   string    `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the entry blocks the given date (YYYY-MM-DD).
func (e TimeOffEntry) Covers(date string) bool {
	if date == "" || e.StartDate == "" {
		return false
	}
	end := e.EndDate
	if end == "" {
		end = e.StartDate
	}
	return date >= e.StartDate && date <= end
}

// TimeOffBlock is the result of a time-off lookup for one tech/date.
type TimeOffBlock struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}
