package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DayHours describes one weekday of a technician's working window.
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// WeeklyHours maps lowercase weekday names ("monday".."sunday") to working windows.
// Days absent from the map are treated as unconfigured, not as days off.
type WeeklyHours map[string]DayHours

// Value implements driver.Valuer so weekly hours persist as JSONB.
func (w WeeklyHours) Value() (driver.Value, error) {
	if w == nil {
		return nil, nil
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner.
func (w *WeeklyHours) Scan(src interface{}) error {
	if src == nil {
		*w = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("unsupported weekly hours type %T", src)
	}
}

// Technician represents a dispatchable field technician.
type Technician struct {
	ID              string         `db:"id" json:"id"`
	FullName        string         `db:"full_name" json:"full_name"`
	Email           string         `db:"email" json:"email"`
	Phone           *string        `db:"phone" json:"phone,omitempty"`
	Active          bool           `db:"active" json:"active"`
	Skills          pq.StringArray `db:"skills" json:"skills"`
	Certifications  pq.StringArray `db:"certifications" json:"certifications"`
	HomeZip         string         `db:"home_zip" json:"home_zip"`
	Timezone        string         `db:"timezone" json:"timezone"`
	MaxTravelMiles  int            `db:"max_travel_miles" json:"max_travel_miles"`
	MaxJobsPerDay   int            `db:"max_jobs_per_day" json:"max_jobs_per_day"`
	MaxHoursPerDay  int            `db:"max_hours_per_day" json:"max_hours_per_day"`
	BufferMinutes   int            `db:"buffer_minutes" json:"buffer_minutes"`
	PreferredZones  pq.StringArray `db:"preferred_zones" json:"preferred_zones"`
	WorkingHours    WeeklyHours    `db:"working_hours" json:"working_hours"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSkill reports whether the technician carries the named skill.
func (t Technician) HasSkill(skill string) bool {
	for _, s := range t.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// HasCertification reports whether the technician carries the named certification.
func (t Technician) HasCertification(cert string) bool {
	for _, c := range t.Certifications {
		if c == cert {
			return true
		}
	}
	return false
}

// PrefersZone reports whether the zone is in the technician's preferred list.
func (t Technician) PrefersZone(zone string) bool {
	if zone == "" {
		return false
	}
	for _, z := range t.PreferredZones {
		if z == zone {
			return true
		}
	}
	return false
}

// TechnicianFilter captures filtering options for listing technicians.
type TechnicianFilter struct {
	Search    string
	Active    *bool
	Skill     string
	Zone      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
