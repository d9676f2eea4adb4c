package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDurationMinutes is assumed when a job carries no usable duration.
	DefaultDurationMinutes = 60
	// MaxJobDurationMinutes caps a single job at 40 working hours.
	MaxJobDurationMinutes = 2400
	// WorkdayMinutes is one schedulable workday, used when durations are
	// expressed in days and when capping slot searches.
	WorkdayMinutes = 480
)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\b`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:m|min|mins|minute|minutes)\b`)
	daysPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:d|day|days)\b`)
)

// ParseDurationToMinutes normalizes a free-form or numeric duration to
// minutes. Numeric input passes through; strings are matched for hours,
// then minutes, then days (1 day = one workday). Anything unparseable
// falls back to the default.
func ParseDurationToMinutes(input any) int {
	minutes, _ := parseDuration(input)
	return minutes
}

// parseDuration returns the normalized minutes plus a note describing any
// fallback taken, so the caller can log it without the parser needing a logger.
func parseDuration(input any) (int, string) {
	switch v := input.(type) {
	case nil:
		return DefaultDurationMinutes, "missing duration, defaulting"
	case int:
		return passThroughMinutes(float64(v))
	case int64:
		return passThroughMinutes(float64(v))
	case float64:
		return passThroughMinutes(v)
	case string:
		return parseDurationString(v)
	default:
		return DefaultDurationMinutes, fmt.Sprintf("unsupported duration type %T, defaulting", input)
	}
}

func passThroughMinutes(v float64) (int, string) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultDurationMinutes, "non-positive duration, defaulting"
	}
	minutes := int(math.Round(v))
	if minutes > MaxJobDurationMinutes {
		return minutes, fmt.Sprintf("duration %d exceeds max %d", minutes, MaxJobDurationMinutes)
	}
	return minutes, ""
}

func parseDurationString(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDurationMinutes, "empty duration, defaulting"
	}
	if m := hoursPattern.FindStringSubmatch(raw); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(hours * 60)), ""
		}
	}
	if m := minutesPattern.FindStringSubmatch(raw); m != nil {
		minutes, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(minutes)), ""
		}
	}
	if m := daysPattern.FindStringSubmatch(raw); m != nil {
		days, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(days * WorkdayMinutes)), ""
		}
	}
	if value, err := strconv.ParseFloat(raw, 64); err == nil {
		return passThroughMinutes(value)
	}
	return DefaultDurationMinutes, fmt.Sprintf("unparseable duration %q, defaulting", raw)
}

// DurationSanity reports the outcome of clamping a job duration.
type DurationSanity struct {
	Sanitized       int  `json:"sanitized"`
	WasUnrealistic  bool `json:"was_unrealistic"`
	OriginalMinutes int  `json:"original_minutes"`
	MaxAllowed      int  `json:"max_allowed"`
}

// SanitizeJobDuration clamps a duration to the allowed maximum. It never fails;
// non-positive input is replaced by the default.
func SanitizeJobDuration(minutes int) DurationSanity {
	result := DurationSanity{
		Sanitized:       minutes,
		OriginalMinutes: minutes,
		MaxAllowed:      MaxJobDurationMinutes,
	}
	if minutes <= 0 {
		result.Sanitized = DefaultDurationMinutes
		return result
	}
	if minutes > MaxJobDurationMinutes {
		result.Sanitized = MaxJobDurationMinutes
		result.WasUnrealistic = true
	}
	return result
}

// NormalizeClock converts a heterogeneous time value to an [hour, minute]
// pair local to the supplied timezone. Accepted inputs: a 2-element pair,
// a time.Time, an RFC3339 string, or an "HH:MM" string. Any parse failure
// falls back to midnight; the note explains the fallback for logging.
func NormalizeClock(value any, timezone string) (hour, minute int, note string) {
	switch v := value.(type) {
	case [2]int:
		return clampClock(v[0], v[1])
	case []int:
		if len(v) >= 2 {
			return clampClock(v[0], v[1])
		}
		return 0, 0, "time pair too short, defaulting to midnight"
	case time.Time:
		local := v.In(loadLocation(timezone))
		return local.Hour(), local.Minute(), ""
	case string:
		return normalizeClockString(v, timezone)
	default:
		return 0, 0, fmt.Sprintf("unsupported time type %T, defaulting to midnight", value)
	}
}

func normalizeClockString(raw, timezone string) (int, int, string) {
	raw = strings.TrimSpace(raw)
	if h, m, ok := parseClock(raw); ok {
		return h, m, ""
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		local := parsed.In(loadLocation(timezone))
		return local.Hour(), local.Minute(), ""
	}
	if parsed, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		// No offset on the value; interpret it in the target zone but flag it.
		local := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loadLocation(timezone))
		return local.Hour(), local.Minute(), fmt.Sprintf("time value %q has no timezone, assuming %s", raw, timezone)
	}
	return 0, 0, fmt.Sprintf("unparseable time %q, defaulting to midnight", raw)
}

func clampClock(hour, minute int) (int, int, string) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Sprintf("out-of-range time %d:%d, defaulting to midnight", hour, minute)
	}
	return hour, minute, ""
}

// FormatInTimezone renders the instant using the layout, local to tz.
func FormatInTimezone(t time.Time, tz, layout string) string {
	return t.In(loadLocation(tz)).Format(layout)
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock parses "HH:MM" (24h) into hour and minute.
func parseClock(raw string) (int, int, bool) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	minute, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// clockToMinutes converts "HH:MM" to minutes since midnight, with ok=false
// when the value is not a clock string.
func clockToMinutes(raw string) (int, bool) {
	hour, minute, ok := parseClock(raw)
	if !ok {
		return 0, false
	}
	return hour*60 + minute, true
}

// minutesToClock renders minutes since midnight as "HH:MM".
func minutesToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	minutes %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
