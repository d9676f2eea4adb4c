package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
)

func poolTech(id string) models.Technician {
	return models.Technician{
		ID:           id,
		FullName:     "Tech " + id,
		Active:       true,
		HomeZip:      "75201",
		WorkingHours: weekdayHours("08:00", "17:00"),
	}
}

func TestGenerateSchedulingSuggestionsEmptyCalendar(t *testing.T) {
	techs := []models.Technician{poolTech("t1"), poolTech("t2")}
	job := models.Job{ID: "new", DurationMinutes: 120, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, nil, nil, testMonday, SuggestionOptions{HorizonDays: 5})

	// One open window per weekday, ranked soonest-first on an empty calendar.
	require.Len(t, suggestions, 5)
	top := suggestions[0]
	assert.Equal(t, testMonday, top.Date)
	assert.Equal(t, "08:00", top.StartTime)
	assert.Equal(t, "10:00", top.EndTime)
	assert.Equal(t, "monday", top.DayName)
	assert.Equal(t, 100, top.Score)
	assert.False(t, top.IsMultiDay)
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Score, suggestions[i].Score)
	}
}

func TestGenerateSchedulingSuggestionsMultiDay(t *testing.T) {
	techs := []models.Technician{poolTech("t1")}
	job := models.Job{ID: "new", DurationMinutes: 20 * 60, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, nil, nil, testMonday, SuggestionOptions{HorizonDays: 3})

	require.NotEmpty(t, suggestions)
	top := suggestions[0]
	assert.True(t, top.IsMultiDay)
	assert.Equal(t, 3, top.DayCount)
	// The slot search holds one workday; remaining days follow as segments.
	assert.Equal(t, "08:00", top.StartTime)
	assert.Equal(t, "16:00", top.EndTime)
}

func TestGenerateSchedulingSuggestionsSkipsFullDays(t *testing.T) {
	techs := []models.Technician{poolTech("t1")}
	existing := []models.Job{scheduledJob("j1", "t1", testMonday, "09:00", 60)}
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, existing, nil, testMonday,
		SuggestionOptions{HorizonDays: 1, MaxJobsPerDay: 1})

	assert.Empty(t, suggestions)
}

func TestGenerateSchedulingSuggestionsCrewShortage(t *testing.T) {
	techs := []models.Technician{poolTech("t1")}
	job := models.Job{ID: "new", DurationMinutes: 60, CrewSize: 2, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, nil, nil, testMonday, SuggestionOptions{HorizonDays: 3})

	assert.Empty(t, suggestions)
}

func TestGenerateSchedulingSuggestionsCrewExactlyMet(t *testing.T) {
	techs := []models.Technician{poolTech("t1")}
	job := models.Job{ID: "new", DurationMinutes: 60, CrewSize: 1, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, nil, nil, testMonday, SuggestionOptions{HorizonDays: 1})

	require.Len(t, suggestions, 1)
	assert.Equal(t, 95, suggestions[0].Score)
	assert.Contains(t, suggestions[0].Notes, "crew capacity exactly met")
}

func TestGenerateSchedulingSuggestionsTravelSqueezeBeforeSlot(t *testing.T) {
	techs := []models.Technician{poolTech("t1")}
	prior := scheduledJob("j1", "t1", testMonday, "08:00", 120)
	prior.Zip = "75601"
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	suggestions := GenerateSchedulingSuggestions(job, techs, []models.Job{prior}, nil, testMonday,
		SuggestionOptions{HorizonDays: 1})

	// The only window opens ten minutes after a far booking ends; that idle
	// time is well under the half-hour drive back.
	require.Len(t, suggestions, 1)
	slot := suggestions[0]
	assert.Equal(t, "10:10", slot.StartTime)
	assert.Contains(t, slot.Notes, "tight travel window before slot")
	assert.Equal(t, travelSqueezePenalty+atCrewCapacityPenalty, slot.Penalties)
}

func TestGenerateSchedulingSuggestionsBadStartDate(t *testing.T) {
	assert.Nil(t, GenerateSchedulingSuggestions(models.Job{DurationMinutes: 60}, []models.Technician{poolTech("t1")}, nil, nil, "soon", SuggestionOptions{}))
}

func TestMatchesPreferredTime(t *testing.T) {
	cases := []struct {
		name      string
		startTime string
		preferred []string
		want      bool
	}{
		{"morning slot", "09:00", []string{"morning"}, true},
		{"noon is not morning", "12:00", []string{"morning"}, false},
		{"afternoon slot", "13:30", []string{"afternoon"}, true},
		{"evening slot", "18:00", []string{"evening"}, true},
		{"exact clock match", "10:30", []string{"10:30"}, true},
		{"no preference list", "09:00", nil, false},
		{"invalid clock", "early", []string{"morning"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesPreferredTime(tc.startTime, tc.preferred))
		})
	}
}

func TestCheckForConflictsCleanSlot(t *testing.T) {
	tech := poolTech("t1")
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	result := CheckForConflicts(job, tech, testMonday, "09:00", nil, nil)

	assert.True(t, result.Available)
	assert.Zero(t, result.Penalties)
	assert.Empty(t, result.Conflicts.Items)
}

func TestCheckForConflictsOverlap(t *testing.T) {
	tech := poolTech("t1")
	existing := []models.Job{scheduledJob("j1", tech.ID, testMonday, "09:00", 60)}
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	result := CheckForConflicts(job, tech, testMonday, "09:30", existing, nil)

	assert.False(t, result.Available)
	require.True(t, result.Conflicts.HasErrors)
	found := false
	for _, item := range result.Conflicts.Items {
		if item.Type == "time_slot" {
			found = true
			assert.True(t, item.Overridable)
		}
	}
	assert.True(t, found)
}

func TestCheckForConflictsTravelSqueeze(t *testing.T) {
	tech := poolTech("t1")
	// Prior stop is across town; a 15 minute gap cannot absorb the drive.
	prior := scheduledJob("j1", tech.ID, testMonday, "08:00", 120)
	prior.Zip = "75601"
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	result := CheckForConflicts(job, tech, testMonday, "10:15", []models.Job{prior}, nil)

	assert.False(t, result.Available)
	assert.Equal(t, travelSqueezePenalty, result.Penalties)
	require.NotEmpty(t, result.Notes)
	assert.Contains(t, result.Notes[0], "tight travel window")
}

func TestCheckForConflictsWithDistanceUsesResolver(t *testing.T) {
	tech := poolTech("t1")
	prior := scheduledJob("j1", tech.ID, testMonday, "08:00", 120)
	prior.Zip = "75201"
	job := models.Job{ID: "new", DurationMinutes: 60, Zip: "75201"}

	// The zip heuristic calls these neighbors; a half-hour gap passes clean.
	base := CheckForConflicts(job, tech, testMonday, "10:30", []models.Job{prior}, nil)
	assert.Zero(t, base.Penalties)

	// A real-distance lookup says the drive is far longer than the gap.
	resolver := &countingResolver{result: models.DistanceResult{DistanceMiles: 25}}
	result := CheckForConflictsWithDistance(context.Background(), resolver, job, tech,
		testMonday, "10:30", []models.Job{prior}, nil)

	assert.True(t, result.Available)
	assert.Equal(t, travelSqueezePenalty, result.Penalties)
	require.NotEmpty(t, result.Notes)
	assert.Contains(t, result.Notes[0], "tight travel window around job j1")
	assert.Equal(t, 1, resolver.calls)
}

func TestCheckForConflictsInvalidStartTime(t *testing.T) {
	result := CheckForConflicts(models.Job{ID: "new"}, poolTech("t1"), testMonday, "whenever", nil, nil)

	assert.False(t, result.Available)
	require.NotEmpty(t, result.Notes)
	assert.Contains(t, result.Notes[0], "invalid start time")
}
