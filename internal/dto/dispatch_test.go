package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalTechIDs(t *testing.T) {
	assigned := "t2"
	legacy := "t3"
	payload := JobPayload{
		AssignedTechIDs:     []string{"t1", "t2"},
		AssignedTo:          &assigned,
		TechnicianID:        &legacy,
		AssignedTechnicians: []string{"t1", "t4", ""},
	}

	// Canonical field wins; legacy spellings merge in without duplicates.
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, payload.CanonicalTechIDs())
}

func TestCanonicalTechIDsEmpty(t *testing.T) {
	assert.Empty(t, JobPayload{}.CanonicalTechIDs())

	empty := ""
	assert.Empty(t, JobPayload{AssignedTo: &empty}.CanonicalTechIDs())
}
