package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeStatusProtectsApprovedLeave(t *testing.T) {
	assert.Equal(t, StatusOnLeave, MergeStatus(StatusOnLeave, StatusAbsent))
}

func TestMergeStatusLetsIncomingWinOtherwise(t *testing.T) {
	cases := []struct {
		existing, incoming, want AttendanceStatus
	}{
		{StatusOnLeave, StatusPresent, StatusPresent},
		{StatusAbsent, StatusPresent, StatusPresent},
		{StatusPresent, StatusAbsent, StatusAbsent},
		{StatusHalfDay, StatusPresent, StatusPresent},
		{StatusAbsent, StatusOnLeave, StatusOnLeave},
		{StatusOnLeave, StatusOnLeave, StatusOnLeave},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MergeStatus(tc.existing, tc.incoming), "merge(%s, %s)", tc.existing, tc.incoming)
	}
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, StatusPresent.Valid())
	assert.True(t, StatusHalfDay.Valid())
	assert.False(t, AttendanceStatus("Late").Valid())
}
