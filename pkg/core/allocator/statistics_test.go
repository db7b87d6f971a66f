package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

func TestAggregate(t *testing.T) {
	applicants := append(threeApplicants(),
		applicantWithScore("b1", "AKL", 60),
		applicantWithScore("b2", "AKL", 40),
	)
	applicants[0].PersistedStatus = model.StatusWaitlisted // a3

	rankings, err := BuildRankings(applicants, quota.Set{"TKJ": 2, "AKL": 4, "TSM": 0})
	require.NoError(t, err)
	ReconcileRankings(rankings)

	perProgram, overall := Aggregate(rankings)
	require.Len(t, perProgram, 3)

	tkj := perProgram["TKJ"]
	assert.Equal(t, 3, tkj.Applicants)
	assert.Equal(t, 2, tkj.Accepted)
	assert.Equal(t, 1, tkj.Waitlisted)
	assert.Equal(t, 0, tkj.Rejected)
	assert.Equal(t, 90.0, tkj.HighestScore)
	assert.Equal(t, 85.0, tkj.LowestAcceptedScore)
	require.NotNil(t, tkj.CompetitionRatio)
	assert.InDelta(t, 1.5, *tkj.CompetitionRatio, 1e-9)
	require.NotNil(t, tkj.Utilization)
	assert.InDelta(t, 1.0, *tkj.Utilization, 1e-9)
	assert.Equal(t, 1, tkj.Inconsistent)

	akl := perProgram["AKL"]
	assert.Equal(t, 2, akl.Accepted)
	assert.Equal(t, 40.0, akl.LowestAcceptedScore)
	assert.InDelta(t, 0.5, *akl.CompetitionRatio, 1e-9)

	tsm := perProgram["TSM"]
	assert.Equal(t, 0, tsm.Applicants)
	assert.Nil(t, tsm.CompetitionRatio, "ratio is undefined when quota is 0")
	assert.Nil(t, tsm.Utilization)
	assert.Equal(t, 0.0, tsm.LowestAcceptedScore)

	assert.Equal(t, 3, overall.Programs)
	assert.Equal(t, 5, overall.Applicants)
	assert.Equal(t, 4, overall.Accepted)
	assert.Equal(t, 1, overall.Waitlisted)
	assert.Equal(t, 6, overall.TotalQuota)
	assert.Equal(t, 1, overall.Inconsistent)
	assert.Equal(t, 90.0, overall.HighestScore)
	assert.Equal(t, 40.0, overall.LowestScore)
	assert.Equal(t, 69.0, overall.AverageScore)
}

func TestAggregate_NobodyAccepted(t *testing.T) {
	rankings, err := BuildRankings(threeApplicants(), quota.Set{"TKJ": 0})
	require.NoError(t, err)

	perProgram, overall := Aggregate(rankings)

	assert.Equal(t, 0, perProgram["TKJ"].Accepted)
	assert.Equal(t, 3, perProgram["TKJ"].Rejected)
	assert.Equal(t, 0.0, perProgram["TKJ"].LowestAcceptedScore)
	assert.Nil(t, perProgram["TKJ"].CompetitionRatio)
	assert.Equal(t, 3, overall.Rejected)
}

func TestAggregate_EmptyRankings(t *testing.T) {
	rankings, err := BuildRankings(nil, quota.Set{"TKJ": 10})
	require.NoError(t, err)

	perProgram, overall := Aggregate(rankings)
	assert.Equal(t, 0, perProgram["TKJ"].Applicants)
	assert.Equal(t, 0.0, overall.AverageScore)
	assert.Equal(t, 0.0, overall.HighestScore)
	assert.Equal(t, 0.0, overall.LowestScore)
}

func TestAggregate_CountsUnranked(t *testing.T) {
	applicants := []model.Applicant{applicantWithScore("x", "XYZ", 50)}
	rankings, err := BuildRankings(applicants, quota.Set{"TKJ": 10})
	require.NoError(t, err)

	_, overall := Aggregate(rankings)
	assert.Equal(t, 1, overall.Unranked)
	assert.Equal(t, 0, overall.Applicants)
}
