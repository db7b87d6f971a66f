package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

func TestSimulate_ThreeTierSplit(t *testing.T) {
	result, err := Simulate(threeApplicants(), quota.Set{"TKJ": 1}, quota.DefaultReservePercent)
	require.NoError(t, err)

	sim := result.Programs["TKJ"]
	assert.Equal(t, 1, sim.Reserve)
	require.Len(t, sim.Entries, 3)
	assert.Equal(t, model.StatusApproved, sim.Entries[0].Status)
	assert.Equal(t, "a1", sim.Entries[0].ApplicantID)
	assert.Equal(t, model.StatusWaitlisted, sim.Entries[1].Status)
	assert.Equal(t, "a2", sim.Entries[1].ApplicantID)
	assert.Equal(t, model.StatusRejected, sim.Entries[2].Status)

	assert.Equal(t, 1, sim.Accepted)
	assert.Equal(t, 1, sim.Waitlisted)
	assert.Equal(t, 1, sim.Rejected)
	assert.Equal(t, 90.0, sim.CutoffScore)
	assert.Equal(t, 85.0, sim.WaitlistCutoffScore)
}

func TestSimulate_Summary(t *testing.T) {
	applicants := append(threeApplicants(), applicantWithScore("b1", "AKL", 50))

	result, err := Simulate(applicants, quota.Set{"TKJ": 2, "AKL": 2}, 10)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Summary.Applicants)
	assert.Equal(t, 3, result.Summary.Accepted)
	assert.Equal(t, 1, result.Summary.Waitlisted)
	assert.Equal(t, 0, result.Summary.Rejected)
	assert.Equal(t, 4, result.Summary.TotalQuota)
	assert.Equal(t, 75.0, result.Summary.Utilization)
}

func TestSimulate_ZeroQuota(t *testing.T) {
	result, err := Simulate(threeApplicants(), quota.Set{"TKJ": 0}, 10)
	require.NoError(t, err)

	sim := result.Programs["TKJ"]
	assert.Equal(t, 0, sim.Reserve)
	assert.Equal(t, 3, sim.Rejected)
	assert.Equal(t, 0.0, sim.CutoffScore)
	assert.Equal(t, 0.0, result.Summary.Utilization)
}

func TestSimulate_IgnoresPersistedStatusAndDoesNotMutate(t *testing.T) {
	applicants := threeApplicants()
	applicants[0].PersistedStatus = model.StatusApproved
	original := append([]model.Applicant(nil), applicants...)
	quotas := quota.Set{"TKJ": 1}

	first, err := Simulate(applicants, quotas, 10)
	require.NoError(t, err)
	second, err := Simulate(applicants, quotas, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, original, applicants)
	assert.Equal(t, quota.Set{"TKJ": 1}, quotas)
	assert.Equal(t, model.StatusRejected, first.Programs["TKJ"].Entries[2].Status)
}

func TestSimulate_ValidationError(t *testing.T) {
	_, err := Simulate(nil, quota.Set{"TKJ": -4}, 10)
	assert.Error(t, err)
}
