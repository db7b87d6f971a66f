package allocator

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

func threeApplicants() []model.Applicant {
	return []model.Applicant{
		applicantWithScore("a3", "TKJ", 70),
		applicantWithScore("a1", "TKJ", 90),
		applicantWithScore("a2", "TKJ", 85),
	}
}

func statuses(entries []RankEntry) []model.Status {
	out := make([]model.Status, len(entries))
	for i, e := range entries {
		out[i] = e.EffectiveStatus
	}
	return out
}

func TestBuildRankings_QuotaCutoff(t *testing.T) {
	rankings, err := BuildRankings(threeApplicants(), quota.Set{"TKJ": 2})
	require.NoError(t, err)

	entries := rankings.Programs["TKJ"]
	require.Len(t, entries, 3)

	assert.Equal(t, "a1", entries[0].ApplicantID)
	assert.Equal(t, "a2", entries[1].ApplicantID)
	assert.Equal(t, "a3", entries[2].ApplicantID)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, model.StatusApproved, entries[0].QuotaStatus)
	assert.Equal(t, model.StatusApproved, entries[1].QuotaStatus)
	assert.Equal(t, model.StatusRejected, entries[2].QuotaStatus)
	assert.Equal(t, []model.Status{model.StatusApproved, model.StatusApproved, model.StatusRejected}, statuses(entries))
}

func TestBuildRankings_RaisingQuotaAdmitsNext(t *testing.T) {
	before, err := BuildRankings(threeApplicants(), quota.Set{"TKJ": 2})
	require.NoError(t, err)
	after, err := BuildRankings(threeApplicants(), quota.Set{"TKJ": 3})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, before.Programs["TKJ"][2].QuotaStatus)
	assert.Equal(t, model.StatusApproved, after.Programs["TKJ"][2].QuotaStatus)

	for i := 0; i < 2; i++ {
		assert.Equal(t, before.Programs["TKJ"][i].ApplicantID, after.Programs["TKJ"][i].ApplicantID)
		assert.Equal(t, before.Programs["TKJ"][i].Rank, after.Programs["TKJ"][i].Rank)
	}
}

func TestBuildRankings_TieBreakByApplicantID(t *testing.T) {
	applicants := []model.Applicant{
		applicantWithScore("c", "TKJ", 80),
		applicantWithScore("a", "TKJ", 80),
		applicantWithScore("b", "TKJ", 80),
	}

	rankings, err := BuildRankings(applicants, quota.Set{"TKJ": 1})
	require.NoError(t, err)

	entries := rankings.Programs["TKJ"]
	assert.Equal(t, "a", entries[0].ApplicantID)
	assert.Equal(t, "b", entries[1].ApplicantID)
	assert.Equal(t, "c", entries[2].ApplicantID)
	assert.Equal(t, model.StatusApproved, entries[0].QuotaStatus)
	assert.Equal(t, model.StatusRejected, entries[1].QuotaStatus)
}

func randomPool(r *rand.Rand, n int, programs []string) []model.Applicant {
	pool := make([]model.Applicant, n)
	for i := range pool {
		// Coarse scores force plenty of ties
		score := float64(r.Intn(20) * 5)
		pool[i] = applicantWithScore(fmt.Sprintf("app-%03d", i), programs[r.Intn(len(programs))], score)
	}
	return pool
}

func TestBuildRankings_DeterministicUnderShuffle(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	pool := randomPool(r, 200, []string{"AKL", "TKJ", "TSM"})
	quotas := quota.Set{"AKL": 10, "TKJ": 25, "TSM": 0}

	expected, err := BuildRankings(pool, quotas)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		shuffled := append([]model.Applicant(nil), pool...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := BuildRankings(shuffled, quotas)
		require.NoError(t, err)
		assert.Equal(t, expected.Programs, got.Programs)
	}
}

func TestBuildRankings_RankTotality(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pool := randomPool(r, 150, []string{"AKL", "TKJ"})

	rankings, err := BuildRankings(pool, quota.Set{"AKL": 30, "TKJ": 30})
	require.NoError(t, err)

	total := 0
	for program, entries := range rankings.Programs {
		seen := make(map[int]bool)
		for _, e := range entries {
			assert.False(t, seen[e.Rank], "duplicate rank %d in %s", e.Rank, program)
			seen[e.Rank] = true
		}
		for rank := 1; rank <= len(entries); rank++ {
			assert.True(t, seen[rank], "missing rank %d in %s", rank, program)
		}
		for i := 1; i < len(entries); i++ {
			assert.GreaterOrEqual(t, entries[i-1].Score, entries[i].Score)
		}
		total += len(entries)
	}
	assert.Equal(t, len(pool), total)
}

func TestBuildRankings_QuotaMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	pool := randomPool(r, 80, []string{"TKJ"})

	previousAccepted := map[string]bool{}
	previousCount := 0
	for seats := 0; seats <= 90; seats += 5 {
		rankings, err := BuildRankings(pool, quota.Set{"TKJ": seats})
		require.NoError(t, err)

		accepted := map[string]bool{}
		for _, e := range rankings.Programs["TKJ"] {
			if e.QuotaStatus == model.StatusApproved {
				accepted[e.ApplicantID] = true
			}
		}

		for id := range previousAccepted {
			assert.True(t, accepted[id], "applicant %s lost their seat when quota rose to %d", id, seats)
		}
		assert.GreaterOrEqual(t, len(accepted), previousCount)

		previousAccepted = accepted
		previousCount = len(accepted)
	}
}

func TestBuildRankings_EmptyPool(t *testing.T) {
	rankings, err := BuildRankings(nil, quota.Set{"AKL": 10, "TKJ": 5})
	require.NoError(t, err)

	require.Len(t, rankings.Programs, 2)
	assert.NotNil(t, rankings.Programs["AKL"])
	assert.Empty(t, rankings.Programs["AKL"])
	assert.Empty(t, rankings.Programs["TKJ"])
	assert.Empty(t, rankings.Unranked)
}

func TestBuildRankings_UnknownProgramReported(t *testing.T) {
	applicants := []model.Applicant{
		applicantWithScore("a1", "TKJ", 80),
		applicantWithScore("a2", "XYZ", 95),
		applicantWithScore("a3", "", 60),
	}

	rankings, err := BuildRankings(applicants, quota.Set{"TKJ": 5})
	require.NoError(t, err)

	assert.Len(t, rankings.Programs["TKJ"], 1)
	require.Len(t, rankings.Unranked, 2)
	assert.Equal(t, "a2", rankings.Unranked[0].ApplicantID)
	assert.Contains(t, rankings.Unranked[0].Reason, "XYZ")
	assert.Equal(t, "a3", rankings.Unranked[1].ApplicantID)
	assert.Equal(t, "no program chosen", rankings.Unranked[1].Reason)
}

func TestBuildRankings_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		applicants []model.Applicant
		quotas     quota.Set
		wantField  string
	}{
		{
			name:       "score out of range",
			applicants: []model.Applicant{applicantWithScore("a1", "TKJ", 101)},
			quotas:     quota.Set{"TKJ": 5},
			wantField:  "math",
		},
		{
			name:       "duplicate id",
			applicants: []model.Applicant{applicantWithScore("a1", "TKJ", 80), applicantWithScore("a1", "AKL", 70)},
			quotas:     quota.Set{"TKJ": 5, "AKL": 5},
			wantField:  "id",
		},
		{
			name:       "quota out of range",
			applicants: nil,
			quotas:     quota.Set{"TKJ": 201},
			wantField:  "quota",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankings, err := BuildRankings(tt.applicants, tt.quotas)
			assert.Nil(t, rankings)

			var validationErr *model.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestBuildRankings_DoesNotAliasQuotas(t *testing.T) {
	quotas := quota.Set{"TKJ": 2}
	rankings, err := BuildRankings(threeApplicants(), quotas)
	require.NoError(t, err)

	quotas["TKJ"] = 3
	assert.Equal(t, 2, rankings.Quotas["TKJ"])
}

func TestRankings_Entries(t *testing.T) {
	applicants := append(threeApplicants(), applicantWithScore("b1", "AKL", 50))
	rankings, err := BuildRankings(applicants, quota.Set{"TKJ": 2, "AKL": 1})
	require.NoError(t, err)

	entries := rankings.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "b1", entries[0].ApplicantID)
	assert.Equal(t, "a1", entries[1].ApplicantID)
	assert.Equal(t, "a3", entries[3].ApplicantID)
}
