package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtilization(t *testing.T) {
	u := Utilization(9, 36)
	require.NotNil(t, u)
	assert.InDelta(t, 0.25, *u, 1e-9)

	assert.Nil(t, Utilization(0, 0), "utilization is undefined for a closed program")
}

func TestOversubscribed(t *testing.T) {
	assert.True(t, Oversubscribed(37, 36))
	assert.False(t, Oversubscribed(36, 36))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name        string
		demand      Demand
		expectRec   bool
		recommended int
		direction   Direction
		priority    Priority
	}{
		{"heavily oversubscribed", Demand{Program: "TKJ", Quota: 10, Applicants: 16, Accepted: 10}, true, 15, DirectionIncrease, PriorityHigh},
		{"moderately oversubscribed", Demand{Program: "TKJ", Quota: 10, Applicants: 15, Accepted: 10}, true, 12, DirectionIncrease, PriorityMedium},
		{"moderate rounds up", Demand{Program: "TKJ", Quota: 36, Applicants: 40, Accepted: 36}, true, 44, DirectionIncrease, PriorityMedium},
		{"very low utilization", Demand{Program: "TKJ", Quota: 40, Applicants: 6, Accepted: 6}, true, 6, DirectionDecrease, PriorityMedium},
		{"low utilization", Demand{Program: "TKJ", Quota: 40, Applicants: 15, Accepted: 15}, true, 32, DirectionDecrease, PriorityLow},
		{"healthy", Demand{Program: "TKJ", Quota: 40, Applicants: 30, Accepted: 30}, false, 0, "", ""},
		{"closed with demand", Demand{Program: "TKJ", Quota: 0, Applicants: 5}, true, 5, DirectionIncrease, PriorityHigh},
		{"closed without demand", Demand{Program: "TKJ", Quota: 0, Applicants: 0}, false, 0, "", ""},
		{"at ceiling", Demand{Program: "TKJ", Quota: 200, Applicants: 400, Accepted: 200}, false, 0, "", ""},
		{"empty program", Demand{Program: "TKJ", Quota: 36, Applicants: 0}, true, 1, DirectionDecrease, PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Recommend([]Demand{tt.demand})
			if !tt.expectRec {
				assert.Empty(t, recs)
				return
			}
			require.Len(t, recs, 1)
			assert.Equal(t, tt.recommended, recs[0].RecommendedQuota)
			assert.Equal(t, tt.direction, recs[0].Direction)
			assert.Equal(t, tt.priority, recs[0].Priority)
			assert.Equal(t, tt.demand.Quota, recs[0].CurrentQuota)
			assert.NotEmpty(t, recs[0].Reason)
		})
	}
}

func TestRecommend_SortedByPriorityThenProgram(t *testing.T) {
	recs := Recommend([]Demand{
		{Program: "TSM", Quota: 40, Applicants: 15, Accepted: 15}, // low
		{Program: "TKJ", Quota: 10, Applicants: 16, Accepted: 10}, // high
		{Program: "AKL", Quota: 40, Applicants: 6, Accepted: 6},   // medium
		{Program: "AAA", Quota: 10, Applicants: 20, Accepted: 10}, // high
	})

	require.Len(t, recs, 4)
	assert.Equal(t, "AAA", recs[0].Program)
	assert.Equal(t, "TKJ", recs[1].Program)
	assert.Equal(t, "AKL", recs[2].Program)
	assert.Equal(t, "TSM", recs[3].Program)
}

func TestRecommend_NeverEmptyNil(t *testing.T) {
	recs := Recommend(nil)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}
