package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	sp, lp, mp, kp := writeTestInputs(t)
	ds, err := LoadDataset(sp, lp, mp, kp)
	require.NoError(t, err)

	f, err := NewFrame(ds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFrameDescribeByGender(t *testing.T) {
	f := testFrame(t)

	desc, err := f.Describe("gender")
	require.NoError(t, err)
	require.Len(t, desc, 2)

	assert.Equal(t, "female", desc[0].Group)
	assert.Equal(t, 2, desc[0].N)
	assert.InDelta(t, 63, desc[0].MeanAge, 1e-9)

	assert.Equal(t, "male", desc[1].Group)
	assert.Equal(t, 1, desc[1].N)

	// Row 2's critical_care label is missing and must not count.
	assert.InDelta(t, 1.0, desc[0].Prevalence["critical_care"], 1e-9)
	assert.InDelta(t, 0.5, desc[0].Prevalence["admitted"], 1e-9)
}

func TestFrameDescribeByPriority(t *testing.T) {
	f := testFrame(t)

	desc, err := f.Describe("priority")
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, 2, desc[0].N)
	assert.Equal(t, 1, desc[1].N)
}

func TestFrameDescribeRejectsUnknownColumn(t *testing.T) {
	f := testFrame(t)

	_, err := f.Describe("age; DROP TABLE encounter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported grouping column")
}

func TestFrameCallTypeCounts(t *testing.T) {
	f := testFrame(t)

	counts, err := f.CallTypeCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"chest pain": 1, "breathing": 1, "trauma": 1}, counts)
}

func TestFramePredictorSummaries(t *testing.T) {
	f := testFrame(t)

	sums, err := f.PredictorSummaries()
	require.NoError(t, err)
	// score plus three sub-models
	require.Len(t, sums, 4)

	byName := make(map[string]PredictorSummary, len(sums))
	for _, s := range sums {
		byName[s.Name] = s
	}
	score := byName[PredictorScore]
	assert.InDelta(t, (0.8+0.3+0.6)/3, score.Mean, 1e-9)
	assert.InDelta(t, 0.3, score.Min, 1e-9)
	assert.InDelta(t, 0.8, score.Max, 1e-9)
}
