package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admit = []float64{0.1, 0.5, 0.9}
	crit  = []float64{0.2, 0.3, 0.4}
	mort  = []float64{0.05, 0.1, 0.8}
)

func TestCombineSingleWeightReducesToSubModel(t *testing.T) {
	for _, mode := range []CombineMode{CombineMean, CombineMin} {
		out, err := Combine(mode, []float64{1, 0, 0}, admit, crit, mort)
		require.NoError(t, err, "mode %s", mode)
		assert.Equal(t, admit, out, "mode %s", mode)
	}
}

func TestCombineWeightedMean(t *testing.T) {
	out, err := Combine(CombineMean, []float64{2, 1, 1}, admit, crit, mort)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.InDelta(t, (2*0.1+0.2+0.05)/4, out[0], 1e-12)
	assert.InDelta(t, (2*0.5+0.3+0.1)/4, out[1], 1e-12)
	assert.InDelta(t, (2*0.9+0.4+0.8)/4, out[2], 1e-12)
}

func TestCombineWeightedMin(t *testing.T) {
	out, err := Combine(CombineMin, []float64{1, 1, 1}, admit, crit, mort)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.1, 0.4}, out)

	// Zero weight suppresses a sub-model from the minimum.
	out, err = Combine(CombineMin, []float64{1, 1, 0}, admit, crit, mort)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.4}, out)
}

func TestCombineRejectsBadWeights(t *testing.T) {
	_, err := Combine(CombineMean, []float64{0, 0, 0}, admit, crit, mort)
	assert.ErrorIs(t, err, ErrZeroWeights)

	_, err = Combine(CombineMin, []float64{0, 0, 0}, admit, crit, mort)
	assert.ErrorIs(t, err, ErrZeroWeights)

	_, err = Combine(CombineMean, []float64{1, 1}, admit, crit, mort)
	assert.ErrorIs(t, err, ErrWeightMismatch)

	_, err = Combine(CombineMean, []float64{1, -1, 0}, admit, crit, mort)
	assert.ErrorIs(t, err, ErrNegativeWeight)

	_, err = Combine(CombineMean, nil)
	assert.ErrorIs(t, err, ErrWeightMismatch)
}

func TestCombineRejectsRaggedInputs(t *testing.T) {
	_, err := Combine(CombineMean, []float64{1, 1}, admit, []float64{0.5})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCombineUnknownMode(t *testing.T) {
	_, err := Combine(CombineMode("max"), []float64{1}, admit)
	assert.Error(t, err)
}

func TestParseCombineMode(t *testing.T) {
	m, err := ParseCombineMode("mean")
	require.NoError(t, err)
	assert.Equal(t, CombineMean, m)

	m, err = ParseCombineMode("min")
	require.NoError(t, err)
	assert.Equal(t, CombineMin, m)

	_, err = ParseCombineMode("median")
	assert.Error(t, err)
}
