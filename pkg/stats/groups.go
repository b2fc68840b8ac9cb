package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Partition rules for stratified reporting. These are pure functions of the
// observed data so they can be tested without the frame or any plotting.

// quartile display labels, lowest first.
var quartileLabels = [4]string{"Q1", "Q2", "Q3", "Q4"}

// QuartileBreaks returns the 25/50/75 percent cut points of xs.
func QuartileBreaks(xs []float64) [3]float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return [3]float64{
		stat.Quantile(0.25, stat.Empirical, s, nil),
		stat.Quantile(0.50, stat.Empirical, s, nil),
		stat.Quantile(0.75, stat.Empirical, s, nil),
	}
}

// QuartileLabel buckets a value against precomputed breaks.
func QuartileLabel(x float64, breaks [3]float64) string {
	switch {
	case x <= breaks[0]:
		return quartileLabels[0]
	case x <= breaks[1]:
		return quartileLabels[1]
	case x <= breaks[2]:
		return quartileLabels[2]
	default:
		return quartileLabels[3]
	}
}

// QuartileGroups maps every value of xs to its quartile label.
func QuartileGroups(xs []float64) []string {
	breaks := QuartileBreaks(xs)
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = QuartileLabel(x, breaks)
	}
	return out
}

// OtherCategory is the bucket for everything outside the dominant category.
const OtherCategory = "Other"

// TopCategoryElseOther derives a two-level partition rule from a category
// count table: the most common category keeps its name, all others collapse
// to OtherCategory. Ties break toward the lexicographically smallest name so
// the rule is deterministic.
func TopCategoryElseOther(counts map[string]int) func(string) string {
	var top string
	var topN int
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > topN {
			top = name
			topN = counts[name]
		}
	}
	return func(category string) string {
		if category == top && top != "" {
			return top
		}
		return OtherCategory
	}
}

// CategoryCounts tallies a categorical vector.
func CategoryCounts(values []string) map[string]int {
	counts := make(map[string]int, 8)
	for _, v := range values {
		counts[v]++
	}
	return counts
}
