package format

import (
	"sort"

	"github.com/jmylchreest/ytrewind/internal/catalog"
)

// Function transforms a list of representations, e.g. picking the best
// one. Functions are resolved by bare identifiers in expressions.
type Function func([]catalog.Representation) []catalog.Representation

// orderKey orders representations by quality. Video representations
// order on (height, frame rate); audio representations on sampling rate.
func orderKey(r catalog.Representation) [3]float64 {
	return [3]float64{float64(r.Height), float64(r.FrameRate), float64(r.AudioSamplingRate)}
}

func sortByQuality(items []catalog.Representation) []catalog.Representation {
	sorted := make([]catalog.Representation, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := orderKey(sorted[i]), orderKey(sorted[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return sorted
}

// best returns the highest-quality representation.
func best(items []catalog.Representation) []catalog.Representation {
	sorted := sortByQuality(items)
	return sorted[len(sorted)-1:]
}

// worst returns the lowest-quality representation.
func worst(items []catalog.Representation) []catalog.Representation {
	return sortByQuality(items)[:1]
}

// builtinFunctions is the default query function table.
var builtinFunctions = map[string]Function{
	"best":  best,
	"worst": worst,
}
