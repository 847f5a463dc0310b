package plot

import (
	"math"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

// niceStep returns the 1-2-5 step closest above span/targetCount
func niceStep(span float64, targetCount int) float64 {
	if span <= 0 || targetCount < 1 {
		return 1
	}

	rough := span / float64(targetCount)
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))

	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

// ticks returns the multiples of step within [lo, hi]
func ticks(lo, hi, step float64) []float64 {
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}

// dbRange returns the grid aligned range covering every finite trace value
func dbRange(traces []touchstone.Trace, step float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, t := range traces {
		if tlo, thi, ok := t.Range(); ok {
			lo = min(lo, tlo)
			hi = max(hi, thi)
		}
	}

	if math.IsInf(lo, 0) {
		return -step, 0
	}

	lo = math.Floor(lo/step) * step
	hi = math.Ceil(hi/step) * step
	if lo == hi {
		hi += step
	}
	return lo, hi
}
