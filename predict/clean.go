package predict

import "math"

// cleaningRule rewrites one physically impossible value.
type cleaningRule func(v float64) float64

// Fluxes and temperatures clamp negatives to zero; periods, depths,
// durations and radii treat them as missing so the imputer fills them.
// Columns not listed (logg included) are left alone.
var cleaningRules = map[string]cleaningRule{
	"insol": negativeToZero,
	"eqt":   negativeToZero,
	"teff":  negativeToZero,

	"orbper":  negativeToNull,
	"trandep": negativeToNull,
	"trandur": negativeToNull,
	"rade":    negativeToNull,
	"rad":     negativeToNull,
}

func negativeToZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func negativeToNull(v float64) float64 {
	if v < 0 {
		return math.NaN()
	}
	return v
}

// clean applies the rule of every numeric column that has one. It runs
// before imputation, so nulls it introduces are imputed.
func clean(f *frame) {
	rows, _ := f.numeric.Dims()
	for j, col := range f.columns {
		rule, ok := cleaningRules[col]
		if !ok {
			continue
		}
		for i := 0; i < rows; i++ {
			f.numeric.Set(i, j, rule(f.numeric.At(i, j)))
		}
	}
}
