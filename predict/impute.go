package predict

import (
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
)

// imputeAndClip fills nulls with the fitted imputer, then clamps every
// column that has whisker bounds. After it returns the numeric table holds
// no NaN.
func imputeAndClip(b *artifact.Bundle, f *frame) error {
	imputed, err := b.Imputer.Transform(f.numeric)
	if err != nil {
		return errors.Wrap(err, "impute")
	}
	inRows, inCols := f.numeric.Dims()
	outRows, outCols := imputed.Dims()
	if inRows != outRows || inCols != outCols {
		return errors.Mismatchf("imputer returned %dx%d for %dx%d input", outRows, outCols, inRows, inCols)
	}

	for j, col := range f.columns {
		bounds, ok := b.Whiskers[col]
		if !ok {
			continue
		}
		for i := 0; i < outRows; i++ {
			imputed.Set(i, j, bounds.Clip(imputed.At(i, j)))
		}
	}

	f.numeric = imputed
	return nil
}
