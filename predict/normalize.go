package predict

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/record"
)

// frame is the working table of one Predict call.
type frame struct {
	// raw holds the rows as received; batch output echoes them.
	raw []record.Row
	// rows holds the same fields renamed to canonical names.
	rows []record.Row

	columns []string       // numeric columns, in bundle order
	index   map[string]int // column -> position in columns
	numeric *mat.Dense     // len(rows) × len(columns), NaN for null

	unparseable int
}

// normalize renames aliased fields, synthesizes missing numeric columns as
// null and coerces present ones to float64. Values that do not parse become
// null; they are counted, never returned as errors.
func normalize(b *artifact.Bundle, rows []record.Row, log *zap.SugaredLogger) *frame {
	f := &frame{
		raw:     rows,
		rows:    make([]record.Row, len(rows)),
		columns: b.NumericColumns,
		index:   make(map[string]int, len(b.NumericColumns)),
		numeric: mat.NewDense(len(rows), len(b.NumericColumns), nil),
	}
	for j, col := range f.columns {
		f.index[col] = j
	}

	for i, row := range rows {
		var renamed record.Row
		for _, key := range row.Keys() {
			value, _ := row.Get(key)
			name := key
			if canonical, ok := b.Canonical(key); ok {
				name = canonical
			}
			// Two spellings of one column: the later key wins.
			renamed.Set(name, value)
		}
		f.rows[i] = renamed

		for j, col := range f.columns {
			value, ok := renamed.Get(col)
			if !ok {
				f.numeric.Set(i, j, math.NaN())
				continue
			}
			v, err := coerce(value)
			if err != nil {
				f.unparseable++
				log.Debugw("Unparseable value treated as null",
					logger.FieldColumn, col,
					"row", i,
					logger.FieldError, err)
			}
			f.numeric.Set(i, j, v)
		}
	}
	return f
}

// coerce converts a raw field value to float64. Null and blank strings are
// NaN without error; anything else that does not parse is NaN with an
// ErrUnparseableValue error.
func coerce(value any) (float64, error) {
	if value == nil {
		return math.NaN(), nil
	}
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return math.NaN(), nil
		}
		value = s
	}
	if v, ok := outOfRange(value); ok {
		return v, nil
	}
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return math.NaN(), errors.Wrapf(errors.ErrUnparseableValue, "%v", value)
	}
	return v, nil
}

// outOfRange reports the ±Inf a numeric literal overflows to. Such literals
// are well-formed numbers, so whisker clipping handles them instead of the
// imputer.
func outOfRange(value any) (float64, bool) {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) && math.IsInf(f, 0) {
		return f, true
	}
	return 0, false
}
