package artifact

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
)

// decodeWhiskers parses the whisker map. Each column is either an object
// with optional "upper" and "lower" keys or a list of at least two numbers
// read as [upper, lower]. Columns in any other shape are skipped with a
// warning and stay unclipped.
func decodeWhiskers(data []byte, log *zap.SugaredLogger) (map[string]Bounds, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode whisker map")
	}

	whiskers := make(map[string]Bounds, len(raw))
	for col, entry := range raw {
		b, ok := parseBounds(entry)
		if !ok {
			log.Warnw("Skipping whisker entry with unsupported shape", logger.FieldColumn, col)
			continue
		}
		if b.Lower > b.Upper {
			log.Warnw("Whisker lower bound exceeds upper bound",
				logger.FieldColumn, col,
				"lower", b.Lower,
				"upper", b.Upper)
		}
		whiskers[col] = b
	}
	return whiskers, nil
}

func parseBounds(entry any) (Bounds, bool) {
	b := Unbounded()
	switch v := entry.(type) {
	case map[string]any:
		var ok bool
		if b.Upper, ok = side(v["upper"], math.Inf(1)); !ok {
			return Bounds{}, false
		}
		if b.Lower, ok = side(v["lower"], math.Inf(-1)); !ok {
			return Bounds{}, false
		}
		return b, true
	case []any:
		if len(v) < 2 {
			return Bounds{}, false
		}
		upper, err := cast.ToFloat64E(v[0])
		if err != nil || v[0] == nil {
			return Bounds{}, false
		}
		lower, err := cast.ToFloat64E(v[1])
		if err != nil || v[1] == nil {
			return Bounds{}, false
		}
		return Bounds{Lower: lower, Upper: upper}, true
	default:
		return Bounds{}, false
	}
}

// side reads one bound; absent or null falls back to def.
func side(v any, def float64) (float64, bool) {
	if v == nil {
		return def, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
