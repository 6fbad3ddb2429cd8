package artifact

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/record"
)

// metadata is the column descriptor written alongside the fitted estimators.
type metadata struct {
	// FeatureMap keeps document order so alias collisions resolve the same
	// way on every load.
	FeatureMap        json.RawMessage `json:"feature_map"`
	NumericCols       []string        `json:"numeric_cols"`
	ModelFeatureOrder []string        `json:"model_feature_order"`
}

func decodeMetadata(data []byte) (*metadata, error) {
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.InvalidMetadataf("malformed metadata: %v", err)
	}
	if meta.NumericCols == nil {
		return nil, errors.WithHint(
			errors.InvalidMetadataf("metadata has no numeric_cols"),
			"add a numeric_cols array listing the numeric feature columns")
	}
	if len(meta.NumericCols) == 0 {
		return nil, errors.InvalidMetadataf("numeric_cols is empty")
	}
	seen := make(map[string]bool, len(meta.NumericCols))
	for _, col := range meta.NumericCols {
		if seen[col] {
			return nil, errors.InvalidMetadataf("numeric_cols lists %q twice", col)
		}
		seen[col] = true
	}
	return &meta, nil
}

// featureMap decodes feature_map into canonical -> aliases and builds the
// inverted alias index. When one alias is listed under two canonical
// columns the later one in document order wins and a warning is logged.
func (m *metadata) featureMap(log *zap.SugaredLogger) (map[string][]string, map[string]string, error) {
	features := make(map[string][]string)
	aliases := make(map[string]string)
	if len(m.FeatureMap) == 0 || string(m.FeatureMap) == "null" {
		return features, aliases, nil
	}

	var ordered record.Row
	if err := json.Unmarshal(m.FeatureMap, &ordered); err != nil {
		return nil, nil, errors.InvalidMetadataf("feature_map must be an object: %v", err)
	}

	for _, canonical := range ordered.Keys() {
		raw, _ := ordered.Get(canonical)
		list, ok := raw.([]any)
		if !ok && raw != nil {
			return nil, nil, errors.InvalidMetadataf("feature_map[%q] must be an array of aliases", canonical)
		}

		names := make([]string, 0, len(list))
		for _, item := range list {
			alias, ok := item.(string)
			if !ok {
				return nil, nil, errors.InvalidMetadataf("feature_map[%q] has a non-string alias", canonical)
			}
			if previous, taken := aliases[alias]; taken && previous != canonical {
				log.Warnw("Alias listed under two canonical columns, keeping the later one",
					"alias", alias,
					"dropped", previous,
					"kept", canonical)
			}
			aliases[alias] = canonical
			names = append(names, alias)
		}
		features[canonical] = names
	}
	return features, aliases, nil
}
