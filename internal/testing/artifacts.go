package testing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// CanonicalColumns are the nine numeric columns of the exoplanet fixture.
var CanonicalColumns = []string{"orbper", "trandep", "trandur", "rade", "insol", "eqt", "teff", "logg", "rad"}

// FixtureLabels are the label encoder classes of the exoplanet fixture.
var FixtureLabels = []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}

// Artifacts describes the files of an artifact directory. Each field is
// written as JSON, except strings and []byte which are written verbatim.
// A nil field is not written at all.
type Artifacts struct {
	Metadata any
	Imputer  any
	Whiskers any
	Model    any
	Labels   any

	// ModelFile is the classifier filename, "model.json" when empty.
	ModelFile string
}

// ExoplanetArtifacts returns a complete, consistent fixture: a multinomial
// logistic classifier over the canonical columns, a mean imputer, whiskers
// in both encodings and a label encoder.
//
// Scores: CANDIDATE = 0, CONFIRMED = 2 - rade, FALSE POSITIVE = 0.01*trandep - 1.
func ExoplanetArtifacts() Artifacts {
	return Artifacts{
		Metadata: map[string]any{
			"feature_map": map[string][]string{
				"orbper":  {"Orbital_Period", "koi_period"},
				"trandep": {"Transit_Depth", "koi_depth"},
				"trandur": {"Transit_Duration", "koi_duration"},
				"rade":    {"Planet_Radius", "koi_prad"},
				"insol":   {"Insolation", "koi_insol"},
				"eqt":     {"Equilibrium_Temperature", "koi_teq"},
				"teff":    {"Stellar_Temperature", "koi_steff"},
				"logg":    {"Stellar_Gravity", "koi_slogg"},
				"rad":     {"Stellar_Radius", "koi_srad"},
			},
			"numeric_cols": CanonicalColumns,
		},
		Imputer: map[string]any{
			"strategy":      "mean",
			"statistics":    []float64{10, 500, 3, 2, 100, 800, 5500, 4.4, 1},
			"feature_names": CanonicalColumns,
		},
		Whiskers: map[string]any{
			"orbper":  map[string]any{"upper": 400, "lower": 0.2},
			"trandep": []float64{20000, 5},
			"rade":    map[string]any{"upper": 30},
			"insol":   map[string]any{"upper": 5000, "lower": nil},
			"teff":    map[string]any{"upper": 10000, "lower": 2500},
		},
		Model: map[string]any{
			"kind":       "logistic_regression",
			"n_features": 9,
			"classes":    []int{0, 1, 2},
			"coef": [][]float64{
				{0, 0, 0, 0, 0, 0, 0, 0, 0},
				{0, 0, 0, -1, 0, 0, 0, 0, 0},
				{0, 0.01, 0, 0, 0, 0, 0, 0, 0},
			},
			"intercept": []float64{0, 2, -1},
		},
		Labels: map[string]any{"classes": FixtureLabels},
	}
}

// WriteArtifacts writes a into a fresh temporary directory and returns it.
func WriteArtifacts(t testing.TB, a Artifacts) string {
	t.Helper()

	dir := t.TempDir()
	modelFile := a.ModelFile
	if modelFile == "" {
		modelFile = "model.json"
	}

	files := []struct {
		name    string
		content any
	}{
		{"metadata.json", a.Metadata},
		{"imputer.json", a.Imputer},
		{"whisker_map.json", a.Whiskers},
		{modelFile, a.Model},
		{"label_encoder.json", a.Labels},
	}
	for _, f := range files {
		if f.content != nil {
			WriteFile(t, filepath.Join(dir, f.name), f.content)
		}
	}
	return dir
}

// WriteFile writes content to path, JSON-encoding anything that is not a
// string or []byte.
func WriteFile(t testing.TB, path string, content any) {
	t.Helper()

	var data []byte
	switch v := content.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("Failed to encode %s: %v", filepath.Base(path), err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
