package artifact

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/errors"
	exotest "github.com/teranos/exopredict/internal/testing"
	"github.com/teranos/exopredict/model"
)

func observedOptions() (Options, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts := DefaultOptions()
	opts.Logger = zap.New(core).Sugar()
	return opts, logs
}

func TestLoadExoplanetBundle(t *testing.T) {
	dir := exotest.WriteArtifacts(t, exotest.ExoplanetArtifacts())
	opts, logs := observedOptions()

	b, err := Load(dir, opts)
	require.NoError(t, err)

	assert.Equal(t, exotest.CanonicalColumns, b.NumericColumns)
	assert.Equal(t, exotest.CanonicalColumns, b.FeatureOrder())
	assert.Equal(t, model.KindLogisticRegression, b.Classifier.Kind())
	assert.NotNil(t, b.Proba)
	require.NotNil(t, b.Labels)
	assert.Equal(t, exotest.FixtureLabels, b.Labels.Classes())
	assert.Equal(t, filepath.Join(dir, "model.json"), b.ClassifierFile)

	canonical, ok := b.Canonical("Orbital_Period")
	assert.True(t, ok)
	assert.Equal(t, "orbper", canonical)
	assert.ElementsMatch(t, []string{"Orbital_Period", "koi_period"}, b.FeatureMap["orbper"])

	assert.Equal(t, Bounds{Lower: 0.2, Upper: 400}, b.Whiskers["orbper"])
	assert.Equal(t, Bounds{Lower: 5, Upper: 20000}, b.Whiskers["trandep"], "list form is [upper, lower]")
	assert.True(t, math.IsInf(b.Whiskers["rade"].Lower, -1))
	assert.True(t, math.IsInf(b.Whiskers["insol"].Lower, -1), "null lower is unbounded")
	_, clipped := b.Whiskers["logg"]
	assert.False(t, clipped)

	assert.Equal(t, 1, logs.FilterMessage("Artifact bundle loaded").Len())
}

func TestLoadMissingArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*exotest.Artifacts)
	}{
		{"metadata", func(a *exotest.Artifacts) { a.Metadata = nil }},
		{"imputer", func(a *exotest.Artifacts) { a.Imputer = nil }},
		{"whiskers", func(a *exotest.Artifacts) { a.Whiskers = nil }},
		{"classifier", func(a *exotest.Artifacts) { a.Model = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := exotest.ExoplanetArtifacts()
			tt.mutate(&a)
			dir := exotest.WriteArtifacts(t, a)

			_, err := Load(dir, DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMissingArtifact), "got %v", err)
			assert.True(t, errors.IsLoadError(err))
			assert.NotEmpty(t, errors.FlattenHints(err))
		})
	}
}

func TestLoadWithoutLabelEncoder(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Labels = nil
	dir := exotest.WriteArtifacts(t, a)

	b, err := Load(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, b.Labels)
}

func TestLoadInvalidMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata any
	}{
		{"numeric_cols missing", map[string]any{"feature_map": map[string]any{}}},
		{"numeric_cols null", `{"numeric_cols": null}`},
		{"numeric_cols empty", `{"numeric_cols": []}`},
		{"duplicate column", `{"numeric_cols": ["orbper", "orbper"]}`},
		{"malformed", `{"numeric_cols": [`},
		{"feature_map not object", `{"numeric_cols": ["orbper"], "feature_map": ["orbper"]}`},
		{"alias not string", `{"numeric_cols": ["orbper"], "feature_map": {"orbper": [1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := exotest.ExoplanetArtifacts()
			a.Metadata = tt.metadata
			dir := exotest.WriteArtifacts(t, a)

			_, err := Load(dir, DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidMetadata), "got %v", err)
		})
	}
}

func TestLoadImputerFeatureMismatch(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Imputer = map[string]any{
		"statistics":    []float64{1, 2},
		"feature_names": []string{"orbper", "koi_depth"},
	}
	dir := exotest.WriteArtifacts(t, a)

	_, err := Load(dir, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsArtifactMismatch(err))
}

func TestLoadAliasCollisionLastWriteWins(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Metadata = `{
		"feature_map": {"rade": ["radius"], "rad": ["radius"]},
		"numeric_cols": ["rade", "rad"]
	}`
	a.Imputer = map[string]any{"statistics": []float64{1, 1}}
	dir := exotest.WriteArtifacts(t, a)
	opts, logs := observedOptions()

	b, err := Load(dir, opts)
	require.NoError(t, err)

	canonical, _ := b.Canonical("radius")
	assert.Equal(t, "rad", canonical)
	assert.Equal(t, 1, logs.FilterMessage("Alias listed under two canonical columns, keeping the later one").Len())
}

func TestLoadYAMLClassifierCandidate(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.ModelFile = "model.yaml"
	a.Metadata = map[string]any{"numeric_cols": []string{"orbper"}}
	a.Imputer = map[string]any{"statistics": []float64{10}}
	a.Model = `
kind: linear_svc
classes: [0, 1]
coef: [[1.0]]
intercept: [-5.0]
`
	dir := exotest.WriteArtifacts(t, a)

	b, err := Load(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.KindLinearSVC, b.Classifier.Kind())
	assert.Nil(t, b.Proba, "linear SVC has no probability capability")
	assert.Equal(t, filepath.Join(dir, "model.yaml"), b.ClassifierFile)
}

func TestLoadUndecodableClassifier(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Model = `{"kind": "gradient_boosting"}`
	dir := exotest.WriteArtifacts(t, a)

	_, err := Load(dir, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gradient_boosting")
	assert.False(t, errors.Is(err, errors.ErrMissingArtifact))
}

func TestLoadCustomFilenames(t *testing.T) {
	dir := exotest.WriteArtifacts(t, exotest.ExoplanetArtifacts())
	exotest.WriteFile(t, filepath.Join(dir, "meta_v2.json"), `{"numeric_cols": ["orbper"]}`)
	exotest.WriteFile(t, filepath.Join(dir, "imp_v2.json"), `{"statistics": [3]}`)

	opts := OptionsFromConfig(am.ArtifactsConfig{
		MetadataFile: "meta_v2.json",
		ImputerFile:  "imp_v2.json",
	})
	b, err := Load(dir, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"orbper"}, b.NumericColumns)
	assert.Equal(t, "whisker_map.json", opts.WhiskerFile, "unset names keep defaults")
}

func TestBoundsClip(t *testing.T) {
	b := Bounds{Lower: 1, Upper: 10}
	tests := []struct {
		in, want float64
	}{
		{-3, 1},
		{5, 5},
		{42, 10},
		{10, 10},
	}
	for _, tt := range tests {
		got := b.Clip(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, b.Clip(got), "clipping is idempotent")
	}
	assert.True(t, math.IsNaN(b.Clip(math.NaN())))
	assert.Equal(t, 1e300, Unbounded().Clip(1e300))
}

func TestBoundsClipInverted(t *testing.T) {
	b := Bounds{Lower: 5, Upper: 1}
	assert.Equal(t, 1.0, b.Clip(10), "above upper only")
	assert.Equal(t, 5.0, b.Clip(0), "below lower only")
	assert.Equal(t, 5.0, b.Clip(3), "both sides match, lower applied last")
}

func TestDecodeWhiskersSkipsUnsupportedShapes(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	whiskers, err := decodeWhiskers([]byte(`{
		"a": [3],
		"b": "wide",
		"c": {"upper": "high"},
		"d": [9, 1, 0],
		"e": {"upper": "7.5"}
	}`), zap.New(core).Sugar())
	require.NoError(t, err)

	assert.Equal(t, map[string]Bounds{
		"d": {Lower: 1, Upper: 9},
		"e": {Lower: math.Inf(-1), Upper: 7.5},
	}, whiskers)
	assert.Equal(t, 3, logs.Len())
}

func TestLabelDecoder(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"array", `["CANDIDATE", "CONFIRMED"]`, []string{"CANDIDATE", "CONFIRMED"}},
		{"object", `{"classes": ["a", "b", "c"]}`, []string{"a", "b", "c"}},
		{"numeric names", `[0, 1.5]`, []string{"0", "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := DecodeLabelEncoder([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, dec.Classes())
		})
	}

	for _, bad := range []string{`"CONFIRMED"`, `{"labels": []}`, `[null]`, `[[1]]`} {
		_, err := DecodeLabelEncoder([]byte(bad))
		assert.Error(t, err, bad)
	}

	dec := NewLabelDecoder([]string{"CANDIDATE", "CONFIRMED"})
	name, err := dec.Decode(model.IntClass(1))
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", name)

	_, err = dec.Decode(model.IntClass(2))
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure))
	_, err = dec.Decode(model.StringClass("CONFIRMED"))
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure))

	_, err = dec.DecodeAll([]model.Class{model.IntClass(0), model.IntClass(5)})
	assert.Error(t, err)
}
