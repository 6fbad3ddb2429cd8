package predict

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	exotest "github.com/teranos/exopredict/internal/testing"
	"github.com/teranos/exopredict/record"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadBundle(t *testing.T, a exotest.Artifacts) *artifact.Bundle {
	t.Helper()
	b, err := artifact.Load(exotest.WriteArtifacts(t, a), artifact.DefaultOptions())
	require.NoError(t, err)
	return b
}

// scenarioRow is the reference input: negative period, insolation and
// stellar temperature.
func scenarioRow() record.Row {
	return record.NewRow(
		"orbper", -5.0,
		"trandep", 100.0,
		"trandur", 3.0,
		"rade", 1.2,
		"insol", -10.0,
		"eqt", 300.0,
		"teff", -50.0,
		"logg", 4.5,
		"rad", 1.1,
	)
}

func TestPredictScenarioRow(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
	require.NoError(t, err)
	require.NotNil(t, res.Single)
	assert.Nil(t, res.Batch)

	// Scores after cleaning: CANDIDATE 0, CONFIRMED 2-1.2, FALSE POSITIVE 0.01*100-1.
	assert.Equal(t, int64(1), res.Single.PredictionIndex)
	assert.Equal(t, "CONFIRMED", res.Single.Prediction)

	e := math.Exp(0.8)
	require.Len(t, res.Single.Probabilities, 3)
	assert.InDelta(t, e/(2+e), res.Single.Probabilities["CONFIRMED"], 1e-9)
	assert.InDelta(t, 1/(2+e), res.Single.Probabilities["CANDIDATE"], 1e-9)
	assert.InDelta(t, 1/(2+e), res.Single.Probabilities["FALSE POSITIVE"], 1e-9)

	confidence, ok := res.Single.Confidence()
	assert.True(t, ok)
	assert.InDelta(t, e/(2+e), confidence, 1e-9)
}

func TestPredictIsDeterministic(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))
	rows := []record.Row{record.NewRow("Orbital_Period", "12.5", "koi_depth", 900, "kepid", "K00752")}

	first, err := p.Predict(context.Background(), rows, Options{WantProbabilities: true})
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), rows, Options{WantProbabilities: true})
	require.NoError(t, err)

	if diff := cmp.Diff(first.Single, second.Single); diff != "" {
		t.Errorf("repeated prediction differs (-first +second):\n%s", diff)
	}
}

func TestPredictEmptyInput(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))

	_, err := p.Predict(context.Background(), nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestPredictCancelledContext(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Predict(ctx, []record.Row{scenarioRow()}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictWithoutProbabilitySupport(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Model = map[string]any{
		"kind":      "linear_svc",
		"classes":   []int{0, 1, 2},
		"coef":      [][]float64{{0, 0, 0, 0, 0, 0, 0, 0, 0}, {0, 0, 0, -1, 0, 0, 0, 0, 0}, {0, 0.01, 0, 0, 0, 0, 0, 0, 0}},
		"intercept": []float64{0, 2, -1},
	}
	p := New(loadBundle(t, a))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", res.Single.Prediction)
	assert.Nil(t, res.Single.Probabilities)
	assert.True(t, res.Diagnostics.ProbabilitiesOmitted)
}

func TestPredictWithoutProbabilityRequest(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Single.Probabilities)
	assert.False(t, res.Diagnostics.ProbabilitiesOmitted)
}

func TestPredictWithoutLabelEncoder(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Labels = nil
	p := New(loadBundle(t, a))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Single.Prediction)
	assert.ElementsMatch(t, []string{"0", "1", "2"}, mapKeys(res.Single.Probabilities))
}

func TestPredictLabelDecodeFallback(t *testing.T) {
	a := exotest.ExoplanetArtifacts()
	a.Labels = []string{"CANDIDATE"}
	p := New(loadBundle(t, a))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Single.Prediction, "undecodable class keeps its raw id")
	assert.ElementsMatch(t, []string{"0", "1", "2"}, mapKeys(res.Single.Probabilities),
		"one undecodable class makes every label fall back")
	assert.Equal(t, 1, res.Diagnostics.DecodeFailures)
}

func TestPredictUnparseableValuesAreRecovered(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))
	row := scenarioRow()
	row.Set("rade", "about one")

	res, err := p.Predict(context.Background(), []record.Row{row}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Diagnostics.Unparseable)
	// rade imputes to 2, so CONFIRMED scores 0 and ties go to CANDIDATE.
	assert.Equal(t, "CANDIDATE", res.Single.Prediction)
}

func TestPredictArtifactMismatch(t *testing.T) {
	t.Run("imputer width", func(t *testing.T) {
		a := exotest.ExoplanetArtifacts()
		a.Imputer = map[string]any{"statistics": []float64{1, 2, 3}}
		p := New(loadBundle(t, a))

		_, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{})
		require.Error(t, err)
		assert.True(t, errors.IsArtifactMismatch(err))
	})

	t.Run("classifier width", func(t *testing.T) {
		a := exotest.ExoplanetArtifacts()
		a.Model = map[string]any{
			"kind":      "logistic_regression",
			"classes":   []int{0, 1},
			"coef":      [][]float64{{1, 1}},
			"intercept": []float64{0},
		}
		p := New(loadBundle(t, a))

		_, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{})
		require.Error(t, err)
		assert.True(t, errors.IsArtifactMismatch(err))
	})
}

func TestPredictorIsSafeForConcurrentUse(t *testing.T) {
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()))
	want, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
	require.NoError(t, err)

	results := make(chan *Result, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			res, err := p.Predict(context.Background(), []record.Row{scenarioRow()}, Options{WantProbabilities: true})
			if err != nil {
				results <- nil
				return
			}
			results <- res
		}()
	}
	for i := 0; i < cap(results); i++ {
		res := <-results
		require.NotNil(t, res)
		assert.Empty(t, cmp.Diff(want.Single, res.Single))
	}
}

func TestBatchDefaultLocation(t *testing.T) {
	outDir := t.TempDir()
	clock := func() time.Time { return time.Date(2024, 1, 31, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	p := New(loadBundle(t, exotest.ExoplanetArtifacts()), WithOutputDir(outDir), WithClock(clock))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow(), scenarioRow()}, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Batch)
	assert.Nil(t, res.Single)
	assert.Equal(t, filepath.Join(outDir, "predictions_20240131T083000Z.csv"), res.Batch.Location)
	assert.Equal(t, 2, res.Batch.Rows)
	assert.FileExists(t, res.Batch.Location)
}

func TestBatchDefaultsToBundleDir(t *testing.T) {
	b := loadBundle(t, exotest.ExoplanetArtifacts())
	p := New(b, WithOutputDir(""))

	res, err := p.Predict(context.Background(), []record.Row{scenarioRow(), scenarioRow()}, Options{})
	require.NoError(t, err)
	assert.Equal(t, b.Dir, filepath.Dir(res.Batch.Location))
}

func mapKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
