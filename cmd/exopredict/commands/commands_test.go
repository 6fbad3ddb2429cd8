package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/history"
	exotest "github.com/teranos/exopredict/internal/testing"
	"github.com/teranos/exopredict/predict"
)

// useArtifacts points the configuration at a fresh fixture bundle and a
// temporary history database.
func useArtifacts(t *testing.T) (dir, dbPath string) {
	t.Helper()
	dir = exotest.WriteArtifacts(t, exotest.ExoplanetArtifacts())
	dbPath = filepath.Join(t.TempDir(), "history.db")

	am.Reset()
	t.Cleanup(am.Reset)
	t.Setenv("EXOPREDICT_ARTIFACTS_DIR", dir)
	t.Setenv("EXOPREDICT_DATABASE_PATH", dbPath)
	return dir, dbPath
}

func TestReadRows(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "koi.csv")
	exotest.WriteFile(t, csvPath, "kepid,koi_period,koi_prad\nK1,12.5,1.2\nK2,,3\n")
	jsonPath := filepath.Join(dir, "row.json")
	exotest.WriteFile(t, jsonPath, `{"koi_period": 12.5}`)

	rows, err := readRows(csvPath, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"kepid", "koi_period", "koi_prad"}, rows[0].Keys())
	v, _ := rows[1].Get("koi_period")
	assert.Nil(t, v, "empty cell reads as null")

	rows, err = readRows(jsonPath, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = readRows("-", strings.NewReader(`[{"a": 1}, {"a": 2}]`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = readRows(filepath.Join(dir, "absent.json"), nil)
	assert.Error(t, err)
}

func TestRunPredictSingle(t *testing.T) {
	_, dbPath := useArtifacts(t)
	input := filepath.Join(t.TempDir(), "row.json")
	exotest.WriteFile(t, input, `{"koi_period": 12.5, "koi_prad": 1.2, "koi_depth": 100}`)

	var out bytes.Buffer
	PredictCmd.SetOut(&out)
	PredictCmd.SetContext(context.Background())
	predictProba = true
	t.Cleanup(func() { predictProba = false })

	require.NoError(t, runPredict(PredictCmd, []string{input}))
	assert.Contains(t, out.String(), `"prediction": "CONFIRMED"`)
	assert.Contains(t, out.String(), `"probabilities": {`)

	db, err := history.OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()
	entries, err := history.NewStore(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.SourceCLI, entries[0].Source)
	assert.Equal(t, "CONFIRMED", entries[0].Prediction)
}

func TestRunPredictBatch(t *testing.T) {
	useArtifacts(t)
	input := filepath.Join(t.TempDir(), "koi.csv")
	exotest.WriteFile(t, input, "kepid,koi_prad,koi_depth\nK1,1.2,100\nK2,2,1000\n")
	output := filepath.Join(t.TempDir(), "out", "koi_predicted.csv")

	var out bytes.Buffer
	PredictCmd.SetOut(&out)
	PredictCmd.SetContext(context.Background())
	predictOutput = output
	t.Cleanup(func() { predictOutput = "" })

	require.NoError(t, runPredict(PredictCmd, []string{input}))
	assert.Equal(t, "Wrote 2 predictions to "+output+"\n", out.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "kepid,koi_prad,koi_depth,"))
	assert.Contains(t, lines[1], "CONFIRMED")
	assert.Contains(t, lines[2], "FALSE POSITIVE")
}

func TestPrintBundle(t *testing.T) {
	dir := exotest.WriteArtifacts(t, exotest.ExoplanetArtifacts())
	b, err := artifact.Load(dir, artifact.DefaultOptions())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printBundle(&out, b))
	text := out.String()

	assert.Contains(t, text, "logistic_regression")
	assert.Contains(t, text, "CANDIDATE, CONFIRMED, FALSE POSITIVE")
	assert.Contains(t, text, "Orbital_Period, koi_period")
	assert.Contains(t, text, "+inf")
	assert.Contains(t, text, "0.2")
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResult(&out, &predict.Result{
		Batch: &predict.BatchResult{Location: "/tmp/p.csv", Rows: 3},
	}))
	assert.Equal(t, "Wrote 3 predictions to /tmp/p.csv\n", out.String())

	out.Reset()
	require.NoError(t, printResult(&out, &predict.Result{
		Single: &predict.SingleResult{PredictionIndex: int64(2), Prediction: "FALSE POSITIVE"},
	}))
	assert.Contains(t, out.String(), `"prediction_index": 2`)
	assert.Contains(t, out.String(), `"probabilities": null`)
}

func TestPrintHistory(t *testing.T) {
	confidence := 0.875
	entries := []history.Entry{{
		CreatedAt:  time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC),
		Source:     history.SourceAnalyze,
		Classifier: "random_forest",
		Rows:       1,
		Prediction: "CANDIDATE",
		Confidence: &confidence,
	}}

	var out bytes.Buffer
	require.NoError(t, printHistory(&out, entries, false))
	assert.Contains(t, out.String(), "random_forest")
	assert.Contains(t, out.String(), "87.5%")

	out.Reset()
	require.NoError(t, printHistory(&out, nil, true))
	assert.Equal(t, "[]\n", out.String())

	out.Reset()
	require.NoError(t, printHistory(&out, nil, false))
	assert.Equal(t, "No predictions recorded yet\n", out.String())
}

func TestAmInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")

	var out bytes.Buffer
	amInitCmd.SetOut(&out)
	require.NoError(t, runAmInit(amInitCmd, []string{path}))
	assert.FileExists(t, path)
	assert.Error(t, runAmInit(amInitCmd, []string{path}), "existing file needs --force")

	amCheckCmd.SetOut(&out)
	require.NoError(t, runAmCheck(amCheckCmd, []string{path}))

	exotest.WriteFile(t, path, "[artifact]\ndir = \"typo\"\n")
	out.Reset()
	err := runAmCheck(amCheckCmd, []string{path})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "artifact.dir")
}
