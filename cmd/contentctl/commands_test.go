package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentengine/internal/engine"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func snapshotPath() string {
	return filepath.Join("..", "..", "data", "trends_sample.json")
}

func TestScoreCommand(t *testing.T) {
	out, err := execute(t, "", "score", "--text", "Check out our new product", "--platform", "twitter", "--tone", "professional")
	require.NoError(t, err)

	var score engine.QualityScore
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, 37, score.Value)
}

func TestScoreCommandReadsStdin(t *testing.T) {
	out, err := execute(t, "Check out our new product and shop now", "score", "--file", "-", "--platform", "twitter", "--tone", "professional")
	require.NoError(t, err)

	var score engine.QualityScore
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, 70, score.Value)
}

func TestScoreCommandRequiresPlatform(t *testing.T) {
	_, err := execute(t, "", "score", "--text", "hello")
	require.Error(t, err)
}

func TestScoreCommandRejectsEmptyDraft(t *testing.T) {
	_, err := execute(t, "", "score", "--text", "  ", "--platform", "twitter")
	require.ErrorIs(t, err, engine.ErrInvalidDraft)
}

func TestAnalyzeCommandWithSnapshot(t *testing.T) {
	out, err := execute(t, "",
		"analyze",
		"--text", "Morning coffee for coffee lovers",
		"--platform", "instagram",
		"--types", "casual,urgency",
		"--trends", snapshotPath(),
	)
	require.NoError(t, err)

	var result engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Variants, 2)
	assert.Equal(t, engine.VariantCasual, result.Variants[0].Type)
	assert.Equal(t, engine.VariantUrgency, result.Variants[1].Type)
	assert.Len(t, result.Predictions, 3)
	require.NotEmpty(t, result.Trends)
	assert.Equal(t, "coffee", result.Trends[0].Keyword)
}

func TestAnalyzeCommandWithoutTrends(t *testing.T) {
	out, err := execute(t, "", "analyze", "--text", "Hello world", "--platform", "linkedin", "--types", "none", "--no-variant-predictions")
	require.NoError(t, err)

	var result engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Variants)
	assert.Len(t, result.Predictions, 1)
	assert.Empty(t, result.Trends)
}

func TestVariantsCommand(t *testing.T) {
	out, err := execute(t, "", "variants", "--text", "We launched a new app", "--platform", "facebook")
	require.NoError(t, err)

	var variants []engine.Variant
	require.NoError(t, json.Unmarshal([]byte(out), &variants))
	assert.Len(t, variants, len(engine.VariantTypes))

	_, err = execute(t, "", "variants", "--text", "We launched a new app", "--platform", "facebook", "--types", "haiku")
	require.ErrorIs(t, err, engine.ErrUnsupportedTarget)
}

func TestPredictCommand(t *testing.T) {
	out, err := execute(t, "", "predict", "--text", "Big news", "--platform", "youtube")
	require.NoError(t, err)

	var prediction engine.PerformancePrediction
	require.NoError(t, json.Unmarshal([]byte(out), &prediction))
	assert.Positive(t, prediction.EstimatedReach)
}

func TestCatalogCommands(t *testing.T) {
	out, err := execute(t, "", "catalog", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "rules:")

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	out, err = execute(t, "", "catalog", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (20 rules)")

	_, err = execute(t, "", "catalog", "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTrendsImportFeedsAnalyze(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trends.db")

	out, err := execute(t, "", "trends", "import", snapshotPath(), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 5 signals")

	out, err = execute(t, "", "analyze", "--text", "New sneakers for summer", "--platform", "tiktok", "--types", "none", "--db", db)
	require.NoError(t, err)

	var result engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Trends)
	assert.Equal(t, "sneakers", result.Trends[0].Keyword)
}

func TestParseVariantTypes(t *testing.T) {
	assert.Nil(t, parseVariantTypes("all"))
	assert.Nil(t, parseVariantTypes(""))
	assert.Equal(t, []engine.VariantType{}, parseVariantTypes("none"))
	assert.Equal(t, []engine.VariantType{engine.VariantCasual, engine.VariantEmotional}, parseVariantTypes(" Casual, emotional ,"))
}
