package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/ticket-extract/internal/corpus"
)

// execute runs the root command with fresh flag values and an isolated
// environment, returning everything written to stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	commands := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range commands {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"TICKET_EXTRACT_CONFIG", "TICKET_EXTRACT_PROVIDER", "TICKET_EXTRACT_MODEL",
		"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("TICKET_EXTRACT_DB_PATH", filepath.Join(dir, "runs.duckdb"))
	return dir
}

func TestGenerateEvalAndHistory(t *testing.T) {
	dir := isolate(t)
	data := filepath.Join(dir, "data")

	out, err := execute(t, "", "generate", "--train", "30", "--val", "20", "--out", data, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 30 train / 20 val examples to "+data+" (weights v2, seed 42)")
	for _, name := range []string{corpus.TrainFile, corpus.ValFile, corpus.TrainPairsFile, corpus.ValPairsFile, corpus.ManifestFile} {
		assert.FileExists(t, filepath.Join(data, name))
	}

	report := filepath.Join(dir, "reports", "val.md")
	out, err = execute(t, "", "eval",
		"--data", filepath.Join(data, corpus.ValPairsFile),
		"--provider", "oracle",
		"--concurrency", "4",
		"--record",
		"--report", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Samples: 20\n"+
		"JSON validity: 1.000\n"+
		"category F1: 1.000\n"+
		"priority F1: 1.000\n"+
		"product F1: 1.000\n"+
		"sentiment F1: 1.000\n")
	assert.Contains(t, out, "Recorded run ")
	assert.FileExists(t, report)

	out, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "oracle")
	assert.Contains(t, out, "samples=20  validity=1.000  category=1.000")

	out, err = execute(t, "", "stats", "--data", filepath.Join(data, corpus.TrainPairsFile))
	require.NoError(t, err)
	assert.Contains(t, out, "Manifest: schema ticket/v1, weights v2, seed 42, 30 train / 20 val")
	assert.Contains(t, out, "Examples: 30\n")
	assert.Contains(t, out, "\ncategory:\n")
}

func TestEvalLimit(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "", "generate", "--train", "0", "--val", "12", "--out", dir, "--workers", "1")
	require.NoError(t, err)

	out, err := execute(t, "", "eval", "--data", filepath.Join(dir, corpus.ValPairsFile), "--provider", "oracle", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Samples: 5\n")
	assert.NotContains(t, out, "Recorded run")
}

func TestGenerateUsesConfigFile(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("seed: 7\ntrain: 3\nval: 2\nweights: v1\ndata_dir: corpus\n"), 0o644))

	out, err := execute(t, "", "generate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 train / 2 val examples to corpus (weights v1, seed 7)")

	m, err := corpus.ReadManifest(filepath.Join(dir, "corpus"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.Seed)

	// flags win over the file
	out, err = execute(t, "", "generate", "--config", cfgPath, "--seed", "9", "--out", filepath.Join(dir, "other"))
	require.NoError(t, err)
	assert.Contains(t, out, "(weights v1, seed 9)")
}

func TestPredictWithOpenRouter(t *testing.T) {
	isolate(t)

	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.NotEmpty(t, req.Messages) {
			prompts = append(prompts, req.Messages[0].Content)
		}
		answer := `{"category":"bug","priority":"high","product":"Pro","sentiment":"negative","summary":"App crashes on save"}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
		})
	}))
	defer server.Close()

	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_BASE_URL", server.URL)

	out, err := execute(t, "", "predict", "--provider", "openrouter", "The", "app", "crashes", "on", "save")
	require.NoError(t, err)
	assert.Contains(t, out, `"category": "bug"`)
	assert.Contains(t, out, `"summary": "App crashes on save"`)

	out, err = execute(t, "The editor froze again\n", "predict", "--provider", "openrouter")
	require.NoError(t, err)
	assert.Contains(t, out, `"priority": "high"`)

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "[USER]\nThe app crashes on save\n[/USER]")
	assert.Contains(t, prompts[1], "[USER]\nThe editor froze again\n[/USER]")
}

func TestCommandErrors(t *testing.T) {
	dir := isolate(t)
	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing corpus", []string{"eval", "--data", filepath.Join(dir, "absent.jsonl"), "--provider", "oracle"}, "absent.jsonl"},
		{"empty corpus", []string{"eval", "--data", empty, "--provider", "oracle"}, "corpus has no examples"},
		{"unknown provider", []string{"eval", "--data", empty, "--provider", "llamacpp"}, "provider must be one of"},
		{"missing api key", []string{"predict", "--provider", "openrouter", "hello"}, "api key is required"},
		{"oracle predict", []string{"predict", "--provider", "oracle", "hello"}, "needs a corpus"},
		{"empty message", []string{"predict", "--provider", "openrouter"}, "message is empty"},
		{"unknown weights", []string{"generate", "--weights", "v0", "--out", dir}, "unknown weight table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHistoryWithoutRuns(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs in ")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ticket-extract version dev\n")
	assert.Contains(t, out, "Schema: ticket/v1\n")
}
