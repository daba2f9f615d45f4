package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/strrl/ticket-extract/internal/ai"
	"github.com/strrl/ticket-extract/internal/schema"
	"github.com/strrl/ticket-extract/internal/synth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	builder   = ai.NewPromptBuilder(schema.Default)
	extractor = ai.NewExtractor(schema.Default)
)

func synthetic(t *testing.T, n int) []schema.Example {
	t.Helper()
	gen, err := synth.NewDefault("v2")
	require.NoError(t, err)
	return slices.Collect(gen.Generate(n, 42))
}

// scripted answers each prompt with the completion registered for its message.
func scripted(answers map[string]string) ai.Inferer {
	byPrompt := make(map[string]string, len(answers))
	for msg, completion := range answers {
		byPrompt[builder.Build(msg)] = completion
	}
	return ai.InferFunc(func(_ context.Context, prompt string) (string, error) {
		return prompt + byPrompt[prompt], nil
	})
}

func TestOracleScoresPerfectly(t *testing.T) {
	examples := synthetic(t, 60)
	oracle, err := ai.NewOracle(builder, examples)
	require.NoError(t, err)

	report, err := New(builder, extractor, oracle, WithConcurrency(4)).Evaluate(context.Background(), examples)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Samples)
	assert.Equal(t, 60, report.Valid)
	assert.Equal(t, 1.0, report.Validity)
	require.Len(t, report.Fields, 4)
	for i, field := range schema.Default.Fields() {
		assert.Equal(t, field, report.Fields[i].Field)
		assert.InDelta(t, 1.0, report.Fields[i].F1, 1e-9, field)
		assert.Equal(t, 60, report.Fields[i].Scored)
	}
}

func TestMissingPredictionsAreExcluded(t *testing.T) {
	gold := schema.Ticket{Category: "bug", Priority: "low", Product: "Pro", Sentiment: "neutral", Summary: "Crash on save"}

	var examples []schema.Example
	answers := map[string]string{}
	for i := range 10 {
		msg := fmt.Sprintf("message %d", i)
		examples = append(examples, schema.Example{Message: msg, Expected: gold})
		switch {
		case i < 2:
			answers[msg] = `{"category":"bug","product":"Pro","sentiment":"neutral","summary":"Crash on save"}`
		case i == 2:
			answers[msg] = `{"category":"bug","priority":"asap","product":"Pro","sentiment":"neutral","summary":"Crash on save"}`
		default:
			answers[msg] = `{"category":"bug","priority":"low","product":"Pro","sentiment":"neutral","summary":"Crash on save"}`
		}
	}

	report, err := New(builder, extractor, scripted(answers)).Evaluate(context.Background(), examples)
	require.NoError(t, err)

	assert.Equal(t, 1.0, report.Validity)
	priority, ok := report.Field(schema.FieldPriority)
	require.True(t, ok)
	assert.Equal(t, 7, priority.Scored)
	assert.InDelta(t, 1.0, priority.F1, 1e-9)
	assert.False(t, priority.NoValidPredictions)

	category, _ := report.Field(schema.FieldCategory)
	assert.Equal(t, 10, category.Scored)
}

func TestNoValidPredictions(t *testing.T) {
	examples := synthetic(t, 5)
	garbage := ai.InferFunc(func(_ context.Context, prompt string) (string, error) {
		return prompt + "I think this is a billing issue.", nil
	})

	report, err := New(builder, extractor, garbage).Evaluate(context.Background(), examples)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Valid)
	assert.Zero(t, report.Validity)
	for _, fs := range report.Fields {
		assert.True(t, fs.NoValidPredictions, fs.Field)
		assert.Zero(t, fs.F1)
		assert.Zero(t, fs.Scored)
	}

	var out bytes.Buffer
	require.NoError(t, report.WriteText(&out))
	assert.Equal(t, "Samples: 5\n"+
		"JSON validity: 0.000\n"+
		"category F1: 0.000 (no valid preds)\n"+
		"priority F1: 0.000 (no valid preds)\n"+
		"product F1: 0.000 (no valid preds)\n"+
		"sentiment F1: 0.000 (no valid preds)\n", out.String())
}

func TestInferenceErrorIsFatal(t *testing.T) {
	examples := synthetic(t, 8)
	boom := errors.New("backend unavailable")
	target := builder.Build(examples[3].Message)

	failing := ai.InferFunc(func(_ context.Context, prompt string) (string, error) {
		if prompt == target {
			return "", boom
		}
		return prompt, nil
	})

	for _, workers := range []int{1, 4} {
		_, err := New(builder, extractor, failing, WithConcurrency(workers)).Evaluate(context.Background(), examples)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "example 3")
	}
}

func TestConcurrencyDoesNotChangeReport(t *testing.T) {
	examples := synthetic(t, 40)
	flaky := ai.InferFunc(func(_ context.Context, prompt string) (string, error) {
		// every other answer loses its priority
		if len(prompt)%2 == 0 {
			return prompt + `{"category":"bug","product":"Pro","sentiment":"negative"}`, nil
		}
		return prompt + `{"category":"billing","priority":"high","product":"Free","sentiment":"neutral"}`, nil
	})

	sequential, err := New(builder, extractor, flaky).Evaluate(context.Background(), examples)
	require.NoError(t, err)
	parallel, err := New(builder, extractor, flaky, WithConcurrency(8)).Evaluate(context.Background(), examples)
	require.NoError(t, err)

	assert.Equal(t, sequential.Fields, parallel.Fields)
	assert.Equal(t, sequential.Predictions, parallel.Predictions)
	for i, p := range parallel.Predictions {
		assert.Equal(t, i, p.Index)
	}
}

func TestEvaluateRejectsEmptyInput(t *testing.T) {
	_, err := New(builder, extractor, ai.InferFunc(nil)).Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoExamples)
}

func TestEvaluateHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := ai.InferFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := New(builder, extractor, blocking, WithConcurrency(2)).Evaluate(ctx, synthetic(t, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	examples := synthetic(t, 10)
	oracle, err := ai.NewOracle(builder, examples)
	require.NoError(t, err)

	_, err = New(builder, extractor, oracle, WithLogger(zap.New(core)), WithProgress(5)).Evaluate(context.Background(), examples)
	require.NoError(t, err)

	assert.Equal(t, 2, logs.FilterMessage("evaluation progress").Len())
	assert.Equal(t, 1, logs.FilterMessage("evaluation finished").Len())
}
