// Package eval replays labeled examples through a model and scores the
// extracted records against gold.
package eval

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/strrl/ticket-extract/internal/ai"
	"github.com/strrl/ticket-extract/internal/schema"
)

var ErrNoExamples = errors.New("no examples to evaluate")

type Harness struct {
	builder   *ai.PromptBuilder
	extractor *ai.Extractor
	inferer   ai.Inferer
	fields    []string

	concurrency   int
	progressEvery int
	logger        *zap.Logger
}

type Option func(*Harness)

// WithConcurrency bounds how many inferences run at once. Values below one
// mean sequential.
func WithConcurrency(n int) Option {
	return func(h *Harness) {
		h.concurrency = max(n, 1)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithProgress logs a progress line every n completed examples; zero disables it.
func WithProgress(every int) Option {
	return func(h *Harness) {
		h.progressEvery = max(every, 0)
	}
}

func New(builder *ai.PromptBuilder, extractor *ai.Extractor, inferer ai.Inferer, opts ...Option) *Harness {
	h := &Harness{
		builder:     builder,
		extractor:   extractor,
		inferer:     inferer,
		fields:      extractor.Schema().Fields(),
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prediction is the outcome for one example, at the example's index.
type Prediction struct {
	Index     int
	Gold      schema.Ticket
	Predicted schema.Ticket
	Valid     bool
}

// Evaluate infers every example and scores the run. The first inference
// error cancels outstanding work and is returned with its example index.
func (h *Harness) Evaluate(ctx context.Context, examples []schema.Example) (*Report, error) {
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	start := time.Now()
	predictions := make([]Prediction, len(examples))
	var done atomic.Int64

	h.logger.Info("evaluation started",
		zap.Int("examples", len(examples)),
		zap.Int("concurrency", h.concurrency))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(h.concurrency)
	for i, ex := range examples {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			completion, err := h.inferer.Infer(egCtx, h.builder.Build(ex.Message))
			if err != nil {
				return fmt.Errorf("example %d: inference failed: %w", i, err)
			}

			out := h.extractor.Parse(completion)
			predictions[i] = Prediction{
				Index:     i,
				Gold:      ex.Expected,
				Predicted: out.Ticket,
				Valid:     out.Valid,
			}
			if !out.Valid {
				h.logger.Debug("invalid completion", zap.Int("index", i))
			}

			n := int(done.Add(1))
			if h.progressEvery > 0 && n%h.progressEvery == 0 {
				h.logger.Info("evaluation progress", zap.Int("done", n), zap.Int("total", len(examples)))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := Score(h.fields, predictions)
	report.Duration = time.Since(start)

	h.logger.Info("evaluation finished",
		zap.Int("samples", report.Samples),
		zap.Float64("validity", report.Validity),
		zap.Duration("duration", report.Duration))

	return report, nil
}
