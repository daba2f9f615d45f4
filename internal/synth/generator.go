// Package synth generates labeled support messages by conditional weighted
// sampling over the schema vocabularies.
package synth

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/strrl/ticket-extract/internal/schema"
)

var (
	ErrMissingWeights = errors.New("missing weight entry")
	ErrInvalidWeights = errors.New("invalid weight entry")
	ErrInvalidLexicon = errors.New("invalid lexicon")
	ErrUnknownTable   = errors.New("unknown weight table")
)

type Generator struct {
	version    string
	categories []string
	products   []string
	sentiments []string
	priorities []string

	sentimentWeights [][]float64   // [category]
	priorityWeights  [][][]float64 // [category][sentiment]
	issues           [][]string    // [category]
	feelings         [][]string    // [sentiment]
	names            []string
	templates        []string
}

// New validates the table and lexicon against the schema. Every category
// needs sentiment weights and every reachable (category, sentiment) pair
// needs priority weights; gaps are reported here rather than at draw time.
func New(s *schema.Schema, table WeightTable, lex Lexicon) (*Generator, error) {
	g := &Generator{
		version:    table.Version,
		categories: s.Categories(),
		products:   s.Products(),
		sentiments: s.Sentiments(),
		priorities: s.Priorities(),
		names:      slices.Clone(lex.Names),
		templates:  slices.Clone(lex.Templates),
	}

	if err := checkKeys(table, s); err != nil {
		return nil, err
	}

	for _, category := range g.categories {
		sw, ok := table.Sentiment[category]
		if !ok {
			return nil, fmt.Errorf("%w: sentiment weights for category %q", ErrMissingWeights, category)
		}
		if err := checkVector(sw, len(g.sentiments)); err != nil {
			return nil, fmt.Errorf("sentiment weights for category %q: %w", category, err)
		}
		g.sentimentWeights = append(g.sentimentWeights, slices.Clone(sw))

		byCategory := table.Priority[category]
		pw := make([][]float64, len(g.sentiments))
		for j, sentiment := range g.sentiments {
			if sw[j] == 0 {
				continue
			}
			vec, ok := byCategory[sentiment]
			if !ok {
				return nil, fmt.Errorf("%w: priority weights for (%s, %s)", ErrMissingWeights, category, sentiment)
			}
			if err := checkVector(vec, len(g.priorities)); err != nil {
				return nil, fmt.Errorf("priority weights for (%s, %s): %w", category, sentiment, err)
			}
			pw[j] = slices.Clone(vec)
		}
		g.priorityWeights = append(g.priorityWeights, pw)

		issues := lex.Issues[category]
		if len(issues) == 0 {
			return nil, fmt.Errorf("%w: no issue phrases for category %q", ErrInvalidLexicon, category)
		}
		g.issues = append(g.issues, slices.Clone(issues))
	}

	for _, sentiment := range g.sentiments {
		feelings := lex.Feelings[sentiment]
		if len(feelings) == 0 {
			return nil, fmt.Errorf("%w: no feeling phrases for sentiment %q", ErrInvalidLexicon, sentiment)
		}
		g.feelings = append(g.feelings, slices.Clone(feelings))
	}

	if len(g.names) == 0 {
		return nil, fmt.Errorf("%w: no names", ErrInvalidLexicon)
	}
	if len(g.templates) == 0 {
		return nil, fmt.Errorf("%w: no templates", ErrInvalidLexicon)
	}

	return g, nil
}

// NewDefault builds a generator over the default schema and lexicon.
func NewDefault(version string) (*Generator, error) {
	table, err := Table(version)
	if err != nil {
		return nil, err
	}
	return New(schema.Default, table, DefaultLexicon)
}

func (g *Generator) Version() string {
	return g.version
}

// Example draws the example at index from the stream (seed, index). The
// draw order is category, product, sentiment, priority, issue, name,
// feeling, template.
func (g *Generator) Example(seed uint64, index int) schema.Example {
	r := rand.New(rand.NewPCG(seed, uint64(index)))

	c := r.IntN(len(g.categories))
	p := r.IntN(len(g.products))
	s := pick(r, g.sentimentWeights[c])
	pr := pick(r, g.priorityWeights[c][s])

	issues := g.issues[c]
	issue := issues[r.IntN(len(issues))]
	name := g.names[r.IntN(len(g.names))]
	feelings := g.feelings[s]
	feeling := feelings[r.IntN(len(feelings))]
	template := g.templates[r.IntN(len(g.templates))]

	message := strings.NewReplacer(
		"{name}", name,
		"{product}", g.products[p],
		"{issue}", issue,
		"{feeling}", feeling,
		"{priority}", g.priorities[pr],
	).Replace(template)

	return schema.Example{
		Message: message,
		Expected: schema.Ticket{
			Category:  g.categories[c],
			Priority:  g.priorities[pr],
			Product:   g.products[p],
			Sentiment: g.sentiments[s],
			Summary:   issue,
		},
	}
}

// Generate lazily yields count examples for seed.
func (g *Generator) Generate(count int, seed uint64) iter.Seq[schema.Example] {
	return g.Range(seed, 0, count)
}

// Range yields examples start..start+count-1 of seed. Disjoint ranges of
// one seed never share a stream.
func (g *Generator) Range(seed uint64, start, count int) iter.Seq[schema.Example] {
	return func(yield func(schema.Example) bool) {
		for i := 0; i < count; i++ {
			if !yield(g.Example(seed, start+i)) {
				return
			}
		}
	}
}

// GenerateParallel returns the same examples as Range, drawn by up to
// workers goroutines.
func (g *Generator) GenerateParallel(ctx context.Context, seed uint64, start, count, workers int) ([]schema.Example, error) {
	if count <= 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]schema.Example, count)
	chunk := (count + workers - 1) / workers

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for lo := 0; lo < count; lo += chunk {
		hi := min(lo+chunk, count)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%256 == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				out[i] = g.Example(seed, start+i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func pick(r *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}

	u := r.Float64() * total
	var acc float64
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if u < acc {
			return i
		}
	}
	return last
}

func checkVector(weights []float64, size int) error {
	if len(weights) != size {
		return fmt.Errorf("%w: got %d weights, want %d", ErrInvalidWeights, len(weights), size)
	}
	var total float64
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %v", ErrInvalidWeights, w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return nil
}

func checkKeys(table WeightTable, s *schema.Schema) error {
	for category := range table.Sentiment {
		if !s.Contains(schema.FieldCategory, category) {
			return fmt.Errorf("%w: unknown category %q in sentiment weights", ErrInvalidWeights, category)
		}
	}
	for category, bySentiment := range table.Priority {
		if !s.Contains(schema.FieldCategory, category) {
			return fmt.Errorf("%w: unknown category %q in priority weights", ErrInvalidWeights, category)
		}
		for sentiment := range bySentiment {
			if !s.Contains(schema.FieldSentiment, sentiment) {
				return fmt.Errorf("%w: unknown sentiment %q in priority weights", ErrInvalidWeights, sentiment)
			}
		}
	}
	return nil
}
