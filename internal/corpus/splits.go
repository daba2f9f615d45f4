package corpus

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-json"

	"github.com/strrl/ticket-extract/internal/schema"
	"github.com/strrl/ticket-extract/internal/synth"
)

const (
	TrainFile      = "synthetic_train.jsonl"
	ValFile        = "synthetic_val.jsonl"
	TrainPairsFile = "synthetic_train_pairs.jsonl"
	ValPairsFile   = "synthetic_val_pairs.jsonl"
	ManifestFile   = "manifest.json"
)

// Manifest records what produced a corpus directory.
type Manifest struct {
	FormatVersion  int      `json:"format_version"`
	SchemaVersion  string   `json:"schema_version"`
	WeightsVersion string   `json:"weights_version"`
	Seed           uint64   `json:"seed"`
	Train          int      `json:"train"`
	Val            int      `json:"val"`
	Files          []string `json:"files"`
}

type SplitOptions struct {
	Seed    uint64
	Train   int
	Val     int
	Workers int
}

// WriteSplits writes the training and eval-pairs files of both splits plus
// the manifest. Validation examples follow the training indices of the same
// seed, so the splits never overlap.
func WriteSplits(ctx context.Context, dir string, gen *synth.Generator, builder PromptBuilder, opts SplitOptions) (*Manifest, error) {
	if opts.Train < 0 || opts.Val < 0 {
		return nil, fmt.Errorf("split sizes must be non-negative (train=%d, val=%d)", opts.Train, opts.Val)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	splits := []struct {
		training, pairs string
		start, count    int
	}{
		{TrainFile, TrainPairsFile, 0, opts.Train},
		{ValFile, ValPairsFile, opts.Train, opts.Val},
	}

	for _, split := range splits {
		examples, err := drawSplit(ctx, gen, opts.Seed, split.start, split.count, opts.Workers)
		if err != nil {
			return nil, err
		}
		if err := writeFile(filepath.Join(dir, split.training), func(w *bufio.Writer) error {
			_, err := WriteTraining(w, builder, examples)
			return err
		}); err != nil {
			return nil, err
		}
		if err := writeFile(filepath.Join(dir, split.pairs), func(w *bufio.Writer) error {
			_, err := WritePairs(w, examples)
			return err
		}); err != nil {
			return nil, err
		}
	}

	manifest := &Manifest{
		FormatVersion:  FormatVersion,
		SchemaVersion:  schema.Version,
		WeightsVersion: gen.Version(),
		Seed:           opts.Seed,
		Train:          opts.Train,
		Val:            opts.Val,
		Files:          []string{TrainFile, ValFile, TrainPairsFile, ValPairsFile},
	}
	if err := writeFile(filepath.Join(dir, ManifestFile), func(w *bufio.Writer) error {
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}); err != nil {
		return nil, err
	}

	return manifest, nil
}

func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}

// drawSplit returns a re-iterable sequence over one split. With a single
// worker the examples are drawn lazily on each pass.
func drawSplit(ctx context.Context, gen *synth.Generator, seed uint64, start, count, workers int) (iter.Seq[schema.Example], error) {
	if workers <= 1 {
		return gen.Range(seed, start, count), nil
	}
	examples, err := gen.GenerateParallel(ctx, seed, start, count, workers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate examples: %w", err)
	}
	return slices.Values(examples), nil
}

func writeFile(path string, fill func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
