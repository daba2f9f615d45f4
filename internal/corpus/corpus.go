// Package corpus reads and writes newline-delimited JSON corpora: eval pairs
// ({message, expected}) and supervised training text ({text}).
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/goccy/go-json"

	"github.com/strrl/ticket-extract/internal/schema"
)

// FormatVersion changes whenever field names or nesting of either line shape change.
const FormatVersion = 1

const maxLineSize = 1 << 20

var ErrEmptyCorpus = errors.New("corpus has no examples")

// PromptBuilder renders the instruction prefix of a training line.
type PromptBuilder interface {
	Build(message string) string
}

type TrainingLine struct {
	Text string `json:"text"`
}

// WritePairs writes one {message, expected} object per line.
func WritePairs(w io.Writer, examples iter.Seq[schema.Example]) (int, error) {
	enc := newEncoder(w)
	n := 0
	for ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return n, fmt.Errorf("failed to write pair %d: %w", n, err)
		}
		n++
	}
	return n, nil
}

// WriteTraining writes one {text} object per line where text is the prompt
// followed directly by the compact expected record.
func WriteTraining(w io.Writer, builder PromptBuilder, examples iter.Seq[schema.Example]) (int, error) {
	enc := newEncoder(w)
	n := 0
	for ex := range examples {
		target, err := EncodeTicket(ex.Expected)
		if err != nil {
			return n, err
		}
		line := TrainingLine{Text: builder.Build(ex.Message) + target}
		if err := enc.Encode(line); err != nil {
			return n, fmt.Errorf("failed to write training line %d: %w", n, err)
		}
		n++
	}
	return n, nil
}

// EncodeTicket returns the compact JSON form of a record without HTML escaping.
func EncodeTicket(t schema.Ticket) (string, error) {
	var buf bytes.Buffer
	if err := newEncoder(&buf).Encode(t); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodePairs yields the eval pairs of r in order. Blank lines are skipped;
// the first malformed line, or gold record outside schema.Default, ends the
// sequence with an error naming its line.
func DecodePairs(r io.Reader) iter.Seq2[schema.Example, error] {
	return func(yield func(schema.Example, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			var ex schema.Example
			if err := json.Unmarshal(raw, &ex); err != nil {
				yield(schema.Example{}, fmt.Errorf("line %d: %w", line, err))
				return
			}
			if err := schema.Default.Validate(ex.Expected); err != nil {
				yield(schema.Example{}, fmt.Errorf("line %d: invalid gold record: %w", line, err))
				return
			}
			if !yield(ex, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(schema.Example{}, fmt.Errorf("line %d: %w", line+1, err))
		}
	}
}

// ReadPairs loads an eval-pairs file. Errors carry the path.
func ReadPairs(path string) ([]schema.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var examples []schema.Example
	for ex, err := range DecodePairs(f) {
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}
