package eval

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

type FieldScore struct {
	Field string
	F1    float64
	// Scored counts examples whose prediction for this field was not Missing.
	Scored             int
	NoValidPredictions bool
}

type Report struct {
	Samples     int
	Valid       int
	Validity    float64
	Fields      []FieldScore
	Predictions []Prediction
	Duration    time.Duration
}

func (r *Report) Field(name string) (FieldScore, bool) {
	for _, fs := range r.Fields {
		if fs.Field == name {
			return fs, true
		}
	}
	return FieldScore{}, false
}

// WriteText prints the summary block the eval command shows on stdout.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Samples: %d\nJSON validity: %.3f\n", r.Samples, r.Validity); err != nil {
		return err
	}
	for _, fs := range r.Fields {
		suffix := ""
		if fs.NoValidPredictions {
			suffix = " (no valid preds)"
		}
		if _, err := fmt.Fprintf(w, "%s F1: %.3f%s\n", fs.Field, fs.F1, suffix); err != nil {
			return err
		}
	}
	return nil
}

// Score aggregates predictions into a report with one score per field, in
// the order given.
func Score(fields []string, predictions []Prediction) *Report {
	report := &Report{
		Samples:     len(predictions),
		Predictions: predictions,
	}
	for _, p := range predictions {
		if p.Valid {
			report.Valid++
		}
	}
	if report.Samples > 0 {
		report.Validity = float64(report.Valid) / float64(report.Samples)
	}

	for _, field := range fields {
		var gold, pred []string
		for _, p := range predictions {
			if p.Predicted.IsMissing(field) {
				continue
			}
			gold = append(gold, p.Gold.Value(field))
			pred = append(pred, p.Predicted.Value(field))
		}

		fs := FieldScore{Field: field, Scored: len(pred)}
		if len(pred) == 0 {
			fs.NoValidPredictions = true
		} else {
			fs.F1 = MacroF1(gold, pred)
		}
		report.Fields = append(report.Fields, fs)
	}

	return report
}

// MacroF1 is the unweighted mean of per-class F1 over every class present in
// gold or pred. Gold values equal to schema.Missing count as a class of their own.
func MacroF1(gold, pred []string) float64 {
	if len(gold) != len(pred) || len(gold) == 0 {
		return 0
	}

	type counts struct{ tp, fp, fn int }
	classes := map[string]*counts{}
	get := func(label string) *counts {
		c, ok := classes[label]
		if !ok {
			c = &counts{}
			classes[label] = c
		}
		return c
	}

	for i := range gold {
		if gold[i] == pred[i] {
			get(gold[i]).tp++
			continue
		}
		get(pred[i]).fp++
		get(gold[i]).fn++
	}

	var sum float64
	for _, label := range slices.Sorted(maps.Keys(classes)) {
		c := classes[label]
		sum += 2 * float64(c.tp) / float64(2*c.tp+c.fp+c.fn)
	}
	return sum / float64(len(classes))
}
