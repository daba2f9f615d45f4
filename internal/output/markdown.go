// Package output renders evaluation reports as Markdown.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/strrl/ticket-extract/internal/eval"
)

const (
	maxConfusions    = 5
	maxInvalidListed = 20
)

type ReportMeta struct {
	RunID       string
	Provider    string
	Model       string
	DataPath    string
	GeneratedAt time.Time
}

// WriteReport renders report to path, creating parent directories.
func WriteReport(path string, report *eval.Report, meta ReportMeta) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(RenderReport(report, meta)), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func RenderReport(report *eval.Report, meta ReportMeta) string {
	var sb strings.Builder

	sb.WriteString("# Extraction Evaluation\n\n")
	if meta.RunID != "" {
		sb.WriteString(fmt.Sprintf("**Run:** %s\n", meta.RunID))
	}
	sb.WriteString(fmt.Sprintf("**Provider:** %s\n", emptyFallback(meta.Provider, "unknown")))
	sb.WriteString(fmt.Sprintf("**Model:** %s\n", emptyFallback(meta.Model, "unknown")))
	sb.WriteString(fmt.Sprintf("**Data:** %s\n", emptyFallback(meta.DataPath, "unknown")))
	if !meta.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("**Generated:** %s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05")))
	}
	sb.WriteString("\n## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Samples:** %d\n", report.Samples))
	sb.WriteString(fmt.Sprintf("- **Valid JSON:** %d (%.3f)\n", report.Valid, report.Validity))
	if report.Duration > 0 {
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", report.Duration.Round(time.Millisecond)))
	}

	sb.WriteString("\n## Field Scores\n\n")
	sb.WriteString("| Field | Macro F1 | Scored |\n")
	sb.WriteString("|-------|----------|--------|\n")
	for _, fs := range report.Fields {
		f1 := fmt.Sprintf("%.3f", fs.F1)
		if fs.NoValidPredictions {
			f1 += " (no valid preds)"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", fs.Field, f1, fs.Scored))
	}

	for _, fs := range report.Fields {
		confusions := topConfusions(report.Predictions, fs.Field, maxConfusions)
		if len(confusions) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n## %s Confusions\n\n", capitalize(fs.Field)))
		for _, c := range confusions {
			sb.WriteString(fmt.Sprintf("- %s → %s: %d\n", c.gold, c.predicted, c.count))
		}
	}

	var invalid []string
	for _, p := range report.Predictions {
		if !p.Valid {
			invalid = append(invalid, fmt.Sprintf("%d", p.Index))
		}
	}
	if len(invalid) > 0 {
		sb.WriteString("\n## Invalid Completions\n\n")
		listed := invalid[:min(len(invalid), maxInvalidListed)]
		sb.WriteString(fmt.Sprintf("Example indices: %s", strings.Join(listed, ", ")))
		if len(invalid) > len(listed) {
			sb.WriteString(fmt.Sprintf(" and %d more", len(invalid)-len(listed)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

type confusion struct {
	gold      string
	predicted string
	count     int
}

// topConfusions counts scored mismatches of one field, most frequent first.
func topConfusions(predictions []eval.Prediction, field string, limit int) []confusion {
	counts := map[[2]string]int{}
	for _, p := range predictions {
		if p.Predicted.IsMissing(field) {
			continue
		}
		gold, pred := p.Gold.Value(field), p.Predicted.Value(field)
		if gold != pred {
			counts[[2]string{gold, pred}]++
		}
	}

	var out []confusion
	for k, n := range counts {
		out = append(out, confusion{gold: k[0], predicted: k[1], count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		if out[i].gold != out[j].gold {
			return out[i].gold < out[j].gold
		}
		return out[i].predicted < out[j].predicted
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func emptyFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
