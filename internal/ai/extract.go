package ai

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/strrl/ticket-extract/internal/schema"
)

// Outcome is the result of parsing one completion. Valid reports whether
// the answer was a well-formed JSON object; an invalid outcome carries a
// record with every field set to schema.Missing.
type Outcome struct {
	Ticket schema.Ticket
	Valid  bool
}

type Extractor struct {
	schema *schema.Schema
}

func NewExtractor(s *schema.Schema) *Extractor {
	return &Extractor{schema: s}
}

func (e *Extractor) Schema() *schema.Schema {
	return e.schema
}

// Parse never fails. Out-of-vocabulary values become schema.Missing.
func (e *Extractor) Parse(raw string) Outcome {
	payload := answerRegion(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return Outcome{Ticket: schema.MissingTicket()}
	}

	ticket := schema.MissingTicket()
	for _, field := range e.schema.Fields() {
		value, ok := stringField(fields, field)
		if ok && e.schema.Contains(field, value) {
			ticket.Set(field, value)
		}
	}
	if summary, ok := stringField(fields, schema.FieldSummary); ok {
		ticket.Summary = truncateRunes(summary, e.schema.SummaryMaxLen())
	}

	return Outcome{Ticket: ticket, Valid: true}
}

func (e *Extractor) Extract(raw string) schema.Ticket {
	return e.Parse(raw).Ticket
}

var defaultExtractor = NewExtractor(schema.Default)

func Extract(raw string) schema.Ticket {
	return defaultExtractor.Extract(raw)
}

// answerRegion returns the text after the last sentinel, trimmed.
func answerRegion(raw string) string {
	if idx := strings.LastIndex(raw, Sentinel); idx >= 0 {
		raw = raw[idx+len(Sentinel):]
	}
	return strings.TrimSpace(raw)
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
