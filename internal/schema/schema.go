// Package schema holds the closed vocabularies and record types shared by
// prompt construction, completion parsing, corpus generation and evaluation.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Missing marks a field whose value could not be extracted from a completion.
// It is never a member of any vocabulary.
const Missing = "<missing>"

const (
	FieldCategory  = "category"
	FieldPriority  = "priority"
	FieldProduct   = "product"
	FieldSentiment = "sentiment"
	FieldSummary   = "summary"
)

const DefaultSummaryMaxLen = 240

// Version identifies the schema revision embedded in prompts and corpus manifests.
const Version = "ticket/v1"

type Ticket struct {
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Product   string `json:"product"`
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
}

type Example struct {
	Message  string `json:"message"`
	Expected Ticket `json:"expected"`
}

// MissingTicket returns a record with every field set to Missing.
func MissingTicket() Ticket {
	return Ticket{
		Category:  Missing,
		Priority:  Missing,
		Product:   Missing,
		Sentiment: Missing,
		Summary:   Missing,
	}
}

// Value returns the value of a field by its JSON name.
func (t Ticket) Value(field string) string {
	switch field {
	case FieldCategory:
		return t.Category
	case FieldPriority:
		return t.Priority
	case FieldProduct:
		return t.Product
	case FieldSentiment:
		return t.Sentiment
	case FieldSummary:
		return t.Summary
	default:
		return Missing
	}
}

// Set assigns a field by its JSON name; unknown fields are ignored.
func (t *Ticket) Set(field, value string) {
	switch field {
	case FieldCategory:
		t.Category = value
	case FieldPriority:
		t.Priority = value
	case FieldProduct:
		t.Product = value
	case FieldSentiment:
		t.Sentiment = value
	case FieldSummary:
		t.Summary = value
	}
}

func (t Ticket) IsMissing(field string) bool {
	return t.Value(field) == Missing
}

type Schema struct {
	categories    []string
	priorities    []string
	products      []string
	sentiments    []string
	summaryMaxLen int

	vocab       map[string]map[string]struct{}
	description string
}

type Vocabularies struct {
	Categories    []string
	Priorities    []string
	Products      []string
	Sentiments    []string
	SummaryMaxLen int
}

// Default is the process-wide schema. It is built once at init and never mutated.
var Default = MustNew(Vocabularies{
	Categories:    []string{"billing", "login", "bug", "feature_request", "shipping"},
	Priorities:    []string{"low", "medium", "high", "urgent"},
	Products:      []string{"Basic", "Pro", "Enterprise"},
	Sentiments:    []string{"negative", "neutral", "positive"},
	SummaryMaxLen: DefaultSummaryMaxLen,
})

func New(v Vocabularies) (*Schema, error) {
	s := &Schema{
		categories:    clone(v.Categories),
		priorities:    clone(v.Priorities),
		products:      clone(v.Products),
		sentiments:    clone(v.Sentiments),
		summaryMaxLen: v.SummaryMaxLen,
		vocab:         make(map[string]map[string]struct{}, 4),
	}
	if s.summaryMaxLen <= 0 {
		s.summaryMaxLen = DefaultSummaryMaxLen
	}

	for _, field := range s.Fields() {
		values := s.Vocabulary(field)
		if len(values) == 0 {
			return nil, fmt.Errorf("vocabulary %q is empty", field)
		}
		set := make(map[string]struct{}, len(values))
		for _, value := range values {
			if strings.TrimSpace(value) == "" {
				return nil, fmt.Errorf("vocabulary %q contains a blank value", field)
			}
			if value == Missing {
				return nil, fmt.Errorf("vocabulary %q contains the missing marker", field)
			}
			if _, dup := set[value]; dup {
				return nil, fmt.Errorf("vocabulary %q contains %q twice", field, value)
			}
			set[value] = struct{}{}
		}
		s.vocab[field] = set
	}

	desc, err := s.buildDescription()
	if err != nil {
		return nil, err
	}
	s.description = desc

	return s, nil
}

func MustNew(v Vocabularies) *Schema {
	s, err := New(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the categorical fields in report order.
func (s *Schema) Fields() []string {
	return []string{FieldCategory, FieldPriority, FieldProduct, FieldSentiment}
}

func (s *Schema) Categories() []string { return clone(s.categories) }
func (s *Schema) Priorities() []string { return clone(s.priorities) }
func (s *Schema) Products() []string   { return clone(s.products) }
func (s *Schema) Sentiments() []string { return clone(s.sentiments) }
func (s *Schema) SummaryMaxLen() int   { return s.summaryMaxLen }

// Vocabulary returns the allowed values of a categorical field, or nil for
// summary and unknown fields.
func (s *Schema) Vocabulary(field string) []string {
	switch field {
	case FieldCategory:
		return s.Categories()
	case FieldPriority:
		return s.Priorities()
	case FieldProduct:
		return s.Products()
	case FieldSentiment:
		return s.Sentiments()
	default:
		return nil
	}
}

func (s *Schema) Contains(field, value string) bool {
	set, ok := s.vocab[field]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// Description is the JSON schema embedded verbatim in every prompt.
func (s *Schema) Description() string {
	return s.description
}

// Validate reports the first field of t that is outside the schema.
func (s *Schema) Validate(t Ticket) error {
	for _, field := range s.Fields() {
		if value := t.Value(field); !s.Contains(field, value) {
			return fmt.Errorf("%s %q is not in the vocabulary", field, value)
		}
	}
	if n := len([]rune(t.Summary)); n > s.summaryMaxLen {
		return fmt.Errorf("summary has %d characters, limit is %d", n, s.summaryMaxLen)
	}
	return nil
}

type propertySchema struct {
	Enum      []string `json:"enum,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	Title     string   `json:"title"`
	Type      string   `json:"type"`
}

type objectSchema struct {
	Properties map[string]propertySchema `json:"properties"`
	Required   []string                  `json:"required"`
	Title      string                    `json:"title"`
	Type       string                    `json:"type"`
}

func (s *Schema) buildDescription() (string, error) {
	props := make(map[string]propertySchema, 5)
	for _, field := range s.Fields() {
		props[field] = propertySchema{
			Enum:  s.Vocabulary(field),
			Title: title(field),
			Type:  "string",
		}
	}
	props[FieldSummary] = propertySchema{
		MaxLength: s.summaryMaxLen,
		Title:     title(FieldSummary),
		Type:      "string",
	}

	// map keys marshal sorted, so the description is stable across runs
	data, err := json.Marshal(objectSchema{
		Properties: props,
		Required:   append(s.Fields(), FieldSummary),
		Title:      "Ticket",
		Type:       "object",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema description: %w", err)
	}
	return string(data), nil
}

func title(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func clone(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
