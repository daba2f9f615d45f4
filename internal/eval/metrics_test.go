package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strrl/ticket-extract/internal/schema"
)

func TestMacroF1(t *testing.T) {
	tests := []struct {
		name string
		gold []string
		pred []string
		want float64
	}{
		{"perfect", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 1},
		{"one swap", []string{"a", "a", "b"}, []string{"a", "b", "b"}, 2.0 / 3},
		{"class only predicted", []string{"a", "a"}, []string{"a", "c"}, 1.0 / 3},
		{"all wrong", []string{"a", "b"}, []string{"b", "a"}, 0},
		{"empty", nil, nil, 0},
		{"length mismatch", []string{"a"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MacroF1(tt.gold, tt.pred), 1e-9)
		})
	}
}

func TestScoreExcludesMissing(t *testing.T) {
	gold := schema.Ticket{Category: "login", Priority: "urgent", Product: "Free", Sentiment: "negative"}
	missing := schema.MissingTicket()

	var predictions []Prediction
	for i := range 10 {
		p := Prediction{Index: i, Gold: gold, Predicted: gold, Valid: true}
		if i < 3 {
			p.Predicted = missing
			p.Valid = false
		}
		predictions = append(predictions, p)
	}

	report := Score([]string{schema.FieldCategory, schema.FieldSentiment}, predictions)

	assert.Equal(t, 10, report.Samples)
	assert.Equal(t, 7, report.Valid)
	assert.InDelta(t, 0.7, report.Validity, 1e-9)
	assert.Len(t, report.Fields, 2)
	for _, fs := range report.Fields {
		assert.Equal(t, 7, fs.Scored)
		assert.InDelta(t, 1.0, fs.F1, 1e-9)
	}

	_, ok := report.Field(schema.FieldProduct)
	assert.False(t, ok)
}
