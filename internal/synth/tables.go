package synth

import (
	"fmt"
	"sort"
)

// WeightTable conditions sentiment on category and priority on the
// (category, sentiment) pair. Vectors are indexed like the schema
// vocabularies and need not sum to one.
type WeightTable struct {
	Version   string
	Sentiment map[string][]float64
	Priority  map[string]map[string][]float64
}

const DefaultTableVersion = "v2"

// Tables holds every released weight table. Published versions are never
// edited so that historical corpora can be regenerated byte for byte.
var Tables = map[string]WeightTable{
	"v1": flatTable("v1",
		[]float64{0.6, 0.3, 0.1},
		[]float64{0.3, 0.4, 0.2, 0.1},
	),
	"v2": {
		Version: "v2",
		Sentiment: map[string][]float64{
			"billing":         {0.70, 0.25, 0.05},
			"login":           {0.60, 0.30, 0.10},
			"bug":             {0.65, 0.25, 0.10},
			"feature_request": {0.15, 0.50, 0.35},
			"shipping":        {0.60, 0.30, 0.10},
		},
		Priority: map[string]map[string][]float64{
			"billing": {
				"negative": {0.05, 0.25, 0.45, 0.25},
				"neutral":  {0.20, 0.50, 0.25, 0.05},
				"positive": {0.50, 0.35, 0.10, 0.05},
			},
			"login": {
				"negative": {0.05, 0.20, 0.40, 0.35},
				"neutral":  {0.15, 0.45, 0.30, 0.10},
				"positive": {0.45, 0.40, 0.10, 0.05},
			},
			"bug": {
				"negative": {0.05, 0.25, 0.40, 0.30},
				"neutral":  {0.15, 0.45, 0.30, 0.10},
				"positive": {0.40, 0.40, 0.15, 0.05},
			},
			"feature_request": {
				"negative": {0.30, 0.45, 0.20, 0.05},
				"neutral":  {0.50, 0.40, 0.08, 0.02},
				"positive": {0.60, 0.35, 0.05, 0.00},
			},
			"shipping": {
				"negative": {0.05, 0.30, 0.40, 0.25},
				"neutral":  {0.20, 0.50, 0.25, 0.05},
				"positive": {0.50, 0.35, 0.10, 0.05},
			},
		},
	},
}

// Table returns a released weight table by version.
func Table(version string) (WeightTable, error) {
	if version == "" {
		version = DefaultTableVersion
	}
	t, ok := Tables[version]
	if !ok {
		return WeightTable{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTable, version, TableVersions())
	}
	return t, nil
}

func TableVersions() []string {
	versions := make([]string, 0, len(Tables))
	for v := range Tables {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// flatTable expresses unconditioned weights as a conditional table over the
// default vocabularies.
func flatTable(version string, sentiment, priority []float64) WeightTable {
	categories := []string{"billing", "login", "bug", "feature_request", "shipping"}
	sentiments := []string{"negative", "neutral", "positive"}

	t := WeightTable{
		Version:   version,
		Sentiment: make(map[string][]float64, len(categories)),
		Priority:  make(map[string]map[string][]float64, len(categories)),
	}
	for _, c := range categories {
		t.Sentiment[c] = sentiment
		t.Priority[c] = make(map[string][]float64, len(sentiments))
		for _, s := range sentiments {
			t.Priority[c][s] = priority
		}
	}
	return t
}
