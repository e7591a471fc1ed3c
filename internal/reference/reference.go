// Package reference holds the static categorization tables: tiered risk
// code sets, causal-code buckets, the high-risk country list, and the
// province indicator table. Tables are loaded once per run and read-only
// thereafter.
package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Tier is one risk tier of a categorized field: a label and the set of raw
// codes belonging to it.
type Tier struct {
	Label string   `json:"label"`
	Codes []string `json:"codes"`
}

// TieredField groups the tiers of one categorized demographic field.
// Prefix names the derived categories: a field with prefix "PRV" emits
// tier labels plus "PRV_OTHER" and "PRV_NONE".
type TieredField struct {
	Prefix string `json:"prefix"`
	Tiers  []Tier `json:"tiers"`
}

// Other and None return the closed-set fallback categories for the field.
func (f TieredField) Other() string { return f.Prefix + "_OTHER" }
func (f TieredField) None() string  { return f.Prefix + "_NONE" }

// Categories returns the full closed category set for the field, in order.
func (f TieredField) Categories() []string {
	out := make([]string, 0, len(f.Tiers)+2)
	for _, t := range f.Tiers {
		out = append(out, t.Label)
	}
	return append(out, f.Other(), f.None())
}

// CausalBucket groups raw transaction causal codes into one semantic
// category (cash, checks, transfers, ...).
type CausalBucket struct {
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

// Threshold is one category cut of a ranked province indicator.
type Threshold struct {
	Category string  `json:"category"`
	Min      float64 `json:"min"`
}

// Indicator is one ranked province indicator with its descending threshold
// table. Thresholds are evaluated highest first; a value below all of them
// gets the lowest category by definition, never NONE.
type Indicator struct {
	Name       string      `json:"name"`
	Thresholds []Threshold `json:"thresholds"`
}

// Rank maps an indicator value to its category.
func (in Indicator) Rank(value float64) string {
	for _, t := range in.Thresholds {
		if value >= t.Min {
			return t.Category
		}
	}
	return in.Thresholds[len(in.Thresholds)-1].Category
}

// Province holds the static attributes of one province.
type Province struct {
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Region         string             `json:"region"`
	GeographicZone string             `json:"geographicZone"`
	Border         bool               `json:"border"`
	Tourist        bool               `json:"tourist"`
	Indicators     map[string]float64 `json:"indicators"`
}

// Tables is the full set of categorization reference data.
type Tables struct {
	Provinces  TieredField `json:"provinces"`
	Sectors    TieredField `json:"sectors"`
	Activities TieredField `json:"activities"`

	CausalBuckets     []CausalBucket `json:"causalBuckets"`
	HighRiskCountries []string       `json:"highRiskCountries"`

	ProvinceInfo map[string]Province `json:"provinceInfo"`
	Indicators   []Indicator         `json:"indicators"`

	riskCountries map[string]struct{}
}

// Load reads categorization tables from a JSON file. A missing file or a
// malformed threshold table is fatal.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("categorization tables not found at %s: %w", path, err)
	}

	var t Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse categorization tables %s: %w", path, err)
	}

	if err := t.init(); err != nil {
		return nil, err
	}
	return &t, nil
}

// init validates the tables and builds derived lookups.
func (t *Tables) init() error {
	for _, f := range []TieredField{t.Provinces, t.Sectors, t.Activities} {
		if f.Prefix == "" {
			return &domain.ValidationError{Field: "tiered field prefix", Value: "", Expected: "non-empty prefix"}
		}
		seen := make(map[string]struct{})
		for _, tier := range f.Tiers {
			if tier.Label == "" {
				return &domain.ValidationError{Field: f.Prefix + " tier label", Value: "", Expected: "non-empty label"}
			}
			if _, dup := seen[tier.Label]; dup {
				return &domain.ValidationError{Field: f.Prefix + " tier label", Value: tier.Label, Expected: "unique labels"}
			}
			seen[tier.Label] = struct{}{}
		}
	}

	for i := range t.Indicators {
		in := &t.Indicators[i]
		if len(in.Thresholds) == 0 {
			return &domain.ValidationError{Field: "indicator " + in.Name, Value: "", Expected: "at least one threshold"}
		}
		for _, th := range in.Thresholds {
			if th.Category == "" {
				return &domain.ValidationError{Field: "indicator " + in.Name, Value: fmt.Sprintf("%v", th.Min), Expected: "named threshold category"}
			}
		}
		// Evaluate highest threshold first regardless of input order.
		sort.SliceStable(in.Thresholds, func(a, b int) bool {
			return in.Thresholds[a].Min > in.Thresholds[b].Min
		})
	}

	t.riskCountries = make(map[string]struct{}, len(t.HighRiskCountries))
	for _, c := range t.HighRiskCountries {
		t.riskCountries[c] = struct{}{}
	}

	return nil
}

// IsHighRiskCountry reports whether a counterpart country code is in the
// high-risk list.
func (t *Tables) IsHighRiskCountry(code string) bool {
	_, ok := t.riskCountries[code]
	return ok
}

// BucketNames returns the causal bucket names in table order.
func (t *Tables) BucketNames() []string {
	names := make([]string, len(t.CausalBuckets))
	for i, b := range t.CausalBuckets {
		names[i] = b.Name
	}
	return names
}

// BucketFor returns the names of the buckets containing a causal code.
// A code may belong to at most one bucket in well-formed tables, but the
// lookup does not assume it.
func (t *Tables) BucketsFor(causal string) []string {
	var out []string
	for _, b := range t.CausalBuckets {
		for _, c := range b.Codes {
			if c == causal {
				out = append(out, b.Name)
				break
			}
		}
	}
	return out
}

// TierFor maps a raw code to its tier label within a field, if any.
func (f TieredField) TierFor(code string) (string, bool) {
	for _, tier := range f.Tiers {
		for _, c := range tier.Codes {
			if c == code {
				return tier.Label, true
			}
		}
	}
	return "", false
}
