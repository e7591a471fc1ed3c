// Package features assembles the behavioral and demographic blocks into the
// fixed scoring matrix. The assembler owns the canonical schema, the join,
// the missing-value fill policy, and duplicate suppression.
package features

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/demographic"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// BuildSchema concatenates the behavioral and demographic field lists into
// the canonical scoring schema. Column names must be unique across blocks.
func BuildSchema(blocks ...domain.Schema) (domain.Schema, error) {
	var schema domain.Schema
	seen := make(map[string]struct{})
	for _, block := range blocks {
		for _, f := range block {
			if _, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("duplicate feature column %q", f.Name)
			}
			seen[f.Name] = struct{}{}
			schema = append(schema, f)
		}
	}
	return schema, nil
}

// Assembler joins per-customer feature blocks into a FeatureMatrix.
type Assembler struct {
	schema domain.Schema
}

// NewAssembler creates an assembler over the canonical schema.
func NewAssembler(schema domain.Schema) *Assembler {
	return &Assembler{schema: schema}
}

// Schema returns the canonical schema the assembler emits.
func (a *Assembler) Schema() domain.Schema {
	return a.schema
}

// Assemble left-joins demographic results onto the behavioral results and
// emits one row per customer in behavioral order. Missing values fill with
// 0 for numeric columns and OTHER for categorical ones; a customer id seen
// twice keeps its first row. Values outside the schema are dropped.
func (a *Assembler) Assemble(behavioral []*aggregate.Result, demographics []*demographic.Result) *domain.FeatureMatrix {
	demoByID := make(map[string]*demographic.Result, len(demographics))
	for _, d := range demographics {
		if _, dup := demoByID[d.CustomerID]; !dup {
			demoByID[d.CustomerID] = d
		}
	}

	m := domain.NewFeatureMatrix(a.schema)
	seen := make(map[string]struct{}, len(behavioral))

	for _, b := range behavioral {
		if _, dup := seen[b.CustomerID]; dup {
			continue
		}
		seen[b.CustomerID] = struct{}{}

		demo := demoByID[b.CustomerID]
		values := make([]any, len(a.schema))
		for i, f := range a.schema {
			if v, ok := b.Values[f.Name]; ok {
				values[i] = v
				continue
			}
			if demo != nil {
				if v, ok := demo.Values[f.Name]; ok {
					values[i] = v
					continue
				}
			}
			values[i] = fillValue(f.Kind)
		}
		m.Append(domain.FeatureRow{CustomerID: b.CustomerID, Values: values})
	}

	return m
}

func fillValue(kind domain.FieldKind) any {
	if kind == domain.FieldCategorical {
		return demographic.Other
	}
	return float64(0)
}
