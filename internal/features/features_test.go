package features

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/demographic"
	"github.com/opensource-finance/kestrel/internal/domain"
)

var testSchema = domain.Schema{
	{Name: "tot_amount_in", Kind: domain.FieldNumeric},
	{Name: "age_band", Kind: domain.FieldCategorical},
	{Name: "gross_income", Kind: domain.FieldNumeric},
}

func TestBuildSchemaRejectsDuplicates(t *testing.T) {
	a := domain.Schema{{Name: "x", Kind: domain.FieldNumeric}}
	b := domain.Schema{{Name: "x", Kind: domain.FieldCategorical}}

	if _, err := BuildSchema(a, b); err == nil {
		t.Fatal("expected duplicate column error")
	}

	s, err := BuildSchema(a, domain.Schema{{Name: "y", Kind: domain.FieldCategorical}})
	if err != nil {
		t.Fatalf("BuildSchema: %v", err)
	}
	if len(s) != 2 {
		t.Errorf("expected 2 columns, got %d", len(s))
	}
}

func TestAssembleJoinsAndFills(t *testing.T) {
	asm := NewAssembler(testSchema)

	behavioral := []*aggregate.Result{
		{CustomerID: "c1", Values: map[string]float64{"tot_amount_in": 1000}},
		{CustomerID: "c2", Values: map[string]float64{"tot_amount_in": 50}},
	}
	demographics := []*demographic.Result{
		{CustomerID: "c1", Values: map[string]any{"age_band": "40-49", "gross_income": 30000.0}},
		// c2 has no demographic row: fill policy applies
	}

	m := asm.Assemble(behavioral, demographics)

	if len(m.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.Rows))
	}
	if got := m.Float(0, "tot_amount_in"); got != 1000 {
		t.Errorf("c1 tot_amount_in = %v", got)
	}
	if got := m.Category(0, "age_band"); got != "40-49" {
		t.Errorf("c1 age_band = %v", got)
	}
	if got := m.Category(1, "age_band"); got != demographic.Other {
		t.Errorf("c2 age_band = %v, want OTHER fill", got)
	}
	if got := m.Float(1, "gross_income"); got != 0 {
		t.Errorf("c2 gross_income = %v, want 0 fill", got)
	}
}

func TestAssembleDedupKeepsFirst(t *testing.T) {
	asm := NewAssembler(testSchema)

	behavioral := []*aggregate.Result{
		{CustomerID: "c1", Values: map[string]float64{"tot_amount_in": 1}},
		{CustomerID: "c1", Values: map[string]float64{"tot_amount_in": 2}},
	}

	m := asm.Assemble(behavioral, nil)

	if len(m.Rows) != 1 {
		t.Fatalf("expected 1 row after dedup, got %d", len(m.Rows))
	}
	if got := m.Float(0, "tot_amount_in"); got != 1 {
		t.Errorf("kept row tot_amount_in = %v, want first occurrence", got)
	}
}

func TestAssembleDropsOffSchemaValues(t *testing.T) {
	asm := NewAssembler(testSchema)

	behavioral := []*aggregate.Result{
		{CustomerID: "c1", Values: map[string]float64{
			"tot_amount_in": 7,
			"unknown_field": 99,
		}},
	}

	m := asm.Assemble(behavioral, nil)

	if got := len(m.Rows[0].Values); got != len(testSchema) {
		t.Errorf("row width = %d, want %d", got, len(testSchema))
	}
	if m.Column("unknown_field") != -1 {
		t.Error("off-schema column leaked into the matrix")
	}
}
