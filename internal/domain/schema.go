package domain

// FieldKind distinguishes numeric from bucketed-categorical feature columns.
// The kind drives the missing-value fill policy: numeric fills with 0,
// categorical fills with the OTHER sentinel.
type FieldKind int

const (
	FieldNumeric FieldKind = iota
	FieldCategorical
)

// FieldSpec is one typed, named column of the feature schema.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// Schema is the ordered list of feature columns shared by the behavioral
// aggregator, the demographic categorizer, and the feature assembler. All
// three reference the same descriptor so schema drift is a type error rather
// than a silent column mismatch.
type Schema []FieldSpec

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// FeatureRow is one customer's values, positionally aligned with a Schema.
type FeatureRow struct {
	CustomerID string
	Values     []any
}

// FeatureMatrix is the scoring input: one row per customer, fixed schema.
// A customer id never appears twice within one matrix.
type FeatureMatrix struct {
	Schema Schema
	Rows   []FeatureRow

	index map[string]int
}

// NewFeatureMatrix creates an empty matrix over the given schema.
func NewFeatureMatrix(schema Schema) *FeatureMatrix {
	index := make(map[string]int, len(schema))
	for i, f := range schema {
		index[f.Name] = i
	}
	return &FeatureMatrix{Schema: schema, index: index}
}

// Column returns the positional index of a named column, or -1.
func (m *FeatureMatrix) Column(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// Append adds a row. The caller is responsible for positional alignment.
func (m *FeatureMatrix) Append(row FeatureRow) {
	m.Rows = append(m.Rows, row)
}

// Float returns the numeric value of a named column in row r, 0 if absent.
func (m *FeatureMatrix) Float(r int, name string) float64 {
	i := m.Column(name)
	if i < 0 {
		return 0
	}
	v, _ := m.Rows[r].Values[i].(float64)
	return v
}

// Category returns the categorical value of a named column in row r.
func (m *FeatureMatrix) Category(r int, name string) string {
	i := m.Column(name)
	if i < 0 {
		return ""
	}
	v, _ := m.Rows[r].Values[i].(string)
	return v
}

// Activation flattens row r into a name-to-value map, for gate expressions.
func (m *FeatureMatrix) Activation(r int) map[string]any {
	out := make(map[string]any, len(m.Schema))
	for i, f := range m.Schema {
		out[f.Name] = m.Rows[r].Values[i]
	}
	return out
}
