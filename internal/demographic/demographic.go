// Package demographic turns raw customer attributes into the demographic
// feature block: tiered risk categories for province, sector and activity
// codes, age bands, and province-level socioeconomic indicator bands.
package demographic

import (
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/reference"
)

// NotFound is the category for values that cannot be derived at all, such
// as an unparseable birth date. Distinct from OTHER, which means "present
// but in no known tier".
const NotFound = "NOT_FOUND"

// Other is the fallback for categorical attributes with no dedicated
// closed set.
const Other = "OTHER"

var birthDateLayouts = []string{"2006-01-02", "02/01/2006", "20060102"}

// Result holds one customer's demographic feature values, keyed by field
// name. Numeric fields hold float64, categorical fields hold string.
type Result struct {
	CustomerID string
	Values     map[string]any
}

// Categorizer maps customers onto the demographic feature block.
type Categorizer struct {
	tables    *reference.Tables
	binWidth  int
	ageMin    int
	ageMax    int
	sentinels map[string]struct{}
	fields    domain.Schema
}

// New creates a categorizer from the tables and bucketing configuration.
func New(tables *reference.Tables, cfg domain.CategorizationConfig) *Categorizer {
	sentinels := cfg.MissingSentinels
	if len(sentinels) == 0 {
		sentinels = reference.DefaultMissingSentinels()
	}
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		set[s] = struct{}{}
	}

	c := &Categorizer{
		tables:    tables,
		binWidth:  cfg.AgeBinWidth,
		ageMin:    cfg.AgeMin,
		ageMax:    cfg.AgeMax,
		sentinels: set,
	}
	c.fields = c.buildFields()
	return c
}

// Fields returns the demographic portion of the feature schema: numeric
// pass-through attributes first, then the derived categorical bands.
func (c *Categorizer) Fields() domain.Schema {
	return c.fields
}

func (c *Categorizer) buildFields() domain.Schema {
	s := domain.Schema{
		{Name: "gross_income", Kind: domain.FieldNumeric},
		{Name: "checks_requested", Kind: domain.FieldNumeric},
		{Name: "checks_debited", Kind: domain.FieldNumeric},
		{Name: "checks_available", Kind: domain.FieldNumeric},
		{Name: "risk_profile", Kind: domain.FieldNumeric},

		{Name: "age_band", Kind: domain.FieldCategorical},
		{Name: "legal_form", Kind: domain.FieldCategorical},
		{Name: "province_band", Kind: domain.FieldCategorical},
		{Name: "sector_band", Kind: domain.FieldCategorical},
		{Name: "activity_band", Kind: domain.FieldCategorical},
		{Name: "region", Kind: domain.FieldCategorical},
		{Name: "geographic_zone", Kind: domain.FieldCategorical},
		{Name: "border_province", Kind: domain.FieldCategorical},
		{Name: "tourist_province", Kind: domain.FieldCategorical},
	}
	for _, in := range c.tables.Indicators {
		s = append(s, domain.FieldSpec{Name: in.Name + "_band", Kind: domain.FieldCategorical})
	}
	return s
}

// Categorize derives the demographic features for one customer. Age is
// computed relative to the given reference date.
func (c *Categorizer) Categorize(cust *domain.Customer, ref time.Time) *Result {
	values := map[string]any{
		"gross_income":     cust.GrossIncome,
		"checks_requested": float64(cust.ChecksRequested),
		"checks_debited":   float64(cust.ChecksDebited),
		"checks_available": float64(cust.ChecksAvailable),
		"risk_profile":     float64(cust.RiskProfile),

		"age_band":      c.ageBand(cust.BirthDate, ref),
		"legal_form":    c.passthrough(cust.LegalForm),
		"province_band": c.tier(c.tables.Provinces, cust.Province),
		"sector_band":   c.tier(c.tables.Sectors, cust.SectorCode),
		"activity_band": c.tier(c.tables.Activities, cust.ActivityCode),
	}

	info, known := c.tables.ProvinceInfo[cust.Province]
	if known {
		values["region"] = info.Region
		values["geographic_zone"] = info.GeographicZone
		values["border_province"] = flag(info.Border)
		values["tourist_province"] = flag(info.Tourist)
	} else {
		values["region"] = Other
		values["geographic_zone"] = Other
		values["border_province"] = flag(false)
		values["tourist_province"] = flag(false)
	}

	for _, in := range c.tables.Indicators {
		name := in.Name + "_band"
		if !known {
			values[name] = Other
			continue
		}
		v, ok := info.Indicators[in.Name]
		if !ok {
			values[name] = Other
			continue
		}
		values[name] = in.Rank(v)
	}

	return &Result{CustomerID: cust.ID, Values: values}
}

// tier maps a raw code into the field's closed category set: NONE when
// missing, the tier label when listed, OTHER otherwise.
func (c *Categorizer) tier(field reference.TieredField, raw string) string {
	if c.missing(raw) {
		return field.None()
	}
	if label, ok := field.TierFor(raw); ok {
		return label
	}
	return field.Other()
}

// ageBand computes the customer's age in whole years from the raw birth
// date and maps it onto a fixed-width band. Unparseable dates and ages
// outside the configured range yield NOT_FOUND.
func (c *Categorizer) ageBand(rawBirthDate string, ref time.Time) string {
	if c.missing(rawBirthDate) {
		return NotFound
	}

	var born time.Time
	var parsed bool
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, rawBirthDate); err == nil {
			born = t
			parsed = true
			break
		}
	}
	if !parsed {
		return NotFound
	}

	days := ref.Sub(born).Hours() / 24
	age := int(days / 365.25)
	if age < c.ageMin || age >= c.ageMax {
		return NotFound
	}

	lower := c.ageMin + ((age-c.ageMin)/c.binWidth)*c.binWidth
	upper := lower + c.binWidth - 1
	if upper >= c.ageMax {
		upper = c.ageMax - 1
	}
	return fmt.Sprintf("%d-%d", lower, upper)
}

func (c *Categorizer) passthrough(raw string) string {
	if c.missing(raw) {
		return Other
	}
	return raw
}

func (c *Categorizer) missing(raw string) bool {
	_, ok := c.sentinels[raw]
	return ok
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
