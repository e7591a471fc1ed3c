package demographic

import (
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/reference"
)

func newCategorizer(width int) *Categorizer {
	return New(reference.Defaults(), domain.CategorizationConfig{
		AgeBinWidth: width,
		AgeMin:      0,
		AgeMax:      100,
	})
}

func TestAgeBand(t *testing.T) {
	ref := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		birth string
		width int
		want  string
	}{
		{"mid band", "1980-06-01", 10, "40-49"},
		{"band start", "1984-01-10", 10, "40-49"},
		{"elderly", "1939-05-01", 10, "80-89"},
		{"wide bins", "1939-05-01", 20, "80-99"},
		{"slash layout", "01/06/1980", 10, "40-49"},
		{"compact layout", "19800601", 10, "40-49"},
		{"unparseable", "not-a-date", 10, NotFound},
		{"missing", "", 10, NotFound},
		{"out of range", "1900-01-01", 10, NotFound},
		{"future birth", "2030-01-01", 10, NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCategorizer(tt.width)
			cust := &domain.Customer{ID: "c1", BirthDate: tt.birth}
			got := c.Categorize(cust, ref).Values["age_band"]
			if got != tt.want {
				t.Errorf("age_band = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTierCategorization(t *testing.T) {
	c := newCategorizer(10)
	ref := time.Now()

	tests := []struct {
		name     string
		customer domain.Customer
		field    string
		want     string
	}{
		{"province in tier", domain.Customer{Province: "NA"}, "province_band", "PRV_1"},
		{"province unknown", domain.Customer{Province: "XX"}, "province_band", "PRV_OTHER"},
		{"province missing", domain.Customer{Province: ""}, "province_band", "PRV_NONE"},
		{"sector in tier", domain.Customer{SectorCode: "600"}, "sector_band", "SAE_2"},
		{"sector sentinel", domain.Customer{SectorCode: "NULL"}, "sector_band", "SAE_NONE"},
		{"activity in tier", domain.Customer{ActivityCode: "47"}, "activity_band", "ATECO_3"},
		{"activity unknown", domain.Customer{ActivityCode: "99"}, "activity_band", "ATECO_OTHER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categorize(&tt.customer, ref).Values[tt.field]
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestProvinceAttributes(t *testing.T) {
	c := newCategorizer(10)
	ref := time.Now()

	r := c.Categorize(&domain.Customer{ID: "c1", Province: "BZ"}, ref)

	if got := r.Values["region"]; got != "Trentino-Alto Adige" {
		t.Errorf("region = %v", got)
	}
	if got := r.Values["geographic_zone"]; got != "NORD_EST" {
		t.Errorf("geographic_zone = %v", got)
	}
	if got := r.Values["border_province"]; got != "Y" {
		t.Errorf("border_province = %v, want Y", got)
	}
	if got := r.Values["tourist_province"]; got != "Y" {
		t.Errorf("tourist_province = %v, want Y", got)
	}
}

func TestProvinceIndicatorBands(t *testing.T) {
	c := newCategorizer(10)
	ref := time.Now()

	// RC: employment 0.38, laundering reports 5.6, mafia association 2.1
	r := c.Categorize(&domain.Customer{ID: "c1", Province: "RC"}, ref)

	if got := r.Values["employment_rate_band"]; got != "BASSO" {
		t.Errorf("employment_rate_band = %v, want BASSO", got)
	}
	if got := r.Values["laundering_reports_band"]; got != "ALTO" {
		t.Errorf("laundering_reports_band = %v, want ALTO", got)
	}
	if got := r.Values["mafia_association_band"]; got != "ALTO" {
		t.Errorf("mafia_association_band = %v, want ALTO", got)
	}
}

func TestUnknownProvinceFallsBack(t *testing.T) {
	c := newCategorizer(10)

	r := c.Categorize(&domain.Customer{ID: "c1", Province: "XX"}, time.Now())

	if got := r.Values["region"]; got != Other {
		t.Errorf("region = %v, want OTHER", got)
	}
	if got := r.Values["employment_rate_band"]; got != Other {
		t.Errorf("employment_rate_band = %v, want OTHER", got)
	}
	if got := r.Values["border_province"]; got != "N" {
		t.Errorf("border_province = %v, want N", got)
	}
}

func TestNumericPassthrough(t *testing.T) {
	c := newCategorizer(10)

	cust := &domain.Customer{
		ID: "c1", GrossIncome: 54000, ChecksRequested: 3,
		ChecksDebited: 2, ChecksAvailable: 1, RiskProfile: 4,
	}
	r := c.Categorize(cust, time.Now())

	if got := r.Values["gross_income"]; got != 54000.0 {
		t.Errorf("gross_income = %v", got)
	}
	if got := r.Values["risk_profile"]; got != 4.0 {
		t.Errorf("risk_profile = %v", got)
	}
}

func TestFieldsCoverValues(t *testing.T) {
	c := newCategorizer(10)

	r := c.Categorize(&domain.Customer{ID: "c1"}, time.Now())
	fields := c.Fields()

	if len(fields) != len(r.Values) {
		t.Fatalf("schema has %d fields but categorizer emitted %d values", len(fields), len(r.Values))
	}
	for _, f := range fields {
		if _, ok := r.Values[f.Name]; !ok {
			t.Errorf("schema field %s missing from result", f.Name)
		}
	}
}
