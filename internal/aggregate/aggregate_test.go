package aggregate

import (
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/reference"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testWindow() *domain.ObservationWindow {
	return &domain.ObservationWindow{
		CustomerID: "c1",
		Start:      date(2023, 1, 1),
		End:        date(2023, 12, 31),
	}
}

func TestAggregateTotalsAndRates(t *testing.T) {
	a := New(reference.Defaults())
	w := testWindow()

	txs := []*domain.Transaction{
		{Direction: domain.DirectionIn, Amount: 1000, Date: date(2023, 2, 10), CausalCode: "01"},
		{Direction: domain.DirectionIn, Amount: 500, Date: date(2023, 2, 20), CausalCode: "01"},
		{Direction: domain.DirectionIn, Amount: 1500, Date: date(2023, 6, 1), CausalCode: "26"},
		{Direction: domain.DirectionOut, Amount: 200, Date: date(2023, 3, 5), CausalCode: "18"},
		// outside the window, must not count
		{Direction: domain.DirectionIn, Amount: 9999, Date: date(2022, 12, 31), CausalCode: "01"},
	}

	r := a.Aggregate(w, txs, nil)

	if got := r.Values["tot_amount_in"]; got != 3000 {
		t.Errorf("tot_amount_in = %v, want 3000", got)
	}
	if got := r.Values["tot_count_in"]; got != 3 {
		t.Errorf("tot_count_in = %v, want 3", got)
	}
	if got := r.Values["active_months_in"]; got != 2 {
		t.Errorf("active_months_in = %v, want 2", got)
	}
	if got := r.Values["avg_amount_month_in"]; got != 1500 {
		t.Errorf("avg_amount_month_in = %v, want 1500", got)
	}
	if got := r.Values["avg_count_month_in"]; got != 1.5 {
		t.Errorf("avg_count_month_in = %v, want 1.5", got)
	}
	if got := r.Values["tot_amount_out"]; got != 200 {
		t.Errorf("tot_amount_out = %v, want 200", got)
	}
	if got := r.Values["cash_count_in"]; got != 2 {
		t.Errorf("cash_count_in = %v, want 2", got)
	}
	if got := r.Values["domestic_transfers_count_in"]; got != 1 {
		t.Errorf("domestic_transfers_count_in = %v, want 1", got)
	}
	if got := r.Values["pos_count_out"]; got != 1 {
		t.Errorf("pos_count_out = %v, want 1", got)
	}
}

func TestAggregateZeroActivity(t *testing.T) {
	a := New(reference.Defaults())

	r := a.Aggregate(testWindow(), nil, nil)

	for name, v := range r.Values {
		if v != 0 {
			t.Errorf("%s = %v, want 0 for a customer with no windowed activity", name, v)
		}
	}
}

func TestAggregateRiskCountryExposure(t *testing.T) {
	a := New(reference.Defaults())
	w := testWindow()

	txs := []*domain.Transaction{
		{Direction: domain.DirectionOut, Amount: 800, Date: date(2023, 4, 1), CausalCode: "90", CounterpartCountry: "IR"},
		{Direction: domain.DirectionOut, Amount: 200, Date: date(2023, 4, 2), CausalCode: "26", CounterpartCountry: "IT"},
	}

	r := a.Aggregate(w, txs, nil)

	if got := r.Values["risk_country_amount_out"]; got != 800 {
		t.Errorf("risk_country_amount_out = %v, want 800", got)
	}
	if got := r.Values["risk_country_ratio_out"]; got != 0.8 {
		t.Errorf("risk_country_ratio_out = %v, want 0.8", got)
	}
	if got := r.Values["risk_country_ratio_in"]; got != 0 {
		t.Errorf("risk_country_ratio_in = %v, want 0", got)
	}
}

func TestAggregateDismissedAlerts(t *testing.T) {
	a := New(reference.Defaults())
	w := testWindow()

	events := []*domain.AlertEvent{
		{Status: domain.StatusNotToAlert, Date: date(2023, 5, 1)},
		{Status: domain.StatusNotToAlert, Date: date(2023, 8, 1)},
		{Status: domain.StatusToAlert, Date: date(2023, 8, 2)},
		// outside the window
		{Status: domain.StatusNotToAlert, Date: date(2022, 1, 1)},
	}

	r := a.Aggregate(w, nil, events)

	if got := r.Values["not_to_alert_count"]; got != 2 {
		t.Errorf("not_to_alert_count = %v, want 2", got)
	}
}

func TestFieldsStable(t *testing.T) {
	a := New(reference.Defaults())

	f1 := a.Fields()
	f2 := a.Fields()
	if len(f1) != len(f2) {
		t.Fatal("schema length changed between calls")
	}
	for i := range f1 {
		if f1[i] != f2[i] {
			t.Errorf("field %d changed: %v vs %v", i, f1[i], f2[i])
		}
	}
	for _, f := range f1 {
		if f.Kind != domain.FieldNumeric {
			t.Errorf("behavioral field %s is not numeric", f.Name)
		}
	}
}
