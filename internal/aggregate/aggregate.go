// Package aggregate computes the behavioral feature block: per-direction
// transaction totals, monthly rates, causal-bucket activity, high-risk
// country exposure, and prior dismissed-alert counts, all confined to a
// customer's observation window.
package aggregate

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/reference"
)

const monthKeyLayout = "2006-01"

var directions = []domain.Direction{domain.DirectionIn, domain.DirectionOut}

// Result holds one customer's behavioral feature values, keyed by field name.
type Result struct {
	CustomerID string
	Values     map[string]float64
}

// Aggregator derives behavioral features from windowed transactions.
type Aggregator struct {
	tables *reference.Tables
	fields domain.Schema
}

// New creates an aggregator over the given categorization tables. The field
// list is fixed at construction so every cycle emits the same schema.
func New(tables *reference.Tables) *Aggregator {
	a := &Aggregator{tables: tables}
	a.fields = a.buildFields()
	return a
}

// Fields returns the behavioral portion of the feature schema, in emission
// order. All behavioral fields are numeric.
func (a *Aggregator) Fields() domain.Schema {
	return a.fields
}

func (a *Aggregator) buildFields() domain.Schema {
	var s domain.Schema
	add := func(name string) {
		s = append(s, domain.FieldSpec{Name: name, Kind: domain.FieldNumeric})
	}

	for _, dir := range directions {
		d := dirSuffix(dir)
		add("tot_amount_" + d)
		add("tot_count_" + d)
		add("active_months_" + d)
		add("avg_amount_month_" + d)
		add("avg_count_month_" + d)
	}
	for _, bucket := range a.tables.BucketNames() {
		for _, dir := range directions {
			d := dirSuffix(dir)
			add(fmt.Sprintf("%s_count_%s", bucket, d))
			add(fmt.Sprintf("%s_avg_month_%s", bucket, d))
		}
	}
	for _, dir := range directions {
		d := dirSuffix(dir)
		add("risk_country_amount_" + d)
		add("risk_country_ratio_" + d)
	}
	add("not_to_alert_count")

	return s
}

// Aggregate computes the behavioral features for one customer. Transactions
// and alert events outside the observation window are ignored. Rates over
// zero active months are 0, never NaN.
func (a *Aggregator) Aggregate(w *domain.ObservationWindow, txs []*domain.Transaction, events []*domain.AlertEvent) *Result {
	type dirStats struct {
		amount     float64
		count      float64
		months     map[string]struct{}
		riskAmount float64
	}
	stats := map[domain.Direction]*dirStats{
		domain.DirectionIn:  {months: make(map[string]struct{})},
		domain.DirectionOut: {months: make(map[string]struct{})},
	}
	bucketCounts := make(map[string]float64)

	for _, tx := range txs {
		if !w.Contains(tx.Date) {
			continue
		}
		st, ok := stats[tx.Direction]
		if !ok {
			continue
		}
		st.amount += tx.Amount
		st.count++
		st.months[tx.Date.Format(monthKeyLayout)] = struct{}{}
		if a.tables.IsHighRiskCountry(tx.CounterpartCountry) {
			st.riskAmount += tx.Amount
		}
		for _, bucket := range a.tables.BucketsFor(tx.CausalCode) {
			bucketCounts[bucket+"_"+dirSuffix(tx.Direction)]++
		}
	}

	values := make(map[string]float64, len(a.fields))
	for _, f := range a.fields {
		values[f.Name] = 0
	}

	for _, dir := range directions {
		d := dirSuffix(dir)
		st := stats[dir]
		active := float64(len(st.months))

		values["tot_amount_"+d] = st.amount
		values["tot_count_"+d] = st.count
		values["active_months_"+d] = active
		values["avg_amount_month_"+d] = safeDiv(st.amount, active)
		values["avg_count_month_"+d] = safeDiv(st.count, active)
		values["risk_country_amount_"+d] = st.riskAmount
		values["risk_country_ratio_"+d] = safeDiv(st.riskAmount, st.amount)

		for _, bucket := range a.tables.BucketNames() {
			key := bucket + "_" + d
			values[bucket+"_count_"+d] = bucketCounts[key]
			values[bucket+"_avg_month_"+d] = safeDiv(bucketCounts[key], active)
		}
	}

	var dismissed float64
	for _, ev := range events {
		if ev.Status == domain.StatusNotToAlert && w.Contains(ev.Date) {
			dismissed++
		}
	}
	values["not_to_alert_count"] = dismissed

	return &Result{CustomerID: w.CustomerID, Values: values}
}

func dirSuffix(d domain.Direction) string {
	if d == domain.DirectionIn {
		return "in"
	}
	return "out"
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
