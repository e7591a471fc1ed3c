package reference

// Defaults returns the compiled-in categorization tables. They cover the
// Italian retail-banking code space the engine was trained on; deployments
// with their own code mappings override them with a JSON file.
func Defaults() *Tables {
	t := &Tables{
		Provinces: TieredField{
			Prefix: "PRV",
			Tiers: []Tier{
				{Label: "PRV_1", Codes: []string{"NA", "CE", "RC", "PA", "CT", "CL"}},
				{Label: "PRV_2", Codes: []string{"MI", "RM", "TO", "BA", "FG"}},
				{Label: "PRV_3", Codes: []string{"FI", "BO", "GE", "VE", "PO", "BS"}},
			},
		},
		Sectors: TieredField{
			Prefix: "SAE",
			Tiers: []Tier{
				{Label: "SAE_1", Codes: []string{"430", "431", "432", "492"}},
				{Label: "SAE_2", Codes: []string{"600", "614", "615"}},
				{Label: "SAE_3", Codes: []string{"258", "259", "268"}},
			},
		},
		Activities: TieredField{
			Prefix: "ATECO",
			Tiers: []Tier{
				{Label: "ATECO_1", Codes: []string{"92", "66", "64"}},
				{Label: "ATECO_2", Codes: []string{"41", "43", "68"}},
				{Label: "ATECO_3", Codes: []string{"45", "47", "56"}},
			},
		},
		CausalBuckets: []CausalBucket{
			{Name: "cash", Codes: []string{"01", "02", "10"}},
			{Name: "checks", Codes: []string{"03", "04", "09", "12"}},
			{Name: "loans", Codes: []string{"40", "41", "42"}},
			{Name: "domestic_transfers", Codes: []string{"26", "27", "48"}},
			{Name: "foreign_transfers", Codes: []string{"90", "91", "92"}},
			{Name: "securities", Codes: []string{"50", "51", "52", "53"}},
			{Name: "pos", Codes: []string{"18", "19"}},
			{Name: "misc_receipts", Codes: []string{"31", "34", "35"}},
			{Name: "instruments", Codes: []string{"06", "08", "20"}},
			{Name: "dividends", Codes: []string{"60", "61"}},
			{Name: "reversals", Codes: []string{"70", "71", "72"}},
		},
		HighRiskCountries: []string{
			"IR", "KP", "MM", "AF", "SY", "YE", "SO", "SS",
			"PA", "KY", "VG", "BS", "MC", "AE", "AL", "ME",
		},
		ProvinceInfo: map[string]Province{
			"MI": {Code: "MI", Name: "Milano", Region: "Lombardia", GeographicZone: "NORD_OVEST",
				Indicators: map[string]float64{
					"employment_rate": 0.68, "tax_evasion_rate": 0.11, "firms_per_100": 9.5,
					"bank_branches_per_10000": 6.8, "laundering_reports": 6.2, "mafia_association": 0.05,
				}},
			"RM": {Code: "RM", Name: "Roma", Region: "Lazio", GeographicZone: "CENTRO", Tourist: true,
				Indicators: map[string]float64{
					"employment_rate": 0.61, "tax_evasion_rate": 0.14, "firms_per_100": 10.8,
					"bank_branches_per_10000": 5.1, "laundering_reports": 5.8, "mafia_association": 0.3,
				}},
			"NA": {Code: "NA", Name: "Napoli", Region: "Campania", GeographicZone: "SUD", Tourist: true,
				Indicators: map[string]float64{
					"employment_rate": 0.41, "tax_evasion_rate": 0.24, "firms_per_100": 8.9,
					"bank_branches_per_10000": 3.2, "laundering_reports": 4.9, "mafia_association": 1.4,
				}},
			"RC": {Code: "RC", Name: "Reggio Calabria", Region: "Calabria", GeographicZone: "SUD",
				Indicators: map[string]float64{
					"employment_rate": 0.38, "tax_evasion_rate": 0.26, "firms_per_100": 8.1,
					"bank_branches_per_10000": 2.9, "laundering_reports": 5.6, "mafia_association": 2.1,
				}},
			"BZ": {Code: "BZ", Name: "Bolzano", Region: "Trentino-Alto Adige", GeographicZone: "NORD_EST",
				Border: true, Tourist: true,
				Indicators: map[string]float64{
					"employment_rate": 0.72, "tax_evasion_rate": 0.09, "firms_per_100": 11.2,
					"bank_branches_per_10000": 7.4, "laundering_reports": 1.1, "mafia_association": 0.0,
				}},
			"VE": {Code: "VE", Name: "Venezia", Region: "Veneto", GeographicZone: "NORD_EST", Tourist: true,
				Indicators: map[string]float64{
					"employment_rate": 0.64, "tax_evasion_rate": 0.12, "firms_per_100": 9.8,
					"bank_branches_per_10000": 5.9, "laundering_reports": 2.4, "mafia_association": 0.1,
				}},
			"IM": {Code: "IM", Name: "Imperia", Region: "Liguria", GeographicZone: "NORD_OVEST",
				Border: true, Tourist: true,
				Indicators: map[string]float64{
					"employment_rate": 0.58, "tax_evasion_rate": 0.16, "firms_per_100": 10.1,
					"bank_branches_per_10000": 5.5, "laundering_reports": 2.9, "mafia_association": 0.4,
				}},
		},
		Indicators: []Indicator{
			{Name: "employment_rate", Thresholds: []Threshold{
				{Category: "ALTO", Min: 0.5}, {Category: "MEDIO", Min: 0.41}, {Category: "BASSO", Min: 0},
			}},
			{Name: "tax_evasion_rate", Thresholds: []Threshold{
				{Category: "ALTO", Min: 0.22}, {Category: "MEDIO", Min: 0.125}, {Category: "BASSO", Min: 0},
			}},
			{Name: "firms_per_100", Thresholds: []Threshold{
				{Category: "ALTO", Min: 11.0}, {Category: "MEDIO", Min: 9.0}, {Category: "BASSO", Min: 0},
			}},
			{Name: "bank_branches_per_10000", Thresholds: []Threshold{
				{Category: "ALTO", Min: 6.0}, {Category: "MEDIO", Min: 4.0}, {Category: "BASSO", Min: 0},
			}},
			{Name: "laundering_reports", Thresholds: []Threshold{
				{Category: "ALTO", Min: 5.5}, {Category: "MEDIO", Min: 1.5}, {Category: "BASSO", Min: 0},
			}},
			{Name: "mafia_association", Thresholds: []Threshold{
				{Category: "ALTO", Min: 1.0}, {Category: "MEDIO", Min: 0.1}, {Category: "BASSO", Min: 0},
			}},
		},
	}
	if err := t.init(); err != nil {
		panic("invalid compiled-in categorization tables: " + err.Error())
	}
	return t
}

// DefaultMissingSentinels are raw field values treated as absent when no
// override is configured.
func DefaultMissingSentinels() []string {
	return []string{"", "NULL", "null", "None", "N/A", "#N/A", "n/a", "NaN", "nan", "<NA>"}
}
