package params

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestTypedAccessors(t *testing.T) {
	s := NewSet([]Parameter{
		{Name: "model_name", Type: TypeString, Value: "kestrel-20240101"},
		{Name: "skip_months", Type: TypeNumeric, Value: "6"},
		{Name: "threshold", Type: TypeNumeric, Value: "0.4"},
		{Name: "excluded_systems", Type: TypeStringList, Value: `["LEGACY","DISCOVERY"]`},
		{Name: "bad_number", Type: TypeNumeric, Value: "six"},
		{Name: "bad_list", Type: TypeStringList, Value: "LEGACY,DISCOVERY"},
	})

	if v, err := s.String("model_name"); err != nil || v != "kestrel-20240101" {
		t.Errorf("String = %q, %v", v, err)
	}
	if v, err := s.Int("skip_months"); err != nil || v != 6 {
		t.Errorf("Int = %d, %v", v, err)
	}
	if v, err := s.Float("threshold"); err != nil || v != 0.4 {
		t.Errorf("Float = %v, %v", v, err)
	}
	if v, err := s.StringList("excluded_systems"); err != nil || len(v) != 2 {
		t.Errorf("StringList = %v, %v", v, err)
	}

	var verr *domain.ValidationError

	// wrong tag
	if _, err := s.Int("model_name"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for tag mismatch, got %v", err)
	}
	// value does not parse under its tag
	if _, err := s.Int("bad_number"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for bad number, got %v", err)
	}
	if _, err := s.StringList("bad_list"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for bad list, got %v", err)
	}
	// absent
	if _, err := s.String("missing"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing parameter, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parameters":[
			{"name":"threshold","type":"numeric","value":"0.55"},
			{"name":"model_name","type":"string","value":"kestrel-20250101"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	set, err := c.Fetch(context.Background(), "KESTREL", "SCORING")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotPath != "/v1/systems/KESTREL/controls/SCORING/parameters" {
		t.Errorf("path = %s", gotPath)
	}
	if v, _ := set.Float("threshold"); v != 0.55 {
		t.Errorf("threshold = %v", v)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "KESTREL", "SCORING"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestApplyScoring(t *testing.T) {
	cfg := domain.ScoringConfig{Threshold: 0.4, SkipMonths: 6, ModelName: "old"}

	s := NewSet([]Parameter{
		{Name: "threshold", Type: TypeNumeric, Value: "0.6"},
		{Name: "skip_months", Type: TypeNumeric, Value: "3"},
		{Name: "model_name", Type: TypeString, Value: "kestrel-20250101"},
		{Name: "excluded_systems", Type: TypeStringList, Value: `["LEGACY"]`},
		{Name: "unrelated", Type: TypeString, Value: "ignored"},
	})

	if err := ApplyScoring(s, &cfg); err != nil {
		t.Fatalf("ApplyScoring: %v", err)
	}
	if cfg.Threshold != 0.6 || cfg.SkipMonths != 3 || cfg.ModelName != "kestrel-20250101" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.ExcludedSystems) != 1 || cfg.ExcludedSystems[0] != "LEGACY" {
		t.Errorf("excluded = %v", cfg.ExcludedSystems)
	}
}

func TestApplyScoringRejectsBadValues(t *testing.T) {
	cfg := domain.ScoringConfig{}
	s := NewSet([]Parameter{
		{Name: "threshold", Type: TypeString, Value: "0.6"}, // wrong tag
	})
	if err := ApplyScoring(s, &cfg); err == nil {
		t.Fatal("expected error for mistagged threshold")
	}
}
