package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func testMatrix() *domain.FeatureMatrix {
	m := domain.NewFeatureMatrix(domain.Schema{
		{Name: "tot_amount_in", Kind: domain.FieldNumeric},
		{Name: "age_band", Kind: domain.FieldCategorical},
	})
	m.Append(domain.FeatureRow{CustomerID: "c1", Values: []any{1000.0, "40-49"}})
	m.Append(domain.FeatureRow{CustomerID: "c2", Values: []any{50.0, "20-29"}})
	return m
}

func TestModelClientPredict(t *testing.T) {
	var got modelRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"probabilities": []float64{0.8, 0.2}})
	}))
	defer srv.Close()

	c := NewModelClient(srv.URL, "kestrel-20240101", 5*time.Second)
	scores, err := c.PredictProbability(context.Background(), testMatrix())
	if err != nil {
		t.Fatalf("PredictProbability: %v", err)
	}

	if len(scores) != 2 || scores[0] != 0.8 {
		t.Errorf("scores = %v", scores)
	}
	if got.Model != "kestrel-20240101" {
		t.Errorf("model = %s", got.Model)
	}
	if len(got.Columns) != 2 || got.Columns[0] != "tot_amount_in" {
		t.Errorf("columns = %v", got.Columns)
	}
	if len(got.Rows) != 2 || got.Rows[0].CustomerID != "c1" {
		t.Errorf("rows = %+v", got.Rows)
	}
}

func TestModelClientCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"probabilities": []float64{0.8}})
	}))
	defer srv.Close()

	c := NewModelClient(srv.URL, "m", time.Second)
	if _, err := c.PredictProbability(context.Background(), testMatrix()); err == nil {
		t.Fatal("expected error for row/probability count mismatch")
	}
}

func TestModelClientExplain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/explain" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"contributions": []map[string]float64{
			{"tot_amount_in": 0.4},
			{"tot_amount_in": -0.1},
		}})
	}))
	defer srv.Close()

	c := NewModelClient(srv.URL, "m", time.Second)
	out, err := c.Explain(context.Background(), testMatrix())
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(out) != 2 || out[0]["tot_amount_in"] != 0.4 {
		t.Errorf("contributions = %v", out)
	}
}

func TestModelClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewModelClient(srv.URL, "m", time.Second)
	if _, err := c.PredictProbability(context.Background(), testMatrix()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
