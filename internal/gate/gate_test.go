package gate

import "testing"

func TestDefaultThresholdCut(t *testing.T) {
	g, err := New("", 0.4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		score float64
		want  bool
	}{
		{0.9, true},
		{0.4, true},
		{0.39, false},
		{0, false},
	}
	for _, tt := range tests {
		got, err := g.Accept(tt.score, nil)
		if err != nil {
			t.Fatalf("Accept(%v): %v", tt.score, err)
		}
		if got != tt.want {
			t.Errorf("Accept(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestFeatureAwareExpression(t *testing.T) {
	// suppress alerts for customers with no high-risk country exposure
	g, err := New(`score >= threshold && double(features["risk_country_ratio_out"]) > 0.0`, 0.4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := g.Accept(0.8, map[string]any{"risk_country_ratio_out": 0.3})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !got {
		t.Error("expected acceptance with exposure present")
	}

	got, err = g.Accept(0.8, map[string]any{"risk_country_ratio_out": 0.0})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got {
		t.Error("expected suppression with zero exposure")
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := New("score >=", 0.4); err == nil {
		t.Error("expected compile error for malformed expression")
	}
	if _, err := New("score + 1.0", 0.4); err == nil {
		t.Error("expected type error for non-bool expression")
	}
}
