package window

import (
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveAnchorsOnLatestAlert(t *testing.T) {
	r := NewResolver(12)

	events := []*domain.AlertEvent{
		{CustomerID: "c1", Date: date(2023, 3, 10), Status: domain.StatusToAlert},
		{CustomerID: "c1", Date: date(2023, 9, 5), Status: domain.StatusToAlert},
		{CustomerID: "c1", Date: date(2023, 11, 1), Status: domain.StatusNotToAlert},
	}
	txs := []*domain.Transaction{
		{Date: date(2023, 12, 20)},
	}

	w, ok := r.Resolve("c1", events, txs)
	if !ok {
		t.Fatal("expected a window")
	}
	if !w.End.Equal(date(2023, 9, 5)) {
		t.Errorf("anchor = %v, want 2023-09-05", w.End)
	}
	if !w.Start.Equal(date(2022, 9, 5)) {
		t.Errorf("start = %v, want 2022-09-05", w.Start)
	}
}

func TestResolveFallsBackToLatestTransaction(t *testing.T) {
	r := NewResolver(12)

	events := []*domain.AlertEvent{
		{CustomerID: "c1", Date: date(2023, 5, 1), Status: domain.StatusNotToAlert},
	}
	txs := []*domain.Transaction{
		{Date: date(2023, 2, 14)},
		{Date: date(2023, 8, 30)},
		{Date: date(2023, 6, 1)},
	}

	w, ok := r.Resolve("c1", events, txs)
	if !ok {
		t.Fatal("expected a window")
	}
	if !w.End.Equal(date(2023, 8, 30)) {
		t.Errorf("anchor = %v, want 2023-08-30", w.End)
	}
}

func TestResolveNoHistory(t *testing.T) {
	r := NewResolver(12)

	if _, ok := r.Resolve("c1", nil, nil); ok {
		t.Error("expected no window for a customer with no history")
	}
}

func TestWindowContains(t *testing.T) {
	w := domain.ObservationWindow{
		Start: date(2022, 9, 5),
		End:   date(2023, 9, 5),
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"inside", date(2023, 1, 1), true},
		{"start boundary", date(2022, 9, 5), true},
		{"end boundary", date(2023, 9, 5), true},
		{"before", date(2022, 9, 4), false},
		{"after", date(2023, 9, 6), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
