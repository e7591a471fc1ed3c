package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	intermediary := "06789"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndLoadCustomers", func(t *testing.T) {
		c := &domain.Customer{
			ID:               "0000000000000001",
			IntermediaryCode: intermediary,
			BirthDate:        "1980-06-01",
			LegalForm:        "PF",
			Province:         "MI",
			SectorCode:       "600",
			ActivityCode:     "47",
			GrossIncome:      42000,
			ChecksRequested:  3,
			RiskProfile:      2,
		}
		if err := repo.SaveCustomer(ctx, c); err != nil {
			t.Fatalf("SaveCustomer failed: %v", err)
		}

		// upsert keeps one row
		c.GrossIncome = 45000
		if err := repo.SaveCustomer(ctx, c); err != nil {
			t.Fatalf("SaveCustomer upsert failed: %v", err)
		}

		loaded, err := repo.CustomersByIDs(ctx, intermediary, []string{c.ID})
		if err != nil {
			t.Fatalf("CustomersByIDs failed: %v", err)
		}
		if len(loaded) != 1 {
			t.Fatalf("expected 1 customer, got %d", len(loaded))
		}
		if loaded[0].GrossIncome != 45000 {
			t.Errorf("expected upserted income 45000, got %v", loaded[0].GrossIncome)
		}
		if loaded[0].Province != "MI" {
			t.Errorf("expected province MI, got %s", loaded[0].Province)
		}
	})

	t.Run("TransactionsAndLinks", func(t *testing.T) {
		tx := &domain.Transaction{
			OperationCode:      "op-001",
			IntermediaryCode:   intermediary,
			Direction:          domain.DirectionIn,
			Amount:             1500,
			Date:               day(10),
			CausalCode:         "01",
			CounterpartCountry: "IT",
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
		link := &domain.SubjectLink{
			OperationCode:    "op-001",
			CustomerID:       "0000000000000001",
			IntermediaryCode: intermediary,
			Role:             domain.RolePrimary,
		}
		if err := repo.SaveSubjectLink(ctx, link); err != nil {
			t.Fatalf("SaveSubjectLink failed: %v", err)
		}
		// duplicate link is a no-op
		if err := repo.SaveSubjectLink(ctx, link); err != nil {
			t.Fatalf("duplicate SaveSubjectLink failed: %v", err)
		}

		ids, err := repo.CustomerIDsActiveBetween(ctx, intermediary, day(1), day(30))
		if err != nil {
			t.Fatalf("CustomerIDsActiveBetween failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "0000000000000001" {
			t.Errorf("active ids = %v", ids)
		}

		// outside the range
		ids, err = repo.CustomerIDsActiveBetween(ctx, intermediary, day(11), day(30))
		if err != nil {
			t.Fatalf("CustomerIDsActiveBetween failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no active ids outside range, got %v", ids)
		}

		txs, err := repo.TransactionsByCustomerIDs(ctx, intermediary, []string{"0000000000000001"})
		if err != nil {
			t.Fatalf("TransactionsByCustomerIDs failed: %v", err)
		}
		if len(txs) != 1 || txs[0].Amount != 1500 {
			t.Errorf("transactions = %+v", txs)
		}

		links, err := repo.SubjectLinksByCustomerIDs(ctx, intermediary, []string{"0000000000000001"})
		if err != nil {
			t.Fatalf("SubjectLinksByCustomerIDs failed: %v", err)
		}
		if len(links) != 1 || links[0].Role != domain.RolePrimary {
			t.Errorf("links = %+v", links)
		}
	})

	t.Run("IntermediaryIsolation", func(t *testing.T) {
		loaded, err := repo.CustomersByIDs(ctx, "99999", []string{"0000000000000001"})
		if err != nil {
			t.Fatalf("CustomersByIDs failed: %v", err)
		}
		if len(loaded) != 0 {
			t.Errorf("expected no customers for another intermediary, got %d", len(loaded))
		}
	})

	t.Run("AlertEvents", func(t *testing.T) {
		events := []*domain.AlertEvent{
			{CustomerID: "0000000000000001", IntermediaryCode: intermediary, Date: day(5), Status: domain.StatusToAlert, System: "KESTREL"},
			{CustomerID: "0000000000000002", IntermediaryCode: intermediary, Date: day(6), Status: domain.StatusToAlert, System: "LEGACY"},
			{CustomerID: "0000000000000003", IntermediaryCode: intermediary, Date: day(7), Status: domain.StatusNotToAlert, System: "LEGACY"},
		}
		for _, ev := range events {
			if err := repo.SaveAlertEvent(ctx, ev); err != nil {
				t.Fatalf("SaveAlertEvent failed: %v", err)
			}
		}

		history, err := repo.AlertEventsByCustomerIDs(ctx, intermediary, []string{"0000000000000001"})
		if err != nil {
			t.Fatalf("AlertEventsByCustomerIDs failed: %v", err)
		}
		if len(history) != 1 || history[0].Status != domain.StatusToAlert {
			t.Errorf("history = %+v", history)
		}

		legacy, err := repo.AlertEventsBySystems(ctx, intermediary, []string{"LEGACY"}, day(1), day(30))
		if err != nil {
			t.Fatalf("AlertEventsBySystems failed: %v", err)
		}
		if len(legacy) != 2 {
			t.Errorf("expected 2 LEGACY events, got %d", len(legacy))
		}
	})
}

func TestRegistryPersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	scope := domain.RegistryScope{
		SystemID:         "KESTREL",
		ControlCode:      "SCORING",
		IntermediaryCode: "06789",
	}

	t.Run("AppendAndQuery", func(t *testing.T) {
		entries := []*domain.RegistryEntry{
			{RegistryScope: scope, CustomerID: "c1", ReportDate: day(30), Prediction: 0.9, ModelName: "m1"},
			{RegistryScope: scope, CustomerID: "c2", ReportDate: day(30), Prediction: 0.7, ModelName: "m1"},
		}
		for _, e := range entries {
			if err := repo.AppendRegistryEntry(ctx, e); err != nil {
				t.Fatalf("AppendRegistryEntry failed: %v", err)
			}
		}

		// same customer, same date: primary key violation
		err := repo.AppendRegistryEntry(ctx, entries[0])
		if err == nil {
			t.Error("expected duplicate append to fail")
		}

		// same customer, later date: fine
		later := &domain.RegistryEntry{RegistryScope: scope, CustomerID: "c1", ReportDate: day(31) /* July 1 */, Prediction: 0.8, ModelName: "m1"}
		if err := repo.AppendRegistryEntry(ctx, later); err != nil {
			t.Fatalf("append with new date failed: %v", err)
		}

		ids, err := repo.RegistryCustomerIDs(ctx, scope, day(1), day(30))
		if err != nil {
			t.Fatalf("RegistryCustomerIDs failed: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("registry ids = %v, want 2", ids)
		}
	})

	t.Run("ReplaceLatest", func(t *testing.T) {
		rows := []*domain.RegistryEntry{
			{RegistryScope: scope, CustomerID: "c1", ReportDate: day(30), Prediction: 0.9, ModelName: "m1"},
		}
		if err := repo.ReplaceLatestPredictions(ctx, scope, rows); err != nil {
			t.Fatalf("ReplaceLatestPredictions failed: %v", err)
		}

		rows = []*domain.RegistryEntry{
			{RegistryScope: scope, CustomerID: "c2", ReportDate: day(30), Prediction: 0.5, ModelName: "m1"},
			{RegistryScope: scope, CustomerID: "c3", ReportDate: day(30), Prediction: 0.6, ModelName: "m1"},
		}
		if err := repo.ReplaceLatestPredictions(ctx, scope, rows); err != nil {
			t.Fatalf("second ReplaceLatestPredictions failed: %v", err)
		}

		stored, err := repo.LatestPredictionRows(ctx, scope)
		if err != nil {
			t.Fatalf("LatestPredictionRows failed: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("expected full rewrite to 2 rows, got %d", len(stored))
		}
		if stored[0].CustomerID != "c2" {
			t.Errorf("expected c1 gone after rewrite, got %s", stored[0].CustomerID)
		}
	})
}

func TestRunRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := &domain.ScoringRun{
		ID:       "run-001",
		RefMonth: "062024",
		RegistryScope: domain.RegistryScope{
			SystemID: "KESTREL", ControlCode: "SCORING", IntermediaryCode: "06789",
		},
		ModelName:     "m1",
		Status:        domain.RunStatusCompleted,
		EligibleCount: 120,
		ScoredCount:   120,
		AlertedCount:  7,
		StartedAt:     day(30),
		FinishedAt:    day(30).Add(3 * time.Minute),
	}

	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// update in place
	run.Status = domain.RunStatusFailed
	run.Error = "model unavailable"
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun update failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != domain.RunStatusFailed || got.Error != "model unavailable" {
		t.Errorf("run = %+v", got)
	}
	if got.EligibleCount != 120 {
		t.Errorf("eligible = %d, want 120", got.EligibleCount)
	}

	if _, err := repo.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	runs, err := repo.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}
