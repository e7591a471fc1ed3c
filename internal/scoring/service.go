// Package scoring runs the monthly cycle: select customers, build their
// feature matrix, score it, gate the scores, and record the outcome.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/demographic"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/extraction"
	"github.com/opensource-finance/kestrel/internal/features"
	"github.com/opensource-finance/kestrel/internal/gate"
	"github.com/opensource-finance/kestrel/internal/registry"
	"github.com/opensource-finance/kestrel/internal/window"
)

// LatestPredictionsCacheKey is the cache key for the monitoring API's
// latest-prediction lookups.
const LatestPredictionsCacheKey = "latest_predictions"

const latestCacheTTL = 15 * time.Minute

// Deps are the collaborators a Service needs. All of them are explicit;
// the service holds no ambient state.
type Deps struct {
	Repo         domain.Repository
	Orchestrator *extraction.Orchestrator
	Windows      *window.Resolver
	Aggregator   *aggregate.Aggregator
	Categorizer  *demographic.Categorizer
	Assembler    *features.Assembler
	Scorer       domain.Scorer
	Gate         *gate.Gate
	Registry     *registry.Registry
	Bus          domain.EventBus
	Cache        domain.Cache
	Config       domain.ScoringConfig
	Logger       *slog.Logger
}

// Service drives one scoring cycle end to end.
type Service struct {
	deps   Deps
	log    *slog.Logger
	tracer trace.Tracer
}

// NewService creates the cycle service.
func NewService(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		deps:   deps,
		log:    log,
		tracer: otel.Tracer("kestrel/scoring"),
	}
}

// RunCycle executes the scoring cycle for one reference month. The returned
// run record is also persisted; an empty selection completes successfully
// with status "empty".
func (s *Service) RunCycle(ctx context.Context, rawRefMonth string) (*domain.ScoringRun, error) {
	ref, err := extraction.ParseRefMonth(rawRefMonth)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "scoring.cycle",
		trace.WithAttributes(attribute.String("ref_month", ref.String())))
	defer span.End()

	run := &domain.ScoringRun{
		ID:       uuid.New().String(),
		RefMonth: ref.String(),
		RegistryScope: domain.RegistryScope{
			SystemID:         s.deps.Config.SystemID,
			ControlCode:      s.deps.Config.ControlCode,
			IntermediaryCode: s.deps.Config.IntermediaryCode,
		},
		ModelName: s.deps.Config.ModelName,
		StartedAt: time.Now().UTC(),
	}

	if err := s.runCycle(ctx, ref, run); err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		s.saveRun(ctx, run)
		s.log.Error("scoring cycle failed",
			"run_id", run.ID,
			"ref_month", run.RefMonth,
			"error", err,
		)
		return run, err
	}

	run.FinishedAt = time.Now().UTC()
	s.saveRun(ctx, run)
	s.publishCycleCompleted(ctx, run)

	s.log.Info("scoring cycle finished",
		"run_id", run.ID,
		"ref_month", run.RefMonth,
		"status", run.Status,
		"eligible", run.EligibleCount,
		"scored", run.ScoredCount,
		"alerted", run.AlertedCount,
		"duration_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

func (s *Service) runCycle(ctx context.Context, ref extraction.RefMonth, run *domain.ScoringRun) error {
	ex, err := s.extract(ctx, ref)
	if err != nil {
		return err
	}
	run.EligibleCount = len(ex.EligibleIDs)
	run.SkippedCount = ex.SkippedCount
	run.SiblingCount = ex.SiblingCount

	matrix := s.buildMatrix(ctx, ref, ex)
	run.ScoredCount = len(matrix.Rows)
	if len(matrix.Rows) == 0 {
		run.Status = domain.RunStatusEmpty
		return nil
	}

	scores, err := s.score(ctx, matrix)
	if err != nil {
		return err
	}

	alerted, err := s.gateAndRecord(ctx, ref, run, matrix, scores)
	if err != nil {
		return err
	}
	run.AlertedCount = alerted
	run.Status = domain.RunStatusCompleted
	return nil
}

func (s *Service) extract(ctx context.Context, ref extraction.RefMonth) (*extraction.Extract, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.extract")
	defer span.End()
	return s.deps.Orchestrator.Run(ctx, ref)
}

// buildMatrix resolves each eligible customer's window and derives its
// feature row. Customers with no resolvable window are skipped silently.
func (s *Service) buildMatrix(ctx context.Context, ref extraction.RefMonth, ex *extraction.Extract) *domain.FeatureMatrix {
	_, span := s.tracer.Start(ctx, "scoring.features")
	defer span.End()

	var behavioral []*aggregate.Result
	var demographics []*demographic.Result

	for _, id := range ex.EligibleIDs {
		txs := ex.Transactions[id]
		events := ex.AlertEvents[id]

		w, ok := s.deps.Windows.Resolve(id, events, txs)
		if !ok {
			continue
		}
		behavioral = append(behavioral, s.deps.Aggregator.Aggregate(w, txs, events))

		if cust, found := ex.Customers[id]; found {
			demographics = append(demographics, s.deps.Categorizer.Categorize(cust, ref.Last()))
		}
	}

	return s.deps.Assembler.Assemble(behavioral, demographics)
}

func (s *Service) score(ctx context.Context, m *domain.FeatureMatrix) ([]float64, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.predict",
		trace.WithAttributes(attribute.Int("rows", len(m.Rows))))
	defer span.End()

	scores, err := s.deps.Scorer.PredictProbability(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if len(scores) != len(m.Rows) {
		return nil, fmt.Errorf("scorer returned %d scores for %d rows", len(scores), len(m.Rows))
	}
	return scores, nil
}

// gateAndRecord applies the acceptance gate, writes the registries and
// alert events, refreshes the cache, and emits per-customer events.
func (s *Service) gateAndRecord(ctx context.Context, ref extraction.RefMonth, run *domain.ScoringRun, m *domain.FeatureMatrix, scores []float64) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.gate")
	defer span.End()

	reportDate := ref.Last()
	all := make([]*domain.RegistryEntry, 0, len(m.Rows))
	var alerts []*domain.RegistryEntry

	for i, row := range m.Rows {
		entry := &domain.RegistryEntry{
			CustomerID: row.CustomerID,
			ReportDate: reportDate,
			Prediction: scores[i],
			ModelName:  s.deps.Config.ModelName,
		}
		all = append(all, entry)

		accepted, err := s.deps.Gate.Accept(scores[i], m.Activation(i))
		if err != nil {
			return 0, err
		}
		if accepted {
			alerts = append(alerts, entry)
		}
	}

	s.deps.Registry.Append(ctx, alerts)
	if err := s.deps.Registry.UpdateLatest(ctx, all); err != nil {
		return 0, err
	}
	s.refreshLatestCache(ctx)

	for i, row := range m.Rows {
		accepted := false
		for _, a := range alerts {
			if a.CustomerID == row.CustomerID {
				accepted = true
				break
			}
		}
		if !accepted {
			continue
		}

		ev := &domain.AlertEvent{
			CustomerID:       row.CustomerID,
			IntermediaryCode: s.deps.Config.IntermediaryCode,
			Date:             reportDate,
			Status:           domain.StatusToAlert,
			System:           s.deps.Config.SystemID,
		}
		if err := s.deps.Repo.SaveAlertEvent(ctx, ev); err != nil {
			s.log.Warn("failed to record alert event",
				"customer_id", row.CustomerID,
				"error", err,
			)
		}
		s.publishCustomerAlerted(ctx, run.ID, row.CustomerID, scores[i])
	}

	return len(alerts), nil
}

func (s *Service) refreshLatestCache(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	rows, err := s.deps.Registry.LatestPredictions(ctx)
	if err != nil {
		s.log.Warn("failed to reload latest predictions for cache", "error", err)
		return
	}
	if err := s.deps.Cache.SetLatestPredictions(ctx, s.deps.Config.IntermediaryCode, LatestPredictionsCacheKey, rows, latestCacheTTL); err != nil {
		s.log.Warn("failed to refresh prediction cache", "error", err)
	}
}

func (s *Service) saveRun(ctx context.Context, run *domain.ScoringRun) {
	if err := s.deps.Repo.SaveRun(ctx, run); err != nil {
		s.log.Error("failed to persist run record",
			"run_id", run.ID,
			"error", err,
		)
	}
}

func (s *Service) publishCycleCompleted(ctx context.Context, run *domain.ScoringRun) {
	if s.deps.Bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.CycleCompletedEvent{
		RunID:         run.ID,
		RefMonth:      run.RefMonth,
		EligibleCount: run.EligibleCount,
		ScoredCount:   run.ScoredCount,
		AlertedCount:  run.AlertedCount,
	})
	if err := s.deps.Bus.Publish(ctx, s.deps.Config.IntermediaryCode, domain.TopicCycleCompleted, payload); err != nil {
		s.log.Warn("failed to publish cycle event", "run_id", run.ID, "error", err)
	}
}

func (s *Service) publishCustomerAlerted(ctx context.Context, runID, customerID string, score float64) {
	if s.deps.Bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.CustomerAlertedEvent{
		RunID:      runID,
		CustomerID: customerID,
		Score:      score,
		ModelName:  s.deps.Config.ModelName,
	})
	if err := s.deps.Bus.Publish(ctx, s.deps.Config.IntermediaryCode, domain.TopicCustomerAlerted, payload); err != nil {
		s.log.Warn("failed to publish alert event", "customer_id", customerID, "error", err)
	}
}
