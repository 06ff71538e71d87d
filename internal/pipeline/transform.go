package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
)

// BeachPathResolver returns where a survey's to-beach photo is copied to.
type BeachPathResolver interface {
	ToBeachPath(survey domain.Survey) string
}

// SurveyTransformer implements Transformer. Kelp surveys are enriched with
// their tide station and referenced to MLLW.
type SurveyTransformer struct {
	kind      string
	startDate time.Time
	registry  *domain.StationRegistry
	tides     domain.TideDataSource
	beach     BeachPathResolver
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a SurveyTransformer for one survey kind. A zero
// startDate keeps every row.
func NewTransformer(kind string, startDate time.Time, registry *domain.StationRegistry, tides domain.TideDataSource, beach BeachPathResolver, logger *slog.Logger, metrics *observability.Metrics) *SurveyTransformer {
	return &SurveyTransformer{
		kind:      kind,
		startDate: startDate,
		registry:  registry,
		tides:     tides,
		beach:     beach,
		logger:    logger,
		metrics:   metrics,
	}
}

func (t *SurveyTransformer) Transform(ctx context.Context, raw domain.RawRow) (domain.Survey, error) {
	switch t.kind {
	case domain.KindAnchoring:
		s, err := domain.ParseAnchoringRow(raw)
		if err != nil {
			return nil, err
		}
		if err := t.checkStartDate(s.SubmittedAt); err != nil {
			return nil, err
		}
		return s, nil
	case domain.KindKelp:
		return t.transformKelp(ctx, raw)
	default:
		return nil, fmt.Errorf("unsupported survey kind %q", t.kind)
	}
}

func (t *SurveyTransformer) transformKelp(ctx context.Context, raw domain.RawRow) (domain.Survey, error) {
	s, err := domain.ParseKelpRow(raw)
	if err != nil {
		return nil, err
	}
	if err := t.checkStartDate(s.SubmittedAt); err != nil {
		return nil, err
	}
	if err := s.Enrich(ctx, t.registry, t.tides); err != nil {
		return nil, fmt.Errorf("enrich %s: %w", s.FilePrefix(), err)
	}

	domain.BuildGISRow(ctx, s, t.beach.ToBeachPath(s), t.logger)

	if s.Adjuster.Resolved() {
		source := "error"
		if level, err := s.Adjuster.Resolve(ctx); err == nil {
			source = level.SourceName
			if level.IsMissing() {
				source = "missing"
			}
		}
		t.metrics.WaterLevelSource.WithLabelValues(source).Inc()
	}
	return s, nil
}

func (t *SurveyTransformer) checkStartDate(submitted time.Time) error {
	if t.startDate.IsZero() || submitted.IsZero() {
		return nil
	}
	if submitted.Before(t.startDate) {
		return fmt.Errorf("%w: %s", domain.ErrBeforeStartDate, submitted.Format(time.DateOnly))
	}
	return nil
}
