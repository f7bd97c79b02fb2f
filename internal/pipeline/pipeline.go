package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Loader reads the raw rows of the source dataset along with their sheet
// row numbers.
type Loader interface {
	Load(ctx context.Context) (domain.Table, error)
	CheckSource(ctx context.Context) error
}

// Pipeline runs one load-build cycle per call. It holds no dataset state:
// every Build re-reads the source, so concurrent calls never share output.
type Pipeline struct {
	loader  Loader
	columns domain.ColumnMap
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates a Pipeline. Pass a nil clock to use the real clock.
func New(loader Loader, columns domain.ColumnMap, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		loader:  loader,
		columns: columns,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// CheckReadiness returns nil when the source file is present.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	return p.loader.CheckSource(ctx)
}

// Build loads the source and transforms it into a Dataset. Source errors are
// fatal and returned as-is; row-level problems only shrink the output.
func (p *Pipeline) Build(ctx context.Context) (domain.Dataset, error) {
	start := p.clock.Now()

	table, err := p.loader.Load(ctx)
	if err != nil {
		p.metrics.SourceErrors.WithLabelValues(sourceErrorKind(err)).Inc()
		return domain.Dataset{}, err
	}
	rows := len(table.Records)
	p.metrics.RowsRead.Add(float64(rows))

	ds := domain.BuildTable(table, p.columns, p.logger)

	built := len(ds.GeoJSON.Features)
	p.metrics.FeaturesBuilt.Add(float64(built))
	for reason, n := range ds.Skipped {
		p.metrics.RecordsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
	p.metrics.LastBuildSize.Set(float64(built))
	p.metrics.DistrictsListed.Set(float64(len(ds.Districts)))

	elapsed := p.clock.Since(start)
	p.metrics.BuildDuration.Observe(elapsed.Seconds())

	p.logger.Debug("dataset built",
		"rows", rows,
		"features", built,
		"skipped", rows-built,
		"districts", len(ds.Districts),
		"duration", elapsed,
	)
	return ds, nil
}

func sourceErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSourceParse):
		return "parse"
	default:
		return "other"
	}
}
