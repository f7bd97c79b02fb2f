package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/couchcryptid/bousai-map/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	records  []domain.RawRecord
	err      error
	checkErr error
	calls    int
	onLoad   func()
}

func (m *mockLoader) Load(_ context.Context) (domain.Table, error) {
	m.calls++
	if m.onLoad != nil {
		m.onLoad()
	}
	if m.err != nil {
		return domain.Table{}, m.err
	}
	return domain.Table{Records: m.records}, nil
}

func (m *mockLoader) CheckSource(_ context.Context) error { return m.checkErr }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testColumns() domain.ColumnMap {
	return domain.ColumnMap{Name: "name", Latitude: "lat", Longitude: "lng", Capacity: "capacity", District: "district"}
}

func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{"name": "Shelter A", "lat": "35.0", "lng": "139.0", "capacity": "750", "district": "North"},
		{"name": "Shelter B", "lat": "0", "lng": "139.0", "capacity": "10", "district": "Ghost"},
		{"name": "Shelter C", "lat": "34.5", "lng": "135.5", "district": "South"},
		{"name": "Shelter D", "lat": "n/a", "lng": "135.5"},
	}
}

// --- tests ---

func TestPipeline_Build_HappyPath(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loader := &mockLoader{
		records: sampleRecords(),
		onLoad:  func() { clock.Advance(250 * time.Millisecond) },
	}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(loader, testColumns(), discardLogger(), metrics, clock)

	ds, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.GeoJSON.Features, 2)
	assert.Equal(t, []string{"North", "South"}, ds.Districts)
	assert.Equal(t, "large", ds.GeoJSON.Features[0].Properties[domain.PropSizeCategory])
	assert.Equal(t, "small", ds.GeoJSON.Features[1].Properties[domain.PropSizeCategory])

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.RowsRead))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FeaturesBuilt))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsSkipped.WithLabelValues("zero_coordinate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsSkipped.WithLabelValues("invalid_latitude")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.LastBuildSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DistrictsListed))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.BuildDuration))
}

func TestPipeline_Build_RereadsSourceEachCall(t *testing.T) {
	loader := &mockLoader{records: sampleRecords()}
	p := pipeline.New(loader, testColumns(), discardLogger(), observability.NewMetricsForTesting(), nil)

	first, err := p.Build(context.Background())
	require.NoError(t, err)
	second, err := p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, loader.calls)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("builds of an unchanged source differ (-first +second):\n%s", diff)
	}
	assert.NotSame(t, first.GeoJSON, second.GeoJSON)
}

func TestPipeline_Build_SourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"not found", domain.NewNotFoundError("missing.xlsx", nil), "not_found"},
		{"parse", domain.NewParseError("bad.xlsx", errors.New("zip: not a valid zip file")), "parse"},
		{"cancelled", context.Canceled, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetricsForTesting()
			p := pipeline.New(&mockLoader{err: tt.err}, testColumns(), discardLogger(), metrics, nil)

			ds, err := p.Build(context.Background())

			require.ErrorIs(t, err, tt.err)
			assert.Nil(t, ds.GeoJSON, "no partial dataset on a fatal error")
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceErrors.WithLabelValues(tt.kind)))
			assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RowsRead))
		})
	}
}

func TestPipeline_CheckReadiness(t *testing.T) {
	ready := pipeline.New(&mockLoader{}, testColumns(), discardLogger(), observability.NewMetricsForTesting(), nil)
	assert.NoError(t, ready.CheckReadiness(context.Background()))

	missing := pipeline.New(
		&mockLoader{checkErr: domain.NewNotFoundError("missing.xlsx", nil)},
		testColumns(), discardLogger(), observability.NewMetricsForTesting(), nil,
	)
	assert.ErrorIs(t, missing.CheckReadiness(context.Background()), domain.ErrSourceNotFound)
}
