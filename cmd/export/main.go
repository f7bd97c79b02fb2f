// Command export builds the shelter dataset from the configured workbook and
// writes it as JSON, optionally publishing every feature to Kafka.
//
// Usage:
//
//	go run ./cmd/export -out public/shelters.json
//	go run ./cmd/export -out - -district 中央
//	go run ./cmd/export -out public/shelters.json -schedule "*/15 * * * *"
//
// With no schedule the export runs once. A schedule (flag or EXPORT_SCHEDULE)
// keeps the process running until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/bousai-map/internal/adapter/geojsonfile"
	"github.com/couchcryptid/bousai-map/internal/adapter/kafka"
	"github.com/couchcryptid/bousai-map/internal/adapter/xlsx"
	"github.com/couchcryptid/bousai-map/internal/config"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/couchcryptid/bousai-map/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

type exporter struct {
	pipeline  *pipeline.Pipeline
	publisher *kafka.Publisher
	out       string
	district  string
	logger    *slog.Logger
}

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := flag.String("out", "-", `output path, or "-" for stdout`)
	schedule := flag.String("schedule", cfg.ExportSchedule, "cron spec for repeated exports; empty runs once")
	district := flag.String("district", "", "only export shelters in this district")
	flag.Parse()

	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	e := &exporter{
		pipeline: pipeline.New(xlsx.NewLoader(cfg.DataFile, logger), cfg.Columns, logger, metrics, clock),
		out:      *out,
		district: *district,
		logger:   logger,
	}
	if cfg.KafkaEnabled {
		e.publisher = kafka.NewPublisher(cfg, clock, logger, metrics)
		defer func() {
			if err := e.publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *schedule == "" {
		return e.export(ctx)
	}
	return e.runScheduled(ctx, *schedule)
}

// runScheduled exports on every cron tick. A failed tick is logged and the
// next one runs normally.
func (e *exporter) runScheduled(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if err := e.export(ctx); err != nil {
			e.logger.Error("scheduled export failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	e.logger.Info("export scheduled", "schedule", spec, "out", e.out)

	<-ctx.Done()
	e.logger.Info("shutting down")
	<-c.Stop().Done()
	return nil
}

func (e *exporter) export(ctx context.Context) error {
	ds, err := e.pipeline.Build(ctx)
	if err != nil {
		return err
	}
	ds = ds.FilterByDistrict(e.district)

	if e.out == "-" {
		if err := geojsonfile.Encode(os.Stdout, ds); err != nil {
			return err
		}
	} else if err := geojsonfile.WriteFile(e.out, ds); err != nil {
		return err
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, ds); err != nil {
			return err
		}
	}

	e.logger.Info("export complete",
		"features", len(ds.GeoJSON.Features),
		"districts", len(ds.Districts),
		"out", e.out,
	)
	return nil
}
