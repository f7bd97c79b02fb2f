// Command genmock writes a sample shelter workbook for local development and
// tests. Rows cover every size category, a few districts, and the rejection
// cases of the coordinate gate. The workbook is read back through the real
// loader and pipeline so the printed stats match what the server returns.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw/bousai_data.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/bousai-map/internal/adapter/xlsx"
	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/couchcryptid/bousai-map/internal/pipeline"
)

var header = []any{"施設名", "北緯", "東経", "収容人数", "地区", "住所", "電話番号", "種別"}

// rows mixes valid shelters with rows the builder must drop.
var rows = [][]any{
	{"中央第一小学校", 35.6895, 139.6917, 600, "中央", "中央1-1-1", "03-0000-0001", "指定避難所"},
	{"中央公民館", 35.6870, 139.6950, 120, "中央", "中央2-3-4", "03-0000-0002", "指定避難所"},
	{"北町集会所", 35.7012, 139.6801, 40, "北町", "北町5-6", "", "一時避難場所"},
	{"北町中学校", 35.7050, 139.6755, 500, "北町", "北町1-2", "03-0000-0004", "指定避難所"},
	{"南台体育館", 35.6701, 139.7003, 99, "南台", "南台3-3", "03-0000-0005", "指定避難所"},
	{"南台公園", 35.6688, 139.7021, "", "南台", "南台4-1", "", "広域避難場所"},
	{"東浜防災センター", 35.6802, 139.7180, 100, "東浜", "東浜7-7", "03-0000-0007", "指定避難所"},
	{"地区未設定の施設", 35.6900, 139.6900, 30, "", "", "", "一時避難場所"},
	{"座標欠落の施設", "", 139.6900, 80, "中央", "", "", "指定避難所"},
	{"経度欠落の施設", 35.6900, "", 80, "北町", "", "", "指定避難所"},
	{"緯度ゼロの施設", 0, 139.6900, 80, "南台", "", "", "指定避難所"},
	{"座標ゼロの施設", 0, 0, 80, "東浜", "", "", "指定避難所"},
	{"座標文字列の施設", "北緯35度", 139.6900, 80, "中央", "", "", "指定避難所"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/raw/bousai_data.xlsx", "output path for the sample workbook")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	sheet := xlsx.Sheet{Name: "避難所一覧", Rows: append([][]any{header}, rows...)}
	if err := xlsx.WriteWorkbook(*out, sheet); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	log.Printf("wrote sample workbook: %s (%d rows)", *out, len(rows))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(xlsx.NewLoader(*out, logger), domain.DefaultColumns(), logger,
		observability.NewMetricsForTesting(), nil)

	ds, err := p.Build(context.Background())
	if err != nil {
		return fmt.Errorf("reading back workbook: %w", err)
	}

	printStats(ds)
	return nil
}

func printStats(ds domain.Dataset) {
	categories := map[string]int{}
	perDistrict := map[string]int{}
	for _, f := range ds.GeoJSON.Features {
		category, _ := f.Properties[domain.PropSizeCategory].(string)
		district, _ := f.Properties[domain.PropDistrict].(string)
		categories[category]++
		perDistrict[district]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d, features: %d\n", len(rows), len(ds.GeoJSON.Features))
	fmt.Printf("By size: small=%d, medium=%d, large=%d\n",
		categories[string(domain.SizeSmall)], categories[string(domain.SizeMedium)], categories[string(domain.SizeLarge)])
	fmt.Printf("Districts (%d): %v\n", len(ds.Districts), ds.Districts)
	for _, d := range ds.Districts {
		fmt.Printf("  %s=%d\n", d, perDistrict[d])
	}

	reasons := make([]string, 0, len(ds.Skipped))
	for r := range ds.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	fmt.Println("Skipped:")
	for _, r := range reasons {
		fmt.Printf("  %s=%d\n", r, ds.Skipped[domain.SkipReason(r)])
	}
}
