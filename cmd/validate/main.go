// Command validate audits a shelter workbook before it is published. It loads
// the sheet through the same loader and builder the server uses and reports
// rows that will be dropped or rendered with degraded data: missing columns,
// coordinates that fail the gate or look implausible, unreadable capacities,
// missing districts, and duplicate facilities.
//
// Usage:
//
//	go run ./cmd/validate -file data/raw/bousai_data.xlsx
//
// Column labels come from the usual configuration (COLUMN_* or COLUMNS_FILE).
// The exit code is 1 when any phase reports a problem.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/bousai-map/internal/adapter/xlsx"
	"github.com/couchcryptid/bousai-map/internal/config"
	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/paulmach/orb"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	file := flag.String("file", cfg.DataFile, "path to the shelter workbook")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*file, cfg.Columns); code != 0 {
		os.Exit(code)
	}
}

func run(path string, cols domain.ColumnMap) int {
	fmt.Println("=== Shelter Workbook Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	table, err := xlsx.NewLoader(path, logger).Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load workbook: %v\n", err)
		return 1
	}

	ds := domain.BuildTable(table, cols, logger)

	// ── Run validation phases ──
	phases := []*phase{
		validateColumns(table, cols),
		validateCoordinates(table, cols),
		validateCapacity(table, cols),
		validateDistricts(table, cols),
		validateDuplicates(table, cols),
		validateOutput(table, ds),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d rows, %d features, %d districts\n",
		len(table.Records), len(ds.GeoJSON.Features), len(ds.Districts))
	printCategories(ds)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func label(rec domain.RawRecord, cols domain.ColumnMap) string {
	if name, ok := rec[cols.Name]; ok {
		return fmt.Sprint(name)
	}
	return "(unnamed)"
}

// ── Phases ──

func validateColumns(table domain.Table, cols domain.ColumnMap) *phase {
	p := &phase{name: "Configured columns present"}
	if len(table.Records) == 0 {
		p.errorf("workbook has no data rows")
		return p
	}

	present := make(map[string]bool)
	for _, rec := range table.Records {
		for k := range rec {
			present[k] = true
		}
	}
	for _, c := range []struct{ field, column string }{
		{"name", cols.Name},
		{"latitude", cols.Latitude},
		{"longitude", cols.Longitude},
		{"capacity", cols.Capacity},
		{"district", cols.District},
	} {
		if !present[c.column] {
			p.errorf("%s column %q has no values in any row", c.field, c.column)
		}
	}
	return p
}

func validateCoordinates(table domain.Table, cols domain.ColumnMap) *phase {
	p := &phase{name: "Coordinates usable"}
	for i, rec := range table.Records {
		f, reason := domain.ParseFacility(rec, cols)
		if reason != domain.SkipNone {
			p.errorf("row %d %s: dropped (%s): lat=%v lng=%v",
				table.Row(i), label(rec, cols), reason, rec[cols.Latitude], rec[cols.Longitude])
			continue
		}
		checkPlausible(p, table.Row(i), f)
	}
	return p
}

// checkPlausible flags kept rows whose coordinates cannot be on Earth. These
// pass the gate and still render, usually far off the map.
func checkPlausible(p *phase, row int, f domain.Facility) {
	if math.Abs(f.Latitude) > 90 {
		if math.Abs(f.Longitude) <= 90 {
			p.errorf("row %d %s: latitude %g out of range (columns swapped?)", row, f.Name, f.Latitude)
			return
		}
		p.errorf("row %d %s: latitude %g out of range", row, f.Name, f.Latitude)
	}
	if math.Abs(f.Longitude) > 180 {
		p.errorf("row %d %s: longitude %g out of range", row, f.Name, f.Longitude)
	}
}

func validateCapacity(table domain.Table, cols domain.ColumnMap) *phase {
	p := &phase{name: "Capacity readable"}
	for i, rec := range table.Records {
		raw, ok := rec[cols.Capacity]
		if !ok {
			continue
		}
		f, reason := domain.ParseFacility(rec, cols)
		if reason != domain.SkipNone || f.Capacity != 0 {
			continue
		}
		if v, isNum := raw.(float64); isNum && v == 0 {
			continue
		}
		p.errorf("row %d %s: capacity %v read as 0 (size %s)", table.Row(i), f.Name, raw, f.SizeCategory)
	}
	return p
}

func validateDistricts(table domain.Table, cols domain.ColumnMap) *phase {
	p := &phase{name: "Districts assigned"}
	for i, rec := range table.Records {
		f, reason := domain.ParseFacility(rec, cols)
		if reason != domain.SkipNone {
			continue
		}
		if f.District == "" {
			p.errorf("row %d %s: no district, hidden by every district filter", table.Row(i), f.Name)
		}
	}
	return p
}

func validateDuplicates(table domain.Table, cols domain.ColumnMap) *phase {
	p := &phase{name: "No duplicate facilities"}
	type key struct {
		name string
		pt   orb.Point
	}
	first := make(map[key]int)
	for i, rec := range table.Records {
		f, reason := domain.ParseFacility(rec, cols)
		if reason != domain.SkipNone {
			continue
		}
		k := key{name: f.Name, pt: orb.Point{f.Longitude, f.Latitude}}
		if prev, ok := first[k]; ok {
			p.errorf("row %d %s: duplicates row %d", table.Row(i), f.Name, table.Row(prev))
			continue
		}
		first[k] = i
	}
	return p
}

// validateOutput checks the built dataset against the rows it came from.
func validateOutput(table domain.Table, ds domain.Dataset) *phase {
	p := &phase{name: "Output consistent with source"}

	skipped := 0
	for _, n := range ds.Skipped {
		skipped += n
	}
	if got := len(ds.GeoJSON.Features); got != len(table.Records)-skipped {
		p.errorf("features: got %d, want %d rows - %d skipped", got, len(table.Records), skipped)
	}

	seen := make(map[string]bool, len(ds.Districts))
	for _, d := range ds.Districts {
		if d == "" {
			p.errorf("district list contains an empty entry")
		}
		if seen[d] {
			p.errorf("district %q listed twice", d)
		}
		seen[d] = true
	}

	for i, f := range ds.GeoJSON.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			p.errorf("feature %d: geometry is %s, want Point", i, f.Geometry.GeoJSONType())
			continue
		}
		lat, _ := f.Properties[domain.PropLatitude].(float64)
		lon, _ := f.Properties[domain.PropLongitude].(float64)
		if pt.Lat() != lat || pt.Lon() != lon {
			p.errorf("feature %d: geometry %v does not match properties [%g, %g]", i, pt, lon, lat)
		}
		if d, _ := f.Properties[domain.PropDistrict].(string); d != "" && !seen[d] {
			p.errorf("feature %d: district %q missing from district list", i, d)
		}
	}
	return p
}

func printCategories(ds domain.Dataset) {
	counts := map[string]int{}
	for _, f := range ds.GeoJSON.Features {
		c, _ := f.Properties[domain.PropSizeCategory].(string)
		counts[c]++
	}
	fmt.Printf("By size: small=%d, medium=%d, large=%d\n",
		counts[string(domain.SizeSmall)], counts[string(domain.SizeMedium)], counts[string(domain.SizeLarge)])
	fmt.Printf("Skipped: invalid_latitude=%d, invalid_longitude=%d, zero_coordinate=%d\n",
		ds.Skipped[domain.SkipInvalidLatitude], ds.Skipped[domain.SkipInvalidLongitude], ds.Skipped[domain.SkipZeroCoordinate])
}
