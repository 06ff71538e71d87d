// Command validate checks a produced GIS worksheet for internal consistency:
// the header layout, MLLW values for every row with a tide station, one
// water-level offset shared by all MLLW columns of a row, and unique survey ids.
//
// Usage:
//
//	go run ./cmd/validate -gis output/gisWorksheet2023.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/nwstraits/survey-etl/internal/adapter/xlsx"
	"github.com/nwstraits/survey-etl/internal/domain"
)

// offsetTolerance allows for each column being rounded to 2 places on its own.
const offsetTolerance = 0.02 + 1e-9

// mllwPairs maps each measured column to its MLLW-referenced column.
var mllwPairs = [][2]string{
	{"Tidal_Ht", "MLLW_Tidal_Ht_meters"},
	{"D1shore_Edge", "MLLW_D1shore_meters"},
	{"D1water_Edge", "MLLW_D1water_meters"},
	{"D2shore_Edge", "MLLW_D2shore_meters"},
	{"D2water_Edge", "MLLW_D2water_meters"},
}

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
	gisPath := flag.String("gis", "", "path to a gisWorksheet{year}.xlsx file")
	flag.Parse()

	if *gisPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*gisPath, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(gisPath string, out io.Writer) int {
	fmt.Fprintln(out, "=== GIS Worksheet Validation ===")
	fmt.Fprintln(out)

	reader, err := xlsx.NewReader(gisPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open worksheet: %v\n", err)
		return 1
	}
	defer reader.Close()

	rows, err := reader.ReadAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read worksheet: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeader(reader.Header()),
		validateMLLWPresent(rows),
		validateOffsets(rows),
		validateSurveyIDs(rows),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateHeader(header []string) *phase {
	p := &phase{name: "Header layout"}
	want := domain.GISHeaderLabels()
	if !slices.Equal(header, want) {
		p.errorf("header %v, want %v", header, want)
	}
	return p
}

func validateMLLWPresent(rows []domain.RawRow) *phase {
	p := &phase{name: "MLLW values for tide stations"}
	for _, r := range rows {
		if r.Values.String("Tide_Station") == "" {
			continue
		}
		for _, pair := range mllwPairs {
			measured, mllw := r.Values.Float(pair[0]), r.Values.Float(pair[1])
			if !math.IsNaN(measured) && math.IsNaN(mllw) {
				p.errorf("row %d (%s): %s has no %s", r.Index, r.Values.String("Survey_Id_String"), pair[0], pair[1])
			}
		}
	}
	return p
}

// validateOffsets checks that measured minus MLLW depth is the same water
// level for every column pair of a row.
func validateOffsets(rows []domain.RawRow) *phase {
	p := &phase{name: "Consistent water-level offset"}
	for _, r := range rows {
		first := math.NaN()
		for _, pair := range mllwPairs {
			measured, mllw := r.Values.Float(pair[0]), r.Values.Float(pair[1])
			if math.IsNaN(measured) || math.IsNaN(mllw) {
				continue
			}
			offset := measured - mllw
			if math.IsNaN(first) {
				first = offset
				continue
			}
			if math.Abs(offset-first) > offsetTolerance {
				p.errorf("row %d (%s): %s offset %.3f differs from %.3f",
					r.Index, r.Values.String("Survey_Id_String"), pair[1], offset, first)
			}
		}
	}
	return p
}

func validateSurveyIDs(rows []domain.RawRow) *phase {
	p := &phase{name: "Unique survey ids"}
	seen := make(map[string]int, len(rows))
	for _, r := range rows {
		id := r.Values.String("Survey_Id_String")
		if id == "" {
			p.errorf("row %d: empty Survey_Id_String", r.Index)
			continue
		}
		if prev, ok := seen[id]; ok {
			p.errorf("row %d: duplicate survey id %s (first at row %d)", r.Index, id, prev)
			continue
		}
		seen[id] = r.Index
	}
	return p
}
