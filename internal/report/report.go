// Package report renders the plain-text extraction log written at the end of
// a run.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/pipeline"
)

// CorrectionChecker reports whether a station has no usable tidal correction.
type CorrectionChecker interface {
	CorrectionMissing(ctx context.Context, stationID int) bool
}

// FileName is the log file name for a survey year.
func FileName(year int) string {
	return fmt.Sprintf("extractionLog%d.txt", year)
}

type builder struct {
	strings.Builder
	groups []pipeline.CountyGroup
}

func newBuilder(params [][2]string, groups []pipeline.CountyGroup) *builder {
	b := &builder{groups: groups}
	fmt.Fprintf(b, "Extraction log generated %s\n\n", domain.Now().Format(time.RFC3339))
	b.WriteString("Runtime parameters\n")
	for _, p := range params {
		fmt.Fprintf(b, "\t%s: %s\n", p[0], p[1])
	}
	return b
}

// section lists, per county, the surveys line(s) returns non-empty for.
// Counties without a match are omitted.
func (b *builder) section(title string, line func(domain.Survey) string) {
	b.WriteString("\n\n" + title + "\n")
	for _, g := range b.groups {
		var lines []string
		for _, s := range g.Surveys {
			if l := line(s); l != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\t" + g.County + "\n")
		for _, l := range lines {
			b.WriteString("\t\t" + l + "\n")
		}
	}
}

// kelpFilter lists the file prefix of every kelp survey matching keep.
func (b *builder) kelpFilter(title string, keep func(*domain.KelpSurvey) bool) {
	b.section(title, func(s domain.Survey) string {
		if k, ok := s.(*domain.KelpSurvey); ok && keep(k) {
			return k.FilePrefix()
		}
		return ""
	})
}

// Kelp renders the kelp extraction log.
func Kelp(ctx context.Context, params [][2]string, groups []pipeline.CountyGroup, corrections CorrectionChecker) string {
	b := newBuilder(params, groups)

	b.kelpFilter("Surveys Missing DataSheet files:", (*domain.KelpSurvey).MissingDataSheets)
	b.kelpFilter("Surveys Missing Track GPX files:", (*domain.KelpSurvey).MissingTrack)
	b.kelpFilter("Surveys Missing Shore Depth Measurements:", (*domain.KelpSurvey).MissingShoreDepth)
	b.kelpFilter("Surveys Missing Outer Edge Depth Measurements:", (*domain.KelpSurvey).MissingOuterDepth)
	b.kelpFilter("Surveys Missing Shore Temp Measurements:", (*domain.KelpSurvey).MissingShoreTemp)
	b.kelpFilter("Surveys Missing Outer Edge Temp Measurements:", (*domain.KelpSurvey).MissingOuterTemp)
	b.kelpFilter("Surveys with missing NOAA adjustment data:", func(k *domain.KelpSurvey) bool {
		return corrections.CorrectionMissing(ctx, k.Station.ID)
	})
	b.kelpFilter("Surveys with kelp cluster info:", func(k *domain.KelpSurvey) bool {
		return len(k.Clusters) > 0
	})

	b.section("Surveys By County:", func(s domain.Survey) string {
		return s.Location() + " " + s.Date().Format("2006_01_02")
	})
	b.section("Survey Volunteers:", func(s domain.Survey) string {
		k, ok := s.(*domain.KelpSurvey)
		if !ok || k.Volunteers.Names == "" {
			return ""
		}
		return k.FilePrefix() + " " + k.Volunteers.Names
	})
	return b.String()
}

// Anchoring renders the anchoring extraction log.
func Anchoring(params [][2]string, groups []pipeline.CountyGroup) string {
	b := newBuilder(params, groups)

	b.section("Surveys By County:", func(s domain.Survey) string {
		if a, ok := s.(*domain.AnchoringSurvey); ok {
			return a.SurveyInfo()
		}
		return ""
	})
	b.section("Survey Volunteers:", func(s domain.Survey) string {
		a, ok := s.(*domain.AnchoringSurvey)
		if !ok || a.ObserverNames == "" {
			return ""
		}
		return a.FilePrefix() + " " + a.ObserverNames
	})
	return b.String()
}

// Write saves the log as dir/extractionLog{year}.txt and returns its path.
func Write(dir string, year int, content string) (string, error) {
	path := filepath.Join(dir, FileName(year))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write extraction log: %w", err)
	}
	return path, nil
}
