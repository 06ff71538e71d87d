package domain

import (
	"context"
	"math"
	"sync"
	"time"
)

// CorrectionResolver returns the tidal correction for a station.
type CorrectionResolver interface {
	Correction(ctx context.Context, stationID int) (TidalCorrection, error)
}

// DepthAdjuster references a survey's measured depths to MLLW.
//
// All depths of a survey are adjusted against one water level observation taken
// at the survey start time. The observation is fetched on the first adjustment
// and reused afterwards, including when the fetch failed.
type DepthAdjuster struct {
	station     Station
	surveyDate  time.Time
	startTime   time.Time
	corrections CorrectionResolver
	tides       TideDataSource

	mu         sync.Mutex
	resolved   bool
	correction TidalCorrection
	waterLevel WaterLevel
	err        error
}

// NewDepthAdjuster creates an unresolved adjuster for one survey.
// Only the date of surveyDate and the clock time of startTime are used.
func NewDepthAdjuster(station Station, surveyDate, startTime time.Time, corrections CorrectionResolver, tides TideDataSource) *DepthAdjuster {
	return &DepthAdjuster{
		station:     station,
		surveyDate:  surveyDate,
		startTime:   startTime,
		corrections: corrections,
		tides:       tides,
	}
}

// Station returns the survey's tide station.
func (a *DepthAdjuster) Station() Station {
	return a.station
}

// SurveyTime combines the survey date with the start time.
func (a *DepthAdjuster) SurveyTime() time.Time {
	return time.Date(
		a.surveyDate.Year(), a.surveyDate.Month(), a.surveyDate.Day(),
		a.startTime.Hour(), a.startTime.Minute(), a.startTime.Second(), 0, time.UTC,
	)
}

// Resolved reports whether the water level has been looked up.
func (a *DepthAdjuster) Resolved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolved
}

// Resolve looks up the water level on the first call and returns the cached
// outcome on every later call.
func (a *DepthAdjuster) Resolve(ctx context.Context) (WaterLevel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.resolved {
		a.correction, a.waterLevel, a.err = a.lookup(ctx)
		a.resolved = true
	}
	return a.waterLevel, a.err
}

func (a *DepthAdjuster) lookup(ctx context.Context) (TidalCorrection, WaterLevel, error) {
	correction, err := a.corrections.Correction(ctx, a.station.ID)
	if err != nil {
		return UnknownCorrection(), WaterLevel{}, err
	}

	// An unknown correction is neutral, so the station's own gauge is the best reference.
	refStation := correction.ReferenceStationID
	if correction.IsUnknown() {
		refStation = a.station.ID
	}

	level, err := DeriveMLLWWaterHeight(ctx, a.tides, refStation, a.SurveyTime())
	if err != nil {
		return correction, WaterLevel{}, err
	}
	return correction, level, nil
}

// Correction returns the correction used for adjustment. It is the zero value
// until the adjuster has resolved.
func (a *DepthAdjuster) Correction() TidalCorrection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.correction
}

// AdjustDepth converts a measured depth in metres to a depth below MLLW.
// NaN depths are returned unchanged without resolving the water level.
func (a *DepthAdjuster) AdjustDepth(ctx context.Context, measured float64) (float64, error) {
	if math.IsNaN(measured) {
		return measured, nil
	}

	level, err := a.Resolve(ctx)
	if err != nil {
		return math.NaN(), err
	}

	a.mu.Lock()
	tc := a.correction
	a.mu.Unlock()

	adjustedNOAADepth := level.Value*tc.HeightScaling + tc.HeightOffset
	return measured - adjustedNOAADepth, nil
}
