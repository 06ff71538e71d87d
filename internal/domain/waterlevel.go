package domain

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// sixMinuteWindow is the half-width of the fallback query on the six-minute product.
const sixMinuteWindow = 6 * time.Minute

// WaterLevel is a water height above MLLW, in metres, tagged with the product it came from.
type WaterLevel struct {
	SourceName string  `json:"source_name"`
	Value      float64 `json:"value"`
}

// IsEstimated reports whether the level came from anything other than the
// one-minute product.
func (w WaterLevel) IsEstimated() bool {
	return w.SourceName != ProductOneMinuteWaterLevel
}

// IsMissing reports whether no observation was available.
func (w WaterLevel) IsMissing() bool {
	return math.IsNaN(w.Value)
}

// DeriveMLLWWaterHeight returns the water level at a station at the given instant.
// It prefers the one-minute product and falls back to the six-minute product
// around the instant. A missing six-minute sample is returned as a NaN value,
// not an error.
func DeriveMLLWWaterHeight(ctx context.Context, source TideDataSource, stationID int, at time.Time) (WaterLevel, error) {
	reply, err := source.FetchWaterData(ctx, stationID, at, at, ProductOneMinuteWaterLevel)
	if err != nil {
		return WaterLevel{}, fmt.Errorf("fetch %s for station %d: %w", ProductOneMinuteWaterLevel, stationID, err)
	}

	if v := firstValueOrNaN(reply); !math.IsNaN(v) {
		return WaterLevel{SourceName: ProductOneMinuteWaterLevel, Value: v}, nil
	}

	reply, err = source.FetchWaterData(ctx, stationID, at.Add(-sixMinuteWindow), at.Add(sixMinuteWindow), ProductWaterLevel)
	if err != nil {
		return WaterLevel{}, fmt.Errorf("fetch %s for station %d: %w", ProductWaterLevel, stationID, err)
	}

	return WaterLevel{SourceName: ProductWaterLevel, Value: firstValueOrNaN(reply)}, nil
}

// firstValueOrNaN returns the first observation's value, or NaN when there is
// none or it does not parse.
func firstValueOrNaN(reply WaterDataReply) float64 {
	if len(reply.Data) == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply.Data[0].Value), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
