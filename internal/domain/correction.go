package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Station and height adjustment type codes from the tidepredoffsets reply.
// NOAA CO-OPS user services confirmed these are the only values in use.
const (
	StationTypeReference   = "R"
	StationTypeSubordinate = "S"

	HeightAdjustedRatio = "R"
	HeightAdjustedFixed = "F"
)

// TidalCorrection maps a reference station's water level to the level at a station.
type TidalCorrection struct {
	StationID          int     `json:"station_id"`
	ReferenceStationID int     `json:"reference_station_id"`
	TimeOffset         int     `json:"time_offset"` // minutes
	HeightScaling      float64 `json:"height_scaling"`
	HeightOffset       float64 `json:"height_offset"`
}

// IsUnknown reports whether the correction could not be resolved.
func (c TidalCorrection) IsUnknown() bool {
	return c.StationID == 0
}

// IsReference reports whether the correction is the identity for its own station.
func (c TidalCorrection) IsReference() bool {
	return !c.IsUnknown() && c.StationID == c.ReferenceStationID &&
		c.TimeOffset == 0 && c.HeightScaling == 1.0 && c.HeightOffset == 0.0
}

// UnknownCorrection is the neutral correction used when a station's offsets
// cannot be interpreted.
func UnknownCorrection() TidalCorrection {
	return TidalCorrection{HeightScaling: 1.0}
}

// IdentityCorrection is the correction of a reference station.
func IdentityCorrection(stationID int) TidalCorrection {
	return TidalCorrection{
		StationID:          stationID,
		ReferenceStationID: stationID,
		HeightScaling:      1.0,
	}
}

// FetchTidalCorrection resolves the correction for a station from its tide
// prediction offsets. Unrecognized type combinations degrade to
// [UnknownCorrection] with a warning; only transport failures return an error.
func FetchTidalCorrection(ctx context.Context, source TideDataSource, stationID int, logger *slog.Logger) (TidalCorrection, error) {
	reply, err := source.FetchTideOffsets(ctx, stationID)
	if err != nil {
		return UnknownCorrection(), fmt.Errorf("fetch tide offsets for station %d: %w", stationID, err)
	}
	return correctionFromOffsets(stationID, reply, logger), nil
}

func correctionFromOffsets(stationID int, reply TideOffsetsReply, logger *slog.Logger) TidalCorrection {
	if reply.Type == StationTypeReference {
		return IdentityCorrection(stationID)
	}

	if reply.Type != StationTypeSubordinate {
		logger.Warn("unknown tide station type",
			"station_id", stationID,
			"type", reply.Type,
			"height_adjusted_type", reply.HeightAdjustedType,
		)
		return UnknownCorrection()
	}

	refStation, err := referenceStationID(stationID, reply.RefStationID)
	if err != nil {
		logger.Warn("invalid reference station id",
			"station_id", stationID,
			"ref_station_id", reply.RefStationID,
			"error", err,
		)
		return UnknownCorrection()
	}

	switch reply.HeightAdjustedType {
	case HeightAdjustedRatio:
		return TidalCorrection{
			StationID:          stationID,
			ReferenceStationID: refStation,
			TimeOffset:         reply.TimeOffsetLowTide,
			HeightScaling:      reply.HeightOffsetLowTide,
			HeightOffset:       0.0,
		}
	case HeightAdjustedFixed:
		return TidalCorrection{
			StationID:          stationID,
			ReferenceStationID: refStation,
			TimeOffset:         reply.TimeOffsetLowTide,
			HeightScaling:      1.0,
			HeightOffset:       reply.HeightOffsetLowTide,
		}
	default:
		logger.Warn("unknown height adjustment type",
			"station_id", stationID,
			"type", reply.Type,
			"height_adjusted_type", reply.HeightAdjustedType,
		)
		return UnknownCorrection()
	}
}

// referenceStationID parses refStationId. A blank value means the station is
// its own reference.
func referenceStationID(stationID int, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return stationID, nil
	}
	return strconv.Atoi(raw)
}
