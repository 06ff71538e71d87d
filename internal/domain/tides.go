package domain

import (
	"context"
	"encoding/json"
	"time"
)

// NOAA data products used for water level resolution.
const (
	ProductOneMinuteWaterLevel = "one_minute_water_level"
	ProductWaterLevel          = "water_level"
)

// StationInfo is one entry of the station metadata reply.
type StationInfo struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// StationInfoReply is the decoded body of the mdapi station endpoint.
type StationInfoReply struct {
	Stations []StationInfo `json:"stations"`
}

// TideOffsetsReply is the decoded body of the tidepredoffsets endpoint.
//
// Sample subordinate reply:
//
//	{"refStationId": "9444900", "type": "S", "heightOffsetHighTide": 0.93,
//	 "heightOffsetLowTide": 1.02, "timeOffsetHighTide": 18,
//	 "timeOffsetLowTide": 29, "heightAdjustedType": "R"}
type TideOffsetsReply struct {
	RefStationID         string  `json:"refStationId"`
	Type                 string  `json:"type"`
	HeightAdjustedType   string  `json:"heightAdjustedType"`
	HeightOffsetHighTide float64 `json:"heightOffsetHighTide"`
	HeightOffsetLowTide  float64 `json:"heightOffsetLowTide"`
	TimeOffsetHighTide   int     `json:"timeOffsetHighTide"`
	TimeOffsetLowTide    int     `json:"timeOffsetLowTide"`
}

// WaterDataPoint is a single observation. NOAA encodes the value as a string.
type WaterDataPoint struct {
	Time  string `json:"t"`
	Value string `json:"v"`
}

// WaterDataReply is the decoded body of the datagetter endpoint.
type WaterDataReply struct {
	Data  []WaterDataPoint `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// TideDataSource fetches raw replies from the NOAA CO-OPS APIs.
//
// Implementations return a zero or partial reply with a nil error when the service
// answers with a non-200 status or an undecodable body. Only transport failures are
// returned as errors.
type TideDataSource interface {
	// FetchStationInfo returns station metadata for the given id.
	FetchStationInfo(ctx context.Context, stationID int) (StationInfoReply, error)
	// FetchTideOffsets returns the tide prediction offsets for the given id, in metric units.
	FetchTideOffsets(ctx context.Context, stationID int) (TideOffsetsReply, error)
	// FetchWaterData returns the product's observations between begin and end, MLLW datum.
	FetchWaterData(ctx context.Context, stationID int, begin, end time.Time, product string) (WaterDataReply, error)
}
