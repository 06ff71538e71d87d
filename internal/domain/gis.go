package domain

import (
	"context"
	"log/slog"
	"path/filepath"
)

// NoImageAvailable fills the ToBe column; the album link is added by hand in GIS.
const NoImageAvailable = "no image available"

// GISRow is one kelp survey as written to the GIS worksheet. Missing numbers are nil.
type GISRow struct {
	SurveyDate          string   `json:"survey_date"`
	Surveyor            string   `json:"surveyor"`
	County              string   `json:"county"`
	Miles               *float64 `json:"miles"`
	StartTime           string   `json:"start_time"`
	EndTime             string   `json:"end_time"`
	Weather             string   `json:"weather"`
	Observations        string   `json:"observations"`
	D1ShoreEdge         *float64 `json:"d1_shore_edge"`
	D1WaterEdge         *float64 `json:"d1_water_edge"`
	T1ShoreEdge         *float64 `json:"t1_shore_edge"`
	T1WaterEdge         *float64 `json:"t1_water_edge"`
	D2ShoreEdge         *float64 `json:"d2_shore_edge"`
	D2WaterEdge         *float64 `json:"d2_water_edge"`
	T2ShoreEdge         *float64 `json:"t2_shore_edge"`
	T2WaterEdge         *float64 `json:"t2_water_edge"`
	Bedname             string   `json:"bedname"`
	AdditionalObs       string   `json:"additional_obs"`
	TidalHeight         *float64 `json:"tidal_ht"`
	TideStation         string   `json:"tide_station"`
	SurveyIDString      string   `json:"survey_id_string"`
	MLLWTidalHeight     *float64 `json:"mllw_tidal_ht_meters"`
	MLLWD1Shore         *float64 `json:"mllw_d1shore_meters"`
	MLLWD1Water         *float64 `json:"mllw_d1water_meters"`
	MLLWD2Shore         *float64 `json:"mllw_d2shore_meters"`
	MLLWD2Water         *float64 `json:"mllw_d2water_meters"`
	ToBe                string   `json:"to_be"`
	SurveyConditions    string   `json:"survey_conditions"`
	ToBeFile            string   `json:"to_be_file"` // path of the copied to-beach photo
	CurrentKnots        *float64 `json:"current_knots"`
	CurrentStation      string   `json:"current_station"`
	ExtentStartWaypoint string   `json:"extent_start_waypoint"`
	ExtentEndWaypoint   string   `json:"extent_end_waypoint"`
}

// GISHeaderLabels returns the worksheet column labels in order.
func GISHeaderLabels() []string {
	return []string{
		"Survey_Date", "Surveyor", "County", "Miles", "Start_Time", "End_Time",
		"Weather", "Observations",
		"D1shore_Edge", "D1water_Edge", "T1ShoreEdge", "T1WaterEdge",
		"D2shore_Edge", "D2water_Edge", "T2ShoreEdge", "T2WaterEdge",
		"Bedname", "Additional_Obs", "Tidal_Ht", "Tide_Station", "Survey_Id_String",
		"MLLW_Tidal_Ht_meters", "MLLW_D1shore_meters", "MLLW_D1water_meters",
		"MLLW_D2shore_meters", "MLLW_D2water_meters",
		"ToBe", "survey_conditions", "ToBe_file", "current_knots", "current_station",
		"extent_start_waypoint", "extent_end_waypoint",
	}
}

// GISNumberColumns are the 1-based indexes of the numeric columns.
var GISNumberColumns = []int{4, 9, 10, 11, 12, 13, 14, 15, 16, 19, 22, 23, 24, 25, 26, 30}

// GISToBeFileColumn is the 1-based index of the to-beach photo link column.
const GISToBeFileColumn = 29

// Values returns the cells in header order. Missing numbers are nil.
func (g *GISRow) Values() []any {
	num := func(v *float64) any {
		if v == nil {
			return nil
		}
		return *v
	}
	return []any{
		g.SurveyDate, g.Surveyor, g.County, num(g.Miles), g.StartTime, g.EndTime,
		g.Weather, g.Observations,
		num(g.D1ShoreEdge), num(g.D1WaterEdge), num(g.T1ShoreEdge), num(g.T1WaterEdge),
		num(g.D2ShoreEdge), num(g.D2WaterEdge), num(g.T2ShoreEdge), num(g.T2WaterEdge),
		g.Bedname, g.AdditionalObs, num(g.TidalHeight), g.TideStation, g.SurveyIDString,
		num(g.MLLWTidalHeight), num(g.MLLWD1Shore), num(g.MLLWD1Water),
		num(g.MLLWD2Shore), num(g.MLLWD2Water),
		g.ToBe, g.SurveyConditions, g.ToBeFile, num(g.CurrentKnots), g.CurrentStation,
		g.ExtentStartWaypoint, g.ExtentEndWaypoint,
	}
}

// ToBeLabel is the display label of the to-beach photo link.
func (g *GISRow) ToBeLabel() string {
	if g.ToBeFile == "" {
		return ""
	}
	return filepath.Base(g.ToBeFile)
}

// BuildGISRow derives the GIS row of an enriched survey and stores it on the
// survey. toBeachPath is where the to-beach photo was copied, or "".
// A failed water level lookup leaves the MLLW columns empty.
func BuildGISRow(ctx context.Context, s *KelpSurvey, toBeachPath string, logger *slog.Logger) *GISRow {
	g := &GISRow{
		SurveyDate:          s.SurveyDate.Format("2006-01-02"),
		Surveyor:            s.Volunteers.LeadName,
		County:              s.CountyName,
		Miles:               Optional(0),
		StartTime:           clockPrefix(s.TimeStart),
		EndTime:             clockPrefix(s.TimeEnd),
		Weather:             s.Weather,
		Observations:        s.Observations,
		D1ShoreEdge:         Optional(Round(s.Depth1ShoreEdge, 2)),
		D1WaterEdge:         Optional(Round(s.Depth1OuterEdge, 2)),
		T1ShoreEdge:         Optional(Round(s.Temp1ShoreEdge, 1)),
		T1WaterEdge:         Optional(Round(s.Temp1OuterEdge, 1)),
		D2ShoreEdge:         Optional(Round(s.Depth2ShoreEdge, 2)),
		D2WaterEdge:         Optional(Round(s.Depth2OuterEdge, 2)),
		T2ShoreEdge:         Optional(Round(s.Temp2ShoreEdge, 1)),
		T2WaterEdge:         Optional(Round(s.Temp2OuterEdge, 1)),
		Bedname:             s.BedName,
		AdditionalObs:       s.Notes,
		TidalHeight:         Optional(Round(s.TidalHeight, 2)),
		TideStation:         s.TideStationLabel,
		SurveyIDString:      s.FilePrefix(),
		ToBe:                NoImageAvailable,
		SurveyConditions:    s.SurveyConditions,
		ToBeFile:            toBeachPath,
		CurrentKnots:        Optional(Round(s.CurrentKnots, 1)),
		CurrentStation:      s.CurrentStation,
		ExtentStartWaypoint: s.ExtentStartWaypoint,
		ExtentEndWaypoint:   s.ExtentEndWaypoint,
	}

	if s.Adjuster != nil {
		logged := false
		adjust := func(measured float64) *float64 {
			v, err := s.Adjuster.AdjustDepth(ctx, measured)
			if err != nil {
				if !logged {
					logger.Warn("depth adjustment failed", "survey", s.FilePrefix(), "station_id", s.TideStationID, "error", err)
					logged = true
				}
				return nil
			}
			return Optional(Round(v, 2))
		}
		g.MLLWTidalHeight = adjust(s.TidalHeight)
		g.MLLWD1Shore = adjust(s.Depth1ShoreEdge)
		g.MLLWD1Water = adjust(s.Depth1OuterEdge)
		g.MLLWD2Shore = adjust(s.Depth2ShoreEdge)
		g.MLLWD2Water = adjust(s.Depth2OuterEdge)
	}

	s.GIS = g
	return g
}

// clockPrefix keeps "HH:MM" of a time cell.
func clockPrefix(s string) string {
	if len(s) > 5 {
		return s[:5]
	}
	return s
}
