package domain

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// SiteImages are the site photos of a kelp survey. The left/right/to-water
// photos were collected in 2022 only; kelp photos from 2023 on.
type SiteImages struct {
	BeachToTheLeft  string
	BeachToTheRight string
	ToBeach         string
	ToWater         string
	KelpPhotos      [4]string
}

// DataAttachments are the data sheets, GPS tracks and spreadsheets of a kelp survey.
type DataAttachments struct {
	DataSheet1   string
	DataSheet2   string
	TrackGPSFile string
	GPSFiles     [3]string // second, third and fourth GPS files
	Spreadsheet1 string
	Spreadsheet2 string
}

// VolunteerInfo names the survey team.
type VolunteerInfo struct {
	LeadName string
	Names    string
	Photos   [4]string
}

// KelpCluster is a GPS point recorded inside a kelp bed.
type KelpCluster struct {
	GPSPointName string
	Depth        float64
	WaterTemp    float64
	Observations string
}

// KelpSurvey is one kelp bed survey. Depths are metres and temperatures Celsius;
// missing measurements are NaN.
type KelpSurvey struct {
	UUID                string
	SurveyDate          time.Time
	BedName             string
	SurveyNum           int
	CountyName          string
	Weather             string
	TidalHeight         float64
	TideStationLabel    string
	TideStationID       int
	TimeStart           string
	TimeEnd             string
	StartClock          time.Time
	Observations        string
	Notes               string
	Depth1ShoreEdge     float64
	Temp1ShoreEdge      float64
	Depth1OuterEdge     float64
	Temp1OuterEdge      float64
	Depth2ShoreEdge     float64
	Temp2ShoreEdge      float64
	Depth2OuterEdge     float64
	Temp2OuterEdge      float64
	KelpObservations    [4]string
	SubmittedAt         time.Time
	GPSTrackName        string
	SiteImages          SiteImages
	DataFiles           DataAttachments
	Volunteers          VolunteerInfo
	Clusters            []KelpCluster
	CurrentKnots        float64
	CurrentStation      string
	SurveyConditions    string
	ExtentStartWaypoint string
	ExtentEndWaypoint   string

	// Set by Enrich.
	Station  Station
	Adjuster *DepthAdjuster
	// Set by BuildGISRow.
	GIS *GISRow
}

// ParseKelpRow normalizes a kelp survey export row.
func ParseKelpRow(row RawRow) (*KelpSurvey, error) {
	r := row.Values

	date, err := r.Date("survey_date")
	if err != nil {
		return nil, fmt.Errorf("%w: survey_date: %v", ErrInvalidRow, err)
	}
	stationID, err := strconv.Atoi(r.String("tide_stn_name"))
	if err != nil {
		return nil, fmt.Errorf("%w: tide_stn_name %q", ErrInvalidRow, r.String("tide_stn_name"))
	}
	timeStart := r.String("survey_start_time")
	startClock, err := ParseClock(timeStart)
	if err != nil {
		return nil, fmt.Errorf("%w: survey_start_time %q", ErrInvalidRow, timeStart)
	}
	submitted, _ := r.Date("_submission_time")

	tempUnits := r.StringOr("Temperature_Units", "fahrenheit")
	depth := func(key string) float64 { return MetricDepth(r.Float(key)) }
	temp := func(key string) float64 { return CelsiusTemp(r.Float(key), tempUnits) }

	s := &KelpSurvey{
		UUID:                r.String("_uuid"),
		SurveyDate:          date,
		BedName:             r.String("kelp_bed_name"),
		SurveyNum:           r.Int("_index", row.Index),
		CountyName:          r.String("data_county"),
		Weather:             r.String("weather"),
		TidalHeight:         depth("start_tidal_height_ft"),
		TideStationLabel:    r.String("tide_stn_label"),
		TideStationID:       stationID,
		TimeStart:           timeStart,
		TimeEnd:             r.String("end_time"),
		StartClock:          startClock,
		Observations:        r.String("observations"),
		Notes:               r.String("other_notes"),
		Depth1ShoreEdge:     depth("closest_edge_depth1"),
		Temp1ShoreEdge:      temp("closest_edge_temp1"),
		Depth1OuterEdge:     depth("farthest_edge_depth1"),
		Temp1OuterEdge:      temp("farthest_edge_temp1"),
		Depth2ShoreEdge:     depth("closest_edge_depth2"),
		Temp2ShoreEdge:      temp("closest_edge_temp2"),
		Depth2OuterEdge:     depth("farthest_edge_depth2"),
		Temp2OuterEdge:      temp("farthest_edge_temp2"),
		SubmittedAt:         submitted,
		GPSTrackName:        r.String("GPS_perimeter_track_name"),
		SiteImages:          parseSiteImages(r),
		DataFiles:           parseDataAttachments(r),
		Volunteers:          parseVolunteerInfo(r),
		Clusters:            parseKelpClusters(r),
		CurrentKnots:        r.Float("current_in_knots"),
		CurrentStation:      r.String("tide_station_source"),
		SurveyConditions:    r.String("survey_conditions"),
		ExtentStartWaypoint: r.String("extent_start_waypoint"),
		ExtentEndWaypoint:   r.String("extent_end_waypoint"),
	}
	for i := range s.KelpObservations {
		s.KelpObservations[i] = r.String("kc_observation" + strconv.Itoa(i+1))
	}
	if s.CountyName == "" {
		return nil, fmt.Errorf("%w: data_county", ErrMissingField)
	}
	return s, nil
}

func parseSiteImages(r Row) SiteImages {
	imgs := SiteImages{
		BeachToTheLeft:  r.String("beach_to_the_left_photo"),
		BeachToTheRight: r.String("beach_to_the_right_photo"),
		ToBeach:         r.String("to_beach_photo"),
		ToWater:         r.String("to_water_photo"),
	}
	for i := range imgs.KelpPhotos {
		imgs.KelpPhotos[i] = r.String("kelp_photo_" + strconv.Itoa(i+1))
	}
	return imgs
}

func parseDataAttachments(r Row) DataAttachments {
	d := DataAttachments{
		TrackGPSFile: r.String("Track_data_file"),
		GPSFiles: [3]string{
			r.String("Second_data_file"),
			r.String("Third_data_file"),
			r.String("Fourth_data_file"),
		},
		Spreadsheet1: r.String("CSV1_data_file"),
		Spreadsheet2: r.String("CSV2_data_file"),
	}
	if r.String("data_sheet_format") == "ds_pdf" {
		d.DataSheet1 = r.String("data_sheet_pdf_1")
		d.DataSheet2 = r.String("data_sheet_pdf_2")
	} else {
		d.DataSheet1 = r.String("data_sheet_page_1")
		d.DataSheet2 = r.String("data_sheet_page_2")
	}
	return d
}

func parseVolunteerInfo(r Row) VolunteerInfo {
	v := VolunteerInfo{
		LeadName: r.String("team_leader"),
		Names:    r.String("name_of_surveyors"),
	}
	for i := range v.Photos {
		v.Photos[i] = r.String("volunteer_photo_" + strconv.Itoa(i+1))
	}
	return v
}

func parseKelpClusters(r Row) []KelpCluster {
	var clusters []KelpCluster
	for i := 1; i <= 3; i++ {
		n := strconv.Itoa(i)
		c := KelpCluster{
			GPSPointName: r.String("kc_gps_point_name" + n),
			Depth:        r.Float("kc_depth" + n),
			WaterTemp:    r.Float("kc_temp" + n),
			Observations: r.String("kc_observation" + n),
		}
		if c.GPSPointName != "" {
			clusters = append(clusters, c)
		}
	}
	return clusters
}

// Enrich attaches the tide station and a fresh depth adjuster to the survey.
func (s *KelpSurvey) Enrich(ctx context.Context, registry *StationRegistry, tides TideDataSource) error {
	station, err := registry.LookupStation(ctx, s.TideStationID)
	if err != nil {
		return err
	}
	s.Station = station
	s.Adjuster = NewDepthAdjuster(station, s.SurveyDate, s.StartClock, registry, tides)
	return nil
}

func (s *KelpSurvey) ID() string         { return s.UUID }
func (s *KelpSurvey) Kind() string       { return KindKelp }
func (s *KelpSurvey) County() string     { return s.CountyName }
func (s *KelpSurvey) Location() string   { return s.BedName }
func (s *KelpSurvey) Date() time.Time    { return s.SurveyDate }
func (s *KelpSurvey) FilePrefix() string { return filePrefix(s.CountyName, s.BedName, s.SurveyDate, s.SurveyNum) }

// Document returns the GIS row once built, otherwise a summary.
func (s *KelpSurvey) Document() any {
	if s.GIS != nil {
		return s.GIS
	}
	return map[string]any{
		"survey_id_string": s.FilePrefix(),
		"county":           s.CountyName,
		"bedname":          s.BedName,
		"tide_station":     s.TideStationID,
	}
}

// Attachments lists every referenced file with its renamed tag and folder.
func (s *KelpSurvey) Attachments() []Attachment {
	var list []Attachment
	img := s.SiteImages
	list = appendAttachment(list, img.BeachToTheLeft, "_BeL", FolderSitePhotos)
	list = appendAttachment(list, img.BeachToTheRight, "_BeR", FolderSitePhotos)
	list = appendAttachment(list, img.ToBeach, "_ToBe", FolderSitePhotos)
	list = appendAttachment(list, img.ToWater, "_ToWa", FolderSitePhotos)
	for i, name := range img.KelpPhotos {
		list = appendAttachment(list, name, "_Kelp"+strconv.Itoa(i+1), FolderSitePhotos)
	}

	d := s.DataFiles
	list = appendAttachment(list, d.DataSheet1, "_DataSheet1", FolderDataFiles)
	list = appendAttachment(list, d.DataSheet2, "_DataSheet2", FolderDataFiles)
	list = appendAttachment(list, d.TrackGPSFile, "_Gps1", FolderDataFiles)
	for i, name := range d.GPSFiles {
		list = appendAttachment(list, name, "_Gps"+strconv.Itoa(i+2), FolderDataFiles)
	}
	list = appendAttachment(list, d.Spreadsheet1, "_SpreadSheet1", FolderDataFiles)
	list = appendAttachment(list, d.Spreadsheet2, "_SpreadSheet2", FolderDataFiles)

	for i, name := range s.Volunteers.Photos {
		list = appendAttachment(list, name, "_volunteer"+strconv.Itoa(i+1), FolderVolunteerPhotos)
	}
	return list
}

// MissingDataSheets reports whether neither data sheet was uploaded.
func (s *KelpSurvey) MissingDataSheets() bool {
	return s.DataFiles.DataSheet1 == "" && s.DataFiles.DataSheet2 == ""
}

// MissingTrack reports whether the GPS track file is absent.
func (s *KelpSurvey) MissingTrack() bool {
	return s.DataFiles.TrackGPSFile == ""
}

// MissingShoreDepth reports whether both shore-edge depths are missing.
func (s *KelpSurvey) MissingShoreDepth() bool {
	return math.IsNaN(s.Depth1ShoreEdge) && math.IsNaN(s.Depth2ShoreEdge)
}

// MissingOuterDepth reports whether both outer-edge depths are missing.
func (s *KelpSurvey) MissingOuterDepth() bool {
	return math.IsNaN(s.Depth1OuterEdge) && math.IsNaN(s.Depth2OuterEdge)
}

// MissingShoreTemp reports whether both shore-edge temperatures are missing.
func (s *KelpSurvey) MissingShoreTemp() bool {
	return math.IsNaN(s.Temp1ShoreEdge) && math.IsNaN(s.Temp2ShoreEdge)
}

// MissingOuterTemp reports whether both outer-edge temperatures are missing.
func (s *KelpSurvey) MissingOuterTemp() bool {
	return math.IsNaN(s.Temp1OuterEdge) && math.IsNaN(s.Temp2OuterEdge)
}
