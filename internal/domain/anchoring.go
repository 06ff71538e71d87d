package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// hasBuoyValue is the export's choice value for sites with mooring buoys.
const hasBuoyValue = "st_has_buoy"

// AnchoringDocument is the downstream form of an anchoring survey.
type AnchoringDocument struct {
	SurveyIDString   string   `json:"survey_id_string"`
	County           string   `json:"county"`
	Location         string   `json:"location"`
	LocationLabel    string   `json:"location_label"`
	SurveyDate       string   `json:"survey_date"`
	StartTime        string   `json:"start_time"`
	Observers        string   `json:"observers"`
	Weather          string   `json:"weather"`
	TidalHeight      *float64 `json:"tidal_ht"`
	HasBuoy          bool     `json:"has_buoy"`
	NoBuoyCount      int      `json:"no_buoy_count"`
	InsideBuoyCount  int      `json:"inside_buoy_count"`
	OutsideBuoyCount int      `json:"outside_buoy_count"`
	Notes            string   `json:"notes,omitempty"`
}

// AnchoringSurvey is one no-anchor-zone survey of an eelgrass bed.
type AnchoringSurvey struct {
	UUID             string
	ObserverNames    string
	SurveyDate       time.Time
	StartTime        string
	Weather          string
	WeatherDetails   string
	CountyName       string
	BedName          string
	LocationLabel    string
	TidalHeightFeet  float64
	Camera           string
	CameraDetails    string
	Notes            string
	HasBuoy          bool
	NoBuoyCount      int
	InsideBuoyCount  int
	OutsideBuoyCount int
	Photos           [6]string
	SubmittedAt      time.Time
	SurveyNum        int
}

// ParseAnchoringRow normalizes an anchoring survey export row.
func ParseAnchoringRow(row RawRow) (*AnchoringSurvey, error) {
	r := row.Values

	date, err := r.Date("survey_date")
	if err != nil {
		return nil, fmt.Errorf("%w: survey_date: %v", ErrInvalidRow, err)
	}
	submitted, _ := r.Date("_submission_time")

	s := &AnchoringSurvey{
		UUID:             r.String("_uuid"),
		ObserverNames:    r.String("observer_names"),
		SurveyDate:       date,
		StartTime:        r.String("survey_start_time"),
		Weather:          r.String("weather"),
		WeatherDetails:   r.String("other_weather_details"),
		CountyName:       r.String("data_county"),
		BedName:          r.String("eelgrass_bed_name"),
		LocationLabel:    r.String("eelgrass_bed_label_val"),
		TidalHeightFeet:  r.Float("start_tidal_height_ft"),
		Camera:           r.String("camera"),
		CameraDetails:    r.String("other_camera_details"),
		Notes:            r.String("other_notes"),
		HasBuoy:          r.String("has_buoy") == hasBuoyValue,
		NoBuoyCount:      r.Int("without_buoy_count", 0),
		InsideBuoyCount:  r.Int("inside_buoys_count", 0),
		OutsideBuoyCount: r.Int("outside_buoys_count", 0),
		SubmittedAt:      submitted,
		SurveyNum:        r.Int("_index", row.Index),
	}
	// Photos 5 and 6 were added to the form later; older exports lack the columns.
	for i := range s.Photos {
		s.Photos[i] = r.String("site_photo_" + strconv.Itoa(i+1))
	}
	if s.CountyName == "" {
		return nil, fmt.Errorf("%w: data_county", ErrMissingField)
	}
	return s, nil
}

func (s *AnchoringSurvey) ID() string         { return s.UUID }
func (s *AnchoringSurvey) Kind() string       { return KindAnchoring }
func (s *AnchoringSurvey) County() string     { return s.CountyName }
func (s *AnchoringSurvey) Location() string   { return s.BedName }
func (s *AnchoringSurvey) Date() time.Time    { return s.SurveyDate }
func (s *AnchoringSurvey) FilePrefix() string { return filePrefix(s.CountyName, s.BedName, s.SurveyDate, s.SurveyNum) }

// Attachments lists the site photos, all copied to the site photo folder.
func (s *AnchoringSurvey) Attachments() []Attachment {
	var list []Attachment
	for i, name := range s.Photos {
		list = appendAttachment(list, name, "_photo"+strconv.Itoa(i+1), FolderSitePhotos)
	}
	return list
}

// VesselCount returns the total number of vessels seen.
func (s *AnchoringSurvey) VesselCount() int {
	return s.NoBuoyCount + s.InsideBuoyCount + s.OutsideBuoyCount
}

// SurveyInfo summarizes the survey on one line, followed by an indented notes
// line when there are notes.
func (s *AnchoringSurvey) SurveyInfo() string {
	var counts string
	switch {
	case s.VesselCount() == 0:
		counts = " no vessels"
	case s.HasBuoy:
		counts = fmt.Sprintf(" vessels inside buoy: %d outside buoy: %d", s.InsideBuoyCount, s.OutsideBuoyCount)
	default:
		counts = fmt.Sprintf(" no buoy vessel count: %d", s.NoBuoyCount)
	}

	var b strings.Builder
	b.WriteString(s.LocationLabel)
	b.WriteString(" ")
	b.WriteString(s.SurveyDate.Format("2006-01-02"))
	b.WriteString(" ")
	b.WriteString(s.Weather)
	b.WriteString(counts)
	if s.Notes != "" {
		b.WriteString("\n\t\t\t")
		b.WriteString(s.Notes)
	}
	return b.String()
}

func (s *AnchoringSurvey) Document() any {
	return &AnchoringDocument{
		SurveyIDString:   s.FilePrefix(),
		County:           s.CountyName,
		Location:         s.BedName,
		LocationLabel:    s.LocationLabel,
		SurveyDate:       s.SurveyDate.Format("2006-01-02"),
		StartTime:        s.StartTime,
		Observers:        s.ObserverNames,
		Weather:          s.Weather,
		TidalHeight:      Optional(Round(MetricDepth(s.TidalHeightFeet), 2)),
		HasBuoy:          s.HasBuoy,
		NoBuoyCount:      s.NoBuoyCount,
		InsideBuoyCount:  s.InsideBuoyCount,
		OutsideBuoyCount: s.OutsideBuoyCount,
		Notes:            s.Notes,
	}
}
