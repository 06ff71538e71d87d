package domain

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Survey kinds.
const (
	KindKelp      = "kelp"
	KindAnchoring = "anchoring"
)

// Output folders below each county directory.
const (
	FolderSitePhotos      = "site_photos"
	FolderDataFiles       = "data_files"
	FolderVolunteerPhotos = "volunteer_photos"
)

// Attachment is a file referenced by a survey row.
type Attachment struct {
	FileName string // name as entered in the survey
	Tag      string // suffix appended to the survey prefix, e.g. "_ToBe"
	Folder   string // county subfolder
}

// TargetName returns the renamed file: prefix + tag + lowercase extension.
func (a Attachment) TargetName(prefix string) string {
	return prefix + a.Tag + strings.ToLower(filepath.Ext(a.FileName))
}

// Survey is a normalized survey record of either kind.
type Survey interface {
	// ID is the KoboToolbox submission uuid.
	ID() string
	Kind() string
	County() string
	Location() string
	Date() time.Time
	// FilePrefix is the stem shared by every renamed attachment.
	FilePrefix() string
	Attachments() []Attachment
	// Document is the JSON-safe representation published downstream.
	Document() any
}

// filePrefix builds "county_location_date_num" with dashes replaced.
func filePrefix(county, location string, date time.Time, num int) string {
	base := county + "_" + location + "_" + date.Format("2006-01-02") + "_" + strconv.Itoa(num)
	return strings.ReplaceAll(base, "-", "_")
}

// invalidAttachmentChars are dropped from file names by the KoboToolbox export.
var invalidAttachmentChars = []string{":", ",", "(", ")", "°", "'"}

// NormalizeAttachmentName rewrites a file name the way KoboToolbox does on export.
func NormalizeAttachmentName(name string) string {
	for _, c := range invalidAttachmentChars {
		name = strings.ReplaceAll(name, c, "")
	}
	return strings.ReplaceAll(name, " ", "_")
}

// appendAttachment adds the attachment when the file name is present.
func appendAttachment(list []Attachment, name, tag, folder string) []Attachment {
	if name == "" {
		return list
	}
	return append(list, Attachment{FileName: name, Tag: tag, Folder: folder})
}
