// Package domain models volunteer kelp and anchoring survey records and the
// NOAA tidal correction used to reference their depth measurements to chart datum.
//
// # Data Source
//
// Surveys are exported from KoboToolbox as an .xlsx workbook (one row per
// submission) plus a folder of attachments. Column names are the KoboToolbox
// question names, e.g. "closest_edge_depth1" or "tide_stn_name". Columns vary
// between collection years; missing columns read as empty cells.
//
// # Export Conventions
//
// Missing values:
//
//	Empty cells and the literal "nan" (any case) mean "not recorded".
//	Missing numbers are carried as NaN and never replaced with zero.
//
// Units:
//
//	Depths and tidal heights are entered in feet and converted to metres (x 0.3048).
//	Temperatures are Fahrenheit unless "Temperature_Units" says otherwise.
//
// Attachment names:
//
//	KoboToolbox rewrites uploaded file names on export: the characters
//	: , ( ) ° ' are dropped and spaces become underscores. See [NormalizeAttachmentName].
//
// # Tidal Correction
//
// Water levels come from the NOAA CO-OPS APIs (https://api.tidesandcurrents.noaa.gov).
// Each survey names a tide station. Stations are either:
//
//	R  reference station: observed directly, correction is the identity.
//	S  subordinate station: predicted from a reference station, with a
//	   height adjustment that is either
//	     R  ratio: multiply the reference water level by heightOffsetLowTide
//	     F  fixed: add heightOffsetLowTide to the reference water level
//
// The water level at the reference station is read from the one-minute product at the
// survey start time. When that product has no sample the six-minute product is queried
// over a +/- 6 minute window and the result is tagged as estimated.
//
// A measured depth is referenced to MLLW as:
//
//	adjusted = measured - (water_level * height_scaling + height_offset)
//
// # Station Cache
//
// [StationRegistry] is seeded with the Puget Sound and Strait of Juan de Fuca
// stations the surveys use. Other stations are fetched once and kept for the
// lifetime of the process.
package domain
