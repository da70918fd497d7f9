// Package coords parses the coordinate notations accepted in change documents
// and base snapshot files, and converts them to WGS84 decimal degrees.
//
// Supported formats:
//   - Decimal degrees: "19.856, 99.816" or "19.856 99.816"
//   - DMS: Degrees Minutes Seconds (e.g., "19°51'22"N 99°48'59"E")
//   - MGRS: Military Grid Reference System (e.g., "47QNB8598697460")
//
// Objects of the form {"lat": .., "lon": ..} are accepted wherever a string is.
package coords

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/akhenakh/mgrs"

	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Format represents a coordinate notation
type Format int

const (
	FormatUnknown Format = iota
	FormatDecimal        // Decimal degrees (lat, lon)
	FormatDMS            // Degrees Minutes Seconds
	FormatMGRS           // Military Grid Reference System
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	case FormatDMS:
		return "dms"
	case FormatMGRS:
		return "mgrs"
	default:
		return "unknown"
	}
}

var (
	// Grid Zone Designator + 100km square ID + even count of digits
	mgrsRegex = regexp.MustCompile(`(?i)^(\d{1,2})([C-HJ-NP-X])([A-HJ-NP-Z]{2})(\d{2,10})$`)

	dmsRegex = regexp.MustCompile(`(?i)^(-?\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([NS])[\s,]+(-?\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([EW])$`)

	decimalRegex = regexp.MustCompile(`^(-?\d+\.?\d*)[,\s]+(-?\d+\.?\d*)$`)
)

// DetectFormat returns the notation of input without converting it
func DetectFormat(input string) Format {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return FormatUnknown
	case mgrsRegex.MatchString(input):
		return FormatMGRS
	case dmsRegex.MatchString(input):
		return FormatDMS
	case decimalRegex.MatchString(input):
		return FormatDecimal
	default:
		return FormatUnknown
	}
}

// Parse converts input in any supported notation to a location
func Parse(input string) (geo.Location, error) {
	input = strings.TrimSpace(input)
	switch DetectFormat(input) {
	case FormatMGRS:
		return parseMGRS(input)
	case FormatDMS:
		return parseDMS(input)
	case FormatDecimal:
		return parseDecimal(input)
	}
	if input == "" {
		return geo.Location{}, fmt.Errorf("empty coordinate string")
	}
	return geo.Location{}, fmt.Errorf("unrecognized coordinate format: %q", input)
}

func parseMGRS(input string) (geo.Location, error) {
	lat, lon, err := mgrs.MGRSToLatLng(strings.ToUpper(input))
	if err != nil {
		return geo.Location{}, fmt.Errorf("MGRS conversion failed: %w", err)
	}
	loc := geo.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return geo.Location{}, fmt.Errorf("MGRS conversion produced invalid coordinates: lat=%f, lon=%f", lat, lon)
	}
	return loc, nil
}

func parseDMS(input string) (geo.Location, error) {
	matches := dmsRegex.FindStringSubmatch(input)
	if matches == nil {
		return geo.Location{}, fmt.Errorf("invalid DMS format: %q", input)
	}

	lat, err := dmsToDecimal(matches[1], matches[2], matches[3], 90)
	if err != nil {
		return geo.Location{}, fmt.Errorf("invalid latitude values: %s: %w", input, err)
	}
	lon, err := dmsToDecimal(matches[5], matches[6], matches[7], 180)
	if err != nil {
		return geo.Location{}, fmt.Errorf("invalid longitude values: %s: %w", input, err)
	}

	if strings.EqualFold(matches[4], "S") {
		lat = -lat
	}
	if strings.EqualFold(matches[8], "W") {
		lon = -lon
	}
	return geo.Location{Latitude: lat, Longitude: lon}, nil
}

func dmsToDecimal(degStr, minStr, secStr string, maxDeg float64) (float64, error) {
	deg, _ := strconv.ParseFloat(degStr, 64)
	minutes, _ := strconv.ParseFloat(minStr, 64)
	sec, _ := strconv.ParseFloat(secStr, 64)
	if deg > maxDeg || minutes >= 60 || sec >= 60 {
		return 0, fmt.Errorf("out of range")
	}
	return deg + minutes/60 + sec/3600, nil
}

func parseDecimal(input string) (geo.Location, error) {
	matches := decimalRegex.FindStringSubmatch(input)
	if matches == nil {
		return geo.Location{}, fmt.Errorf("invalid decimal format: %q", input)
	}

	lat, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return geo.Location{}, fmt.Errorf("invalid latitude: %s", matches[1])
	}
	lon, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return geo.Location{}, fmt.Errorf("invalid longitude: %s", matches[2])
	}

	loc := geo.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return geo.Location{}, fmt.Errorf("coordinates out of range: lat=%f, lon=%f", lat, lon)
	}
	return loc, nil
}

// ToMGRS converts a location to an MGRS string.
// Precision is 1-5 representing: 10km, 1km, 100m, 10m, 1m
func ToMGRS(loc geo.Location, precision int) (string, error) {
	if precision < 1 || precision > 5 {
		precision = 5
	}
	if !loc.Valid() {
		return "", fmt.Errorf("coordinates out of range: lat=%f, lon=%f", loc.Latitude, loc.Longitude)
	}

	result, err := mgrs.LatLngToMGRS(loc.Latitude, loc.Longitude, precision)
	if err != nil {
		return "", fmt.Errorf("MGRS conversion failed: %w", err)
	}
	return result, nil
}
