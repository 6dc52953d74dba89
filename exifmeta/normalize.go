package exifmeta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Canonical is the normalized metadata written back to a catalog record.
// Every field is optional; a nil field was not present (or not readable) in
// the raw set and stays NULL in the catalog.
type Canonical struct {
	CaptureTime          *string
	Width                *int
	Height               *int
	CameraModel          *string
	LensModel            *string
	FocalLength          *string
	ShutterSpeed         *string
	Aperture             *string
	ISO                  *string
	ExposureCompensation *string
	WhiteBalance         *string
	GPSLatitude          *string
	GPSLongitude         *string
}

// candidate raw tag names per canonical field, tried in order; first
// non-empty match wins
var (
	captureTimeTags = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}
	cameraModelTags = []string{"Model", "UniqueCameraModel"}
	lensModelTags   = []string{"LensModel", "LensSpecification", "Lens"}
	isoTags         = []string{"ISOSpeedRatings", "PhotographicSensitivity", "ISO"}
)

// timestamp layouts accepted for capture time, colon-delimited EXIF form
// first; fractional seconds after the seconds field are accepted on any of
// them
var captureTimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

var fractionalSuffixRe = regexp.MustCompile(`^(\d{4}[-:/]\d{2}[-:/]\d{2}\s\d{2}:\d{2}:\d{2})(\.\d+)$`)

// Normalize maps a raw extraction result onto the canonical field set. It is
// a pure function; returned warnings describe values that did not match any
// known format and were carried through raw instead of dropped.
func Normalize(raw *RawSet) (Canonical, []string) {
	var c Canonical
	var warnings []string

	c.Width = raw.Width
	c.Height = raw.Height

	if rv, ok := firstTag(raw, captureTimeTags); ok {
		if t, parsed := ParseCaptureTime(rv.Text); parsed {
			s := FormatCaptureTime(t)
			c.CaptureTime = &s
		} else {
			// keep the raw string verbatim; consumers treat capture_time as
			// timestamp-or-opaque-string
			s := rv.Text
			c.CaptureTime = &s
			warnings = append(warnings, fmt.Sprintf("unrecognized capture time format: %q", rv.Text))
		}
	}

	if rv, ok := firstTag(raw, cameraModelTags); ok {
		s := rv.Text
		c.CameraModel = &s
	}
	if rv, ok := firstTag(raw, lensModelTags); ok {
		s := rv.Text
		c.LensModel = &s
	}

	if rv, ok := raw.Tags["FocalLength"]; ok {
		c.FocalLength = formatDecimal(rv, "%.1fmm")
	}
	if rv, ok := raw.Tags["ExposureTime"]; ok {
		c.ShutterSpeed = formatShutterSpeed(rv)
	}
	if rv, ok := raw.Tags["FNumber"]; ok {
		c.Aperture = formatDecimal(rv, "f/%.1f")
	}
	if rv, ok := firstTag(raw, isoTags); ok {
		c.ISO = formatISO(rv)
	}
	if rv, ok := raw.Tags["ExposureBiasValue"]; ok {
		c.ExposureCompensation = formatExposureBias(rv)
	}
	if rv, ok := raw.Tags["WhiteBalance"]; ok {
		c.WhiteBalance = formatWhiteBalance(rv)
	}

	c.GPSLatitude = decimalDegrees(raw, "GPSLatitude", "GPSLatitudeRef", "S")
	c.GPSLongitude = decimalDegrees(raw, "GPSLongitude", "GPSLongitudeRef", "W")

	return c, warnings
}

func firstTag(raw *RawSet, candidates []string) (RawValue, bool) {
	for _, name := range candidates {
		if rv, ok := raw.Tags[name]; ok && rv.Text != "" {
			return rv, true
		}
	}
	return RawValue{}, false
}

// ParseCaptureTime parses a raw timestamp value against the known layouts.
// A fractional-seconds suffix that defeats every layout is recovered by
// parsing the whole-seconds prefix and re-attaching the fraction as
// sub-second precision.
func ParseCaptureTime(raw string) (time.Time, bool) {
	s := strings.TrimRight(strings.TrimSpace(raw), "\x00")
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range captureTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if m := fractionalSuffixRe.FindStringSubmatch(s); m != nil {
		for _, layout := range captureTimeLayouts {
			t, err := time.Parse(layout, m[1])
			if err != nil {
				continue
			}
			frac, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				break
			}
			return t.Add(time.Duration(frac * float64(time.Second))), true
		}
	}

	return time.Time{}, false
}

// FormatCaptureTime renders the canonical stored form. It sorts
// lexicographically in chronological order, which the report stage relies on.
func FormatCaptureTime(t time.Time) string {
	s := t.Format("2006-01-02 15:04:05")
	if ns := t.Nanosecond(); ns != 0 {
		s += strings.TrimRight(fmt.Sprintf(".%09d", ns), "0")
	}
	return s
}

// formatDecimal renders a rational or plain numeric value through the given
// verb, falling back to the raw text when neither form is usable.
func formatDecimal(rv RawValue, format string) *string {
	if f, ok := decimalValue(rv); ok {
		s := fmt.Sprintf(format, f)
		return &s
	}
	return rawFallback(rv)
}

func formatShutterSpeed(rv RawValue) *string {
	if len(rv.Rats) > 0 && rv.Rats[0].Den != 0 {
		r := rv.Rats[0]
		var s string
		switch {
		case r.Num == 1 && r.Den > 1:
			s = fmt.Sprintf("1/%ds", r.Den)
		case r.Den == 1:
			s = fmt.Sprintf("%ds", r.Num)
		default:
			s = fmt.Sprintf("%d/%ds", r.Num, r.Den)
		}
		return &s
	}
	if f, ok := decimalValue(rv); ok {
		s := fmt.Sprintf("%.5fs", f)
		return &s
	}
	return rawFallback(rv)
}

func formatISO(rv RawValue) *string {
	if rv.Int != nil {
		s := strconv.FormatInt(*rv.Int, 10)
		return &s
	}
	return rawFallback(rv)
}

func formatExposureBias(rv RawValue) *string {
	if f, ok := decimalValue(rv); ok {
		var s string
		if f > 0 {
			s = fmt.Sprintf("+%.1fEV", f)
		} else {
			s = fmt.Sprintf("%.1fEV", f)
		}
		return &s
	}
	return rawFallback(rv)
}

func formatWhiteBalance(rv RawValue) *string {
	code := rv.Int
	if code == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(rv.Text), 10, 64); err == nil {
			code = &n
		}
	}
	var s string
	switch {
	case code != nil && *code == 0:
		s = "auto"
	case code != nil && *code == 1:
		s = "manual"
	case code != nil:
		s = strconv.FormatInt(*code, 10)
	default:
		return rawFallback(rv)
	}
	return &s
}

// decimalDegrees converts a degree/minute/second rational triple plus its
// hemisphere reference into a signed 6-decimal degree string. A missing
// reference or component leaves the coordinate nil rather than guessing.
func decimalDegrees(raw *RawSet, tagName, refName, negativeRef string) *string {
	dms, ok := raw.Tags[tagName]
	if !ok || len(dms.Rats) < 3 {
		return nil
	}
	ref, ok := raw.Tags[refName]
	if !ok || ref.Text == "" {
		return nil
	}
	for _, r := range dms.Rats[:3] {
		if r.Den == 0 {
			return nil
		}
	}

	value := dms.Rats[0].Float() + dms.Rats[1].Float()/60 + dms.Rats[2].Float()/3600
	if strings.EqualFold(ref.Text, negativeRef) {
		value = -value
	}
	s := fmt.Sprintf("%.6f", value)
	return &s
}

func decimalValue(rv RawValue) (float64, bool) {
	if len(rv.Rats) > 0 && rv.Rats[0].Den != 0 {
		return rv.Rats[0].Float(), true
	}
	if rv.Int != nil {
		return float64(*rv.Int), true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(rv.Text), 64); err == nil {
		return f, true
	}
	return 0, false
}

// rawFallback carries an unconvertible value through as its string form so
// the field is preserved rather than dropped.
func rawFallback(rv RawValue) *string {
	if rv.Text == "" {
		return nil
	}
	s := rv.Text
	return &s
}
