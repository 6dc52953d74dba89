// Package exifmeta reads raw embedded metadata from image files and
// normalizes it into the catalog's canonical field set. Extraction touches
// the filesystem; normalization is a pure mapping over the extracted set so
// it can be tested without files.
package exifmeta

import (
	"fmt"
	"image"
	"os"
	"strings"

	// formats accepted for dimension decoding, covering every extension
	// the intake scanner admits
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Rational is a raw numerator/denominator tag component.
type Rational struct {
	Num int64
	Den int64
}

func (r Rational) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

// RawValue carries one embedded tag in every form it could be read as. Text
// is always set; Rats and Int are present only when the tag decoded that way.
type RawValue struct {
	Text string
	Rats []Rational
	Int  *int64
}

// RawSet is the full extraction result for one file: every embedded tag plus
// the decoded image geometry. Geometry comes from the actual pixel data, not
// from tags, so it always matches the file.
type RawSet struct {
	Tags   map[string]RawValue
	Width  *int
	Height *int
}

// Empty reports whether extraction found no embedded metadata at all.
func (rs *RawSet) Empty() bool {
	return len(rs.Tags) == 0
}

type tagCollector struct {
	tags map[string]RawValue
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c.tags[string(name)] = rawValueFromTag(tag)
	return nil
}

func rawValueFromTag(tag *tiff.Tag) RawValue {
	var rv RawValue

	if s, err := tag.StringVal(); err == nil {
		rv.Text = strings.TrimRight(strings.TrimSpace(s), "\x00")
	} else {
		rv.Text = strings.TrimRight(tag.String(), "\x00")
	}

	// rational tags hold at most a handful of components (GPS triples are
	// the largest); out-of-range reads error out and stop the loop
	for i := 0; i < 8; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			break
		}
		rv.Rats = append(rv.Rats, Rational{Num: num, Den: den})
	}

	if v, err := tag.Int64(0); err == nil {
		rv.Int = &v
	}

	return rv
}

// Extract reads the raw embedded metadata and decoded geometry of the file
// at path. A file without EXIF data is not an error: the returned set simply
// has no tags. Only an unreadable file fails.
func Extract(path string, logger zerolog.Logger) (*RawSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for metadata extraction: %w", path, err)
	}
	defer file.Close()

	raw := &RawSet{Tags: make(map[string]RawValue)}

	cfg, _, err := image.DecodeConfig(file)
	if err == nil {
		w, h := cfg.Width, cfg.Height
		raw.Width = &w
		raw.Height = &h
	} else {
		logger.Warn().Err(err).Str("file", path).Msg("could not decode image dimensions")
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// file simply lacks EXIF data; geometry alone is a valid result
		logger.Debug().Err(err).Str("file", path).Msg("no EXIF data found")
		return raw, nil
	}

	collector := &tagCollector{tags: raw.Tags}
	if err := exifData.Walk(collector); err != nil {
		logger.Warn().Err(err).Str("file", path).Msg("EXIF tag walk stopped early")
	}

	return raw, nil
}
