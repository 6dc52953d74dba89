package models

import "testing"

func completeImage() Image {
	s := func(v string) *string { return &v }
	w, h := 4032, 3024
	return Image{
		Status:               StatusSuccess,
		CaptureTime:          s("2023-06-01 12:30:00"),
		Width:                &w,
		Height:               &h,
		CameraModel:          s("ILCE-7M4"),
		FocalLength:          s("50.0mm"),
		ShutterSpeed:         s("1/250s"),
		Aperture:             s("f/2.8"),
		ISO:                  s("400"),
		ExposureCompensation: s("+0.3EV"),
		WhiteBalance:         s("auto"),
	}
}

func TestExifComplete(t *testing.T) {
	img := completeImage()
	if !img.ExifComplete() {
		t.Fatal("fully populated success record should be complete")
	}
}

func TestExifCompleteIgnoresOptionalFields(t *testing.T) {
	img := completeImage()
	img.LensModel = nil
	img.GPSLatitude = nil
	img.GPSLongitude = nil
	if !img.ExifComplete() {
		t.Fatal("lens and GPS must not participate in completeness")
	}
}

func TestExifCompleteRequiresEveryCoreField(t *testing.T) {
	clear := []struct {
		name string
		fn   func(*Image)
	}{
		{"capture_time", func(i *Image) { i.CaptureTime = nil }},
		{"width", func(i *Image) { i.Width = nil }},
		{"height", func(i *Image) { i.Height = nil }},
		{"camera_model", func(i *Image) { i.CameraModel = nil }},
		{"focal_length", func(i *Image) { i.FocalLength = nil }},
		{"shutter_speed", func(i *Image) { i.ShutterSpeed = nil }},
		{"aperture", func(i *Image) { i.Aperture = nil }},
		{"iso", func(i *Image) { i.ISO = nil }},
		{"exposure_compensation", func(i *Image) { i.ExposureCompensation = nil }},
		{"white_balance", func(i *Image) { i.WhiteBalance = nil }},
	}
	if len(clear) != len(ExifCoreColumns) {
		t.Fatalf("test covers %d fields, core column set has %d", len(clear), len(ExifCoreColumns))
	}
	for _, c := range clear {
		img := completeImage()
		c.fn(&img)
		if img.ExifComplete() {
			t.Errorf("record missing %s should be incomplete", c.name)
		}
	}
}

func TestExifCompleteRequiresSuccessStatus(t *testing.T) {
	img := completeImage()
	img.Status = StatusError
	if img.ExifComplete() {
		t.Fatal("error record can never be complete")
	}
}
