package radio

import "testing"

func TestNeedsCalibrationOnPowerUp(t *testing.T) {
	if !needsCalibration(0, 868950000) {
		t.Fatal("expected calibration on first tune")
	}
}

func TestNeedsCalibrationOnBigJump(t *testing.T) {
	if !needsCalibration(868000000, 920000000) {
		t.Fatal("expected calibration when frequency changes by >5%")
	}
}

func TestNoCalibrationOnSmallJump(t *testing.T) {
	if needsCalibration(868950000, 868960000) {
		t.Fatal("expected no calibration for a <5% change")
	}
}

func TestNeedsRetuneThreshold(t *testing.T) {
	if needsRetune(40) {
		t.Fatal("40ppm should not trigger a retune")
	}
	if !needsRetune(60) {
		t.Fatal("60ppm should trigger a retune")
	}
}

func TestImageCalBytesKnownBand(t *testing.T) {
	if _, _, ok := imageCalBytes(868950000); !ok {
		t.Fatal("expected a calibration table entry for 868.95 MHz")
	}
}

func TestImageCalBytesUnknownBand(t *testing.T) {
	if _, _, ok := imageCalBytes(2400000000); ok {
		t.Fatal("expected no calibration table entry for 2.4 GHz")
	}
}
