package main

import "math"

// RGB is a source or palette color sample. Building the error map from
// RGB is the external collaborator's job (spec §1 out-of-scope); this
// type only exists so that collaborator has a concrete contract.
type RGB struct {
	R, G, B uint8
}

// ColorMetric scores the perceptual distance between two colors. The
// distilled spec names only "a configurable color-distance metric";
// original_source/src/color/Distance.cpp implements several selectable
// ones behind a single config key (§12 supplement) — this module
// supplies the three most distinct of them as named, swappable metrics.
type ColorMetric interface {
	Distance(a, b RGB) uint64
}

// EuclideanMetric is the plain sum-of-squared-channel-difference metric
// (Distance.cpp's RGBEuclidianDistance).
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b RGB) uint64 {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return uint64(dr*dr + dg*dg + db*db)
}

// YUVMetric weights luma error evenly with chroma error after an RGB to
// YUV rotation (Distance.cpp's RGByuvDistance), which tracks perceived
// brightness differences more closely than raw RGB distance.
type YUVMetric struct{}

func (YUVMetric) Distance(a, b RGB) uint64 {
	dr := float64(int(b.R) - int(a.R))
	dg := float64(int(b.G) - int(a.G))
	db := float64(int(b.B) - int(a.B))

	dy := 0.299*dr + 0.587*dg + 0.114*db
	du := (db - dy) * 0.565
	dv := (dr - dy) * 0.713

	d := dy*dy + du*du + dv*dv
	if d < 0 {
		d = 0
	}
	return uint64(d)
}

// CIE76Metric converts both colors to CIE L*a*b* (D65 white point) and
// takes the plain Euclidean distance in that space — the simplest member
// of the CIE delta-E family, standing in for Distance.cpp's full
// CIE94/CIEDE2000 implementations without their angular hue-difference
// terms.
type CIE76Metric struct{}

func (CIE76Metric) Distance(a, b RGB) uint64 {
	l1, a1, b1 := rgbToLab(a)
	l2, a2, b2 := rgbToLab(b)
	dl := l1 - l2
	da := a1 - a2
	db := b1 - b2
	d := dl*dl + da*da + db*db
	if d < 0 {
		d = 0
	}
	return uint64(d)
}

func rgbToLab(c RGB) (l, a, b float64) {
	fr := srgbToLinear(float64(c.R) / 255.0)
	fg := srgbToLinear(float64(c.G) / 255.0)
	fb := srgbToLinear(float64(c.B) / 255.0)

	x := fr*0.4124 + fg*0.3576 + fb*0.1805
	y := fr*0.2126 + fg*0.7152 + fb*0.0722
	z := fr*0.0193 + fg*0.1192 + fb*0.9505

	vx := labF(x / 0.95047)
	vy := labF(y)
	vz := labF(z / 1.08883)

	l = 116.0*vy - 16.0
	a = 500.0 * (vx - vy)
	b = 200.0 * (vy - vz)
	return l, a, b
}

func srgbToLinear(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

// MetricByName resolves the "metric" config key (spec §6/§12). Unknown
// names return (EuclideanMetric{}, false). Config.Resolve rejects an
// unknown metric name as an InputError, so the CLI driver exits on it;
// no fallback to Euclidean and no warning takes place.
func MetricByName(name string) (ColorMetric, bool) {
	switch name {
	case "euclidean", "":
		return EuclideanMetric{}, true
	case "yuv":
		return YUVMetric{}, true
	case "cie76":
		return CIE76Metric{}, true
	default:
		return EuclideanMetric{}, false
	}
}
