package geo

import (
	"math"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// Amersfoort reference point of the RD grid.
const (
	refLat = 52.15517440
	refLon = 5.38720621
	refX   = 155000.0
	refY   = 463000.0
)

// term is one coefficient of the polynomial, applied to dPhi^p * dLam^q.
type term struct {
	c    float64
	p, q int
}

// Easting and northing polynomials of the Schreutelkamp/Strang van Hees approximation.
var (
	eastingTerms = []term{
		{190094.945, 0, 1},
		{-11832.228, 1, 1},
		{-114.221, 2, 1},
		{-32.391, 0, 3},
		{-0.705, 1, 0},
		{-2.340, 3, 1},
		{-0.608, 1, 3},
		{-0.008, 0, 2},
		{0.148, 2, 3},
	}
	northingTerms = []term{
		{309056.544, 1, 0},
		{3638.893, 0, 2},
		{73.077, 2, 0},
		{-157.984, 1, 2},
		{59.788, 3, 0},
		{0.433, 0, 1},
		{-6.439, 2, 2},
		{-0.032, 1, 1},
		{0.092, 0, 4},
		{-0.054, 1, 4},
	}
)

// WGS84ToRD converts a WGS 84 longitude/latitude pair to RD x/y meters.
// Accuracy is within a meter across the Netherlands and degrades further away.
func WGS84ToRD(lon, lat float64) (x, y float64) {
	// Deltas in units of 10^4 arc-seconds.
	dPhi := 0.36 * (lat - refLat)
	dLam := 0.36 * (lon - refLon)
	return refX + eval(eastingTerms, dPhi, dLam), refY + eval(northingTerms, dPhi, dLam)
}

func eval(terms []term, dPhi, dLam float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.c * math.Pow(dPhi, float64(t.p)) * math.Pow(dLam, float64(t.q))
	}
	return sum
}

// Project transforms every corner of b and returns the enclosing RD box.
func Project(b domain.BoundingBox) domain.ProjectedBoundingBox {
	out := domain.ProjectedBoundingBox{
		XMin: math.Inf(1), YMin: math.Inf(1),
		XMax: math.Inf(-1), YMax: math.Inf(-1),
	}
	for _, c := range b.Corners() {
		x, y := WGS84ToRD(c[0], c[1])
		out.XMin = math.Min(out.XMin, x)
		out.YMin = math.Min(out.YMin, y)
		out.XMax = math.Max(out.XMax, x)
		out.YMax = math.Max(out.YMax, y)
	}
	return out
}
