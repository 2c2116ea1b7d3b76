package domain

import (
	"fmt"
	"math"
)

// BoundingBox is an axis-aligned WGS 84 query region in degrees.
type BoundingBox struct {
	LonMin float64 `json:"lon_min"`
	LatMin float64 `json:"lat_min"`
	LonMax float64 `json:"lon_max"`
	LatMax float64 `json:"lat_max"`
}

// ProjectedBoundingBox is a bounding box in Rijksdriehoeksmeting (EPSG:28992) meters.
type ProjectedBoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Valid reports whether the box is ordered and inside the WGS 84 domain.
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.LonMin, b.LatMin, b.LonMax, b.LatMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.LonMin > b.LonMax || b.LatMin > b.LatMax {
		return false
	}
	return b.LonMin >= -180 && b.LonMax <= 180 && b.LatMin >= -90 && b.LatMax <= 90
}

// Pad grows the box outward by margin degrees on every side.
func (b BoundingBox) Pad(margin float64) BoundingBox {
	return BoundingBox{
		LonMin: b.LonMin - margin,
		LatMin: b.LatMin - margin,
		LonMax: b.LonMax + margin,
		LatMax: b.LatMax + margin,
	}
}

// Corners returns the four (lon, lat) corners, counter-clockwise from the south-west.
func (b BoundingBox) Corners() [4][2]float64 {
	return [4][2]float64{
		{b.LonMin, b.LatMin},
		{b.LonMax, b.LatMin},
		{b.LonMax, b.LatMax},
		{b.LonMin, b.LatMax},
	}
}

// String formats the box the way WFS and the public API expect it.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", ff(b.LonMin), ff(b.LatMin), ff(b.LonMax), ff(b.LatMax))
}

// Slice returns [lonMin, latMin, lonMax, latMax].
func (b BoundingBox) Slice() []float64 {
	return []float64{b.LonMin, b.LatMin, b.LonMax, b.LatMax}
}

// String formats the projected box as xMin,yMin,xMax,yMax with centimeter precision.
func (p ProjectedBoundingBox) String() string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", p.XMin, p.YMin, p.XMax, p.YMax)
}

// Slice returns [xMin, yMin, xMax, yMax].
func (p ProjectedBoundingBox) Slice() []float64 {
	return []float64{p.XMin, p.YMin, p.XMax, p.YMax}
}

func ff(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1e7)/1e7)
}
