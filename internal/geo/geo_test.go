package geo_test

import (
	"testing"

	"github.com/prospectgrid/prospectgrid/internal/geo"
	"github.com/stretchr/testify/assert"
)

func TestBearingCardinalDirections(t *testing.T) {
	// camera south of target points north
	b := geo.Bearing(39.0, -74.0, 40.0, -74.0)
	assert.True(t, b < 5 || b > 355, "expected ~0, got %f", b)

	// camera north of target points south
	b = geo.Bearing(40.0, -74.0, 39.0, -74.0)
	assert.InDelta(t, 180, b, 5)

	// camera west of target points east
	b = geo.Bearing(39.0, -75.0, 39.0, -74.0)
	assert.InDelta(t, 90, b, 5)

	// camera east of target points west
	b = geo.Bearing(39.0, -74.0, 39.0, -75.0)
	assert.InDelta(t, 270, b, 5)
}

func TestBearingAtEquator(t *testing.T) {
	b := geo.Bearing(0, 0, 0, 1)
	assert.InDelta(t, 90, b, 5)
}

func TestBearingRange(t *testing.T) {
	cases := [][4]float64{
		{0, 0, 1, 1},
		{0, 0, -1, -1},
		{45, 90, 46, 91},
		{-33.8688, 151.2093, -33.8600, 151.2100},
		{39.0, -74.0, 39.0, -74.0}, // degenerate: same point
	}
	for _, c := range cases {
		b := geo.Bearing(c[0], c[1], c[2], c[3])
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	}
}

func TestHaversine(t *testing.T) {
	// one degree of latitude is roughly 111 km
	d := geo.Haversine(39.0, -74.0, 40.0, -74.0)
	assert.InDelta(t, 111000, d, 1000)

	assert.Zero(t, geo.Haversine(39.0, -74.0, 39.0, -74.0))
}

func TestCandidateHeadings(t *testing.T) {
	headings := geo.CandidateHeadings(90, 25, 3)
	assert.Equal(t, []float64{90, 65, 115}, headings)

	assert.Equal(t, []float64{10}, geo.CandidateHeadings(10, 25, 1))

	// offsets wrap around zero
	headings = geo.CandidateHeadings(10, 25, 3)
	assert.Equal(t, []float64{10, 345, 35}, headings)

	assert.Len(t, geo.CandidateHeadings(180, 20, 5), 5)
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 39.12346, geo.RoundCoord(39.1234567))
	assert.Equal(t, -74.00001, geo.RoundCoord(-74.000012))
}
