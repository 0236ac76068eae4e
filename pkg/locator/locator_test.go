package locator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var locatorPattern = regexp.MustCompile(`^[A-S]{2}[0-9]{2}[A-X]{2}[0-9]{2}$`)

func TestNewRejectsOutOfRange(t *testing.T) {
	testCases := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr error
		message string
	}{
		{"latitude too small", -90.1, 10.0, ErrLatitudeTooSmall, "latitude cannot be less than -90.0 degrees"},
		{"latitude just below", -90.00001, 45.2, ErrLatitudeTooSmall, "latitude cannot be less than -90.0 degrees"},
		{"latitude too large", 90.1, 10.0, ErrLatitudeTooLarge, "latitude cannot be greater than 90.0 degrees"},
		{"latitude just above", 90.000001, 45.2, ErrLatitudeTooLarge, "latitude cannot be greater than 90.0 degrees"},
		{"longitude too small", 10.1, -180.001, ErrLongitudeTooSmall, "longitude cannot be less than -180.0 degrees"},
		{"longitude just below", 23, -180.00001, ErrLongitudeTooSmall, "longitude cannot be less than -180.0 degrees"},
		{"longitude too large", 10.1, 180.001, ErrLongitudeTooLarge, "longitude cannot be greater than 180.0 degrees"},
		{"longitude just above", 23, 180.00001, ErrLongitudeTooLarge, "longitude cannot be greater than 180.0 degrees"},
		{"NaN latitude", math.NaN(), 0, ErrLatitudeTooSmall, "latitude cannot be less than -90.0 degrees"},
		{"NaN longitude", 0, math.NaN(), ErrLongitudeTooSmall, "longitude cannot be less than -180.0 degrees"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.lat, tc.lon)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), tc.message)

			var rangeErr *RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tc.wantErr, rangeErr.Err)
		})
	}
}

func TestRangeErrorFields(t *testing.T) {
	_, err := New(12, -181)

	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "longitude", rangeErr.Field)
	assert.Equal(t, -181.0, rangeErr.Value)
	assert.Equal(t, -180.0, rangeErr.Bound)
}

func TestNewAcceptsClosedRange(t *testing.T) {
	for _, c := range [][2]float64{
		{0, 0},
		{23.2, 45.2},
		{-90, 45.2},
		{90.0, 45.2},
		{20, 180},
		{20, -180},
		{90, 180},
		{-90, -180},
	} {
		t.Run(fmt.Sprintf("%g,%g", c[0], c[1]), func(t *testing.T) {
			g, err := New(c[0], c[1])
			require.NoError(t, err)
			assert.Regexp(t, locatorPattern, g.Locator())
		})
	}
}

func TestLocatorCalculation(t *testing.T) {
	testCases := []struct {
		lat      float64
		lon      float64
		expected string
	}{
		{37.866887, 21.349081, "KM07QU18"},
		{38.0575, 23.79682, "KM18VB53"},
		{38.05723, 23.83344, "KM18WB03"},
		{38.05737, 23.79665, "KM18VB53"},
		{38.01686, 23.80057, "KM18VA64"},
		{51.50484, -0.11367, "IO91WM61"},
		{-34.6268, -58.36955, "GF05TI59"},
		{0, 0, "JJ00AA00"},
		{-90, -180, "AA00AA00"},
		{90, 180, "SS00AA00"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			g, err := New(tc.lat, tc.lon)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, g.Locator())
			assert.Equal(t, tc.expected, g.String())
		})
	}
}

func TestLocatorOf(t *testing.T) {
	g := MustNew(38.0575, 23.79682)

	assert.Equal(t, "KM18", g.LocatorOf(FourDigit))
	assert.Equal(t, "KM18VB", g.LocatorOf(SixDigit))
	assert.Equal(t, "KM18VB53", g.LocatorOf(EightDigit))
	assert.Equal(t, "KM18VB53", g.LocatorOf(Full))
	assert.Equal(t, "KM18VB53", g.LocatorOf(Length(42)))

	assert.Len(t, g.Locator(), 8)
	assert.Len(t, g.LocatorOf(SixDigit), 6)
	assert.Len(t, g.LocatorOf(FourDigit), 4)
}

func TestLocatorProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		lat := rng.Float64()*180 - 90
		lon := rng.Float64()*360 - 180

		a := MustNew(lat, lon)
		b := MustNew(lat, lon)
		require.Equal(t, a.Locator(), b.Locator())
		require.Regexp(t, locatorPattern, a.Locator())

		full := a.Locator()
		assert.Equal(t, full[:4], a.LocatorOf(FourDigit))
		assert.Equal(t, full[:6], a.LocatorOf(SixDigit))
		assert.Equal(t, full, a.LocatorOf(EightDigit))
	}
}

func TestAccessors(t *testing.T) {
	testCases := []struct {
		lat float64
		lon float64
	}{
		{38.05737, 23.79665},
		{38.01686, 23.80057},
		{51.50484, -0.11367},
		{-34.6268, -58.36955},
	}

	for _, tc := range testCases {
		g := MustNew(tc.lat, tc.lon)
		assert.InDelta(t, tc.lat, g.Latitude(), 0.000000001)
		assert.InDelta(t, tc.lon, g.Longitude(), 0.000000001)
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew(91, 0) })
	assert.NotPanics(t, func() { MustNew(90, 0) })
}

func TestDistanceAndBearing(t *testing.T) {
	d1 := MustNew(38.05737, 23.79665)

	testCases := []struct {
		name     string
		other    *GridLocator
		distance float64
		bearing  float64
	}{
		{"KM18VA", MustNew(38.01686, 23.80057), 4.517570, 175.640464},
		{"IO91WM", MustNew(51.50484, -0.11367), 2388.864683, 316.460501},
		{"GF05TI", MustNew(-34.6268, -58.36955), 11696.277387, 237.638946},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.distance, d1.DistanceFrom(tc.other), 0.000001)
			assert.InDelta(t, tc.distance, tc.other.DistanceFrom(d1), 0.000001)
			assert.InDelta(t, tc.bearing, d1.BearingTo(tc.other), 0.000001)
		})
	}

	assert.Zero(t, d1.DistanceFrom(d1))
}

func TestLengthString(t *testing.T) {
	assert.Equal(t, "full", Full.String())
	assert.Equal(t, "4-digit", FourDigit.String())
	assert.Equal(t, "6-digit", SixDigit.String())
	assert.Equal(t, "8-digit", EightDigit.String())
	assert.Equal(t, "Length(9)", Length(9).String())
}

func BenchmarkNew(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = New(38.0575, 23.79682)
	}
}
