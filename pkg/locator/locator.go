// Package locator converts coordinates to Maidenhead grid locators,
// extended to four pairs (8 characters, e.g. KM18VB53).
package locator

import (
	"strconv"

	"github.com/kass/go-gridlocator/pkg/geomath"
)

const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// Length selects how many characters of the locator are returned.
type Length int

const (
	Full Length = iota
	FourDigit
	SixDigit
	EightDigit
)

func (l Length) String() string {
	switch l {
	case Full:
		return "full"
	case FourDigit:
		return "4-digit"
	case SixDigit:
		return "6-digit"
	case EightDigit:
		return "8-digit"
	default:
		return "Length(" + strconv.Itoa(int(l)) + ")"
	}
}

// fieldChars labels fields (A-R, plus S for the +90/+180 edges) and
// subsquares (A-X).
const fieldChars = "ABCDEFGHIJKLMNOPQRSTUVWX"

// GridLocator is a validated coordinate and its grid locator.
// The zero value is not usable; construct with New.
type GridLocator struct {
	latitude  float64
	longitude float64
	locator   string
}

// New validates the coordinate and computes its locator. Both ranges are
// closed: ±90 and ±180 are accepted.
func New(latitude, longitude float64) (*GridLocator, error) {
	if err := validate(latitude, longitude); err != nil {
		return nil, err
	}

	return &GridLocator{
		latitude:  latitude,
		longitude: longitude,
		locator:   encode(latitude, longitude),
	}, nil
}

// MustNew is like New but panics on an invalid coordinate.
func MustNew(latitude, longitude float64) *GridLocator {
	g, err := New(latitude, longitude)
	if err != nil {
		panic(err)
	}
	return g
}

func validate(latitude, longitude float64) error {
	// negated comparisons so NaN is rejected too
	if !(latitude >= minLatitude) {
		return &RangeError{Field: "latitude", Value: latitude, Bound: minLatitude, Err: ErrLatitudeTooSmall}
	}
	if latitude > maxLatitude {
		return &RangeError{Field: "latitude", Value: latitude, Bound: maxLatitude, Err: ErrLatitudeTooLarge}
	}
	if longitude > maxLongitude {
		return &RangeError{Field: "longitude", Value: longitude, Bound: maxLongitude, Err: ErrLongitudeTooLarge}
	}
	if !(longitude >= minLongitude) {
		return &RangeError{Field: "longitude", Value: longitude, Bound: minLongitude, Err: ErrLongitudeTooSmall}
	}
	return nil
}

func (g *GridLocator) Latitude() float64 {
	return g.latitude
}

func (g *GridLocator) Longitude() float64 {
	return g.longitude
}

// Locator returns the full 8 character locator.
func (g *GridLocator) Locator() string {
	return g.locator
}

// LocatorOf returns the leading characters selected by length.
// Full, EightDigit and unknown values return the whole locator.
func (g *GridLocator) LocatorOf(length Length) string {
	switch length {
	case FourDigit:
		return g.locator[:4]
	case SixDigit:
		return g.locator[:6]
	default:
		return g.locator
	}
}

func (g *GridLocator) String() string {
	return g.locator
}

// DistanceFrom returns the great-circle distance in km to other.
func (g *GridLocator) DistanceFrom(other *GridLocator) float64 {
	return geomath.DistanceFrom(other.latitude, other.longitude, g.latitude, g.longitude)
}

// BearingTo returns the initial bearing in degrees from g towards other.
func (g *GridLocator) BearingTo(other *GridLocator) float64 {
	return geomath.BearingTo(g.latitude, g.longitude, other.latitude, other.longitude)
}

// encode builds the locator from a validated coordinate.
//
// Origin is moved to (-90, -180) so both axes are non-negative. Each pair
// then subdivides the remainder of the previous one:
//
//	field      20° x 10°   letters
//	square      2° x 1°    digits
//	subsquare   5' x 2.5'  letters
//	extended   30" x 15"   digits
func encode(latitude, longitude float64) string {
	nLat := latitude + 90.0
	nLon := longitude + 180.0

	lonField := int(nLon / 20.0)
	latField := int(nLat / 10.0)

	lonSquare := int((nLon - float64(lonField)*20.0) / 2.0)
	latSquare := int(nLat - float64(latField)*10.0)

	lonMinutes := (nLon - float64(lonField)*20.0 - float64(lonSquare)*2.0) * 60.0
	latMinutes := (nLat - float64(latField)*10.0 - float64(latSquare)) * 60.0

	lonSubField := int(lonMinutes / 5.0)
	latSubField := int(latMinutes / 2.5)

	lonSeconds := (lonMinutes - float64(lonSubField)*5.0) * 60.0
	latSeconds := (latMinutes - float64(latSubField)*2.5) * 60.0

	lonSubSquare := int(lonSeconds / 30.0)
	latSubSquare := int(latSeconds / 15.0)

	buf := [8]byte{
		letter(lonField),
		letter(latField),
		digit(lonSquare),
		digit(latSquare),
		letter(lonSubField),
		letter(latSubField),
		digit(lonSubSquare),
		digit(latSubSquare),
	}
	return string(buf[:])
}

// letter and digit clamp so that a remainder rounded onto the upper cell
// edge stays in the last cell.
func letter(i int) byte {
	return fieldChars[clamp(i, len(fieldChars)-1)]
}

func digit(i int) byte {
	return '0' + byte(clamp(i, 9))
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
