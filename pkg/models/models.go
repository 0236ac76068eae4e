package models

// Location represents a geographic location with latitude and longitude in degrees
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is an indexed position with an identifier (usually a callsign)
// and the 8 character grid locator derived from it
type Station struct {
	ID       string    `json:"id"`
	Location *Location `json:"location"`
	Locator  string    `json:"locator,omitempty"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}
