// Package rtree implements an in-memory station index on top of an R-Tree.
// Stations are stored with their grid locator and can be looked up by
// bounding box, great-circle radius, nearest neighbours or locator prefix.
// Trees are partitioned by longitude band and searched in parallel.
package rtree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-gridlocator/pkg/geomath"
	"github.com/kass/go-gridlocator/pkg/locator"
	"github.com/kass/go-gridlocator/pkg/models"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// ErrInvalidBox is returned when a bounding box has its corners swapped.
var ErrInvalidBox = errors.New("invalid bounding box")

// spatialStation wraps a station to implement rtreego.Spatial interface
type spatialStation struct {
	*models.Station
	rect *rtreego.Rect
}

func (sp *spatialStation) Bounds() *rtreego.Rect {
	return sp.rect
}

// GeoIndex is a thread-safe index of stations. Returned stations are shared
// with the index and must not be modified.
type GeoIndex struct {
	partitions      []*rtreego.Rtree
	partitionBounds []models.BoundingBox
	numPartitions   int

	byID   map[string]*spatialStation
	mu     sync.RWMutex
	logger *slog.Logger
}

// Option configures a GeoIndex.
type Option func(*GeoIndex)

// WithPartitions sets the number of longitude bands. Values <= 0 use
// runtime.NumCPU().
func WithPartitions(n int) Option {
	return func(g *GeoIndex) {
		g.numPartitions = n
	}
}

// WithLogger sets the logger used for skipped and replaced stations.
func WithLogger(logger *slog.Logger) Option {
	return func(g *GeoIndex) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeoIndex creates an empty index.
func NewGeoIndex(opts ...Option) *GeoIndex {
	g := &GeoIndex{
		numPartitions: runtime.NumCPU(),
		byID:          make(map[string]*spatialStation),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.numPartitions <= 0 {
		g.numPartitions = runtime.NumCPU()
	}

	g.partitions = make([]*rtreego.Rtree, g.numPartitions)
	g.partitionBounds = make([]models.BoundingBox, g.numPartitions)

	// Create partitions based on longitude bands
	lonRange := 360.0 / float64(g.numPartitions)
	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == g.numPartitions-1 {
			maxLon = 180.0
		}

		g.partitionBounds[i] = models.BoundingBox{
			BottomLeft: models.Location{Lat: -90, Lon: minLon},
			TopRight:   models.Location{Lat: 90, Lon: maxLon},
		}
	}

	return g
}

// newSpatialStation validates the coordinate and computes the locator.
func newSpatialStation(id string, lat, lon float64) (*spatialStation, error) {
	grid, err := locator.New(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("station %q: %w", id, err)
	}

	station := &models.Station{
		ID:       id,
		Location: &models.Location{Lat: lat, Lon: lon},
		Locator:  grid.Locator(),
	}
	p := rtreego.Point{lat, lon}
	return &spatialStation{station, p.ToRect(tolerance)}, nil
}

func (g *GeoIndex) partitionFor(lon float64) int {
	idx := int((lon + 180.0) / (360.0 / float64(g.numPartitions)))
	if idx >= g.numPartitions {
		idx = g.numPartitions - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Add indexes a single station, replacing any station with the same ID.
func (g *GeoIndex) Add(id string, lat, lon float64) (*models.Station, error) {
	item, err := newSpatialStation(id, lat, lon)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeLocked(id)
	g.partitions[g.partitionFor(lon)].Insert(item)
	g.byID[id] = item

	return item.Station, nil
}

// IndexStations indexes a batch of stations. Stations without a location
// are skipped. If any coordinate is out of range nothing is indexed.
// Later entries win over earlier ones with the same ID.
func (g *GeoIndex) IndexStations(stations []*models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	items := make(map[string]*spatialStation, len(stations))
	for _, s := range stations {
		if s == nil || s.Location == nil {
			if s != nil {
				g.logger.Debug("skipping station without location", "id", s.ID)
			}
			continue
		}
		item, err := newSpatialStation(s.ID, s.Location.Lat, s.Location.Lon)
		if err != nil {
			return err
		}
		items[s.ID] = item
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Group stations by partition
	partitioned := make([][]*spatialStation, g.numPartitions)
	for id, item := range items {
		if g.removeLocked(id) {
			g.logger.Debug("replacing station", "id", id)
		}
		idx := g.partitionFor(item.Location.Lon)
		partitioned[idx] = append(partitioned[idx], item)
		g.byID[id] = item
	}

	var wg sync.WaitGroup
	for i := 0; i < g.numPartitions; i++ {
		if len(partitioned[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(tree *rtreego.Rtree, batch []*spatialStation) {
			defer wg.Done()
			for _, item := range batch {
				tree.Insert(item)
			}
		}(g.partitions[i], partitioned[i])
	}
	wg.Wait()

	return nil
}

// Get returns the station with the given ID.
func (g *GeoIndex) Get(id string) (*models.Station, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	item, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return item.Station, true
}

// Remove deletes a station and reports whether it was present.
func (g *GeoIndex) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.removeLocked(id)
}

func (g *GeoIndex) removeLocked(id string) bool {
	item, ok := g.byID[id]
	if !ok {
		return false
	}
	g.partitions[g.partitionFor(item.Location.Lon)].Delete(item)
	delete(g.byID, id)
	return true
}

// QueryBox returns all stations within the given bounding box using parallel search
func (g *GeoIndex) QueryBox(box models.BoundingBox) ([]*models.Station, error) {
	if box.TopRight.Lat < box.BottomLeft.Lat || box.TopRight.Lon < box.BottomLeft.Lon {
		return nil, ErrInvalidBox
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.searchBox(box, box.Contains)
}

// QueryRadius returns all stations within radiusKm of center, measured
// along the great circle.
func (g *GeoIndex) QueryRadius(center models.Location, radiusKm float64) ([]*models.Station, error) {
	if radiusKm < 0 {
		return nil, fmt.Errorf("negative radius %g km", radiusKm)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.searchRadius(center, radiusKm)
}

func (g *GeoIndex) searchRadius(center models.Location, radiusKm float64) ([]*models.Station, error) {
	within := func(loc models.Location) bool {
		return geomath.DistanceFrom(center.Lat, center.Lon, loc.Lat, loc.Lon) <= radiusKm
	}
	return g.searchBox(radiusBox(center, radiusKm), within)
}

// radiusBox returns a box enclosing every point within radiusKm of center.
// The widest longitude of a spherical cap is asin(sin r / cos φ), not
// r / cos φ. Near the poles, for caps of a quarter circle or more, or
// across the antimeridian it falls back to the full longitude range.
func radiusBox(center models.Location, radiusKm float64) models.BoundingBox {
	r := radiusKm / geomath.EarthRadius
	deg := r * 180 / math.Pi

	minLat := center.Lat - deg
	maxLat := center.Lat + deg
	minLon, maxLon := -180.0, 180.0

	if minLat > -90 && maxLat < 90 && r < math.Pi/2 {
		if s := math.Sin(r) / math.Cos(center.Lat*math.Pi/180); s < 1 {
			lonDeg := math.Asin(s) * 180 / math.Pi
			if center.Lon-lonDeg >= -180 && center.Lon+lonDeg <= 180 {
				minLon = center.Lon - lonDeg
				maxLon = center.Lon + lonDeg
			}
		}
	}

	return models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Max(minLat, -90), Lon: minLon},
		TopRight:   models.Location{Lat: math.Min(maxLat, 90), Lon: maxLon},
	}
}

// searchBox runs an R-Tree intersect over the relevant partitions and keeps
// the stations accepted by keep. Callers hold g.mu.
func (g *GeoIndex) searchBox(box models.BoundingBox, keep func(models.Location) bool) ([]*models.Station, error) {
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat - tolerance, box.BottomLeft.Lon - tolerance},
		[]float64{
			box.TopRight.Lat - box.BottomLeft.Lat + 2*tolerance,
			box.TopRight.Lon - box.BottomLeft.Lon + 2*tolerance,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBox, err)
	}

	relevant := g.getRelevantPartitions(box)
	resultsChan := make(chan []*models.Station, len(relevant))

	for _, partitionIdx := range relevant {
		go func(tree *rtreego.Rtree) {
			results := tree.SearchIntersect(bounds)

			stations := make([]*models.Station, 0, len(results))
			for _, result := range results {
				item, ok := result.(*spatialStation)
				if !ok || item.Station == nil || item.Location == nil {
					continue
				}
				if keep(*item.Location) {
					stations = append(stations, item.Station)
				}
			}
			resultsChan <- stations
		}(g.partitions[partitionIdx])
	}

	var all []*models.Station
	for i := 0; i < len(relevant); i++ {
		all = append(all, <-resultsChan...)
	}
	return all, nil
}

type rankedStation struct {
	station  *models.Station
	distance float64
}

func rank(center models.Location, stations []*models.Station) []rankedStation {
	ranked := make([]rankedStation, len(stations))
	for i, s := range stations {
		ranked[i] = rankedStation{
			station:  s,
			distance: geomath.DistanceFrom(center.Lat, center.Lon, s.Location.Lat, s.Location.Lon),
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].station.ID < ranked[j].station.ID
	})
	return ranked
}

// NearestNeighbors returns up to n stations closest to center by
// great-circle distance, nearest first.
func (g *GeoIndex) NearestNeighbors(center models.Location, n int) []*models.Station {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// Candidates from the planar R-Tree search in each partition
	resultsChan := make(chan []*models.Station, g.numPartitions)
	for i := 0; i < g.numPartitions; i++ {
		go func(tree *rtreego.Rtree) {
			results := tree.NearestNeighbors(n*2, rtreego.Point{center.Lat, center.Lon})

			stations := make([]*models.Station, 0, len(results))
			for _, result := range results {
				if item, ok := result.(*spatialStation); ok && item != nil {
					stations = append(stations, item.Station)
				}
			}
			resultsChan <- stations
		}(g.partitions[i])
	}

	var candidates []*models.Station
	for i := 0; i < g.numPartitions; i++ {
		candidates = append(candidates, <-resultsChan...)
	}

	ranked := rank(center, candidates)
	if len(ranked) >= n {
		// Planar and great-circle order differ, so widen to the n-th
		// candidate's distance and rank exactly. The candidates stay in
		// the pool so the result never loses one of them. searchBox only
		// fails on a non-positive rectangle and its widths are at least
		// 2*tolerance here, so err is always nil.
		within, _ := g.searchRadius(center, ranked[n-1].distance)

		pool := make(map[string]*models.Station, len(candidates)+len(within))
		for _, s := range candidates {
			pool[s.ID] = s
		}
		for _, s := range within {
			pool[s.ID] = s
		}
		merged := make([]*models.Station, 0, len(pool))
		for _, s := range pool {
			merged = append(merged, s)
		}
		ranked = rank(center, merged)
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	stations := make([]*models.Station, len(ranked))
	for i, r := range ranked {
		stations[i] = r.station
	}
	return stations
}

// QueryLocator returns the stations whose locator starts with prefix,
// compared case-insensitively, ordered by ID. An empty prefix matches all.
func (g *GeoIndex) QueryLocator(prefix string) []*models.Station {
	prefix = strings.ToUpper(prefix)

	g.mu.RLock()
	defer g.mu.RUnlock()

	var stations []*models.Station
	for _, item := range g.byID {
		if strings.HasPrefix(item.Locator, prefix) {
			stations = append(stations, item.Station)
		}
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].ID < stations[j].ID
	})
	return stations
}

// Count returns the number of indexed stations
func (g *GeoIndex) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.byID)
}

// Clear removes all stations from the index
func (g *GeoIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	g.logger.Info("station index cleared", "stations", len(g.byID))
	g.byID = make(map[string]*spatialStation)
}

// getRelevantPartitions returns the indices of partitions that intersect with the given bounding box
func (g *GeoIndex) getRelevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range g.partitionBounds {
		// band edges are computed, so allow slack for stations sitting on one
		if box.BottomLeft.Lon <= bounds.TopRight.Lon+tolerance &&
			box.TopRight.Lon >= bounds.BottomLeft.Lon-tolerance {
			relevant = append(relevant, i)
		}
	}
	return relevant
}
