// Package stations ranks catalog stations by distance to a query point.
package stations

import (
	"errors"
	"sort"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/catalog"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/geo"
)

// ErrNoStations indicates the catalog yielded no station with decodable
// coordinates, so there is nothing to rank.
var ErrNoStations = errors.New("no usable stations in catalog")

// Candidate is a station paired with its distance to the query point.
type Candidate struct {
	Station    catalog.Station
	Latitude   float64
	Longitude  float64
	DistanceKm float64
}

// Rank returns the `limit` stations closest to (lat, lon), ascending by
// distance with catalog order as the tie-break. Stations whose encoded
// coordinates fail to decode are skipped, not fatal: the catalog carries a
// handful of legacy entries with malformed codes and one bad row must not
// take out the whole lookup.
func Rank(all []catalog.Station, lat, lon float64, limit int) ([]Candidate, error) {
	if limit < 1 {
		limit = 1
	}

	ranked := make([]Candidate, 0, len(all))
	for _, st := range all {
		sLat, err := geo.DecodeDMS(st.Latitude, false)
		if err != nil {
			continue
		}
		sLon, err := geo.DecodeDMS(st.Longitude, true)
		if err != nil {
			continue
		}
		ranked = append(ranked, Candidate{
			Station:    st,
			Latitude:   sLat,
			Longitude:  sLon,
			DistanceKm: geo.DistanceKm(lat, lon, sLat, sLon),
		})
	}

	if len(ranked) == 0 {
		return nil, ErrNoStations
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Nearest is the single-station form of Rank.
func Nearest(all []catalog.Station, lat, lon float64) (Candidate, error) {
	ranked, err := Rank(all, lat, lon, 1)
	if err != nil {
		return Candidate{}, err
	}
	return ranked[0], nil
}
