package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/nwstraits/survey-etl/internal/observability"
	"golang.org/x/sync/singleflight"
)

// Station identifies a NOAA tide station.
type Station struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// StationLookupError is returned when NOAA has no station with the given id.
type StationLookupError struct {
	StationID int
}

func (e *StationLookupError) Error() string {
	return fmt.Sprintf("failed to find NOAA station: %d", e.StationID)
}

// knownStations seeds every registry so common survey sites never hit the API.
var knownStations = []Station{
	{Name: "Admiralty Head", ID: 9447905},
	{Name: "Burrows Bay", ID: 9448683},
	{Name: "Cherry Point", ID: 9449424},
	{Name: "Cornet Bay", ID: 9447995},
	{Name: "Crescent Harbor", ID: 9447952},
	{Name: "Edmonds", ID: 9447427},
	{Name: "Friday Harbor", ID: 9449880},
	{Name: "Glendale", ID: 9447814},
	{Name: "Gooseberry Point", ID: 9449184},
	{Name: "Neah Bay", ID: 9443090},
	{Name: "Point Partridge", ID: 9447934},
	{Name: "Port Angeles", ID: 9444090},
	{Name: "Port Townsend", ID: 9444900},
	{Name: "Sandy Point", ID: 9447856},
	{Name: "Seattle", ID: 9447130},
	{Name: "Ship Harbor", ID: 9448772},
	{Name: "Yokeko Point", ID: 9448601},
}

// StationRegistry caches stations and their tidal corrections for the life of
// the process. It is safe for concurrent use; concurrent misses for the same
// station share one remote call.
type StationRegistry struct {
	source  TideDataSource
	logger  *slog.Logger
	metrics *observability.Metrics

	mu          sync.RWMutex
	stations    map[int]Station
	corrections map[int]TidalCorrection
	group       singleflight.Group
}

// NewStationRegistry creates a registry seeded with the known survey stations.
func NewStationRegistry(source TideDataSource, logger *slog.Logger, metrics *observability.Metrics) *StationRegistry {
	r := &StationRegistry{
		source:      source,
		logger:      logger,
		metrics:     metrics,
		stations:    make(map[int]Station, len(knownStations)),
		corrections: make(map[int]TidalCorrection),
	}
	for _, s := range knownStations {
		r.stations[s.ID] = s
	}
	return r
}

// LookupStation returns the station with the given id, fetching its metadata
// from NOAA on the first request for an unseeded id.
func (r *StationRegistry) LookupStation(ctx context.Context, id int) (Station, error) {
	if s, ok := r.cachedStation(id); ok {
		r.metrics.StationCache.WithLabelValues("station", "hit").Inc()
		return s, nil
	}
	r.metrics.StationCache.WithLabelValues("station", "miss").Inc()

	v, err, _ := r.group.Do("station:"+strconv.Itoa(id), func() (any, error) {
		if s, ok := r.cachedStation(id); ok {
			return s, nil
		}
		return r.fetchStation(ctx, id)
	})
	if err != nil {
		return Station{}, err
	}
	return v.(Station), nil
}

func (r *StationRegistry) fetchStation(ctx context.Context, id int) (Station, error) {
	reply, err := r.source.FetchStationInfo(ctx, id)
	if err != nil {
		return Station{}, fmt.Errorf("lookup station %d: %w", id, err)
	}
	if len(reply.Stations) == 0 {
		return Station{}, &StationLookupError{StationID: id}
	}

	info := reply.Stations[0]
	newID, err := strconv.Atoi(info.ID.String())
	if err != nil {
		return Station{}, fmt.Errorf("lookup station %d: invalid id %q: %w", id, info.ID, err)
	}
	s := Station{Name: info.Name, ID: newID}

	r.mu.Lock()
	r.stations[s.ID] = s
	if s.ID != id {
		r.stations[id] = s
	}
	r.mu.Unlock()

	r.logger.Info("resolved tide station", "station_id", s.ID, "name", s.Name)
	return s, nil
}

func (r *StationRegistry) cachedStation(id int) (Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stations[id]
	return s, ok
}

// Correction returns the tidal correction for a station. A known correction is
// fetched at most once; an unknown one is fetched again on the next call.
func (r *StationRegistry) Correction(ctx context.Context, stationID int) (TidalCorrection, error) {
	r.mu.RLock()
	c, ok := r.corrections[stationID]
	r.mu.RUnlock()
	if ok && !c.IsUnknown() {
		r.metrics.StationCache.WithLabelValues("correction", "hit").Inc()
		return c, nil
	}
	r.metrics.StationCache.WithLabelValues("correction", "miss").Inc()

	v, err, _ := r.group.Do("correction:"+strconv.Itoa(stationID), func() (any, error) {
		c, err := FetchTidalCorrection(ctx, r.source, stationID, r.logger)
		if err != nil {
			return c, err
		}
		if c.IsUnknown() {
			r.metrics.UnknownCorrections.Inc()
		}
		r.mu.Lock()
		r.corrections[stationID] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return UnknownCorrection(), err
	}
	return v.(TidalCorrection), nil
}

// CorrectionMissing reports whether the station has no usable correction. It
// resolves the correction if that has not happened yet.
func (r *StationRegistry) CorrectionMissing(ctx context.Context, stationID int) bool {
	c, err := r.Correction(ctx, stationID)
	if err != nil {
		r.logger.Warn("tidal correction unavailable", "station_id", stationID, "error", err)
		return true
	}
	return c.IsUnknown()
}

// Stations returns the cached stations ordered by id.
func (r *StationRegistry) Stations() []Station {
	r.mu.RLock()
	out := make([]Station, 0, len(r.stations))
	seen := make(map[int]bool, len(r.stations))
	for _, s := range r.stations {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
