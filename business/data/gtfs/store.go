package gtfs

import (
	"fmt"
	"sync"
	"time"

	"github.com/pespinel/AuvasaKit/foundation/geomath"

	"github.com/jmoiron/sqlx"
)

// Store exposes read access to the active gtfs DataSet. It pins the latest saved
// DataSet at construction so one consumer always queries a consistent schedule;
// Reload moves the pin after an import completes.
type Store struct {
	db  *sqlx.DB
	loc *time.Location

	mu        sync.RWMutex
	dataSetId int64
}

// NewStore builds a Store pinned to the latest saved DataSet.
// loc is the transit agency's operating timezone.
func NewStore(db *sqlx.DB, loc *time.Location) (*Store, error) {
	store := &Store{db: db, loc: loc}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Reload re-resolves the active DataSet, picking up a newly completed import
func (s *Store) Reload() error {
	dataSet, err := GetLatestSavedDataSet(s.db)
	if err != nil {
		return fmt.Errorf("unable to find a saved gtfs dataSet: %w", err)
	}
	s.mu.Lock()
	s.dataSetId = dataSet.Id
	s.mu.Unlock()
	return nil
}

// Close releases the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) activeDataSetId() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataSetId
}

// Location returns the agency operating timezone all schedule times belong to
func (s *Store) Location() *time.Location {
	return s.loc
}

// GetTrip retrieves the trip with tripId, or an error wrapping ErrNotFound
func (s *Store) GetTrip(tripId string) (*Trip, error) {
	return GetTrip(s.db, s.activeDataSetId(), tripId)
}

// GetRoute retrieves the route with routeId, or an error wrapping ErrNotFound
func (s *Store) GetRoute(routeId string) (*Route, error) {
	return GetRoute(s.db, s.activeDataSetId(), routeId)
}

// GetStop retrieves the stop with stopId, or an error wrapping ErrNotFound
func (s *Store) GetStop(stopId string) (*Stop, error) {
	return GetStop(s.db, s.activeDataSetId(), stopId)
}

// GetRoutes retrieves every route in the active DataSet
func (s *Store) GetRoutes() ([]*Route, error) {
	return GetRoutes(s.db, s.activeDataSetId())
}

// GetStopsNear retrieves stops within radiusMeters of position, nearest first
func (s *Store) GetStopsNear(position geomath.Point, radiusMeters float64) ([]*Stop, error) {
	return GetStopsNear(s.db, s.activeDataSetId(), position, radiusMeters)
}

// GetStopTimes retrieves a trip's scheduled stops in stop_sequence order
func (s *Store) GetStopTimes(tripId string) ([]*StopTime, error) {
	return GetStopTimes(s.db, s.activeDataSetId(), tripId)
}

// GetTripsByRoute retrieves every trip operating routeId
func (s *Store) GetTripsByRoute(routeId string) ([]*Trip, error) {
	return GetTripsByRoute(s.db, s.activeDataSetId(), routeId)
}

// GetUpcomingStopTimes retrieves stop times departing stopId at or after
// afterSeconds on one of serviceIds, earliest first
func (s *Store) GetUpcomingStopTimes(stopId string, afterSeconds int,
	serviceIds []string, limit int) ([]*StopTime, error) {
	return GetUpcomingStopTimes(s.db, s.activeDataSetId(), stopId, afterSeconds, serviceIds, limit)
}

// GetFirstDepartureTime retrieves the departure seconds of a trip's first stop
func (s *Store) GetFirstDepartureTime(tripId string) (int, error) {
	return GetFirstDepartureTime(s.db, s.activeDataSetId(), tripId)
}

// IsServiceActive reports whether serviceId operates on serviceDate
func (s *Store) IsServiceActive(serviceId string, serviceDate time.Time) (bool, error) {
	return IsServiceActive(s.db, s.activeDataSetId(), serviceId, serviceDate)
}

// GetActiveServiceIds retrieves every serviceId operating on serviceDate
func (s *Store) GetActiveServiceIds(serviceDate time.Time) ([]string, error) {
	return GetActiveServiceIds(s.db, s.activeDataSetId(), serviceDate)
}

// GetShape retrieves a shape's points in sequence order
func (s *Store) GetShape(shapeId string) ([]*Shape, error) {
	return GetShape(s.db, s.activeDataSetId(), shapeId)
}
