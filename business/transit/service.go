package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pespinel/AuvasaKit/business/arrivals"
	"github.com/pespinel/AuvasaKit/business/cache"
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
	"github.com/pespinel/AuvasaKit/business/data/gtfsrt"
	"github.com/pespinel/AuvasaKit/business/subscription"
	"github.com/pespinel/AuvasaKit/foundation/database"
	"github.com/pespinel/AuvasaKit/foundation/geomath"
)

// cache keys per feed kind
const (
	cacheKeyVehiclePositions = "vehicle_positions"
	cacheKeyTripUpdates      = "trip_updates"
	cacheKeyAlerts           = "alerts"
)

// FeedSource retrieves decoded realtime feeds
type FeedSource interface {
	VehiclePositions(ctx context.Context) ([]gtfsrt.VehiclePosition, error)
	TripUpdates(ctx context.Context) ([]gtfsrt.TripUpdate, error)
	Alerts(ctx context.Context) ([]gtfsrt.Alert, error)
}

// Service exposes arrival predictions, vehicle positions and service alerts for
// one transit agency
type Service struct {
	log        *log.Logger
	cfg        Config
	store      *gtfs.Store
	feed       FeedSource
	correlator *arrivals.Correlator
	scheduler  *subscription.Scheduler
	cache      *cache.Tiered
	now        func() time.Time
}

// New builds a Service from cfg, opening the schedule database and preparing the
// feed client, cache and scheduler
func New(log *log.Logger, cfg Config) (*Service, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load timezone %s: %w", cfg.Timezone, err)
	}
	db, err := database.Open(database.Config{Path: cfg.StaticDBPath})
	if err != nil {
		return nil, fmt.Errorf("unable to open schedule database: %w", err)
	}
	store, err := gtfs.NewStore(db, loc)
	if err != nil {
		return nil, fmt.Errorf("unable to load schedule data: %w", err)
	}

	var disk *cache.Disk
	if cfg.CacheDir != "" {
		disk, err = cache.NewDisk(cfg.CacheDir, cfg.MaxDiskFiles)
		if err != nil {
			return nil, err
		}
	}

	feed := gtfsrt.NewFeedClient(gtfsrt.FeedURLs{
		VehiclePositions: cfg.VehiclePositionsURL,
		TripUpdates:      cfg.TripUpdatesURL,
		Alerts:           cfg.AlertsURL,
	}, cfg.RequestTimeout)

	return &Service{
		log:        log,
		cfg:        cfg,
		store:      store,
		feed:       feed,
		correlator: arrivals.NewCorrelator(store, log),
		scheduler:  subscription.NewScheduler(log),
		cache:      cache.NewTiered(cache.NewMemory(cfg.MaxMemoryEntries), disk, log),
		now:        time.Now,
	}, nil
}

// GetNextArrivals returns the next arrivals at a stop, realtime data folded in.
// A feed retrieval or decode failure is returned to the caller; use
// GetScheduledArrivals to fall back to schedule data alone.
func (s *Service) GetNextArrivals(ctx context.Context, stopId string, limit int) ([]arrivals.Arrival, error) {
	updates, err := s.tripUpdates(ctx)
	if err != nil {
		return nil, err
	}
	return s.correlator.NextArrivals(stopId, updates, s.now(), limit)
}

// GetScheduledArrivals returns the next arrivals at a stop from schedule data
// alone, without touching the realtime feed
func (s *Service) GetScheduledArrivals(stopId string, limit int) ([]arrivals.Arrival, error) {
	return s.correlator.NextArrivals(stopId, nil, s.now(), limit)
}

// GetVehiclePositions returns current vehicle positions, filtered to routeId when
// it is non empty
func (s *Service) GetVehiclePositions(ctx context.Context, routeId string) ([]gtfsrt.VehiclePosition, error) {
	positions, err := s.vehiclePositions(ctx)
	if err != nil {
		return nil, err
	}
	if routeId == "" {
		return positions, nil
	}
	filtered := make([]gtfsrt.VehiclePosition, 0, len(positions))
	for _, position := range positions {
		if position.RouteId != nil && *position.RouteId == routeId {
			filtered = append(filtered, position)
		}
	}
	return filtered, nil
}

// GetAlerts returns the service alerts currently in effect
func (s *Service) GetAlerts(ctx context.Context) ([]gtfsrt.Alert, error) {
	all, err := s.alerts(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	active := make([]gtfsrt.Alert, 0, len(all))
	for _, alert := range all {
		if alert.IsActive(now) {
			active = append(active, alert)
		}
	}
	return active, nil
}

// TripDetails describes one scheduled trip with its full stop sequence
type TripDetails struct {
	Trip   *gtfs.Trip      `json:"trip"`
	Route  *gtfs.Route     `json:"route"`
	Stops  []TripStop      `json:"stops"`
	Shape  []geomath.Point `json:"shape,omitempty"`
	Bounds *geomath.Box    `json:"bounds,omitempty"`
}

// TripStop is one scheduled stop of a trip
type TripStop struct {
	StopId        string `json:"stop_id"`
	StopName      string `json:"stop_name"`
	StopSequence  uint32 `json:"stop_sequence"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
}

// GetTripDetails returns a trip, its route and its stop sequence.
// Returns gtfs.ErrNotFound when the trip is unknown.
func (s *Service) GetTripDetails(tripId string) (*TripDetails, error) {
	trip, err := s.store.GetTrip(tripId)
	if err != nil {
		return nil, err
	}
	route, err := s.store.GetRoute(trip.RouteId)
	if err != nil {
		return nil, err
	}
	stopTimes, err := s.store.GetStopTimes(tripId)
	if err != nil {
		return nil, err
	}
	details := TripDetails{
		Trip:  trip,
		Route: route,
		Stops: make([]TripStop, 0, len(stopTimes)),
	}
	for _, stopTime := range stopTimes {
		tripStop := TripStop{
			StopId:        stopTime.StopId,
			StopSequence:  stopTime.StopSequence,
			ArrivalTime:   gtfs.FormatScheduleTime(stopTime.ArrivalTime),
			DepartureTime: gtfs.FormatScheduleTime(stopTime.DepartureTime),
		}
		if stop, err := s.store.GetStop(stopTime.StopId); err == nil {
			tripStop.StopName = stop.StopName
		}
		details.Stops = append(details.Stops, tripStop)
	}
	if trip.ShapeId != nil {
		if shapes, err := s.store.GetShape(*trip.ShapeId); err == nil && len(shapes) > 0 {
			details.Shape = make([]geomath.Point, 0, len(shapes))
			for _, shape := range shapes {
				details.Shape = append(details.Shape, shape.Point())
			}
			bounds := gtfs.ShapeBoundingBox(shapes)
			details.Bounds = &bounds
		}
	}
	return &details, nil
}

// GetTripsByRoute returns every scheduled trip of a route, ordered by trip id
func (s *Service) GetTripsByRoute(routeId string) ([]*gtfs.Trip, error) {
	return s.store.GetTripsByRoute(routeId)
}

// GetRoutes returns every route of the agency
func (s *Service) GetRoutes() ([]*gtfs.Route, error) {
	return s.store.GetRoutes()
}

// GetStop returns one stop by id, or gtfs.ErrNotFound
func (s *Service) GetStop(stopId string) (*gtfs.Stop, error) {
	return s.store.GetStop(stopId)
}

// GetStopsNear returns the stops within radiusMeters of a position, nearest first
func (s *Service) GetStopsNear(position geomath.Point, radiusMeters float64) ([]*gtfs.Stop, error) {
	return s.store.GetStopsNear(position, radiusMeters)
}

// ReloadStaticData repins the service to the latest imported schedule dataset
func (s *Service) ReloadStaticData() error {
	if err := s.store.Reload(); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// ArrivalsHandler receives each arrivals poll result. Exactly one of the
// arguments is meaningful per call.
type ArrivalsHandler func([]arrivals.Arrival, error)

// VehiclePositionsHandler receives each vehicle positions poll result
type VehiclePositionsHandler func([]gtfsrt.VehiclePosition, error)

// AlertsHandler receives each alerts poll result
type AlertsHandler func([]gtfsrt.Alert, error)

// SubscribeToArrivals polls arrivals at a stop on the configured interval and
// hands every result, success or failure, to handler. A failed poll retries after
// the configured error backoff.
func (s *Service) SubscribeToArrivals(ctx context.Context, stopId string, limit int,
	handler ArrivalsHandler) *subscription.Subscription {
	return s.scheduler.Subscribe(ctx, s.cfg.PollInterval, s.cfg.ErrorBackoff,
		func(ctx context.Context) error {
			result, err := s.GetNextArrivals(ctx, stopId, limit)
			handler(result, err)
			return err
		})
}

// SubscribeToVehiclePositions polls vehicle positions on the configured interval,
// filtered to routeId when it is non empty
func (s *Service) SubscribeToVehiclePositions(ctx context.Context, routeId string,
	handler VehiclePositionsHandler) *subscription.Subscription {
	return s.scheduler.Subscribe(ctx, s.cfg.PollInterval, s.cfg.ErrorBackoff,
		func(ctx context.Context) error {
			result, err := s.GetVehiclePositions(ctx, routeId)
			handler(result, err)
			return err
		})
}

// SubscribeToAlerts polls active service alerts on the configured interval
func (s *Service) SubscribeToAlerts(ctx context.Context, handler AlertsHandler) *subscription.Subscription {
	return s.scheduler.Subscribe(ctx, s.cfg.PollInterval, s.cfg.ErrorBackoff,
		func(ctx context.Context) error {
			result, err := s.GetAlerts(ctx)
			handler(result, err)
			return err
		})
}

// CancelAllSubscriptions stops every running subscription and waits for their
// polling loops to exit
func (s *Service) CancelAllSubscriptions() {
	s.scheduler.CancelAll()
}

// Close cancels any live subscriptions and releases the schedule database
func (s *Service) Close() error {
	s.scheduler.CancelAll()
	return s.store.Close()
}

// tripUpdates returns the trip updates feed through the cache
func (s *Service) tripUpdates(ctx context.Context) ([]gtfsrt.TripUpdate, error) {
	var updates []gtfsrt.TripUpdate
	if s.cachedInto(cacheKeyTripUpdates, &updates) {
		return updates, nil
	}
	updates, err := s.feed.TripUpdates(ctx)
	if err != nil {
		return nil, err
	}
	s.storeCached(cacheKeyTripUpdates, updates, s.cfg.TripUpdatesTTL)
	return updates, nil
}

// vehiclePositions returns the vehicle positions feed through the cache
func (s *Service) vehiclePositions(ctx context.Context) ([]gtfsrt.VehiclePosition, error) {
	var positions []gtfsrt.VehiclePosition
	if s.cachedInto(cacheKeyVehiclePositions, &positions) {
		return positions, nil
	}
	positions, err := s.feed.VehiclePositions(ctx)
	if err != nil {
		return nil, err
	}
	s.storeCached(cacheKeyVehiclePositions, positions, s.cfg.VehiclePositionsTTL)
	return positions, nil
}

// alerts returns the alerts feed through the cache
func (s *Service) alerts(ctx context.Context) ([]gtfsrt.Alert, error) {
	var all []gtfsrt.Alert
	if s.cachedInto(cacheKeyAlerts, &all) {
		return all, nil
	}
	all, err := s.feed.Alerts(ctx)
	if err != nil {
		return nil, err
	}
	s.storeCached(cacheKeyAlerts, all, s.cfg.AlertsTTL)
	return all, nil
}

// cachedInto loads a cached feed into out, reporting whether a fresh entry was
// found. A corrupt entry is treated as a miss.
func (s *Service) cachedInto(key string, out any) bool {
	payload, ok := s.cache.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.log.Printf("discarding corrupt cache entry %s: %v", key, err)
		return false
	}
	return true
}

// storeCached writes a decoded feed into the cache. A failure to encode only
// skips caching.
func (s *Service) storeCached(key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Printf("unable to cache %s: %v", key, err)
		return
	}
	s.cache.Set(key, payload, ttl)
}
