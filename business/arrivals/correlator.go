package arrivals

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pespinel/AuvasaKit/business/data/gtfs"
	"github.com/pespinel/AuvasaKit/business/data/gtfsrt"
)

// secondsInDay is one nominal service day
const secondsInDay = 24 * 60 * 60

// defaultLimit bounds the result when the caller requests no limit
const defaultLimit = 10

// StaticQuery is the slice of the gtfs schedule store the correlator needs
type StaticQuery interface {
	Location() *time.Location
	GetTrip(tripId string) (*gtfs.Trip, error)
	GetRoute(routeId string) (*gtfs.Route, error)
	GetActiveServiceIds(serviceDate time.Time) ([]string, error)
	GetUpcomingStopTimes(stopId string, afterSeconds int, serviceIds []string, limit int) ([]*gtfs.StopTime, error)
	GetFirstDepartureTime(tripId string) (int, error)
}

// Correlator matches realtime trip updates to scheduled trips and derives arrival
// predictions from them
type Correlator struct {
	store StaticQuery
	log   *log.Logger
}

// NewCorrelator builds a Correlator over a schedule store
func NewCorrelator(store StaticQuery, log *log.Logger) *Correlator {
	return &Correlator{
		store: store,
		log:   log,
	}
}

// NextArrivals produces the next arrivals at stopId after now, soonest first.
//
// Scheduled departures are read from the active dataset for both today's service
// day and yesterday's (a trip past 24:00:00 of yesterday's schedule is still
// running today). Each scheduled departure is then matched against updates and,
// when realtime data applies, carries an estimated time and delay.
//
// A departure referencing a trip, route or service the schedule no longer knows is
// dropped rather than failing the whole result.
func (c *Correlator) NextArrivals(stopId string, updates []gtfsrt.TripUpdate,
	now time.Time, limit int) ([]Arrival, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	loc := c.store.Location()
	now = now.In(loc)

	// extra candidates survive service filtering and deduplication
	candidateLimit := limit * 4
	today := gtfs.Get12AmTime(now)
	serviceDays := []struct {
		date         time.Time
		afterSeconds int
	}{
		{today.AddDate(0, 0, -1), gtfs.SecondsIntoServiceDay(now) + secondsInDay},
		{today, gtfs.SecondsIntoServiceDay(now)},
	}

	result := make([]Arrival, 0, candidateLimit)
	for _, day := range serviceDays {
		// one calendar lookup per service day covers all its candidates
		serviceIds, err := c.store.GetActiveServiceIds(day.date)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve active services on %s: %w",
				gtfs.FormatDate(day.date), err)
		}
		if len(serviceIds) == 0 {
			continue
		}
		stopTimes, err := c.store.GetUpcomingStopTimes(stopId, day.afterSeconds, serviceIds, candidateLimit)
		if err != nil {
			return nil, fmt.Errorf("unable to load departures at stop %s: %w", stopId, err)
		}
		for _, stopTime := range stopTimes {
			arrival, ok, err := c.buildArrival(stopId, stopTime, day.date, updates)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if arrival.BestTime().Before(now) {
				continue
			}
			result = append(result, arrival)
		}
	}

	sortArrivals(result)
	result = deduplicate(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// buildArrival assembles one arrival from a scheduled departure, returning
// ok false when the record should be skipped
func (c *Correlator) buildArrival(stopId string, stopTime *gtfs.StopTime,
	serviceDate time.Time, updates []gtfsrt.TripUpdate) (Arrival, bool, error) {
	trip, err := c.store.GetTrip(stopTime.TripId)
	if errors.Is(err, gtfs.ErrNotFound) {
		c.log.Printf("skipping departure at stop %s: %v", stopId, err)
		return Arrival{}, false, nil
	}
	if err != nil {
		return Arrival{}, false, err
	}
	route, err := c.store.GetRoute(trip.RouteId)
	if errors.Is(err, gtfs.ErrNotFound) {
		c.log.Printf("skipping departure at stop %s: %v", stopId, err)
		return Arrival{}, false, nil
	}
	if err != nil {
		return Arrival{}, false, err
	}

	arrival := Arrival{
		StopId:         stopId,
		RouteId:        route.RouteId,
		RouteShortName: route.RouteShortName,
		TripId:         trip.TripId,
		Headsign:       trip.Headsign(),
		ScheduledTime:  gtfs.ScheduleTimeOn(stopTime.DepartureTime, serviceDate),
	}
	if update := c.matchUpdate(updates, trip, stopTime, serviceDate); update != nil {
		c.applyUpdate(&arrival, update, stopTime)
	}
	return arrival, true, nil
}

// matchUpdate finds the realtime update for a scheduled trip, trying in order:
// the exact trip id, the route plus the trip's start time, and finally the route
// plus a stop sequence present in the update. The later strategies only consider
// updates that carry no trip id of their own, and the stop sequence strategy
// additionally requires no start time: an update that published a start time
// which failed to match must not be rematched to a different trip by sequence.
func (c *Correlator) matchUpdate(updates []gtfsrt.TripUpdate, trip *gtfs.Trip,
	stopTime *gtfs.StopTime, serviceDate time.Time) *gtfsrt.TripUpdate {
	for i := range updates {
		update := &updates[i]
		if update.Trip.TripId != nil && *update.Trip.TripId == trip.TripId {
			return update
		}
	}

	if startTime, err := c.store.GetFirstDepartureTime(trip.TripId); err == nil {
		want := gtfs.FormatScheduleTime(startTime)
		for i := range updates {
			update := &updates[i]
			if update.Trip.TripId != nil || update.Trip.StartTime == nil {
				continue
			}
			if update.Trip.RouteId == nil || *update.Trip.RouteId != trip.RouteId {
				continue
			}
			if *update.Trip.StartTime == want && onServiceDate(update, serviceDate) {
				return update
			}
		}
	}

	for i := range updates {
		update := &updates[i]
		if update.Trip.TripId != nil || update.Trip.StartTime != nil {
			continue
		}
		if update.Trip.RouteId == nil || *update.Trip.RouteId != trip.RouteId {
			continue
		}
		for _, stu := range update.StopTimeUpdates {
			if stu.StopSequence != nil && *stu.StopSequence == stopTime.StopSequence {
				return update
			}
		}
	}
	return nil
}

// onServiceDate reports whether an update's start date matches the service date.
// An absent or unparseable start date matches anything.
func onServiceDate(update *gtfsrt.TripUpdate, serviceDate time.Time) bool {
	if update.Trip.StartDate == nil {
		return true
	}
	startDate, err := gtfs.ParseDate(*update.Trip.StartDate, serviceDate.Location())
	if err != nil {
		return true
	}
	return startDate.Equal(serviceDate)
}

// applyUpdate folds a matched realtime update into the arrival. The departure
// event is preferred over the arrival event; an update with no usable event for
// this stop leaves the arrival schedule-only.
func (c *Correlator) applyUpdate(arrival *Arrival, update *gtfsrt.TripUpdate,
	stopTime *gtfs.StopTime) {
	var event *gtfsrt.TimeEvent
	if stu := stopTimeUpdateFor(update, arrival.StopId, stopTime.StopSequence); stu != nil {
		if stu.Departure.HasPrediction() {
			event = stu.Departure
		} else if stu.Arrival.HasPrediction() {
			event = stu.Arrival
		}
	}
	if event == nil {
		return
	}
	arrival.VehicleId = update.VehicleId

	loc := arrival.ScheduledTime.Location()
	var estimated time.Time
	var delay int
	if event.Time != nil {
		estimated = time.Unix(*event.Time, 0).In(loc)
		if event.Delay != nil {
			delay = int(*event.Delay)
		} else {
			delay = int(estimated.Sub(arrival.ScheduledTime) / time.Second)
		}
	} else {
		delay = int(*event.Delay)
		estimated = arrival.ScheduledTime.Add(time.Duration(delay) * time.Second)
	}
	arrival.EstimatedTime = &estimated
	arrival.DelaySeconds = &delay
	arrival.Realtime = true
}

// stopTimeUpdateFor locates the update row for a stop, by stop id when the feed
// includes one, otherwise by stop sequence
func stopTimeUpdateFor(update *gtfsrt.TripUpdate, stopId string, stopSequence uint32) *gtfsrt.StopTimeUpdate {
	for i := range update.StopTimeUpdates {
		stu := &update.StopTimeUpdates[i]
		if stu.StopId != nil && *stu.StopId == stopId {
			return stu
		}
	}
	for i := range update.StopTimeUpdates {
		stu := &update.StopTimeUpdates[i]
		if stu.StopId == nil && stu.StopSequence != nil && *stu.StopSequence == stopSequence {
			return stu
		}
	}
	return nil
}
