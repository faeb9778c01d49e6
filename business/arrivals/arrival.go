// Package arrivals correlates realtime trip updates with the static schedule to
// produce upcoming arrival predictions for a stop.
package arrivals

import (
	"fmt"
	"sort"
	"time"
)

// significantDelaySeconds is the threshold past which an arrival is flagged as
// significantly delayed
const significantDelaySeconds = 300

// Arrival is a single predicted or scheduled arrival at a stop.
// EstimatedTime and DelaySeconds are nil when no realtime data matched the trip.
type Arrival struct {
	StopId         string     `json:"stop_id"`
	RouteId        string     `json:"route_id"`
	RouteShortName string     `json:"route_short_name"`
	TripId         string     `json:"trip_id"`
	Headsign       string     `json:"headsign"`
	VehicleId      *string    `json:"vehicle_id,omitempty"`
	ScheduledTime  time.Time  `json:"scheduled_time"`
	EstimatedTime  *time.Time `json:"estimated_time,omitempty"`
	DelaySeconds   *int       `json:"delay_seconds,omitempty"`
	Realtime       bool       `json:"realtime"`
}

// BestTime returns the estimated time when realtime data matched, otherwise the
// scheduled time
func (a *Arrival) BestTime() time.Time {
	if a.EstimatedTime != nil {
		return *a.EstimatedTime
	}
	return a.ScheduledTime
}

// SignificantlyDelayed reports whether the arrival is running more than five
// minutes behind schedule
func (a *Arrival) SignificantlyDelayed() bool {
	return a.DelaySeconds != nil && *a.DelaySeconds > significantDelaySeconds
}

// dedupKey buckets arrivals to the minute so the same physical departure seen
// through different trips collapses to one row
func (a *Arrival) dedupKey() string {
	return fmt.Sprintf("%s|%s|%d", a.RouteId, a.Headsign, a.BestTime().Unix()/60)
}

// sortArrivals orders arrivals soonest first, preferring the realtime row when two
// share the same best time
func sortArrivals(arrivals []Arrival) {
	sort.SliceStable(arrivals, func(i, j int) bool {
		ti, tj := arrivals[i].BestTime(), arrivals[j].BestTime()
		if ti.Equal(tj) {
			return arrivals[i].Realtime && !arrivals[j].Realtime
		}
		return ti.Before(tj)
	})
}

// deduplicate removes rows sharing a dedup key with an earlier row, keeping the
// realtime row when a scheduled duplicate landed in the same bucket first. The
// input must already be sorted
func deduplicate(arrivals []Arrival) []Arrival {
	kept := make(map[string]int, len(arrivals))
	result := arrivals[:0]
	for _, arrival := range arrivals {
		key := arrival.dedupKey()
		if at, ok := kept[key]; ok {
			if arrival.Realtime && !result[at].Realtime {
				result[at] = arrival
			}
			continue
		}
		kept[key] = len(result)
		result = append(result, arrival)
	}
	return result
}
