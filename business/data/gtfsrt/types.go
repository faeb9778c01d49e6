// Package gtfsrt provides typed access to a GTFS-Realtime feed.
// Optional feed fields are pointers and stay nil when the feed omits them, so a
// legitimate zero (direction 0, stop sequence 0, delay 0) is never conflated with
// "not present".
package gtfsrt

import (
	"time"
)

// VehiclePosition contains fields read from a GTFS-RT vehicle positions feed
type VehiclePosition struct {
	Id                  string             `json:"id"`
	VehicleId           string             `json:"vehicle_id"`
	Label               string             `json:"label,omitempty"`
	TripId              *string            `json:"trip_id,omitempty"`
	RouteId             *string            `json:"route_id,omitempty"`
	Latitude            float32            `json:"latitude"`
	Longitude           float32            `json:"longitude"`
	Bearing             *float32           `json:"bearing,omitempty"`
	Speed               *float32           `json:"speed,omitempty"`
	CurrentStopSequence *uint32            `json:"current_stop_sequence,omitempty"`
	StopId              *string            `json:"stop_id,omitempty"`
	CurrentStatus       VehicleStopStatus  `json:"current_status"`
	OccupancyStatus     *string            `json:"occupancy_status,omitempty"`
	Timestamp           int64              `json:"timestamp"`
}

// VehicleStopStatus defines the possible relationship a vehicle has to a stop in GTFS
type VehicleStopStatus int

const (
	Unknown VehicleStopStatus = -1
	// IncomingAt indicates vehicle is just about to arrive at the stop (on a stop
	// display, the vehicle symbol typically flashes).
	IncomingAt VehicleStopStatus = 0
	// StoppedAt indicates vehicle is at the stop.
	StoppedAt VehicleStopStatus = 1
	// InTransitTo indicates vehicle has departed a previous stop and is in transit to the next stop.
	InTransitTo VehicleStopStatus = 2
)

// String - Stringer interface for VehicleStopStatus
func (s VehicleStopStatus) String() string {
	switch s {
	case IncomingAt:
		return "INCOMING_AT"
	case StoppedAt:
		return "STOPPED_AT"
	case InTransitTo:
		return "IN_TRANSIT_TO"
	}
	return "UNKNOWN"
}

// TripDescriptor identifies the scheduled trip a realtime update concerns.
// Every field is optional; the feed may omit trip_id entirely and identify the trip
// only by route_id plus start_time.
type TripDescriptor struct {
	TripId      *string `json:"trip_id,omitempty"`
	RouteId     *string `json:"route_id,omitempty"`
	DirectionId *uint32 `json:"direction_id,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
}

// TimeEvent is a single realtime arrival or departure prediction. At least one of
// Delay or Time is expected; when both are absent the event carries no usable
// prediction.
type TimeEvent struct {
	// Delay in seconds, negative when running early
	Delay *int32 `json:"delay,omitempty"`
	// Time is an absolute prediction in unix epoch seconds
	Time        *int64 `json:"time,omitempty"`
	Uncertainty *int32 `json:"uncertainty,omitempty"`
}

// HasPrediction reports whether the event carries a usable delay or absolute time
func (e *TimeEvent) HasPrediction() bool {
	return e != nil && (e.Delay != nil || e.Time != nil)
}

// StopTimeUpdate is a realtime prediction for one stop of a trip. StopId is
// frequently absent from this feed, in which case StopSequence identifies the stop.
type StopTimeUpdate struct {
	StopSequence *uint32    `json:"stop_sequence,omitempty"`
	StopId       *string    `json:"stop_id,omitempty"`
	Arrival      *TimeEvent `json:"arrival,omitempty"`
	Departure    *TimeEvent `json:"departure,omitempty"`
}

// TripUpdate contains fields read from a GTFS-RT trip updates feed
type TripUpdate struct {
	Id              string           `json:"id"`
	Trip            TripDescriptor   `json:"trip"`
	VehicleId       *string          `json:"vehicle_id,omitempty"`
	StopTimeUpdates []StopTimeUpdate `json:"stop_time_updates"`
	Delay           *int32           `json:"delay,omitempty"`
	Timestamp       int64            `json:"timestamp"`
}

// ActivePeriod is a time range an alert applies in. End is nil for an open range.
type ActivePeriod struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// Alert contains fields read from a GTFS-RT service alerts feed
type Alert struct {
	Id               string         `json:"id"`
	ActivePeriods    []ActivePeriod `json:"active_periods"`
	InformedRouteIds []string       `json:"informed_route_ids"`
	InformedStopIds  []string       `json:"informed_stop_ids"`
	Cause            string         `json:"cause,omitempty"`
	Effect           string         `json:"effect,omitempty"`
	HeaderText       string         `json:"header_text"`
	DescriptionText  string         `json:"description_text"`
	Severity         string         `json:"severity,omitempty"`
}

// IsActive reports whether the alert applies at the provided time.
// An alert with no active periods is always active; otherwise one of its periods
// must contain now, where a period missing its end is open ended.
func (a *Alert) IsActive(now time.Time) bool {
	if len(a.ActivePeriods) == 0 {
		return true
	}
	unix := now.Unix()
	for _, period := range a.ActivePeriods {
		if period.Start != nil && unix < *period.Start {
			continue
		}
		if period.End != nil && unix > *period.End {
			continue
		}
		return true
	}
	return false
}
