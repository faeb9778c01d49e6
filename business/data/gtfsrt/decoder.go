package gtfsrt

import (
	"fmt"

	gtfsrtproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// ParseError indicates a feed payload could not be decoded into usable records.
// Either the protobuf envelope itself failed to unmarshal (Err is set) or a
// required field was absent (MissingField is set).
type ParseError struct {
	MissingField string
	Err          error
}

// Error - error interface for ParseError
func (e *ParseError) Error() string {
	if e.MissingField != "" {
		return fmt.Sprintf("gtfsrt: feed missing required field %q", e.MissingField)
	}
	return fmt.Sprintf("gtfsrt: unable to decode feed: %v", e.Err)
}

// Unwrap - errors.Unwrap interface for ParseError
func (e *ParseError) Unwrap() error {
	return e.Err
}

func missingFieldError(field string) *ParseError {
	return &ParseError{MissingField: field}
}

func invalidEncodingError(err error) *ParseError {
	return &ParseError{Err: err}
}

// unmarshalFeed decodes the protobuf envelope and validates the required header
func unmarshalFeed(payload []byte) (*gtfsrtproto.FeedMessage, error) {
	feed := &gtfsrtproto.FeedMessage{}
	if err := proto.Unmarshal(payload, feed); err != nil {
		return nil, invalidEncodingError(err)
	}
	if feed.Header == nil {
		return nil, missingFieldError("header")
	}
	return feed, nil
}

// DecodeVehiclePositions decodes a vehicle positions feed payload.
// Entities carrying no vehicle message are skipped; entities carrying one must
// include both the position and vehicle descriptor sub-messages.
func DecodeVehiclePositions(payload []byte) ([]VehiclePosition, error) {
	feed, err := unmarshalFeed(payload)
	if err != nil {
		return nil, err
	}
	positions := make([]VehiclePosition, 0, len(feed.Entity))
	for _, entity := range feed.Entity {
		vehicle := entity.Vehicle
		if vehicle == nil {
			continue
		}
		if vehicle.Position == nil {
			return nil, missingFieldError("position")
		}
		if vehicle.Vehicle == nil {
			return nil, missingFieldError("vehicle")
		}
		position := VehiclePosition{
			Id:            entity.GetId(),
			VehicleId:     vehicle.Vehicle.GetId(),
			Label:         vehicle.Vehicle.GetLabel(),
			Latitude:      vehicle.Position.GetLatitude(),
			Longitude:     vehicle.Position.GetLongitude(),
			Bearing:       vehicle.Position.Bearing,
			Speed:         vehicle.Position.Speed,
			StopId:        vehicle.StopId,
			CurrentStatus: vehicleStopStatus(vehicle.CurrentStatus),
			Timestamp:     int64(vehicle.GetTimestamp()),
		}
		if vehicle.CurrentStopSequence != nil {
			sequence := vehicle.GetCurrentStopSequence()
			position.CurrentStopSequence = &sequence
		}
		if vehicle.Trip != nil {
			position.TripId = vehicle.Trip.TripId
			position.RouteId = vehicle.Trip.RouteId
		}
		if vehicle.OccupancyStatus != nil {
			occupancy := vehicle.GetOccupancyStatus().String()
			position.OccupancyStatus = &occupancy
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// DecodeTripUpdates decodes a trip updates feed payload.
// Entities carrying no trip update message are skipped; entities carrying one must
// include the trip descriptor sub-message.
func DecodeTripUpdates(payload []byte) ([]TripUpdate, error) {
	feed, err := unmarshalFeed(payload)
	if err != nil {
		return nil, err
	}
	updates := make([]TripUpdate, 0, len(feed.Entity))
	for _, entity := range feed.Entity {
		tripUpdate := entity.TripUpdate
		if tripUpdate == nil {
			continue
		}
		if tripUpdate.Trip == nil {
			return nil, missingFieldError("trip")
		}
		update := TripUpdate{
			Id: entity.GetId(),
			Trip: TripDescriptor{
				TripId:      tripUpdate.Trip.TripId,
				RouteId:     tripUpdate.Trip.RouteId,
				DirectionId: tripUpdate.Trip.DirectionId,
				StartTime:   tripUpdate.Trip.StartTime,
				StartDate:   tripUpdate.Trip.StartDate,
			},
			Delay:     tripUpdate.Delay,
			Timestamp: int64(tripUpdate.GetTimestamp()),
		}
		if tripUpdate.Vehicle != nil {
			update.VehicleId = tripUpdate.Vehicle.Id
		}
		update.StopTimeUpdates = make([]StopTimeUpdate, 0, len(tripUpdate.StopTimeUpdate))
		for _, stu := range tripUpdate.StopTimeUpdate {
			update.StopTimeUpdates = append(update.StopTimeUpdates, StopTimeUpdate{
				StopSequence: stu.StopSequence,
				StopId:       stu.StopId,
				Arrival:      timeEvent(stu.Arrival),
				Departure:    timeEvent(stu.Departure),
			})
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// DecodeAlerts decodes a service alerts feed payload
func DecodeAlerts(payload []byte) ([]Alert, error) {
	feed, err := unmarshalFeed(payload)
	if err != nil {
		return nil, err
	}
	alerts := make([]Alert, 0, len(feed.Entity))
	for _, entity := range feed.Entity {
		feedAlert := entity.Alert
		if feedAlert == nil {
			continue
		}
		alert := Alert{
			Id:              entity.GetId(),
			HeaderText:      translation(feedAlert.HeaderText),
			DescriptionText: translation(feedAlert.DescriptionText),
		}
		if feedAlert.Cause != nil {
			alert.Cause = feedAlert.GetCause().String()
		}
		if feedAlert.Effect != nil {
			alert.Effect = feedAlert.GetEffect().String()
		}
		if feedAlert.SeverityLevel != nil {
			alert.Severity = feedAlert.GetSeverityLevel().String()
		}
		for _, period := range feedAlert.ActivePeriod {
			activePeriod := ActivePeriod{}
			if period.Start != nil {
				start := int64(period.GetStart())
				activePeriod.Start = &start
			}
			if period.End != nil {
				end := int64(period.GetEnd())
				activePeriod.End = &end
			}
			alert.ActivePeriods = append(alert.ActivePeriods, activePeriod)
		}
		for _, informed := range feedAlert.InformedEntity {
			if informed.RouteId != nil {
				alert.InformedRouteIds = append(alert.InformedRouteIds, informed.GetRouteId())
			}
			if informed.StopId != nil {
				alert.InformedStopIds = append(alert.InformedStopIds, informed.GetStopId())
			}
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func vehicleStopStatus(status *gtfsrtproto.VehiclePosition_VehicleStopStatus) VehicleStopStatus {
	if status == nil {
		// IN_TRANSIT_TO is the GTFS-RT default when current_status is unset
		return InTransitTo
	}
	switch *status {
	case gtfsrtproto.VehiclePosition_INCOMING_AT:
		return IncomingAt
	case gtfsrtproto.VehiclePosition_STOPPED_AT:
		return StoppedAt
	case gtfsrtproto.VehiclePosition_IN_TRANSIT_TO:
		return InTransitTo
	}
	return Unknown
}

func timeEvent(event *gtfsrtproto.TripUpdate_StopTimeEvent) *TimeEvent {
	if event == nil {
		return nil
	}
	return &TimeEvent{
		Delay:       event.Delay,
		Time:        event.Time,
		Uncertainty: event.Uncertainty,
	}
}

// translation returns the first translation of a translated string, which for a
// single language feed is the only one present
func translation(translated *gtfsrtproto.TranslatedString) string {
	if translated == nil || len(translated.Translation) == 0 {
		return ""
	}
	return translated.Translation[0].GetText()
}
