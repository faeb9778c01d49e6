package gtfsrt

import (
	"errors"
	"testing"
	"time"

	gtfsrtproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

func feedHeader() *gtfsrtproto.FeedHeader {
	return &gtfsrtproto.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Timestamp:           proto.Uint64(1683640800),
	}
}

func marshalFeed(t *testing.T, feed *gtfsrtproto.FeedMessage) []byte {
	t.Helper()
	payload, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("unable to marshal test feed: %v", err)
	}
	return payload
}

func TestDecodeVehiclePositions(t *testing.T) {
	is := is.New(t)

	feed := &gtfsrtproto.FeedMessage{
		Header: feedHeader(),
		Entity: []*gtfsrtproto.FeedEntity{
			{
				Id: proto.String("1"),
				Vehicle: &gtfsrtproto.VehiclePosition{
					Trip: &gtfsrtproto.TripDescriptor{
						TripId:  proto.String("T1"),
						RouteId: proto.String("L1"),
					},
					Vehicle: &gtfsrtproto.VehicleDescriptor{
						Id:    proto.String("bus-42"),
						Label: proto.String("42"),
					},
					Position: &gtfsrtproto.Position{
						Latitude:  proto.Float32(41.6523),
						Longitude: proto.Float32(-4.7286),
						Bearing:   proto.Float32(180),
					},
					CurrentStopSequence: proto.Uint32(3),
					StopId:              proto.String("123"),
					CurrentStatus:       gtfsrtproto.VehiclePosition_STOPPED_AT.Enum(),
					Timestamp:           proto.Uint64(1683640800),
				},
			},
			{
				// alert entity mixed into the feed, skipped by the decoder
				Id:    proto.String("2"),
				Alert: &gtfsrtproto.Alert{},
			},
		},
	}

	positions, err := DecodeVehiclePositions(marshalFeed(t, feed))
	is.NoErr(err)
	is.Equal(len(positions), 1)

	position := positions[0]
	is.Equal(position.Id, "1")
	is.Equal(position.VehicleId, "bus-42")
	is.Equal(position.Label, "42")
	is.Equal(*position.TripId, "T1")
	is.Equal(*position.RouteId, "L1")
	is.Equal(position.Latitude, float32(41.6523))
	is.Equal(position.Longitude, float32(-4.7286))
	is.Equal(*position.Bearing, float32(180))
	is.True(position.Speed == nil)
	is.Equal(*position.CurrentStopSequence, uint32(3))
	is.Equal(*position.StopId, "123")
	is.Equal(position.CurrentStatus, StoppedAt)
	is.Equal(position.Timestamp, int64(1683640800))
}

func TestDecodeVehiclePositionsRequiredFields(t *testing.T) {
	tests := []struct {
		name             string
		vehicle          *gtfsrtproto.VehiclePosition
		wantMissingField string
	}{
		{
			name: "missing position",
			vehicle: &gtfsrtproto.VehiclePosition{
				Vehicle: &gtfsrtproto.VehicleDescriptor{Id: proto.String("bus-42")},
			},
			wantMissingField: "position",
		},
		{
			name: "missing vehicle descriptor",
			vehicle: &gtfsrtproto.VehiclePosition{
				Position: &gtfsrtproto.Position{
					Latitude:  proto.Float32(41.6523),
					Longitude: proto.Float32(-4.7286),
				},
			},
			wantMissingField: "vehicle",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &gtfsrtproto.FeedMessage{
				Header: feedHeader(),
				Entity: []*gtfsrtproto.FeedEntity{
					{Id: proto.String("1"), Vehicle: tt.vehicle},
				},
			}
			_, err := DecodeVehiclePositions(marshalFeed(t, feed))
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if parseErr.MissingField != tt.wantMissingField {
				t.Errorf("expected missing field %q, got %q", tt.wantMissingField, parseErr.MissingField)
			}
		})
	}
}

func TestDecodeTripUpdates(t *testing.T) {
	is := is.New(t)

	feed := &gtfsrtproto.FeedMessage{
		Header: feedHeader(),
		Entity: []*gtfsrtproto.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfsrtproto.TripUpdate{
					Trip: &gtfsrtproto.TripDescriptor{
						RouteId:   proto.String("L1"),
						StartTime: proto.String("14:00:00"),
						StartDate: proto.String("20230509"),
					},
					Vehicle: &gtfsrtproto.VehicleDescriptor{Id: proto.String("bus-42")},
					StopTimeUpdate: []*gtfsrtproto.TripUpdate_StopTimeUpdate{
						{
							StopSequence: proto.Uint32(2),
							Arrival: &gtfsrtproto.TripUpdate_StopTimeEvent{
								Delay: proto.Int32(120),
							},
							Departure: &gtfsrtproto.TripUpdate_StopTimeEvent{
								Time: proto.Int64(1683641000),
							},
						},
					},
					Timestamp: proto.Uint64(1683640800),
				},
			},
		},
	}

	updates, err := DecodeTripUpdates(marshalFeed(t, feed))
	is.NoErr(err)
	is.Equal(len(updates), 1)

	update := updates[0]
	is.True(update.Trip.TripId == nil)
	is.Equal(*update.Trip.RouteId, "L1")
	is.Equal(*update.Trip.StartTime, "14:00:00")
	is.Equal(*update.VehicleId, "bus-42")
	is.Equal(len(update.StopTimeUpdates), 1)

	stu := update.StopTimeUpdates[0]
	is.Equal(*stu.StopSequence, uint32(2))
	is.True(stu.StopId == nil)
	is.True(stu.Arrival.HasPrediction())
	is.Equal(*stu.Arrival.Delay, int32(120))
	is.Equal(*stu.Departure.Time, int64(1683641000))
}

func TestDecodeTripUpdatesMissingTrip(t *testing.T) {
	feed := &gtfsrtproto.FeedMessage{
		Header: feedHeader(),
		Entity: []*gtfsrtproto.FeedEntity{
			{Id: proto.String("1"), TripUpdate: &gtfsrtproto.TripUpdate{}},
		},
	}
	_, err := DecodeTripUpdates(marshalFeed(t, feed))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.MissingField != "trip" {
		t.Errorf("expected missing field \"trip\", got %q", parseErr.MissingField)
	}
}

func TestDecodeAlerts(t *testing.T) {
	is := is.New(t)

	feed := &gtfsrtproto.FeedMessage{
		Header: feedHeader(),
		Entity: []*gtfsrtproto.FeedEntity{
			{
				Id: proto.String("1"),
				Alert: &gtfsrtproto.Alert{
					ActivePeriod: []*gtfsrtproto.TimeRange{
						{Start: proto.Uint64(1683640800), End: proto.Uint64(1683727200)},
					},
					InformedEntity: []*gtfsrtproto.EntitySelector{
						{RouteId: proto.String("L1")},
						{StopId: proto.String("123")},
					},
					Cause:  gtfsrtproto.Alert_CONSTRUCTION.Enum(),
					Effect: gtfsrtproto.Alert_DETOUR.Enum(),
					HeaderText: &gtfsrtproto.TranslatedString{
						Translation: []*gtfsrtproto.TranslatedString_Translation{
							{Text: proto.String("Desvío en Plaza Mayor"), Language: proto.String("es")},
						},
					},
					DescriptionText: &gtfsrtproto.TranslatedString{
						Translation: []*gtfsrtproto.TranslatedString_Translation{
							{Text: proto.String("Obras en la calle Santiago"), Language: proto.String("es")},
						},
					},
				},
			},
		},
	}

	alerts, err := DecodeAlerts(marshalFeed(t, feed))
	is.NoErr(err)
	is.Equal(len(alerts), 1)

	alert := alerts[0]
	is.Equal(alert.Id, "1")
	is.Equal(alert.Cause, "CONSTRUCTION")
	is.Equal(alert.Effect, "DETOUR")
	is.Equal(alert.HeaderText, "Desvío en Plaza Mayor")
	is.Equal(alert.DescriptionText, "Obras en la calle Santiago")
	is.Equal(alert.InformedRouteIds, []string{"L1"})
	is.Equal(alert.InformedStopIds, []string{"123"})
	is.Equal(len(alert.ActivePeriods), 1)
	is.Equal(*alert.ActivePeriods[0].Start, int64(1683640800))
	is.Equal(*alert.ActivePeriods[0].End, int64(1683727200))
}

func TestDecodeInvalidPayload(t *testing.T) {
	_, err := DecodeVehiclePositions([]byte("not a protobuf payload"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Err == nil {
		t.Error("expected wrapped decode error")
	}
}

func TestAlertIsActive(t *testing.T) {
	start := int64(1683640800)
	end := int64(1683727200)

	tests := []struct {
		name    string
		periods []ActivePeriod
		now     time.Time
		want    bool
	}{
		{"no periods always active", nil, time.Unix(0, 0), true},
		{"inside period", []ActivePeriod{{Start: &start, End: &end}}, time.Unix(1683650000, 0), true},
		{"before period", []ActivePeriod{{Start: &start, End: &end}}, time.Unix(1683600000, 0), false},
		{"after period", []ActivePeriod{{Start: &start, End: &end}}, time.Unix(1683800000, 0), false},
		{"open ended period", []ActivePeriod{{Start: &start}}, time.Unix(1783800000, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := Alert{Id: "1", ActivePeriods: tt.periods}
			if got := alert.IsActive(tt.now); got != tt.want {
				t.Errorf("expected IsActive %v, got %v", tt.want, got)
			}
		})
	}
}
