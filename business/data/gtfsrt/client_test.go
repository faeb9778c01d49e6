package gtfsrt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrtproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

func TestFeedClientVehiclePositions(t *testing.T) {
	is := is.New(t)

	feed := &gtfsrtproto.FeedMessage{
		Header: feedHeader(),
		Entity: []*gtfsrtproto.FeedEntity{
			{
				Id: proto.String("1"),
				Vehicle: &gtfsrtproto.VehiclePosition{
					Vehicle: &gtfsrtproto.VehicleDescriptor{Id: proto.String("bus-42")},
					Position: &gtfsrtproto.Position{
						Latitude:  proto.Float32(41.6523),
						Longitude: proto.Float32(-4.7286),
					},
				},
			},
		},
	}
	payload := marshalFeed(t, feed)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := NewFeedClient(FeedURLs{VehiclePositions: server.URL}, 5*time.Second)
	positions, err := client.VehiclePositions(context.Background())
	is.NoErr(err)
	is.Equal(len(positions), 1)
	is.Equal(positions[0].VehicleId, "bus-42")
}

func TestFeedClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewFeedClient(FeedURLs{TripUpdates: server.URL}, 5*time.Second)
	_, err := client.TripUpdates(context.Background())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, transportErr.StatusCode)
	}
}

func TestFeedClientUnreachable(t *testing.T) {
	client := NewFeedClient(FeedURLs{Alerts: "http://127.0.0.1:1/alerts"}, time.Second)
	_, err := client.Alerts(context.Background())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Err == nil {
		t.Error("expected wrapped network error")
	}
}

func TestFeedClientMissingEndpoint(t *testing.T) {
	client := NewFeedClient(FeedURLs{}, time.Second)
	_, err := client.VehiclePositions(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}
