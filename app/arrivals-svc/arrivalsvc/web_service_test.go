package arrivalsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/pespinel/AuvasaKit/business/arrivals"
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
	"github.com/pespinel/AuvasaKit/business/data/gtfsrt"
	"github.com/pespinel/AuvasaKit/business/subscription"
	"github.com/pespinel/AuvasaKit/business/transit"
	"github.com/pespinel/AuvasaKit/foundation/geomath"
)

type fakeTransitService struct {
	arrivals       []arrivals.Arrival
	arrivalsErr    error
	positions      []gtfsrt.VehiclePosition
	alerts         []gtfsrt.Alert
	tripDetails    *transit.TripDetails
	tripDetailsErr error
	routes         []*gtfs.Route
	trips          []*gtfs.Trip
	stops          []*gtfs.Stop

	scheduledCalled  bool
	requestedRouteId string
	requestedRadius  float64
}

func (f *fakeTransitService) GetNextArrivals(_ context.Context, _ string, _ int) ([]arrivals.Arrival, error) {
	return f.arrivals, f.arrivalsErr
}

func (f *fakeTransitService) GetScheduledArrivals(_ string, _ int) ([]arrivals.Arrival, error) {
	f.scheduledCalled = true
	return f.arrivals, f.arrivalsErr
}

func (f *fakeTransitService) GetVehiclePositions(_ context.Context, routeId string) ([]gtfsrt.VehiclePosition, error) {
	f.requestedRouteId = routeId
	return f.positions, nil
}

func (f *fakeTransitService) GetAlerts(_ context.Context) ([]gtfsrt.Alert, error) {
	return f.alerts, nil
}

func (f *fakeTransitService) GetTripDetails(_ string) (*transit.TripDetails, error) {
	return f.tripDetails, f.tripDetailsErr
}

func (f *fakeTransitService) GetRoutes() ([]*gtfs.Route, error) {
	return f.routes, nil
}

func (f *fakeTransitService) GetTripsByRoute(routeId string) ([]*gtfs.Trip, error) {
	f.requestedRouteId = routeId
	return f.trips, nil
}

func (f *fakeTransitService) GetStopsNear(_ geomath.Point, radiusMeters float64) ([]*gtfs.Stop, error) {
	f.requestedRadius = radiusMeters
	return f.stops, nil
}

func (f *fakeTransitService) SubscribeToArrivals(_ context.Context, _ string, _ int,
	handler transit.ArrivalsHandler) *subscription.Subscription {
	handler(f.arrivals, f.arrivalsErr)
	return nil
}

func testLog() *logger.Logger {
	return logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
}

func serveRequest(svc transitService, method string, target string) *httptest.ResponseRecorder {
	srv := createServer(testLog(), svc, 8082)
	recorder := httptest.NewRecorder()
	srv.Handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func Test_defaultHttpHandler(t *testing.T) {
	is := is.New(t)
	recorder := serveRequest(&fakeTransitService{}, http.MethodGet, "/")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal("OK", recorder.Header().Get("Application-Status"))
}

func Test_stopArrivals(t *testing.T) {
	is := is.New(t)
	scheduled := time.Date(2023, 5, 9, 14, 30, 0, 0, time.UTC)
	svc := &fakeTransitService{
		arrivals: []arrivals.Arrival{
			{StopId: "123", RouteId: "L1", Headsign: "Covaresa", ScheduledTime: scheduled},
		},
	}

	recorder := serveRequest(svc, http.MethodGet, "/stops/123/arrivals?limit=5")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal("application/json", recorder.Header().Get("Content-Type"))

	var response struct {
		Timestamp int64              `json:"timestamp"`
		Holiday   bool               `json:"holiday"`
		Arrivals  []arrivals.Arrival `json:"arrivals"`
	}
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &response))
	is.True(response.Timestamp > 0)
	is.Equal(1, len(response.Arrivals))
	is.Equal("L1", response.Arrivals[0].RouteId)
	is.True(!svc.scheduledCalled)
}

func Test_stopArrivalsScheduledOnly(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{}
	recorder := serveRequest(svc, http.MethodGet, "/stops/123/arrivals?scheduled=true")
	is.Equal(http.StatusOK, recorder.Code)
	is.True(svc.scheduledCalled)
}

func Test_stopArrivalsFeedUnavailable(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		arrivalsErr: &gtfsrt.TransportError{URL: "http://example.com", StatusCode: 503},
	}
	recorder := serveRequest(svc, http.MethodGet, "/stops/123/arrivals")
	is.Equal(http.StatusBadGateway, recorder.Code)
}

func Test_stopsNearby(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		stops: []*gtfs.Stop{{StopId: "123", StopName: "Plaza Mayor"}},
	}

	recorder := serveRequest(svc, http.MethodGet, "/stops/nearby?lat=41.652&lon=-4.728&radius=250")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal(250.0, svc.requestedRadius)

	var stops []*gtfs.Stop
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &stops))
	is.Equal(1, len(stops))
	is.Equal("123", stops[0].StopId)
}

func Test_stopsNearbyRejectsMissingCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing lat", "/stops/nearby?lon=-4.728"},
		{"missing lon", "/stops/nearby?lat=41.652"},
		{"malformed lat", "/stops/nearby?lat=north&lon=-4.728"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serveRequest(&fakeTransitService{}, http.MethodGet, tt.target)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", recorder.Code)
			}
		})
	}
}

func Test_routeVehicles(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		positions: []gtfsrt.VehiclePosition{{Id: "v1", Latitude: 41.65, Longitude: -4.72}},
	}
	recorder := serveRequest(svc, http.MethodGet, "/routes/L1/vehicles")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal("L1", svc.requestedRouteId)

	var positions []gtfsrt.VehiclePosition
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &positions))
	is.Equal(1, len(positions))
}

func Test_allVehicles(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{requestedRouteId: "sentinel"}
	recorder := serveRequest(svc, http.MethodGet, "/vehicles")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal("", svc.requestedRouteId)
}

func Test_routeTrips(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		trips: []*gtfs.Trip{{TripId: "T1", RouteId: "L1"}, {TripId: "T3", RouteId: "L1"}},
	}
	recorder := serveRequest(svc, http.MethodGet, "/routes/L1/trips")
	is.Equal(http.StatusOK, recorder.Code)
	is.Equal("L1", svc.requestedRouteId)

	var trips []*gtfs.Trip
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &trips))
	is.Equal(2, len(trips))
	is.Equal("T1", trips[0].TripId)
}

func Test_vehiclesViewportFilter(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		positions: []gtfsrt.VehiclePosition{
			{Id: "inside", Latitude: 41.65, Longitude: -4.72},
			{Id: "outside", Latitude: 41.70, Longitude: -4.72},
		},
	}
	recorder := serveRequest(svc, http.MethodGet,
		"/vehicles?minLat=41.60&maxLat=41.66&minLon=-4.75&maxLon=-4.70")
	is.Equal(http.StatusOK, recorder.Code)

	var positions []gtfsrt.VehiclePosition
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &positions))
	is.Equal(1, len(positions))
	is.Equal("inside", positions[0].Id)
}

func Test_vehiclesViewportRejectsPartialBounds(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing maxLon", "/vehicles?minLat=41.60&maxLat=41.66&minLon=-4.75"},
		{"malformed minLat", "/vehicles?minLat=south&maxLat=41.66&minLon=-4.75&maxLon=-4.70"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serveRequest(&fakeTransitService{}, http.MethodGet, tt.target)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", recorder.Code)
			}
		})
	}
}

func Test_tripDetailsNotFound(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{tripDetailsErr: gtfs.ErrNotFound}
	recorder := serveRequest(svc, http.MethodGet, "/trips/NOPE")
	is.Equal(http.StatusNotFound, recorder.Code)
}

func Test_alerts(t *testing.T) {
	is := is.New(t)
	svc := &fakeTransitService{
		alerts: []gtfsrt.Alert{{Id: "a1", HeaderText: "Desvío en Plaza Mayor"}},
	}
	recorder := serveRequest(svc, http.MethodGet, "/alerts")
	is.Equal(http.StatusOK, recorder.Code)

	var alerts []gtfsrt.Alert
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &alerts))
	is.Equal(1, len(alerts))
	is.Equal("a1", alerts[0].Id)
}
