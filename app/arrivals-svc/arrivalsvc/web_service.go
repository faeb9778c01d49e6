package arrivalsvc

import (
	"context"
	"encoding/json"
	"errors"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pespinel/AuvasaKit/business/arrivals"
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
	"github.com/pespinel/AuvasaKit/business/data/gtfsrt"
	"github.com/pespinel/AuvasaKit/business/subscription"
	"github.com/pespinel/AuvasaKit/business/transit"
	"github.com/pespinel/AuvasaKit/foundation/geomath"
)

// defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

// ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// transitService is the part of transit.Service the handlers and publisher use
type transitService interface {
	GetNextArrivals(ctx context.Context, stopId string, limit int) ([]arrivals.Arrival, error)
	GetScheduledArrivals(stopId string, limit int) ([]arrivals.Arrival, error)
	GetVehiclePositions(ctx context.Context, routeId string) ([]gtfsrt.VehiclePosition, error)
	GetAlerts(ctx context.Context) ([]gtfsrt.Alert, error)
	GetTripDetails(tripId string) (*transit.TripDetails, error)
	GetRoutes() ([]*gtfs.Route, error)
	GetTripsByRoute(routeId string) ([]*gtfs.Trip, error)
	GetStopsNear(position geomath.Point, radiusMeters float64) ([]*gtfs.Stop, error)
	SubscribeToArrivals(ctx context.Context, stopId string, limit int,
		handler transit.ArrivalsHandler) *subscription.Subscription
}

// arrivalsHandler holds data needed to respond to arrival and schedule requests
type arrivalsHandler struct {
	log      *logger.Logger
	svc      transitService
	holidays *transitHolidayCalendar
}

func makeArrivalsHandler(log *logger.Logger, svc transitService) *arrivalsHandler {
	return &arrivalsHandler{
		log:      log,
		svc:      svc,
		holidays: makeTransitHolidayCalendar(),
	}
}

// arrivalsResponse wraps the arrivals at one stop
type arrivalsResponse struct {
	Timestamp int64 `json:"timestamp"`
	// Holiday is true when the agency runs its holiday schedule today
	Holiday  bool `json:"holiday"`
	Arrivals any  `json:"arrivals"`
}

// stopArrivals responds to GET /stops/{stopId}/arrivals.
// The scheduled=true parameter skips the realtime feed and serves schedule data
// alone, the behavior callers also get told to retry with when the feed is down.
func (h *arrivalsHandler) stopArrivals(w http.ResponseWriter, r *http.Request) {
	stopId := mux.Vars(r)["stopId"]
	limit := queryInt(r, "limit", 0)
	scheduledOnly := strings.ToLower(r.FormValue("scheduled")) == "true"

	var result any
	var err error
	if scheduledOnly {
		result, err = h.svc.GetScheduledArrivals(stopId, limit)
	} else {
		result, err = h.svc.GetNextArrivals(r.Context(), stopId, limit)
	}
	if err != nil {
		h.serveFeedError(w, err)
		return
	}
	now := time.Now()
	h.writeJSON(w, arrivalsResponse{
		Timestamp: now.Unix(),
		Holiday:   h.holidays.isHoliday(now),
		Arrivals:  result,
	})
}

// stopsNearby responds to GET /stops/nearby?lat=..&lon=..&radius=..
func (h *arrivalsHandler) stopsNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.FormValue("lat"), 64)
	if err != nil {
		http.Error(w, "missing or malformed lat parameter", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(r.FormValue("lon"), 64)
	if err != nil {
		http.Error(w, "missing or malformed lon parameter", http.StatusBadRequest)
		return
	}
	radius := float64(queryInt(r, "radius", 500))

	stops, err := h.svc.GetStopsNear(geomath.Point{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		h.log.Printf("Error retrieving nearby stops: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, stops)
}

// routes responds to GET /routes
func (h *arrivalsHandler) routes(w http.ResponseWriter, _ *http.Request) {
	routes, err := h.svc.GetRoutes()
	if err != nil {
		h.log.Printf("Error retrieving routes: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, routes)
}

// routeVehicles responds to GET /routes/{routeId}/vehicles
func (h *arrivalsHandler) routeVehicles(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.GetVehiclePositions(r.Context(), mux.Vars(r)["routeId"])
	if err != nil {
		h.serveFeedError(w, err)
		return
	}
	h.writeJSON(w, positions)
}

// routeTrips responds to GET /routes/{routeId}/trips
func (h *arrivalsHandler) routeTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.svc.GetTripsByRoute(mux.Vars(r)["routeId"])
	if err != nil {
		h.log.Printf("Error retrieving trips for route: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, trips)
}

// vehicles responds to GET /vehicles. The optional minLat, maxLat, minLon and
// maxLon parameters restrict the result to vehicles inside that viewport.
func (h *arrivalsHandler) vehicles(w http.ResponseWriter, r *http.Request) {
	viewport, ok, err := queryBox(r)
	if err != nil {
		http.Error(w, "malformed viewport parameters", http.StatusBadRequest)
		return
	}
	positions, err := h.svc.GetVehiclePositions(r.Context(), "")
	if err != nil {
		h.serveFeedError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, positions)
		return
	}
	inside := make([]gtfsrt.VehiclePosition, 0, len(positions))
	for _, position := range positions {
		point := geomath.Point{
			Latitude:  float64(position.Latitude),
			Longitude: float64(position.Longitude),
		}
		if viewport.Contains(point) {
			inside = append(inside, position)
		}
	}
	h.writeJSON(w, inside)
}

// tripDetails responds to GET /trips/{tripId}
func (h *arrivalsHandler) tripDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetTripDetails(mux.Vars(r)["tripId"])
	if errors.Is(err, gtfs.ErrNotFound) {
		http.Error(w, "trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Printf("Error retrieving trip details: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, details)
}

// alerts responds to GET /alerts
func (h *arrivalsHandler) alerts(w http.ResponseWriter, r *http.Request) {
	active, err := h.svc.GetAlerts(r.Context())
	if err != nil {
		h.serveFeedError(w, err)
		return
	}
	h.writeJSON(w, active)
}

// serveFeedError maps realtime feed failures to an upstream error status so
// callers can fall back to scheduled data
func (h *arrivalsHandler) serveFeedError(w http.ResponseWriter, err error) {
	var transportErr *gtfsrt.TransportError
	var parseErr *gtfsrt.ParseError
	if errors.As(err, &transportErr) || errors.As(err, &parseErr) {
		h.log.Printf("Realtime feed unavailable: %v", err)
		http.Error(w, "realtime feed unavailable", http.StatusBadGateway)
		return
	}
	h.log.Printf("Error serving request: %v", err)
	http.Error(w, "Error serving request", http.StatusInternalServerError)
}

func (h *arrivalsHandler) writeJSON(w http.ResponseWriter, payload any) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		h.log.Printf("Error marshaling response to json: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(jsonData); err != nil {
		h.log.Printf("Error writing json response: %v", err)
	}
}

// queryBox reads the minLat, maxLat, minLon and maxLon viewport parameters.
// ok is false when none are present; an incomplete or malformed set is an error.
func queryBox(r *http.Request) (box geomath.Box, ok bool, err error) {
	names := []string{"minLat", "maxLat", "minLon", "maxLon"}
	values := make([]float64, len(names))
	present := 0
	for i, name := range names {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		values[i], err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return geomath.Box{}, false, err
		}
		present++
	}
	if present == 0 {
		return geomath.Box{}, false, nil
	}
	if present != len(names) {
		return geomath.Box{}, false, errors.New("incomplete viewport, all four bounds are required")
	}
	return geomath.Box{
		MinLatitude:  values[0],
		MaxLatitude:  values[1],
		MinLongitude: values[2],
		MaxLongitude: values[3],
	}, true, nil
}

// queryInt reads an int query parameter, falling back to def when absent or
// malformed
func queryInt(r *http.Request, name string, def int) int {
	value := r.FormValue(name)
	if value == "" {
		return def
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return result
}

// createServer creates a configured http.Server for responding to arrival requests
func createServer(log *logger.Logger, svc transitService, httpPort int) *http.Server {
	handler := makeArrivalsHandler(log, svc)

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.HandleFunc("/stops/nearby", handler.stopsNearby).Methods(http.MethodGet)
	r.HandleFunc("/stops/{stopId}/arrivals", handler.stopArrivals).Methods(http.MethodGet)
	r.HandleFunc("/routes", handler.routes).Methods(http.MethodGet)
	r.HandleFunc("/routes/{routeId}/vehicles", handler.routeVehicles).Methods(http.MethodGet)
	r.HandleFunc("/routes/{routeId}/trips", handler.routeTrips).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", handler.vehicles).Methods(http.MethodGet)
	r.HandleFunc("/trips/{tripId}", handler.tripDetails).Methods(http.MethodGet)
	r.HandleFunc("/alerts", handler.alerts).Methods(http.MethodGet)

	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

// RunWebService starts up the arrivals web service, and terminates on shutdown signal
func RunWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	svc transitService,
	httpPort int,
	shutdownSignal chan bool,
) {
	wg.Add(1)
	defer wg.Done()
	srv := createServer(log, svc, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), 5*time.Second)
	defer serverCancelFunc()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
