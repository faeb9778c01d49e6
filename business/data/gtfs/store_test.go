package gtfs

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/pespinel/AuvasaKit/foundation/database"
	"github.com/pespinel/AuvasaKit/foundation/geomath"

	"github.com/jmoiron/sqlx"
	"github.com/matryer/is"
)

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	location, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("unable to load testing time zone location: %v", err)
	}
	return location
}

// newTestStore loads a small schedule into an in-memory database:
// route L1 with trip T1 serving stops 100 and 123 on weekday service WKD,
// a short L2 trip sharing stop 123, and a Saturday only L1 trip T3.
func newTestStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	is := is.New(t)
	location := testLocation(t)

	db, err := database.Open(database.Config{Path: ":memory:"})
	is.NoErr(err)
	t.Cleanup(func() { _ = db.Close() })
	is.NoErr(CreateSchema(db))

	tx, err := db.Beginx()
	is.NoErr(err)

	now := time.Date(2023, 5, 9, 8, 0, 0, 0, location) // a Tuesday
	ds := DataSet{URL: "test", DownloadedAt: now}
	is.NoErr(SaveDataSet(tx, &ds))
	savedAt := now
	ds.SavedAt = &savedAt
	is.NoErr(SaveDataSet(tx, &ds))

	dsTx := &DataSetTransaction{DS: ds, Tx: tx}

	headsign := "Covaresa"
	startDate := time.Date(2023, 1, 1, 0, 0, 0, 0, location)
	endDate := time.Date(2023, 12, 31, 0, 0, 0, 0, location)

	is.NoErr(RecordRoutes([]*Route{
		{RouteId: "L1", RouteShortName: "1", RouteLongName: "Covaresa - San Pedro Regalado", RouteType: 3},
		{RouteId: "L2", RouteShortName: "2", RouteLongName: "Covaresa - Barrio Belen", RouteType: 3},
	}, dsTx))
	is.NoErr(RecordStops([]*Stop{
		{StopId: "100", StopName: "Plaza Zorrilla", StopLat: 41.6488, StopLon: -4.7283},
		{StopId: "123", StopName: "Plaza Mayor", StopLat: 41.6523, StopLon: -4.7286},
	}, dsTx))
	is.NoErr(RecordTrips([]*Trip{
		{TripId: "T1", RouteId: "L1", ServiceId: "WKD", TripHeadsign: &headsign},
		{TripId: "T2", RouteId: "L2", ServiceId: "WKD"},
		{TripId: "T3", RouteId: "L1", ServiceId: "SAT", TripHeadsign: &headsign},
	}, dsTx))
	is.NoErr(RecordStopTimes([]*StopTime{
		{TripId: "T1", StopSequence: 1, StopId: "100", ArrivalTime: 14 * 3600, DepartureTime: 14 * 3600},
		{TripId: "T1", StopSequence: 2, StopId: "123", ArrivalTime: 14*3600 + 30*60, DepartureTime: 14*3600 + 30*60},
		{TripId: "T2", StopSequence: 1, StopId: "123", ArrivalTime: 15 * 3600, DepartureTime: 15 * 3600},
	}, dsTx))
	is.NoErr(RecordCalendar(&Calendar{
		ServiceId: "WKD",
		Monday:    1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1,
		StartDate: &startDate, EndDate: &endDate,
	}, dsTx))
	is.NoErr(RecordCalendar(&Calendar{
		ServiceId: "SAT",
		Saturday:  1,
		StartDate: &startDate, EndDate: &endDate,
	}, dsTx))
	// service removed on Tuesday 2023-05-16 despite the weekday flag
	is.NoErr(RecordCalendarDate(&CalendarDate{
		ServiceId: "WKD", Date: time.Date(2023, 5, 16, 0, 0, 0, 0, location), ExceptionType: 2,
	}, dsTx))
	// service added on Sunday 2023-05-14 despite the weekday flag being off
	is.NoErr(RecordCalendarDate(&CalendarDate{
		ServiceId: "WKD", Date: time.Date(2023, 5, 14, 0, 0, 0, 0, location), ExceptionType: 1,
	}, dsTx))

	is.NoErr(tx.Commit())

	store, err := NewStore(db, location)
	is.NoErr(err)
	return store, db
}

func TestStoreLookups(t *testing.T) {
	is := is.New(t)
	store, _ := newTestStore(t)

	trip, err := store.GetTrip("T1")
	is.NoErr(err)
	is.Equal(trip.RouteId, "L1")
	is.Equal(trip.Headsign(), "Covaresa")

	route, err := store.GetRoute("L1")
	is.NoErr(err)
	is.Equal(route.RouteShortName, "1")

	_, err = store.GetTrip("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTrip for missing trip should wrap ErrNotFound, got %v", err)
	}
	_, err = store.GetRoute("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoute for missing route should wrap ErrNotFound, got %v", err)
	}
	_, err = store.GetStop("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStop for missing stop should wrap ErrNotFound, got %v", err)
	}
}

func TestStoreStopTimes(t *testing.T) {
	is := is.New(t)
	store, _ := newTestStore(t)

	stopTimes, err := store.GetStopTimes("T1")
	is.NoErr(err)
	is.Equal(len(stopTimes), 2)
	is.Equal(stopTimes[0].StopSequence, uint32(1))
	is.Equal(stopTimes[1].StopId, "123")

	// both trips serve stop 123, ordered by departure
	upcoming, err := store.GetUpcomingStopTimes("123", 14*3600, []string{"WKD"}, 10)
	is.NoErr(err)
	is.Equal(len(upcoming), 2)
	is.Equal(upcoming[0].TripId, "T1")
	is.Equal(upcoming[1].TripId, "T2")

	// afterSeconds filter drops the 14:30 departure
	upcoming, err = store.GetUpcomingStopTimes("123", 14*3600+45*60, []string{"WKD"}, 10)
	is.NoErr(err)
	is.Equal(len(upcoming), 1)
	is.Equal(upcoming[0].TripId, "T2")

	// a trip whose service is not in the list is filtered out
	upcoming, err = store.GetUpcomingStopTimes("123", 14*3600, []string{"SAT"}, 10)
	is.NoErr(err)
	is.Equal(len(upcoming), 0)

	// no active services yields no work at all
	upcoming, err = store.GetUpcomingStopTimes("123", 14*3600, nil, 10)
	is.NoErr(err)
	is.Equal(len(upcoming), 0)

	firstDeparture, err := store.GetFirstDepartureTime("T1")
	is.NoErr(err)
	is.Equal(firstDeparture, 14*3600)
}

func TestIsServiceActive(t *testing.T) {
	store, _ := newTestStore(t)
	location := testLocation(t)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{name: "regular weekday", date: time.Date(2023, 5, 9, 10, 0, 0, 0, location), want: true},
		{name: "weekend flag off", date: time.Date(2023, 5, 13, 10, 0, 0, 0, location), want: false},
		{name: "removed exception overrides weekday flag", date: time.Date(2023, 5, 16, 10, 0, 0, 0, location), want: false},
		{name: "added exception overrides weekday flag", date: time.Date(2023, 5, 14, 10, 0, 0, 0, location), want: true},
		{name: "outside calendar range", date: time.Date(2024, 5, 7, 10, 0, 0, 0, location), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.IsServiceActive("WKD", tt.date)
			if err != nil {
				t.Errorf("IsServiceActive unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("IsServiceActive(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestGetActiveServiceIds(t *testing.T) {
	store, _ := newTestStore(t)
	location := testLocation(t)

	tests := []struct {
		name string
		date time.Time
		want []string
	}{
		{name: "weekday", date: time.Date(2023, 5, 9, 10, 0, 0, 0, location), want: []string{"WKD"}},
		{name: "saturday", date: time.Date(2023, 5, 13, 10, 0, 0, 0, location), want: []string{"SAT"}},
		{name: "removed exception", date: time.Date(2023, 5, 16, 10, 0, 0, 0, location), want: []string{}},
		{name: "added exception", date: time.Date(2023, 5, 14, 10, 0, 0, 0, location), want: []string{"WKD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetActiveServiceIds(tt.date)
			if err != nil {
				t.Errorf("GetActiveServiceIds unexpected error: %v", err)
				return
			}
			sort.Strings(got)
			if len(got) != len(tt.want) {
				t.Errorf("GetActiveServiceIds(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
				return
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("GetActiveServiceIds(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
					return
				}
			}
		})
	}
}

func TestGetTripsByRoute(t *testing.T) {
	is := is.New(t)
	store, _ := newTestStore(t)

	trips, err := store.GetTripsByRoute("L1")
	is.NoErr(err)
	is.Equal(len(trips), 2)
	is.Equal(trips[0].TripId, "T1") // ordered by trip id
	is.Equal(trips[1].TripId, "T3")

	trips, err = store.GetTripsByRoute("L2")
	is.NoErr(err)
	is.Equal(len(trips), 1)
	is.Equal(trips[0].TripId, "T2")

	trips, err = store.GetTripsByRoute("missing")
	is.NoErr(err)
	is.Equal(len(trips), 0)
}

func TestGetStopsNear(t *testing.T) {
	is := is.New(t)
	store, _ := newTestStore(t)

	center := geomath.Point{Latitude: 41.6523, Longitude: -4.7286}
	stops, err := store.GetStopsNear(center, 200)
	is.NoErr(err)
	is.Equal(len(stops), 1)
	is.Equal(stops[0].StopId, "123")

	stops, err = store.GetStopsNear(center, 2000)
	is.NoErr(err)
	is.Equal(len(stops), 2)
	is.Equal(stops[0].StopId, "123") // nearest first
}
