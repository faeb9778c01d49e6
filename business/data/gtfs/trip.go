package gtfs

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Trip contains data from a gtfs trip definition in a trips.txt file
type Trip struct {
	DataSetId    int64   `db:"data_set_id" json:"data_set_id"`
	TripId       string  `db:"trip_id" json:"trip_id"`
	RouteId      string  `db:"route_id" json:"route_id"`
	ServiceId    string  `db:"service_id" json:"service_id"`
	TripHeadsign *string `db:"trip_headsign" json:"trip_headsign"`
	DirectionId  *int    `db:"direction_id" json:"direction_id"`
	ShapeId      *string `db:"shape_id" json:"shape_id"`
}

// Headsign returns the trip headsign, or the empty string when the feed omits it
func (t *Trip) Headsign() string {
	if t.TripHeadsign == nil {
		return ""
	}
	return *t.TripHeadsign
}

// RecordTrips saves trips to database in batch
func RecordTrips(trips []*Trip, dsTx *DataSetTransaction) error {
	for _, trip := range trips {
		trip.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into trip ( " +
		"data_set_id, " +
		"trip_id, " +
		"route_id, " +
		"service_id, " +
		"trip_headsign, " +
		"direction_id, " +
		"shape_id) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":route_id, " +
		":service_id, " +
		":trip_headsign, " +
		":direction_id, " +
		":shape_id)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, trips)
	return err
}

// GetTrip retrieves the Trip with tripId in dataSet, or ErrNotFound
func GetTrip(db *sqlx.DB, dataSetId int64, tripId string) (*Trip, error) {
	query := db.Rebind("select * from trip where data_set_id = ? and trip_id = ?")
	trip := Trip{}
	err := db.Get(&trip, query, dataSetId, tripId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no trip %q in dataSet %d: %w", tripId, dataSetId, ErrNotFound)
	}
	return &trip, err
}

// GetTripsByRoute retrieves all trips operating routeId in dataSet
func GetTripsByRoute(db *sqlx.DB, dataSetId int64, routeId string) ([]*Trip, error) {
	query := db.Rebind("select * from trip where data_set_id = ? and route_id = ? order by trip_id")
	var trips []*Trip
	err := db.Select(&trips, query, dataSetId, routeId)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trips for route %q in dataSet %d: %w", routeId, dataSetId, err)
	}
	return trips, nil
}
