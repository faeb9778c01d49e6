package gtfs

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Route contains data from a record in a gtfs routes.txt file
type Route struct {
	DataSetId      int64  `db:"data_set_id" json:"data_set_id"`
	RouteId        string `db:"route_id" json:"route_id"`
	RouteShortName string `db:"route_short_name" json:"route_short_name"`
	RouteLongName  string `db:"route_long_name" json:"route_long_name"`
	// RouteType 3 is a bus line, per the gtfs route_type enumeration
	RouteType      int  `db:"route_type" json:"route_type"`
	RouteSortOrder *int `db:"route_sort_order" json:"route_sort_order"`
}

// RecordRoutes saves routes to database in batch
func RecordRoutes(routes []*Route, dsTx *DataSetTransaction) error {
	for _, route := range routes {
		route.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into route ( " +
		"data_set_id, " +
		"route_id, " +
		"route_short_name, " +
		"route_long_name, " +
		"route_type, " +
		"route_sort_order) " +
		"values (" +
		":data_set_id, " +
		":route_id, " +
		":route_short_name, " +
		":route_long_name, " +
		":route_type, " +
		":route_sort_order)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, routes)
	return err
}

// GetRoute retrieves the Route with routeId in dataSet, or ErrNotFound
func GetRoute(db *sqlx.DB, dataSetId int64, routeId string) (*Route, error) {
	query := db.Rebind("select * from route where data_set_id = ? and route_id = ?")
	route := Route{}
	err := db.Get(&route, query, dataSetId, routeId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no route %q in dataSet %d: %w", routeId, dataSetId, ErrNotFound)
	}
	return &route, err
}

// GetRoutes retrieves every route in dataSet ordered for presentation,
// by sort order when the feed supplies one, otherwise by short name
func GetRoutes(db *sqlx.DB, dataSetId int64) ([]*Route, error) {
	query := db.Rebind("select * from route where data_set_id = ? " +
		"order by route_sort_order is null, route_sort_order, route_short_name")
	var routes []*Route
	err := db.Select(&routes, query, dataSetId)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve routes for dataSet %d: %w", dataSetId, err)
	}
	return routes, nil
}
