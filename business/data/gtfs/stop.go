package gtfs

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/pespinel/AuvasaKit/foundation/geomath"

	"github.com/jmoiron/sqlx"
)

// Stop contains data from a record in a gtfs stops.txt file
type Stop struct {
	DataSetId int64   `db:"data_set_id" json:"data_set_id"`
	StopId    string  `db:"stop_id" json:"stop_id"`
	StopCode  *string `db:"stop_code" json:"stop_code"`
	StopName  string  `db:"stop_name" json:"stop_name"`
	StopLat   float64 `db:"stop_lat" json:"stop_lat"`
	StopLon   float64 `db:"stop_lon" json:"stop_lon"`
	// LocationType 0 is a boarding stop, 1 a station, 2 a station entrance
	LocationType       int     `db:"location_type" json:"location_type"`
	ParentStation      *string `db:"parent_station" json:"parent_station"`
	WheelchairBoarding int     `db:"wheelchair_boarding" json:"wheelchair_boarding"`
}

// Coordinate returns the stop position as a geomath point
func (s *Stop) Coordinate() geomath.Point {
	return geomath.Point{Latitude: s.StopLat, Longitude: s.StopLon}
}

// RecordStops saves stops to database in batch
func RecordStops(stops []*Stop, dsTx *DataSetTransaction) error {
	for _, stop := range stops {
		stop.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into stop ( " +
		"data_set_id, " +
		"stop_id, " +
		"stop_code, " +
		"stop_name, " +
		"stop_lat, " +
		"stop_lon, " +
		"location_type, " +
		"parent_station, " +
		"wheelchair_boarding) " +
		"values (" +
		":data_set_id, " +
		":stop_id, " +
		":stop_code, " +
		":stop_name, " +
		":stop_lat, " +
		":stop_lon, " +
		":location_type, " +
		":parent_station, " +
		":wheelchair_boarding)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, stops)
	return err
}

// GetStop retrieves the Stop with stopId in dataSet, or ErrNotFound
func GetStop(db *sqlx.DB, dataSetId int64, stopId string) (*Stop, error) {
	query := db.Rebind("select * from stop where data_set_id = ? and stop_id = ?")
	stop := Stop{}
	err := db.Get(&stop, query, dataSetId, stopId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no stop %q in dataSet %d: %w", stopId, dataSetId, ErrNotFound)
	}
	return &stop, err
}

// GetStopsNear retrieves stops within radiusMeters of a position, nearest first.
// A bounding box narrows the sql scan, the precise distance check happens in memory.
func GetStopsNear(db *sqlx.DB, dataSetId int64, position geomath.Point, radiusMeters float64) ([]*Stop, error) {
	box := geomath.BoundingBoxAround(position, radiusMeters)
	query := db.Rebind("select * from stop where data_set_id = ? " +
		"and stop_lat between ? and ? and stop_lon between ? and ? ")
	var candidates []*Stop
	err := db.Select(&candidates, query, dataSetId,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stops near %v: %w", position, err)
	}
	results := make([]*Stop, 0, len(candidates))
	for _, stop := range candidates {
		if geomath.Distance(position, stop.Coordinate()) <= radiusMeters {
			results = append(results, stop)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return geomath.Distance(position, results[i].Coordinate()) <
			geomath.Distance(position, results[j].Coordinate())
	})
	return results, nil
}
