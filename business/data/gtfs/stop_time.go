package gtfs

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pespinel/AuvasaKit/foundation/database"
)

// StopTime contains a record from a gtfs stop_times.txt file
// represents a scheduled arrival and departure at a stop.
// ArrivalTime and DepartureTime are seconds after midnight of the service date and
// may exceed 24 hours for service that runs past midnight.
type StopTime struct {
	DataSetId     int64  `db:"data_set_id" json:"data_set_id"`
	TripId        string `db:"trip_id" json:"trip_id"`
	StopSequence  uint32 `db:"stop_sequence" json:"stop_sequence"`
	StopId        string `db:"stop_id" json:"stop_id"`
	ArrivalTime   int    `db:"arrival_time" json:"arrival_time"`
	DepartureTime int    `db:"departure_time" json:"departure_time"`
}

// RecordStopTimes saves stopTimes to database in batch
func RecordStopTimes(stopTimes []*StopTime, dsTx *DataSetTransaction) error {
	for _, stopTime := range stopTimes {
		stopTime.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into stop_time ( " +
		"data_set_id, " +
		"trip_id, " +
		"stop_sequence, " +
		"stop_id, " +
		"arrival_time, " +
		"departure_time) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":stop_sequence, " +
		":stop_id, " +
		":arrival_time, " +
		":departure_time)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, stopTimes)
	return err
}

// GetStopTimes retrieves the scheduled stops of a trip in stop_sequence order
func GetStopTimes(db *sqlx.DB, dataSetId int64, tripId string) ([]*StopTime, error) {
	query := db.Rebind("select * from stop_time where data_set_id = ? and trip_id = ? " +
		"order by stop_sequence")
	var stopTimes []*StopTime
	err := db.Select(&stopTimes, query, dataSetId, tripId)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stop times for trip %q in dataSet %d: %w",
			tripId, dataSetId, err)
	}
	return stopTimes, nil
}

// GetUpcomingStopTimes retrieves stop times at a stop departing at or after
// afterSeconds (seconds past local midnight), restricted to trips whose service is
// in serviceIds, earliest departure first. limit bounds the result when positive.
func GetUpcomingStopTimes(db *sqlx.DB, dataSetId int64, stopId string, afterSeconds int,
	serviceIds []string, limit int) ([]*StopTime, error) {
	if len(serviceIds) == 0 {
		return nil, nil
	}
	statementString := "select st.* from stop_time st " +
		"join trip t on t.data_set_id = st.data_set_id and t.trip_id = st.trip_id " +
		"where st.data_set_id = :data_set_id " +
		"and st.stop_id = :stop_id " +
		"and st.departure_time >= :after_seconds " +
		"and t.service_id in (:service_ids) " +
		"order by st.departure_time"
	sqlArgMap := map[string]interface{}{
		"data_set_id":   dataSetId,
		"stop_id":       stopId,
		"after_seconds": afterSeconds,
		"service_ids":   serviceIds,
	}
	if limit > 0 {
		statementString += " limit :limit"
		sqlArgMap["limit"] = limit
	}
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, sqlArgMap)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve upcoming stop times at stop %q in dataSet %d: %w",
			stopId, dataSetId, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var stopTimes []*StopTime
	for rows.Next() {
		stopTime := StopTime{}
		if err = rows.StructScan(&stopTime); err != nil {
			return nil, fmt.Errorf("unable to read upcoming stop time at stop %q in dataSet %d: %w",
				stopId, dataSetId, err)
		}
		stopTimes = append(stopTimes, &stopTime)
	}
	return stopTimes, rows.Err()
}

// GetFirstDepartureTime retrieves the departure time in seconds of a trip's first
// scheduled stop. GTFS-RT trip descriptors use this value as their start_time key.
func GetFirstDepartureTime(db *sqlx.DB, dataSetId int64, tripId string) (int, error) {
	query := db.Rebind("select departure_time from stop_time where data_set_id = ? and trip_id = ? " +
		"order by stop_sequence limit 1")
	var departureTime int
	err := db.Get(&departureTime, query, dataSetId, tripId)
	if err != nil {
		return 0, fmt.Errorf("unable to retrieve first departure for trip %q in dataSet %d: %w",
			tripId, dataSetId, err)
	}
	return departureTime, nil
}
