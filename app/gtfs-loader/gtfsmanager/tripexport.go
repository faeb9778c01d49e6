package gtfsmanager

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

// tripExport is the document written by ExportTripToJSON
type tripExport struct {
	Trip      *gtfs.Trip       `json:"trip"`
	StopTimes []*gtfs.StopTime `json:"stop_times"`
}

// ExportTripToJSON writes the trip and its stop times from the active DataSet to
// destinationFile in json format, useful for building test fixtures
func ExportTripToJSON(log *log.Logger,
	db *sqlx.DB,
	loc *time.Location,
	tripId string,
	destinationFile string) error {
	store, err := gtfs.NewStore(db, loc)
	if err != nil {
		return err
	}
	trip, err := store.GetTrip(tripId)
	if err != nil {
		return fmt.Errorf("unable to find trip %s: %w", tripId, err)
	}
	stopTimes, err := store.GetStopTimes(tripId)
	if err != nil {
		return err
	}
	file, err := json.MarshalIndent(tripExport{Trip: trip, StopTimes: stopTimes}, "", " ")
	if err != nil {
		return err
	}
	log.Printf("saving trip to %s", destinationFile)
	return os.WriteFile(destinationFile, file, 0644)
}
