package gtfsmanager

import (
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

const batchedStopTimeCount = 500

// stopTimeRowReader implements gtfsRowReader interface for gtfs.StopTime
// batches inserts, stop_times.txt being by far the largest gtfs file
type stopTimeRowReader struct {
	batchedStopTimes []*gtfs.StopTime
}

func (r *stopTimeRowReader) addRow(parser *gtfsFileParser, dsTx *gtfs.DataSetTransaction) error {
	stopTime, err := buildStopTime(parser)
	if err != nil {
		return err
	}
	r.batchedStopTimes = append(r.batchedStopTimes, stopTime)

	if len(r.batchedStopTimes) == batchedStopTimeCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *stopTimeRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedStopTimes) == 0 {
		return nil
	}
	err := gtfs.RecordStopTimes(r.batchedStopTimes, dsTx)
	if err != nil {
		return err
	}
	r.batchedStopTimes = make([]*gtfs.StopTime, 0)
	return nil
}

func buildStopTime(parser *gtfsFileParser) (*gtfs.StopTime, error) {
	stopTime := gtfs.StopTime{
		TripId:        parser.getString("trip_id", false),
		StopId:        parser.getString("stop_id", false),
		StopSequence:  uint32(parser.getInt("stop_sequence", false)),
		ArrivalTime:   parser.getScheduleTime("arrival_time", false),
		DepartureTime: parser.getScheduleTime("departure_time", false),
	}
	return &stopTime, parser.getError()
}
