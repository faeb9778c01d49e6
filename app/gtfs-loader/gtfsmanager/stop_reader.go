package gtfsmanager

import (
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

const batchedStopCount = 250

// stopRowReader implements gtfsRowReader interface for gtfs.Stop
// batches inserts
type stopRowReader struct {
	batchedStops []*gtfs.Stop
}

func (r *stopRowReader) addRow(parser *gtfsFileParser, dsTx *gtfs.DataSetTransaction) error {
	stop, err := buildStop(parser)
	if err != nil {
		return err
	}
	r.batchedStops = append(r.batchedStops, stop)

	if len(r.batchedStops) == batchedStopCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *stopRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedStops) == 0 {
		return nil
	}
	err := gtfs.RecordStops(r.batchedStops, dsTx)
	if err != nil {
		return err
	}
	r.batchedStops = make([]*gtfs.Stop, 0)
	return nil
}

func buildStop(parser *gtfsFileParser) (*gtfs.Stop, error) {
	stop := gtfs.Stop{
		StopId:             parser.getString("stop_id", false),
		StopCode:           parser.getStringPointer("stop_code", true),
		StopName:           parser.getString("stop_name", false),
		StopLat:            parser.getFloat64("stop_lat", false),
		StopLon:            parser.getFloat64("stop_lon", false),
		LocationType:       parser.getInt("location_type", true),
		ParentStation:      parser.getStringPointer("parent_station", true),
		WheelchairBoarding: parser.getInt("wheelchair_boarding", true),
	}
	return &stop, parser.getError()
}
