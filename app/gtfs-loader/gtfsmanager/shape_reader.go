package gtfsmanager

import (
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

const batchedShapeCount = 500

// shapeRowReader implements gtfsRowReader interface for gtfs.Shape
// batches inserts
type shapeRowReader struct {
	batchedShapeRows []*gtfs.Shape
}

func (r *shapeRowReader) addRow(parser *gtfsFileParser, dsTx *gtfs.DataSetTransaction) error {
	shape, err := buildShape(parser)
	if err != nil {
		return err
	}
	r.batchedShapeRows = append(r.batchedShapeRows, shape)

	if len(r.batchedShapeRows) == batchedShapeCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *shapeRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedShapeRows) == 0 {
		return nil
	}
	err := gtfs.RecordShapes(r.batchedShapeRows, dsTx)
	if err != nil {
		return err
	}
	r.batchedShapeRows = make([]*gtfs.Shape, 0)
	return nil
}

func buildShape(parser *gtfsFileParser) (*gtfs.Shape, error) {
	shape := gtfs.Shape{
		ShapeId:           parser.getString("shape_id", false),
		ShapePtLat:        parser.getFloat64("shape_pt_lat", false),
		ShapePtLng:        parser.getFloat64("shape_pt_lon", false),
		ShapePtSequence:   parser.getInt("shape_pt_sequence", false),
		ShapeDistTraveled: parser.getFloat64Pointer("shape_dist_traveled", true),
	}
	return &shape, parser.getError()
}
