package gtfs

import (
	"fmt"

	"github.com/pespinel/AuvasaKit/foundation/geomath"

	"github.com/jmoiron/sqlx"
)

/*
Shape contains rows from the GTFS shapes.txt file
*/
type Shape struct {
	DataSetId         int64    `db:"data_set_id" json:"data_set_id"`
	ShapeId           string   `db:"shape_id" json:"shape_id"`
	ShapePtLat        float64  `db:"shape_pt_lat" json:"shape_pt_lat"`
	ShapePtLng        float64  `db:"shape_pt_lon" json:"shape_pt_lon"`
	ShapePtSequence   int      `db:"shape_pt_sequence" json:"shape_pt_sequence"`
	ShapeDistTraveled *float64 `db:"shape_dist_traveled" json:"shape_dist_traveled"`
}

// Point returns the shape row position as a geomath point
func (s *Shape) Point() geomath.Point {
	return geomath.Point{Latitude: s.ShapePtLat, Longitude: s.ShapePtLng}
}

// RecordShapes saves shapes to database in a batch
func RecordShapes(shapes []*Shape, dsTx *DataSetTransaction) error {
	for _, shape := range shapes {
		shape.DataSetId = dsTx.DS.Id
	}

	statementString := "insert into shape ( " +
		"data_set_id, " +
		"shape_id, " +
		"shape_pt_lat, " +
		"shape_pt_lon, " +
		"shape_pt_sequence, " +
		"shape_dist_traveled) " +
		"values (" +
		":data_set_id, " +
		":shape_id, " +
		":shape_pt_lat, " +
		":shape_pt_lon, " +
		":shape_pt_sequence, " +
		":shape_dist_traveled)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, shapes)
	return err
}

// GetShape retrieves all rows of a shape in point sequence order
func GetShape(db *sqlx.DB, dataSetId int64, shapeId string) ([]*Shape, error) {
	query := db.Rebind("select * from shape where data_set_id = ? and shape_id = ? " +
		"order by shape_pt_sequence")
	var shapes []*Shape
	err := db.Select(&shapes, query, dataSetId, shapeId)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve shape %q in dataSet %d: %w", shapeId, dataSetId, err)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("no shape %q in dataSet %d: %w", shapeId, dataSetId, ErrNotFound)
	}
	return shapes, nil
}

// ShapeBoundingBox computes the bounding box enclosing every point of a shape
func ShapeBoundingBox(shapes []*Shape) geomath.Box {
	points := make([]geomath.Point, 0, len(shapes))
	for _, shape := range shapes {
		points = append(points, shape.Point())
	}
	return geomath.BoundingBox(points)
}
