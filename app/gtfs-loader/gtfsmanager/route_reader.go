package gtfsmanager

import (
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

// routeRowReader implements gtfsRowReader interface for gtfs.Route
type routeRowReader struct {
	batchedRoutes []*gtfs.Route
}

func (r *routeRowReader) addRow(parser *gtfsFileParser, dsTx *gtfs.DataSetTransaction) error {
	route, err := buildRoute(parser)
	if err != nil {
		return err
	}
	r.batchedRoutes = append(r.batchedRoutes, route)
	return nil
}

func (r *routeRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedRoutes) == 0 {
		return nil
	}
	err := gtfs.RecordRoutes(r.batchedRoutes, dsTx)
	if err != nil {
		return err
	}
	r.batchedRoutes = make([]*gtfs.Route, 0)
	return nil
}

func buildRoute(parser *gtfsFileParser) (*gtfs.Route, error) {
	route := gtfs.Route{
		RouteId:        parser.getString("route_id", false),
		RouteShortName: parser.getString("route_short_name", true),
		RouteLongName:  parser.getString("route_long_name", true),
		RouteType:      parser.getInt("route_type", false),
		RouteSortOrder: parser.getIntPointer("route_sort_order", true),
	}
	return &route, parser.getError()
}
