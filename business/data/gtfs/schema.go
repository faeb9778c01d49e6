package gtfs

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateSchema creates the gtfs tables if they don't exist.
func CreateSchema(db *sqlx.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS data_set (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		url                     TEXT NOT NULL,
		e_tag                   TEXT NOT NULL DEFAULT '',
		last_modified_timestamp INTEGER NOT NULL DEFAULT 0,
		downloaded_at           TIMESTAMP NOT NULL,
		saved_at                TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS stop (
		data_set_id         INTEGER NOT NULL,
		stop_id             TEXT NOT NULL,
		stop_code           TEXT,
		stop_name           TEXT NOT NULL,
		stop_lat            REAL NOT NULL,
		stop_lon            REAL NOT NULL,
		location_type       INTEGER NOT NULL DEFAULT 0,
		parent_station      TEXT,
		wheelchair_boarding INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (data_set_id, stop_id)
	)`,

	`CREATE TABLE IF NOT EXISTS route (
		data_set_id      INTEGER NOT NULL,
		route_id         TEXT NOT NULL,
		route_short_name TEXT NOT NULL DEFAULT '',
		route_long_name  TEXT NOT NULL DEFAULT '',
		route_type       INTEGER NOT NULL DEFAULT 3,
		route_sort_order INTEGER,
		PRIMARY KEY (data_set_id, route_id)
	)`,

	`CREATE TABLE IF NOT EXISTS trip (
		data_set_id   INTEGER NOT NULL,
		trip_id       TEXT NOT NULL,
		route_id      TEXT NOT NULL,
		service_id    TEXT NOT NULL,
		trip_headsign TEXT,
		direction_id  INTEGER,
		shape_id      TEXT,
		PRIMARY KEY (data_set_id, trip_id)
	)`,

	`CREATE TABLE IF NOT EXISTS stop_time (
		data_set_id    INTEGER NOT NULL,
		trip_id        TEXT NOT NULL,
		stop_sequence  INTEGER NOT NULL,
		stop_id        TEXT NOT NULL,
		arrival_time   INTEGER NOT NULL,
		departure_time INTEGER NOT NULL,
		PRIMARY KEY (data_set_id, trip_id, stop_sequence)
	)`,

	`CREATE TABLE IF NOT EXISTS calendar (
		data_set_id INTEGER NOT NULL,
		service_id  TEXT NOT NULL,
		monday      INTEGER NOT NULL DEFAULT 0,
		tuesday     INTEGER NOT NULL DEFAULT 0,
		wednesday   INTEGER NOT NULL DEFAULT 0,
		thursday    INTEGER NOT NULL DEFAULT 0,
		friday      INTEGER NOT NULL DEFAULT 0,
		saturday    INTEGER NOT NULL DEFAULT 0,
		sunday      INTEGER NOT NULL DEFAULT 0,
		start_date  TIMESTAMP,
		end_date    TIMESTAMP,
		PRIMARY KEY (data_set_id, service_id)
	)`,

	`CREATE TABLE IF NOT EXISTS calendar_date (
		data_set_id    INTEGER NOT NULL,
		service_id     TEXT NOT NULL,
		date           TIMESTAMP NOT NULL,
		exception_type INTEGER NOT NULL,
		PRIMARY KEY (data_set_id, service_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS shape (
		data_set_id         INTEGER NOT NULL,
		shape_id            TEXT NOT NULL,
		shape_pt_lat        REAL NOT NULL,
		shape_pt_lon        REAL NOT NULL,
		shape_pt_sequence   INTEGER NOT NULL,
		shape_dist_traveled REAL,
		PRIMARY KEY (data_set_id, shape_id, shape_pt_sequence)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_stop_time_stop ON stop_time(data_set_id, stop_id, departure_time)`,
	`CREATE INDEX IF NOT EXISTS idx_stop_time_trip ON stop_time(data_set_id, trip_id, stop_sequence)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_route ON trip(data_set_id, route_id)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_date_date ON calendar_date(data_set_id, date)`,
}
