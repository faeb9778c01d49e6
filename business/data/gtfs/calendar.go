package gtfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Calendar contains data from a record in a gtfs calendar.txt file
type Calendar struct {
	DataSetId int64  `db:"data_set_id"`
	ServiceId string `db:"service_id"`
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}

// CalendarDate contains data from a record in a gtfs calendar_dates.txt file
type CalendarDate struct {
	DataSetId int64  `db:"data_set_id"`
	ServiceId string `db:"service_id"`
	Date      time.Time
	// ExceptionType 1 adds service on Date, 2 removes it. Exceptions win over the
	// base weekday rule.
	ExceptionType int `db:"exception_type"`
}

func RecordCalendar(calendar *Calendar, dsTx *DataSetTransaction) error {
	calendar.DataSetId = dsTx.DS.Id
	statementString := "insert into calendar ( " +
		"data_set_id, " +
		"service_id, " +
		"monday, " +
		"tuesday, " +
		"wednesday, " +
		"thursday, " +
		"friday, " +
		"saturday, " +
		"sunday, " +
		"start_date," +
		"end_date) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":monday, " +
		":tuesday, " +
		":wednesday, " +
		":thursday, " +
		":friday, " +
		":saturday, " +
		":sunday, " +
		":start_date," +
		":end_date) "
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, calendar)
	return err
}

func RecordCalendarDate(calendarDate *CalendarDate, dsTx *DataSetTransaction) error {
	calendarDate.DataSetId = dsTx.DS.Id
	statementString := "insert into calendar_date ( " +
		"data_set_id, " +
		"service_id, " +
		"date, " +
		"exception_type) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":date, " +
		":exception_type)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, calendarDate)
	return err
}

// IsServiceActive reports whether serviceId operates on serviceDate.
// The base rule requires the weekday flag set and serviceDate within
// [start_date, end_date]; a calendar_date exception for that exact date overrides
// the base rule in either direction.
func IsServiceActive(db *sqlx.DB, dataSetId int64, serviceId string, serviceDate time.Time) (bool, error) {
	serviceDate = Get12AmTime(serviceDate)

	var exceptionTypes []int
	query := db.Rebind("select exception_type from calendar_date " +
		"where data_set_id = ? and service_id = ? and date = ?")
	err := db.Select(&exceptionTypes, query, dataSetId, serviceId, serviceDate)
	if err != nil {
		return false, fmt.Errorf("unable to query calendar_date table: %w", err)
	}
	if len(exceptionTypes) > 0 {
		return exceptionTypes[0] == 1, nil
	}

	// the calendar week day columns are named after the english weekdays
	weekday := strings.ToLower(serviceDate.Weekday().String())
	statementString := fmt.Sprintf("select count(*) from calendar where data_set_id = ? "+
		"and service_id = ? "+
		"and ? between start_date and end_date "+
		"and %s = 1", weekday)
	var count int
	err = db.Get(&count, db.Rebind(statementString), dataSetId, serviceId, serviceDate)
	if err != nil {
		return false, fmt.Errorf("unable to query calendar table: %w", err)
	}
	return count > 0, nil
}

// GetActiveServiceIds retrieves the active serviceIds on provided serviceDate.
// both calendar and calendar_date are used
func GetActiveServiceIds(db *sqlx.DB, dataSetId int64, serviceDate time.Time) ([]string, error) {
	serviceDate = Get12AmTime(serviceDate)
	serviceIdMap := make(map[string]bool)

	weekday := strings.ToLower(serviceDate.Weekday().String())
	query := fmt.Sprintf("select service_id from calendar where data_set_id = ? "+
		"and ? between start_date and end_date "+
		"and %s = 1", weekday)
	var calendarServiceKeys []string
	err := db.Select(&calendarServiceKeys, db.Rebind(query), dataSetId, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve service_ids from calendar table. query:%s error: %w", query, err)
	}

	for _, serviceId := range calendarServiceKeys {
		serviceIdMap[serviceId] = true
	}

	var calendarDates []CalendarDate
	query = "select * from calendar_date where data_set_id = ? and date = ?"
	err = db.Select(&calendarDates, db.Rebind(query), dataSetId, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("unable to query calendar_date table. query:%s error: %w", query, err)
	}
	for _, calendarDate := range calendarDates {
		if calendarDate.ExceptionType == 1 {
			serviceIdMap[calendarDate.ServiceId] = true
		} else if calendarDate.ExceptionType == 2 {
			delete(serviceIdMap, calendarDate.ServiceId)
		}
	}

	results := make([]string, 0, len(serviceIdMap))
	for serviceId := range serviceIdMap {
		results = append(results, serviceId)
	}
	return results, nil
}
