// Package gtfsmanager provides support for retrieving, reading, parsing, deleting and saving gtfs schedules to a database
package gtfsmanager

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pespinel/AuvasaKit/business/data/gtfs"
	"github.com/pespinel/AuvasaKit/foundation/httpclient"
)

// UpdateGTFSSchedule checks for an updated gtfs schedule on the remote server and,
// when a new version is detected, downloads the zip to localDownloadDirectory and
// imports it as a new DataSet. forceDownload bypasses the remote check.
func UpdateGTFSSchedule(log *log.Logger,
	db *sqlx.DB,
	localDownloadDirectory string,
	url string,
	loc *time.Location,
	forceDownload bool) error {
	if forceDownload {
		log.Printf("Not checking remote gtfs file for new information, forcing load of gtfs file")
	} else if !shouldUpdateGTFSSchedule(log, db, url) {
		return nil
	}

	if err := makeDirectoryIfNotPresent(localDownloadDirectory); err != nil {
		return err
	}
	start := time.Now()
	localGtfsZipFile := filepath.Join(localDownloadDirectory, "gtfs.zip")
	log.Printf("Downloading file from %s to %s", url, localGtfsZipFile)
	downloadedFile, err := httpclient.DownloadRemoteFile(localGtfsZipFile, url)

	// remove downloaded file after we are done
	defer func() {
		if _, err := os.Stat(localGtfsZipFile); err == nil {
			if err = os.Remove(localGtfsZipFile); err != nil {
				log.Printf("Unable to remove downloaded file. error:%v", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	log.Printf("Downloaded %v bytes in %v seconds",
		downloadedFile.Size, downloadedFile.DownloadedAt.Unix()-start.Unix())

	ds, err := loadGTFSScheduleFromFile(log, db, *downloadedFile, loc)
	if err != nil {
		return err
	}

	// with the new DataSet saved, older schedule rows are dead weight
	return gtfs.PurgeDataSetsBefore(db, ds)
}

// LoadGTFSScheduleFromLocalFile imports a gtfs zip already on the local
// filesystem, used when the feed is distributed out of band
func LoadGTFSScheduleFromLocalFile(log *log.Logger, db *sqlx.DB,
	localFilePath string, loc *time.Location) error {
	info, err := os.Stat(localFilePath)
	if err != nil {
		return err
	}
	downloadedFile := httpclient.DownloadedFile{
		RemoteFileInfo: httpclient.RemoteFileInfo{
			Path:                  localFilePath,
			LastModifiedTimestamp: info.ModTime().Unix(),
		},
		LocalFilePath: localFilePath,
		Size:          info.Size(),
		DownloadedAt:  time.Now(),
	}
	ds, err := loadGTFSScheduleFromFile(log, db, downloadedFile, loc)
	if err != nil {
		return err
	}
	return gtfs.PurgeDataSetsBefore(db, ds)
}

// shouldUpdateGTFSSchedule compares the loaded gtfs.DataSet against the remote
// file's ETag or last modified timestamp. On error it logs and reports false.
func shouldUpdateGTFSSchedule(log *log.Logger, db *sqlx.DB, url string) bool {
	remoteFileInfo, err := httpclient.GetRemoteFileInfo(url)
	if err != nil {
		log.Printf("Unable to retrieve remote file information from '%s' error: %v", url, err)
		return false
	}

	existingDataSet, err := gtfs.GetLatestSavedDataSet(db)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("No DataSet loaded, should perform initial load")
			return true
		}
		log.Printf("Received error checking DataSet from database. error: %v", err)
		return false
	}
	// use eTag if not empty
	if len(remoteFileInfo.ETag) > 0 {
		if remoteFileInfo.ETag != existingDataSet.ETag {
			log.Printf("Remote file ETag indicates new file available")
			return true
		}
		log.Printf("Remote file ETag indicates the loaded DataSet is current: %v", *existingDataSet)
		return false
	}
	// if last modified timestamp is zero the check is inconclusive
	if remoteFileInfo.LastModifiedTimestamp == 0 {
		log.Printf("Unable to determine remote file timestamp or eTag, can not determine if dataset should be reloaded")
		return false
	}
	if remoteFileInfo.LastModifiedTimestamp != existingDataSet.LastModifiedTimestamp {
		log.Printf("Remote file last modified timestamp indicates new file available")
		return true
	}
	log.Printf("Remote file last modified timestamp indicates the loaded DataSet is current: %v", *existingDataSet)
	return false
}

// ListGTFSSchedules displays a list of all DataSets
func ListGTFSSchedules(db *sqlx.DB) error {
	fmt.Println("Loaded DataSets:")
	dataSets, err := gtfs.GetAllDataSets(db)
	if err != nil {
		return err
	}
	for _, ds := range dataSets {
		fmt.Println(ds.String())
	}
	return nil
}

// DeleteGTFSSchedule deletes all gtfs records associated with gtfs.DataSet with dataSetId
func DeleteGTFSSchedule(log *log.Logger, db *sqlx.DB, dataSetId int64) error {
	dataSet, err := gtfs.GetDataSet(db, dataSetId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no DataSet found with id %d", dataSetId)
		}
		return err
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		log.Printf("Removing dataSet %v", dataSet)
		deleteStatements := []struct {
			name  string
			query string
		}{
			{name: "stop_time", query: "delete from stop_time where data_set_id = ?"},
			{name: "trip", query: "delete from trip where data_set_id = ?"},
			{name: "stop", query: "delete from stop where data_set_id = ?"},
			{name: "route", query: "delete from route where data_set_id = ?"},
			{name: "shape", query: "delete from shape where data_set_id = ?"},
			{name: "calendar", query: "delete from calendar where data_set_id = ?"},
			{name: "calendar_date", query: "delete from calendar_date where data_set_id = ?"},
			{name: "data_set", query: "delete from data_set where id = ?"},
		}
		for _, deleteStatement := range deleteStatements {
			result, innerErr := tx.Exec(tx.Rebind(deleteStatement.query), dataSet.Id)
			if innerErr != nil {
				return fmt.Errorf("error running '%s' error:%w", deleteStatement.query, innerErr)
			}
			rows, innerErr := result.RowsAffected()
			if innerErr != nil {
				return fmt.Errorf("error retrieving rows affected after '%s' error:%w", deleteStatement.query, innerErr)
			}
			log.Printf("Deleted %d rows from %s", rows, deleteStatement.name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Deleted DataSet %v", dataSet)
	return nil
}

// loadGTFSScheduleFromFile imports the gtfs zip described by downloadedFile into a
// new DataSet inside a single transaction. The DataSet is marked saved only after
// every file loaded, so readers never see a partial import.
func loadGTFSScheduleFromFile(log *log.Logger,
	db *sqlx.DB,
	downloadedFile httpclient.DownloadedFile,
	loc *time.Location) (*gtfs.DataSet, error) {
	if err := gtfs.CreateSchema(db); err != nil {
		return nil, err
	}
	ds := gtfs.DataSet{
		URL:                   downloadedFile.RemoteFileInfo.Path,
		ETag:                  downloadedFile.RemoteFileInfo.ETag,
		LastModifiedTimestamp: downloadedFile.RemoteFileInfo.LastModifiedTimestamp,
		DownloadedAt:          downloadedFile.DownloadedAt,
	}
	err := transact(log, db, func(tx *sqlx.Tx) error {
		if err := gtfs.SaveDataSet(tx, &ds); err != nil {
			return err
		}
		dsTx := gtfs.DataSetTransaction{DS: ds, Tx: tx}
		if err := loadGtfsZipFile(log, &dsTx, downloadedFile.LocalFilePath, loc); err != nil {
			return err
		}
		savedAt := time.Now()
		ds.SavedAt = &savedAt
		return gtfs.SaveDataSet(tx, &ds)
	})
	return &ds, err
}

func makeDirectoryIfNotPresent(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return os.Mkdir(directory, os.ModePerm)
	}
	return nil
}

/*
transact starts a Transaction on sqlx.DB, calls txFunc and commits or rolls back the transaction depending on the
return code of the txFunc result
*/
func transact(log *log.Logger, db *sqlx.DB, txFunc func(*sqlx.Tx) error) (err error) {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback() // err is non-nil; don't change it
			if rollbackErr != nil {
				log.Printf("Received error while attempting to rollback transaction. error:%v", rollbackErr)
			}
			return
		}
		err = tx.Commit() // err is nil; if Commit returns error update err
	}()
	err = txFunc(tx)
	return err
}
