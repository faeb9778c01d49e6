package main

import (
	"fmt"
	logger "log"
	"os"
	"strconv"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pespinel/AuvasaKit/app/gtfs-loader/gtfsmanager"
	"github.com/pespinel/AuvasaKit/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "GTFS_LOADER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			Path string `conf:"default:auvasa.db"`
		}
		GTFS struct {
			Url           string `conf:"default:http://212.170.201.204:50080/GTFSRTapi/api/GTFSFile"`
			TempDir       string `conf:"default:gtfs_tmp"`
			Timezone      string `conf:"default:Europe/Madrid"`
			ForceDownload bool   `conf:"default:false"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Maintain gtfs schedule instances in database"
	if err := conf.Parse(os.Args[1:], "GTFS_LOADER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("GTFS_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("GTFS_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	loc, err := time.LoadLocation(cfg.GTFS.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{Path: cfg.DB.Path})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Path)
		if err := db.Close(); err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	switch cfg.Args.Num(0) {
	case "load":
		err = gtfsmanager.UpdateGTFSSchedule(log, db, cfg.GTFS.TempDir, cfg.GTFS.Url, loc, cfg.GTFS.ForceDownload)
		if err != nil {
			return err
		}
		return gtfsmanager.ListGTFSSchedules(db)

	case "load-file":
		localFile := cfg.Args.Num(1)
		if len(localFile) < 1 {
			return fmt.Errorf("expected path to gtfs zip with command load-file")
		}
		err = gtfsmanager.LoadGTFSScheduleFromLocalFile(log, db, localFile, loc)
		if err != nil {
			return err
		}
		return gtfsmanager.ListGTFSSchedules(db)

	case "delete":
		dataSetIdString := cfg.Args.Num(1)
		if len(dataSetIdString) < 1 {
			return fmt.Errorf("expected data set id with command delete")
		}
		dataSetId, err := strconv.ParseInt(dataSetIdString, 10, 64)
		if err != nil {
			return fmt.Errorf("unable to parse data set Id %s, error: %w", dataSetIdString, err)
		}
		return gtfsmanager.DeleteGTFSSchedule(log, db, dataSetId)

	case "list":
		return gtfsmanager.ListGTFSSchedules(db)

	case "export-trip":
		tripId := cfg.Args.Num(1)
		destination := cfg.Args.Num(2)
		if len(tripId) < 1 || len(destination) < 1 {
			return fmt.Errorf("expected trip id and destination file with command export-trip")
		}
		return gtfsmanager.ExportTripToJSON(log, db, loc, tripId, destination)

	default:
		fmt.Println("load: download and import (if needed) the latest gtfs data set")
		fmt.Println("load-file: import a gtfs zip from the local filesystem")
		fmt.Println("delete: remove a gtfs data set from the database")
		fmt.Println("list: list all gtfs data sets in the database")
		fmt.Println("export-trip: write a trip and its stop times to a json file")
		usage, err := conf.Usage("GTFS_LOADER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
