package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
	"github.com/pespinel/AuvasaKit/app/arrivals-svc/arrivalsvc"
	"github.com/pespinel/AuvasaKit/business/transit"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ARRIVALS_SVC : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		GTFSRT struct {
			VehiclePositionsUrl string        `conf:"default:http://212.170.201.204:50080/GTFSRTapi/api/GTFSRTFeed"`
			TripUpdatesUrl      string        `conf:"default:http://212.170.201.204:50080/GTFSRTapi/api/GTFSRTTripUpdate"`
			AlertsUrl           string        `conf:"default:http://212.170.201.204:50080/GTFSRTapi/api/GTFSRTAlerts"`
			RequestTimeout      time.Duration `conf:"default:15s"`
			PollInterval        time.Duration `conf:"default:30s"`
		}
		Cache struct {
			Dir string
		}
		Web struct {
			Port int `conf:"default:8082"`
		}
		NATS struct {
			Url           string
			SubjectPrefix string `conf:"default:arrivals"`
			Stops         string
		}
		Timezone string `conf:"default:Europe/Madrid"`
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Serve and publish stop arrival predictions"
	const prefix = "ARRIVALS"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
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

	// =========================================================================
	// Start transit service

	log.Println("main: Initializing transit service")

	svc, err := transit.New(log, transit.Config{
		StaticDBPath:        cfg.DB.Path,
		VehiclePositionsURL: cfg.GTFSRT.VehiclePositionsUrl,
		TripUpdatesURL:      cfg.GTFSRT.TripUpdatesUrl,
		AlertsURL:           cfg.GTFSRT.AlertsUrl,
		CacheDir:            cfg.Cache.Dir,
		Timezone:            cfg.Timezone,
		RequestTimeout:      cfg.GTFSRT.RequestTimeout,
		PollInterval:        cfg.GTFSRT.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("creating transit service: %w", err)
	}
	defer func() {
		log.Printf("main: Transit service stopping : %s", cfg.DB.Path)
		if err := svc.Close(); err != nil {
			log.Printf("main: error closing transit service: %v", err)
		}
	}()

	// =========================================================================
	// Optional NATS publisher

	var natsConn *nats.Conn
	if cfg.NATS.Url != "" {
		natsConn, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.Url, err)
		}
		defer natsConn.Close()
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var destination arrivalsvc.PublishDestination
	if natsConn != nil {
		destination = natsConn
	}
	arrivalsvc.StartServices(log, svc, cfg.Web.Port, destination, cfg.NATS.SubjectPrefix,
		splitStopIds(cfg.NATS.Stops), shutdown)
	return nil
}

// splitStopIds parses the comma separated stop id list from configuration
func splitStopIds(value string) []string {
	var stopIds []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			stopIds = append(stopIds, part)
		}
	}
	return stopIds
}
