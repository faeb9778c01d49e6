package arrivalsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"strings"
	"time"

	"github.com/pespinel/AuvasaKit/business/arrivals"
)

// PublishDestination is satisfied by *nats.Conn
type PublishDestination interface {
	Publish(subject string, data []byte) error
}

// arrivalsPublisher sends arrival boards for a set of stops to a NATS subject
// hierarchy so downstream displays don't each poll the realtime feed
type arrivalsPublisher struct {
	log           *logger.Logger
	svc           transitService
	destination   PublishDestination
	subjectPrefix string
	holidays      *transitHolidayCalendar
}

func makeArrivalsPublisher(log *logger.Logger,
	svc transitService,
	destination PublishDestination,
	subjectPrefix string,
) *arrivalsPublisher {
	return &arrivalsPublisher{
		log:           log,
		svc:           svc,
		destination:   destination,
		subjectPrefix: subjectPrefix,
		holidays:      makeTransitHolidayCalendar(),
	}
}

// start subscribes to arrival updates for every stop in stopIds. Feed errors
// are logged and retried by the subscription scheduler, publish errors are
// logged and dropped.
func (p *arrivalsPublisher) start(ctx context.Context, stopIds []string) {
	for _, stopId := range stopIds {
		stopId := stopId
		p.svc.SubscribeToArrivals(ctx, stopId, 0, func(results []arrivals.Arrival, err error) {
			if err != nil {
				p.log.Printf("error retrieving arrivals for stop %s: %v", stopId, err)
				return
			}
			p.publish(stopId, results)
		})
	}
}

func (p *arrivalsPublisher) publish(stopId string, results []arrivals.Arrival) {
	now := time.Now()
	jsonData, err := json.Marshal(arrivalsResponse{
		Timestamp: now.Unix(),
		Holiday:   p.holidays.isHoliday(now),
		Arrivals:  results,
	})
	if err != nil {
		p.log.Printf("failed to marshal arrivals for stop %s in "+
			"arrivalsPublisher.publish, error:%v", stopId, err)
		return
	}
	err = p.destination.Publish(p.subject(stopId), jsonData)
	if err != nil {
		p.log.Printf("failed to send arrivals for stop %s in "+
			"arrivalsPublisher.publish, error:%v", stopId, err)
	}
}

func (p *arrivalsPublisher) subject(stopId string) string {
	return strings.Join([]string{p.subjectPrefix, stopId}, ".")
}
