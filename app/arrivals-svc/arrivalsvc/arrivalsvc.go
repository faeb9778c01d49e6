// Package arrivalsvc serves stop arrival boards over http and optionally
// publishes them over NATS for a configured set of stops.
package arrivalsvc

import (
	"context"
	logger "log"
	"os"
	"sync"

	"github.com/pespinel/AuvasaKit/business/transit"
)

//StartServices brings up the web service and the stop arrivals publisher. Exits on shutdown signal
func StartServices(log *logger.Logger,
	svc *transit.Service,
	httpPort int,
	destination PublishDestination,
	subjectPrefix string,
	publishStopIds []string,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	//create shutdown channels
	webServiceShutdown := make(chan bool, 1)
	subscriptionCtx, cancelSubscriptions := context.WithCancel(context.Background())

	go RunWebService(log, &wg, svc, httpPort, webServiceShutdown)

	if destination != nil && len(publishStopIds) > 0 {
		publisher := makeArrivalsPublisher(log, svc, destination, subjectPrefix)
		publisher.start(subscriptionCtx, publishStopIds)
		log.Printf("publishing arrivals for %d stops on subject prefix %s", len(publishStopIds), subjectPrefix)
	}

	select {
	case <-shutdownSignal:
		log.Printf("Exiting on shutdown signal, shutting down subroutines")
		webServiceShutdown <- true
		cancelSubscriptions()
		svc.CancelAllSubscriptions()
		wg.Wait()
		log.Printf("Subroutines shut down, exiting arrivals service")
	}
}
