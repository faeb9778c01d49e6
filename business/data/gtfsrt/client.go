package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportError indicates a feed could not be retrieved. StatusCode is zero when
// the request never produced a response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error - error interface for TransportError
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gtfsrt: unexpected status %d retrieving %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("gtfsrt: unable to retrieve %s: %v", e.URL, e.Err)
}

// Unwrap - errors.Unwrap interface for TransportError
func (e *TransportError) Unwrap() error {
	return e.Err
}

// FeedURLs holds the endpoints of an agency's realtime feeds. Any endpoint may be
// empty when the agency does not publish that feed.
type FeedURLs struct {
	VehiclePositions string
	TripUpdates      string
	Alerts           string
}

// ErrFeedUnavailable indicates the agency publishes no endpoint for the requested feed
var ErrFeedUnavailable = fmt.Errorf("gtfsrt: no endpoint configured for feed")

// FeedClient retrieves and decodes an agency's GTFS-RT feeds over http
type FeedClient struct {
	urls   FeedURLs
	client *http.Client
}

// NewFeedClient builds a FeedClient with the provided endpoints and request timeout
func NewFeedClient(urls FeedURLs, timeout time.Duration) *FeedClient {
	return &FeedClient{
		urls: urls,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// VehiclePositions retrieves and decodes the vehicle positions feed
func (c *FeedClient) VehiclePositions(ctx context.Context) ([]VehiclePosition, error) {
	payload, err := c.fetch(ctx, c.urls.VehiclePositions)
	if err != nil {
		return nil, err
	}
	return DecodeVehiclePositions(payload)
}

// TripUpdates retrieves and decodes the trip updates feed
func (c *FeedClient) TripUpdates(ctx context.Context) ([]TripUpdate, error) {
	payload, err := c.fetch(ctx, c.urls.TripUpdates)
	if err != nil {
		return nil, err
	}
	return DecodeTripUpdates(payload)
}

// Alerts retrieves and decodes the service alerts feed
func (c *FeedClient) Alerts(ctx context.Context) ([]Alert, error) {
	payload, err := c.fetch(ctx, c.urls.Alerts)
	if err != nil {
		return nil, err
	}
	return DecodeAlerts(payload)
}

func (c *FeedClient) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrFeedUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return payload, nil
}
