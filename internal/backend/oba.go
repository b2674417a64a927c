package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	onebusaway "github.com/OneBusAway/go-sdk"
	"github.com/OneBusAway/go-sdk/option"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/utils"
)

// OBAClient reads stop details from a OneBusAway server.
type OBAClient struct {
	baseURL string
	client  *onebusaway.Client
}

func NewOBAClient(baseURL, apiKey string, httpClient *http.Client) *OBAClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OBAClient{
		baseURL: baseURL,
		client:  onebusaway.NewClient(opts...),
	}
}

func (c *OBAClient) BaseURL() string {
	return c.baseURL
}

// FetchStopDetails uses the stop's served routes and its compass direction.
func (c *OBAClient) FetchStopDetails(ctx context.Context, stopID string) (models.StopDetails, error) {
	response, err := c.client.Stop.Get(ctx, stopID)
	if err != nil {
		err = fmt.Errorf("failed to fetch stop %s from %s: %w", stopID, c.baseURL, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Component:    "oba_backend",
			Tags:         utils.MakeMap("stop_id", stopID),
			ExtraContext: map[string]interface{}{"oba_base_url": c.baseURL},
		})
		return models.StopDetails{}, err
	}
	if response == nil {
		return models.StopDetails{}, fmt.Errorf("empty response for stop %s", stopID)
	}

	entry := response.Data.Entry
	routes := append([]string{}, entry.RouteIDs...)
	sort.Strings(routes)

	return models.StopDetails{
		Routes:      routes,
		Description: compassDescription(entry.Direction),
	}, nil
}

// Ping asks the server for its current time.
func (c *OBAClient) Ping(ctx context.Context) error {
	response, err := c.client.CurrentTime.Get(ctx)
	if err != nil {
		return err
	}
	if response == nil || response.Data.Entry.ReadableTime == "" {
		return errors.New("current time response is empty")
	}
	return nil
}

var compassNames = map[string]string{
	"N":  "Northbound",
	"S":  "Southbound",
	"E":  "Eastbound",
	"W":  "Westbound",
	"NE": "Northeastbound",
	"NW": "Northwestbound",
	"SE": "Southeastbound",
	"SW": "Southwestbound",
}

func compassDescription(direction string) string {
	if name, ok := compassNames[direction]; ok {
		return name
	}
	return DirectionalDescription(direction)
}
