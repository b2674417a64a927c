package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/utils"
)

type busStopResponse struct {
	StopID   string `json:"stop_id"`
	StopName string `json:"stop_name"`
	StopDesc string `json:"stop_desc"`
}

type predictionsResponse struct {
	Busyness struct {
		Current struct {
			ByRoute map[string]json.RawMessage `json:"by_route"`
		} `json:"current"`
	} `json:"busyness"`
}

// BadgerClient reads stop details from the Badger Transit backend.
type BadgerClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewBadgerClient(baseURL string, client *http.Client, logger *slog.Logger) *BadgerClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BadgerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

func (c *BadgerClient) BaseURL() string {
	return c.baseURL
}

// FetchStopDetails combines the stop description with the routes that
// currently have predictions at the stop. A failed predictions call leaves
// Routes empty; a failed stop call fails the whole fetch.
func (c *BadgerClient) FetchStopDetails(ctx context.Context, stopID string) (models.StopDetails, error) {
	var stop busStopResponse
	if err := c.getJSON(ctx, "/api/bus-stops/"+url.PathEscape(stopID), &stop); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Component:    "badger_backend",
			Tags:         utils.MakeMap("stop_id", stopID),
			ExtraContext: map[string]interface{}{"base_url": c.baseURL},
		})
		return models.StopDetails{}, err
	}

	details := models.StopDetails{
		Routes:      []string{},
		Description: DirectionalDescription(stop.StopDesc),
	}

	var predictions predictionsResponse
	if err := c.getJSON(ctx, "/api/predictions/"+url.PathEscape(stopID), &predictions); err != nil {
		c.logger.Warn("failed to fetch predictions", "stop_id", stopID, "error", err)
		return details, nil
	}

	for route := range predictions.Busyness.Current.ByRoute {
		details.Routes = append(details.Routes, route)
	}
	sort.Strings(details.Routes)
	return details, nil
}

// Ping checks that the backend answers at all. Any response below 500 counts.
func (c *BadgerClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status code from %s: %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

func (c *BadgerClient) getJSON(ctx context.Context, path string, v interface{}) error {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code from %s: %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", u, err)
	}
	return nil
}
