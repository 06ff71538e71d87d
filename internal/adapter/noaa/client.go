package noaa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
)

// DefaultBaseURL is the NOAA CO-OPS API host.
const DefaultBaseURL = "https://api.tidesandcurrents.noaa.gov"

// dateLayout is the begin_date/end_date format of the datagetter API.
const dateLayout = "20060102 15:04"

// Endpoint labels for metrics and logs.
const (
	endpointStation   = "station"
	endpointOffsets   = "offsets"
	endpointWaterData = "water_data"
)

// Client implements domain.TideDataSource against the NOAA CO-OPS APIs.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	application string
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a NOAA client. Every request is bounded by timeout.
func NewClient(baseURL, application string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		application: application,
		metrics:     metrics,
		logger:      logger,
	}
}

// FetchStationInfo returns the metadata of a station.
func (c *Client) FetchStationInfo(ctx context.Context, stationID int) (domain.StationInfoReply, error) {
	u := fmt.Sprintf("%s/mdapi/prod/webapi/stations/%d.json", c.baseURL, stationID)

	var reply domain.StationInfoReply
	err := c.doRequest(ctx, u, endpointStation, &reply)
	return reply, err
}

// FetchTideOffsets returns the tide prediction offsets of a station in metric units.
func (c *Client) FetchTideOffsets(ctx context.Context, stationID int) (domain.TideOffsetsReply, error) {
	u := fmt.Sprintf("%s/mdapi/prod/webapi/stations/%d/tidepredoffsets.json", c.baseURL, stationID)
	params := url.Values{"units": {"metric"}}

	var reply domain.TideOffsetsReply
	err := c.doRequest(ctx, u+"?"+params.Encode(), endpointOffsets, &reply)
	return reply, err
}

// FetchWaterData returns a product's observations between begin and end,
// referenced to MLLW in local station time.
func (c *Client) FetchWaterData(ctx context.Context, stationID int, begin, end time.Time, product string) (domain.WaterDataReply, error) {
	if product == "" {
		product = domain.ProductOneMinuteWaterLevel
	}
	params := url.Values{
		"application": {c.application},
		"begin_date":  {begin.Format(dateLayout)},
		"end_date":    {end.Format(dateLayout)},
		"station":     {strconv.Itoa(stationID)},
		"product":     {product},
		"units":       {"metric"},
		"time_zone":   {"lst_ldt"},
		"datum":       {"MLLW"},
		"format":      {"json"},
	}
	u := c.baseURL + "/api/prod/datagetter?" + params.Encode()

	var reply domain.WaterDataReply
	err := c.doRequest(ctx, u, endpointWaterData, &reply)
	if err == nil && reply.Error != nil {
		c.logger.Warn("noaa data error", "station_id", stationID, "product", product, "message", reply.Error.Message)
	}
	return reply, err
}

// doRequest GETs fullURL and decodes the body into out. Non-200 replies and
// undecodable bodies are logged and leave out partially filled; only
// transport failures are returned.
func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.NOAAAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.NOAARequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("noaa %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.NOAARequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("read noaa %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.NOAARequests.WithLabelValues(endpoint, "status").Inc()
		c.logger.Warn("noaa request failed",
			"url", fullURL,
			"status", resp.StatusCode,
			"reason", http.StatusText(resp.StatusCode),
			"body", string(body),
		)
	} else {
		c.metrics.NOAARequests.WithLabelValues(endpoint, "success").Inc()
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("decode noaa response", "url", fullURL, "error", err)
	}
	return nil
}
