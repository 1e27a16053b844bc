// Package usgs fetches GeoJSON collections from the USGS water data OGC API.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/water-data-pipeline/internal/config"
	"github.com/couchcryptid/water-data-pipeline/internal/domain"
	"github.com/couchcryptid/water-data-pipeline/internal/observability"
)

// Collection names as they appear in API paths and metric labels.
const (
	CollectionMonitoringLocations = "monitoring-locations"
	CollectionParameterCodes      = "parameter-codes"
	CollectionStatisticCodes      = "statistic-codes"
	CollectionDaily               = "daily"
)

// pageLimit is the per-request feature cap; larger collections paginate.
const pageLimit = 10000

// Client fetches collections from the USGS water data API. All requests pass
// through a shared rate limiter so batch fan-out stays polite to the public
// endpoint. Every method returns the combined multi-page document as raw
// GeoJSON bytes, suitable for the raw artifact sink.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics

	locationsState    string
	locationsSiteType string
	parameterCodes    []string
	statisticCode     string
	batchSize         int
}

// NewClient builds a Client from config.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:     logger,
		metrics:    metrics,

		locationsState:    cfg.LocationsState,
		locationsSiteType: cfg.LocationsSiteType,
		parameterCodes:    cfg.ParameterCodes,
		statisticCode:     cfg.StatisticCode,
		batchSize:         cfg.BatchSize,
	}
}

// MonitoringLocations fetches the monitoring-locations reference collection,
// filtered to the configured state and site type.
func (c *Client) MonitoringLocations(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	if c.locationsState != "" {
		params.Set("state_name", c.locationsState)
	}
	if c.locationsSiteType != "" {
		params.Set("site_type", c.locationsSiteType)
	}
	return c.fetchCollection(ctx, CollectionMonitoringLocations, params)
}

// ParameterCodes fetches the parameter-codes lookup collection.
func (c *Client) ParameterCodes(ctx context.Context) ([]byte, error) {
	return c.fetchCollection(ctx, CollectionParameterCodes, url.Values{})
}

// StatisticCodes fetches the statistic-codes lookup collection.
func (c *Client) StatisticCodes(ctx context.Context) ([]byte, error) {
	return c.fetchCollection(ctx, CollectionStatisticCodes, url.Values{})
}

// DailyValues fetches the daily collection for the given sites over the given
// window. Site IDs are split into batches of the configured size, one request
// chain per batch, and all pages are concatenated into a single document.
// Rows are keyed, so batch and page order never affect the final set.
func (c *Client) DailyValues(ctx context.Context, siteIDs []string, window domain.Window) ([]byte, error) {
	if len(siteIDs) == 0 {
		return nil, fmt.Errorf("fetch daily values: no site identifiers")
	}

	batches := chunk(siteIDs, c.batchSize)
	c.logger.Info("fetching daily values",
		"sites", len(siteIDs),
		"batches", len(batches),
		"window", window.String(),
	)

	var combined document
	for i, batch := range batches {
		params := url.Values{}
		params.Set("monitoring_location_id", strings.Join(batch, ","))
		params.Set("parameter_code", strings.Join(c.parameterCodes, ","))
		if c.statisticCode != "" {
			params.Set("statistic_id", c.statisticCode)
		}
		params.Set("time", window.String())

		doc, err := c.fetchPages(ctx, CollectionDaily, params)
		if err != nil {
			return nil, fmt.Errorf("fetch daily values batch %d/%d: %w", i+1, len(batches), err)
		}
		combined.merge(doc)
	}

	c.logger.Info("daily values fetched", "features", len(combined.features))
	return combined.bytes()
}

// fetchCollection fetches one collection, following pagination, and returns
// the combined document bytes.
func (c *Client) fetchCollection(ctx context.Context, name string, params url.Values) ([]byte, error) {
	doc, err := c.fetchPages(ctx, name, params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	c.logger.Info("collection fetched", "collection", name, "features", len(doc.features))
	return doc.bytes()
}

// fetchPages walks a collection's pages via "next" links, accumulating
// features and keeping the first page's top-level metadata.
func (c *Client) fetchPages(ctx context.Context, name string, params url.Values) (document, error) {
	params.Set("f", "json")
	params.Set("limit", fmt.Sprintf("%d", pageLimit))

	pageURL := fmt.Sprintf("%s/collections/%s/items?%s", c.baseURL, name, params.Encode())

	var doc document
	for pageURL != "" {
		body, err := c.get(ctx, name, pageURL)
		if err != nil {
			return document{}, err
		}

		var pg page
		if err := json.Unmarshal(body, &pg); err != nil {
			return document{}, fmt.Errorf("decode page: %w", err)
		}
		var meta map[string]json.RawMessage
		if err := json.Unmarshal(body, &meta); err != nil {
			return document{}, fmt.Errorf("decode page metadata: %w", err)
		}
		delete(meta, "features")
		delete(meta, "links")
		delete(meta, "numberReturned")

		doc.merge(document{meta: meta, features: pg.Features})
		c.metrics.PagesFetched.WithLabelValues(name).Inc()
		c.logger.Debug("page fetched", "collection", name, "features", len(pg.Features))

		pageURL = nextLink(pg.Links)
	}
	return doc, nil
}

// get performs one rate-limited request and returns the response body.
func (c *Client) get(ctx context.Context, name, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("USGS API error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

// page is the wire shape needed for pagination and recombination; features
// stay raw so the combined artifact preserves the source verbatim.
type page struct {
	Features []json.RawMessage `json:"features"`
	Links    []domain.Link     `json:"links"`
}

// document accumulates features across pages and batches, keeping the first
// page's metadata for the combined output.
type document struct {
	meta     map[string]json.RawMessage
	features []json.RawMessage
}

func (d *document) merge(other document) {
	if d.meta == nil {
		d.meta = other.meta
	}
	d.features = append(d.features, other.features...)
}

// bytes renders the combined document as indented GeoJSON.
func (d *document) bytes() ([]byte, error) {
	out := make(map[string]any, len(d.meta)+2)
	for k, v := range d.meta {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "FeatureCollection"
	}
	features := d.features
	if features == nil {
		features = []json.RawMessage{}
	}
	out["features"] = features
	out["numberReturned"] = len(features)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode combined document: %w", err)
	}
	return data, nil
}

func nextLink(links []domain.Link) string {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
