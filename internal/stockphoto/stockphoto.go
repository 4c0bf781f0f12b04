// Package stockphoto is a client for the stock photo provider API.
package stockphoto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DMarby/stockphotos/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Default endpoints, relative to the base url
const (
	DefaultImageEndpoint    = "stock_photos/"
	DefaultCategoryEndpoint = "categories/"
)

// Config configures the API client
type Config struct {
	BaseURL          string
	ImageEndpoint    string
	CategoryEndpoint string
	Token            string

	// RequestsPerSecond limits outgoing requests, 0 disables the limit
	RequestsPerSecond float64
	// Timeout for a single request, 0 means no timeout
	Timeout time.Duration
}

// Category is a stock photo category
type Category struct {
	ID          string  `json:"str_id"`
	DisplayName string  `json:"display_name"`
	Popularity  float64 `json:"popularity"`
}

// ImageList is the response of the image listing endpoint.
// Results are passed through without being interpreted.
type ImageList struct {
	Count          int               `json:"count"`
	Results        []json.RawMessage `json:"results"`
	ParentCategory string            `json:"parent_category"`
}

// StatusError is returned when the API responds with a non-2xx status code
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// Errors
var (
	ErrMalformedResponse = errors.New("malformed response")
)

var upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockphotos",
	Name:      "upstream_requests_total",
	Help:      "Requests made to the stock photo API, partitioned by endpoint and result.",
}, []string{"endpoint", "result"})

// Client talks to the stock photo API
type Client struct {
	imageURL    string
	categoryURL string
	token       string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// New returns a new Client
func New(cfg Config, tracer *tracing.Tracer) *Client {
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	imageEndpoint := cfg.ImageEndpoint
	if imageEndpoint == "" {
		imageEndpoint = DefaultImageEndpoint
	}

	categoryEndpoint := cfg.CategoryEndpoint
	if categoryEndpoint == "" {
		categoryEndpoint = DefaultCategoryEndpoint
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		imageURL:    baseURL + imageEndpoint + "category/",
		categoryURL: baseURL + categoryEndpoint,
		token:       cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tracer)),
		},
		limiter: limiter,
	}
}

// Categories returns every category the API knows about
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, "categories", c.categoryURL, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}

// Images returns the images in a category
func (c *Client) Images(ctx context.Context, categoryID string) (*ImageList, error) {
	var list ImageList
	if err := c.get(ctx, "images", c.imageURL+url.PathEscape(categoryID)+"/", &list); err != nil {
		return nil, err
	}

	return &list, nil
}

func (c *Client) get(ctx context.Context, endpoint, target string, v interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		upstreamRequests.WithLabelValues(endpoint, "status").Inc()
		return &StatusError{URL: target, Code: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		upstreamRequests.WithLabelValues(endpoint, "malformed").Inc()
		return fmt.Errorf("%w from %s: %s", ErrMalformedResponse, target, err)
	}

	upstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
