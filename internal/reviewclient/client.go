// Package reviewclient talks to the review aggregation contract over HTTP.
package reviewclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/internal/reviewapi"
)

// Client defines the contract for reading and writing class reviews.
type Client interface {
	Fetch(ctx context.Context, classID string) (*reviewapi.ReviewsResponse, error)
	Submit(ctx context.Context, req reviewapi.SubmitRequest) (*reviewapi.Review, error)
}

// APIError is a non-retryable rejection from the service (4xx).
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("reviews: status %d", e.Status)
	}
	return fmt.Sprintf("reviews: %s (%d): %s", e.Code, e.Status, e.Message)
}

// TransportError covers failures the caller may retry: network errors,
// 5xx responses and an open circuit breaker.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("reviews: upstream returned %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("reviews: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable is always true for transport failures.
func (e *TransportError) Retryable() bool { return true }

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "reviews_client_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *zap.Logger
}

// NewHTTPClient constructs a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse reviews api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("reviews api url %q must be absolute", baseURL)
	}

	settings := gobreaker.Settings{
		Name:        "reviews-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var te *TransportError
			return err == nil || !errors.As(err, &te)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	breakerState.WithLabelValues(settings.Name).Set(0)

	return &HTTPClient{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
	}, nil
}

// Fetch retrieves a class's summary and reviews. A failure is always an
// error, never an empty result.
func (c *HTTPClient) Fetch(ctx context.Context, classID string) (*reviewapi.ReviewsResponse, error) {
	rel := &url.URL{Path: c.baseURL.Path + "/reviews"}
	q := rel.Query()
	q.Set("class_id", classID)
	rel.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(rel).String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var payload reviewapi.ReviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode reviews response: %w", err)
	}
	if payload.Reviews == nil {
		payload.Reviews = []reviewapi.Review{}
	}
	if payload.Summary != nil && payload.Summary.N == 0 {
		payload.Summary = nil
	}
	return &payload, nil
}

// Submit posts a review and returns the stored copy.
func (c *HTTPClient) Submit(ctx context.Context, sub reviewapi.SubmitRequest) (*reviewapi.Review, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + "/reviews"})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var stored reviewapi.Review
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode review response: %w", err)
	}
	return &stored, nil
}

// do sends req through the breaker. 5xx responses are drained and turned
// into TransportErrors so they count against the breaker.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			apiErr := decodeAPIError(resp)
			resp.Body.Close()
			return nil, &TransportError{Status: resp.StatusCode, Err: apiErr}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &TransportError{Err: err}
		}
		c.logger.Warn("reviews api request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(payload) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	var body reviewapi.ErrorResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(payload))
		return apiErr
	}
	apiErr.Code = body.Code
	apiErr.Message = body.Message
	apiErr.Fields = body.Fields
	return apiErr
}
