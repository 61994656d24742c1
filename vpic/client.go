// Package vpic fetches make and model reference data from the NHTSA vPIC API.
package vpic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public vPIC vehicles endpoint.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

// ErrUnexpectedStatus is returned when vPIC answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("vpic: unexpected status")

// Make is one entry of GetAllMakes.
type Make struct {
	ID   int    `json:"Make_ID"`
	Name string `json:"Make_Name"`
}

// Model is one entry of GetModelsForMakeId.
type Model struct {
	MakeID   int    `json:"Make_ID"`
	MakeName string `json:"Make_Name"`
	ID       int    `json:"Model_ID"`
	Name     string `json:"Model_Name"`
}

type envelope[T any] struct {
	Count   int    `json:"Count"`
	Message string `json:"Message"`
	Results []T    `json:"Results"`
}

type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit throttles requests to rps per second. A non-positive rps
// leaves the client unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		userAgent: "car-perfector-vpic-import/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMakes returns every make vPIC knows about.
func (c *Client) FetchMakes(ctx context.Context) ([]Make, error) {
	var env envelope[Make]
	if err := c.get(ctx, "/GetAllMakes", &env); err != nil {
		return nil, fmt.Errorf("fetch makes: %w", err)
	}
	return env.Results, nil
}

// FetchModelsForMake returns the models registered under makeID.
func (c *Client) FetchModelsForMake(ctx context.Context, makeID int) ([]Model, error) {
	var env envelope[Model]
	if err := c.get(ctx, fmt.Sprintf("/GetModelsForMakeId/%d", makeID), &env); err != nil {
		return nil, fmt.Errorf("fetch models for make %d: %w", makeID, err)
	}
	return env.Results, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?format=json", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
