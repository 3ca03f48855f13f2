package dishes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single request when the caller does not pass an
// *http.Client of its own.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is kept for the message.
const maxErrorBody = 4 << 10

// ErrNotFound is returned by Get when the service answers 404.
var ErrNotFound = errors.New("dish not found")

// APIError is a non-2xx answer from the dish service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dish service: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("dish service: %d: %s", e.Status, e.Message)
}

// Client talks to the dish data service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client rooted at baseURL (for example
// "http://localhost:3000/api").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("service url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type listEnvelope struct {
	Items []Record `json:"items"`
	Meta  struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// List fetches one page of dishes.
func (c *Client) List(ctx context.Context, p ListParams) (ResultPage, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/dishes", p.Query(), nil, &env); err != nil {
		return ResultPage{}, err
	}
	return ResultPage{Items: env.Items, Total: env.Meta.Total}, nil
}

// Get fetches a single dish by id.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, errors.New("dish id is required")
	}
	var env dataEnvelope[Record]
	err := c.do(ctx, http.MethodGet, "/dishes/"+url.PathEscape(id), nil, nil, &env)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, err
	}
	return env.Data, nil
}

// Autosuggest returns up to limit suggestions for text matched against by.
func (c *Client) Autosuggest(ctx context.Context, text string, by Dimension, limit int) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("by", string(by))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var env dataEnvelope[[]Suggestion]
	if err := c.do(ctx, http.MethodGet, "/dishes/autosuggest", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Ingredients returns every ingredient known to the service.
func (c *Client) Ingredients(ctx context.Context) ([]string, error) {
	var env dataEnvelope[[]string]
	if err := c.do(ctx, http.MethodGet, "/dishes/ingredients", nil, nil, &env); err != nil {
		return nil, err
	}
	return cleanTokens(env.Data), nil
}

// RecommendRequest is the body of POST /dishes/from-ingredients.
type RecommendRequest struct {
	Ingredients []string `json:"ingredients"`
	Match       string   `json:"match"`
}

// NewRecommendRequest builds a request with the ingredients sorted so the
// payload does not depend on selection order.
func NewRecommendRequest(ingredients []string, mode MatchMode) RecommendRequest {
	sorted := append([]string(nil), ingredients...)
	sort.Strings(sorted)
	return RecommendRequest{Ingredients: sorted, Match: mode.Wire()}
}

// FromIngredients returns dishes that can be made from the ingredients.
func (c *Client) FromIngredients(ctx context.Context, ingredients []string, mode MatchMode) ([]Record, error) {
	if len(ingredients) == 0 {
		return nil, errors.New("at least one ingredient is required")
	}
	body, err := json.Marshal(NewRecommendRequest(ingredients, mode))
	if err != nil {
		return nil, fmt.Errorf("encode recommend request: %w", err)
	}
	var env dataEnvelope[[]Record]
	if err := c.do(ctx, http.MethodPost, "/dishes/from-ingredients", nil, body, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListURL returns the service URL List would call, for display.
func (c *Client) ListURL(p ListParams) string {
	return c.endpoint("/dishes", p.Query())
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("dish service request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &env) == nil {
		apiErr.Message = env.Message
		if apiErr.Message == "" {
			apiErr.Message = env.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
