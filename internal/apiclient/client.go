// Package apiclient is a rate-limited client for the symbol registry REST API.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"tickphysics-lab/internal/config"
	"tickphysics-lab/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	symbolsPath = "/api/v1/symbols"
	maxRetries  = 3
)

var (
	ErrNotFound = errors.New("symbol not found")
	ErrConflict = errors.New("symbol name already exists")
	ErrInvalid  = errors.New("request rejected as invalid")
)

// APIError is a non-retryable error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return ErrInvalid
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

// SymbolClient defines the operations of the symbol registry client.
type SymbolClient interface {
	ListSymbols(ctx context.Context, skip, limit int) ([]models.Symbol, error)
	GetSymbol(ctx context.Context, id uint) (*models.Symbol, error)
	CreateSymbol(ctx context.Context, name string, description *string) (*models.Symbol, error)
	UpdateSymbol(ctx context.Context, id uint, name, description *string) (*models.Symbol, error)
	DeleteSymbol(ctx context.Context, id uint) error
	Ready(ctx context.Context) error
}

// Client implements SymbolClient over resty.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration // first retry delay, doubled per attempt
}

// ensure Client implements the interface
var _ SymbolClient = (*Client)(nil)

// NewClient creates a new client for the server at cfg.BaseURL.
func NewClient(cfg *config.Client, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
		backoff: time.Second,
	}
}

// ListSymbols fetches one page of symbols.
func (c *Client) ListSymbols(ctx context.Context, skip, limit int) ([]models.Symbol, error) {
	var out []models.Symbol
	req := c.client.R().
		SetQueryParam("skip", strconv.Itoa(skip)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out)

	if _, err := c.doRequest(ctx, http.MethodGet, symbolsPath, req); err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	return out, nil
}

// GetSymbol fetches one symbol by id.
func (c *Client) GetSymbol(ctx context.Context, id uint) (*models.Symbol, error) {
	req := c.client.R().SetResult(&models.Symbol{})
	resp, err := c.doRequest(ctx, http.MethodGet, symbolPath(id), req)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol %d: %w", id, err)
	}
	return resp.Result().(*models.Symbol), nil
}

// CreateSymbol registers a new symbol.
func (c *Client) CreateSymbol(ctx context.Context, name string, description *string) (*models.Symbol, error) {
	body := map[string]interface{}{"name": name}
	if description != nil {
		body["description"] = *description
	}
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&models.Symbol{})

	resp, err := c.doRequest(ctx, http.MethodPost, symbolsPath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create symbol %q: %w", name, err)
	}
	result := resp.Result().(*models.Symbol)
	c.logger.Info("Created symbol", zap.Uint("id", result.ID), zap.String("name", result.Name))
	return result, nil
}

// UpdateSymbol renames a symbol and/or changes its description. Nil
// arguments are left unchanged.
func (c *Client) UpdateSymbol(ctx context.Context, id uint, name, description *string) (*models.Symbol, error) {
	body := make(map[string]interface{})
	if name != nil {
		body["name"] = *name
	}
	if description != nil {
		body["description"] = *description
	}
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&models.Symbol{})

	resp, err := c.doRequest(ctx, http.MethodPatch, symbolPath(id), req)
	if err != nil {
		return nil, fmt.Errorf("failed to update symbol %d: %w", id, err)
	}
	return resp.Result().(*models.Symbol), nil
}

// DeleteSymbol removes a symbol.
func (c *Client) DeleteSymbol(ctx context.Context, id uint) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, symbolPath(id), c.client.R()); err != nil {
		return fmt.Errorf("failed to delete symbol %d: %w", id, err)
	}
	return nil
}

// Ready probes the readiness endpoint once, without retries.
func (c *Client) Ready(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	resp, err := c.client.R().SetContext(ctx).Get("/health/ready")
	if err != nil {
		return fmt.Errorf("readiness probe failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server not ready: %s", resp.Status())
	}
	return nil
}

func symbolPath(id uint) string {
	return symbolsPath + "/" + strconv.FormatUint(uint64(id), 10)
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx).SetError(&errorBody{})
	// a POST may have committed before the failure, so only 429 is retried for it
	idempotent := method != http.MethodPost

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			shouldRetry = idempotent
		} else {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = idempotent
			}
			err = newAPIError(resp)
		}

		if !shouldRetry {
			return nil, err
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
