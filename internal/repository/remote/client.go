// Package remote хранилища поверх REST API маркетплейса.
// Бэкенд владеет данными, сервис обращается к нему служебным токеном.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrUnavailable бэкенд недоступен или автомат разомкнут
var ErrUnavailable = errors.New("marketplace backend unavailable")

// StatusError ответ бэкенда с кодом 4xx/5xx
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Code, e.Message)
}

// envelope формат ответа API: {success, data, error, message, pagination}
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      json.RawMessage `json:"error"`
	Message    string          `json:"message"`
	Pagination *pagination     `json:"pagination"`
}

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// errorMessage достаёт текст ошибки: error бывает строкой или {message}
func (e envelope) errorMessage() string {
	if len(e.Error) > 0 {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return "an error occurred"
}

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Retries число повторов для идемпотентных запросов
	Retries uint64
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*envelope]
	retries uint64
	logger  *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "marketplace-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// ответы 4xx означают, что бэкенд жив
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Code < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[*envelope](settings),
		retries: cfg.Retries,
		logger:  logger,
	}
}

// get выполняет GET с повторами при недоступности бэкенда
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (*envelope, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var env *envelope
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		env, err = c.do(ctx, http.MethodGet, path, nil)
		if err != nil && errors.Is(err, ErrUnavailable) && !errors.Is(err, gobreaker.ErrOpenState) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return env, decodeData(env, out)
}

// send выполняет изменяющий запрос без повторов
func (c *Client) send(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	env, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return env, decodeData(env, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	env, err := c.breaker.Execute(func() (*envelope, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	var env envelope
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.errorMessage()
		if len(env.Error) == 0 && env.Message == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		statusErr := &StatusError{Code: resp.StatusCode, Message: msg}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, statusErr)
		}
		return nil, statusErr
	}

	return &env, nil
}

func decodeData(env *envelope, out any) error {
	if out == nil || env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

func pageQuery(q url.Values, page, limit int) {
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
}

func totalOf(env *envelope, fallback int) int {
	if env != nil && env.Pagination != nil {
		return env.Pagination.Total
	}
	return fallback
}
