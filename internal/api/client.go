// Package api provides a client for the remote expense REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitlab.com/yelinaung/expense-client/internal/logger"
	"gitlab.com/yelinaung/expense-client/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "gitlab.com/yelinaung/expense-client/internal/api"

// ErrMissingToken is returned when an authenticated endpoint is called without a token.
var ErrMissingToken = errors.New("bearer token is required")

// ErrEmptyToken is returned when an auth endpoint succeeds without an access token.
var ErrEmptyToken = errors.New("access token missing in response")

// StatusError reports a non-2xx response. The response body is not inspected.
type StatusError struct {
	Operation  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: expense API returned status %d", e.Operation, e.StatusCode)
}

// Client talks JSON over HTTP to the expense API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	requests   metric.Int64Counter
}

// NewClient creates an expense API client. A zero timeout means requests
// are bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	requests, err := otel.Meter(instrumentationName).Int64Counter(
		"expense_api.requests",
		metric.WithDescription("Requests sent to the expense API by operation and outcome"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create request counter")
	}

	return &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		requests: requests,
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	return c.authenticate(ctx, "login", "/login", creds)
}

// Register creates an account and returns its bearer token.
func (c *Client) Register(ctx context.Context, creds models.Credentials) (string, error) {
	return c.authenticate(ctx, "register", "/register", creds)
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds models.Credentials) (string, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, op, http.MethodPost, path, "", creds, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return resp.AccessToken, nil
}

// ListExpenses fetches every expense visible to the token.
func (c *Client) ListExpenses(ctx context.Context, token string) ([]models.Expense, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	var expenses []models.Expense
	if err := c.do(ctx, "list_expenses", http.MethodGet, "/expenses", token, nil, &expenses); err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

// CreateExpense creates an expense and returns the server's record.
func (c *Client) CreateExpense(ctx context.Context, token string, in models.ExpenseInput) (models.Expense, error) {
	if token == "" {
		return models.Expense{}, ErrMissingToken
	}
	var created models.Expense
	if err := c.do(ctx, "create_expense", http.MethodPost, "/expenses", token, in, &created); err != nil {
		return models.Expense{}, err
	}
	return created, nil
}

// UpdateExpense replaces an expense and returns the server's record.
func (c *Client) UpdateExpense(ctx context.Context, token string, id int64, in models.ExpenseInput) (models.Expense, error) {
	if token == "" {
		return models.Expense{}, ErrMissingToken
	}
	var updated models.Expense
	if err := c.do(ctx, "update_expense", http.MethodPut, expensePath(id), token, in, &updated); err != nil {
		return models.Expense{}, err
	}
	return updated, nil
}

// DeleteExpense deletes an expense. Any 2xx response is success.
func (c *Client) DeleteExpense(ctx context.Context, token string, id int64) error {
	if token == "" {
		return ErrMissingToken
	}
	return c.do(ctx, "delete_expense", http.MethodDelete, expensePath(id), token, nil, nil)
}

func expensePath(id int64) string {
	return "/expenses/" + strconv.FormatInt(id, 10)
}

// do sends one request. body is JSON-encoded when non-nil; out is decoded
// from the response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) (err error) {
	defer func() { c.record(ctx, op, err) }()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Operation: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, op string, err error) {
	outcome := "success"
	var statusErr *StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		outcome = "status_" + strconv.Itoa(statusErr.StatusCode)
	default:
		outcome = "error"
	}

	logger.Log.Debug().
		Str("operation", op).
		Str("outcome", outcome).
		Msg("Expense API request finished")

	if c.requests == nil {
		return
	}
	c.requests.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
