// Package apiclient provides the REST API client used by lhubctl and the
// worker session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// DefaultTimeout bounds one request, image downloads included.
const DefaultTimeout = 30 * time.Second

// Client is the labelhub API client. A Client carries at most one worker
// token and is safe for concurrent use once configured.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithToken returns a new client with the given token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		token:      token,
	}
}

// SetToken sets the worker token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the worker token, or "".
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request is one API call.
type request struct {
	method string
	path   string
	body   any
	header map[string]string
	accept string
}

// send performs req and returns the response body of a 2xx answer.
//
// Transport failures become NetworkError; error answers become *APIError,
// which unwraps to the matching lherrors code.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	ctx, span := telemetry.StartClientSpan(ctx, req.method, req.path)
	defer span.End()

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	telemetry.SetAttributes(ctx, telemetry.RequestID(requestID))

	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}
	telemetry.InjectHTTP(ctx, httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, lherrors.NewNetworkError(req.method+" "+req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, lherrors.NewNetworkError("read "+req.path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}

	return respBody, nil
}

// do performs a JSON request and decodes the response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	respBody, err := c.send(ctx, request{method: method, path: path, body: body})
	if err != nil {
		return err
	}

	if result != nil && len(respBody) > 0 {
		return decodeBody(respBody, path, result)
	}

	return nil
}

func decodeBody(data []byte, path string, result any) error {
	if err := json.Unmarshal(data, result); err != nil {
		return lherrors.NewDataFormatError("response of "+path, err)
	}
	return nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// put performs a PUT request.
func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}
