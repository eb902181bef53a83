// Package airtable is a client and polling cache for the external Airtable
// base that holds buyer leads. The API paginates with an opaque offset
// cursor: each page's response may carry an offset that must be echoed on
// the next request, and pagination ends exactly when the response omits it.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/pkg/httpretry"
)

// Client is the Airtable REST API client.
type Client struct {
	baseURL    string
	baseID     string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates an Airtable client for one base.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		baseID:  cfg.BaseID,
		apiKey:  cfg.APIKey,
		httpClient: httpretry.New(&http.Client{
			Timeout: timeout,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request and returns the raw body.
// Non-2xx responses are surfaced with the API's error message and status.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	reqURL := fmt.Sprintf("%s/%s%s", c.baseURL, c.baseID, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			return nil, &APIError{Status: resp.StatusCode, Type: ae.Error.Type, Message: ae.Error.Message}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// APIError is a non-2xx response from the Airtable API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable: status %d: %s", e.Status, e.Message)
}

// ListOptions controls one page of a List call.
type ListOptions struct {
	PageSize        int
	Offset          string
	View            string
	FilterByFormula string
}

// ListPage fetches one page of records from a table. The returned offset
// is non-empty when more pages remain.
func (c *Client) ListPage(ctx context.Context, table string, opts ListOptions) ([]Record, string, error) {
	params := url.Values{}
	if opts.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Offset != "" {
		params.Set("offset", opts.Offset)
	}
	if opts.View != "" {
		params.Set("view", opts.View)
	}
	if opts.FilterByFormula != "" {
		params.Set("filterByFormula", opts.FilterByFormula)
	}

	endpoint := "/" + url.PathEscape(table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}

	var page listResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, "", fmt.Errorf("parse list response: %w", err)
	}
	return page.Records, page.Offset, nil
}

// ListAll follows the offset cursor until the server omits it,
// concatenating every page.
func (c *Client) ListAll(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		opts.Offset = offset
		records, next, err := c.ListPage(ctx, table, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if next == "" {
			return all, nil
		}
		offset = next
	}
}

// Get fetches a single record by ID.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(table)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &rec, nil
}

// Create inserts a new record and returns it with its assigned ID.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "/"+url.PathEscape(table), map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &rec, nil
}

// Update patches fields on an existing record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	respBody, err := c.doRequest(ctx, http.MethodPatch, "/"+url.PathEscape(table)+"/"+url.PathEscape(id), map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/"+url.PathEscape(table)+"/"+url.PathEscape(id), nil)
	return err
}

func formatInt(i int64) string { return strconv.FormatInt(i, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
