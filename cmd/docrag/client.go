package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/docrag/internal/models"
)

// apiClient talks to a running docrag server, so the CLI does not open the
// catalog and snapshot while the server holds them.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

// apiError is a non-2xx response. Result holds the server's explanation when
// the body was a structured error.
type apiError struct {
	Status int
	Result models.ErrorResult
}

func (e *apiError) Error() string {
	if e.Result.Error != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Result.Error)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &apiErr.Result) != nil || apiErr.Result.Error == "" {
			apiErr.Result = models.ErrorResult{Error: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(b))}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) search(ctx context.Context, req models.QueryRequest) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) list(ctx context.Context) ([]models.ListedDocument, error) {
	var out []models.ListedDocument
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) clear(ctx context.Context) (*models.ClearResult, error) {
	var out models.ClearResult
	if err := c.do(ctx, http.MethodDelete, "/api/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) status(ctx context.Context) (*models.Status, error) {
	var out struct {
		Status *models.Status `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	if out.Status == nil {
		return nil, fmt.Errorf("decode response: missing status")
	}
	return out.Status, nil
}
