package client

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

	"github.com/quillpoint/scraverify/internal/batch"
	"github.com/quillpoint/scraverify/internal/model"
)

// HTTPClient implements VerifyClient using the HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Verifications ---

func (c *HTTPClient) CreateVerification(ctx context.Context, req *CreateVerificationRequest) (*model.Session, error) {
	var session model.Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/verifications", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) ValidateBatch(ctx context.Context, content string) (*batch.Result, error) {
	var res batch.Result
	if err := c.doRaw(ctx, http.MethodPost, "/v1/batch/validate", content, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SubmitBatch(ctx context.Context, content string) (*BatchResponse, error) {
	var resp BatchResponse
	err := c.doRaw(ctx, http.MethodPost, "/v1/verifications/batch", content, &resp)
	if err != nil {
		// A rejected batch comes back as 422 with the row errors in the
		// body; surface those instead of a bare status error.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			if json.Unmarshal([]byte(apiErr.Message), &resp) == nil {
				return &resp, nil
			}
		}
		return nil, err
	}
	return &resp, nil
}

// --- Sessions ---

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*SessionStatus, error) {
	var status SessionStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	q := url.Values{}
	if req.UserID != "" {
		q.Set("user_id", req.UserID)
	}
	if len(req.Status) > 0 {
		q.Set("status", strings.Join(req.Status, ","))
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListScreenshots(ctx context.Context, sessionID string, refresh bool) ([]*model.Screenshot, error) {
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/screenshots"
	if refresh {
		path += "?refresh=1"
	}
	var resp struct {
		Screenshots []*model.Screenshot `json:"screenshots"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Screenshots, nil
}

// --- Records ---

func (c *HTTPClient) GetRecord(ctx context.Context, id int64) (*model.VerificationRecord, error) {
	var rec model.VerificationRecord
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/records/%d", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResponse, error) {
	q := url.Values{}
	if req.UserID != "" {
		q.Set("user_id", req.UserID)
	}
	if req.SessionID != "" {
		q.Set("session_id", req.SessionID)
	}
	if len(req.Status) > 0 {
		q.Set("status", strings.Join(req.Status, ","))
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/v1/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListRecordsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, id int64, userID string) error {
	path := fmt.Sprintf("/v1/records/%d", id)
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, bodyReader, contentType, result)
}

// doRaw performs an HTTP request with a plain-text body (batch uploads)
// and decodes the JSON response.
func (c *HTTPClient) doRaw(ctx context.Context, method, path, body string, result any) error {
	return c.do(ctx, method, path, strings.NewReader(body), "text/csv", result)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, bodyReader io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content, success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
