// Package apiclient calls the travel planner HTTP API.
package apiclient

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

	"travelplanner/internal/util"
	"travelplanner/pkg/domain"
)

// Client calls the planner API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx API response. Message holds the body's "message"
// field and is empty when the server sent none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api responded %d %s", e.Status, http.StatusText(e.Status))
}

// AuthResult is the login/signup response.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// NewClient constructs an API client. baseURL includes the /api prefix.
// A zero timeout leaves requests bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (AuthResult, error) {
	var resp AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", creds, &resp); err != nil {
		return AuthResult{}, err
	}
	return resp, nil
}

func (c *Client) Signup(ctx context.Context, data domain.SignupData) (AuthResult, error) {
	var resp AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", "", data, &resp); err != nil {
		return AuthResult{}, err
	}
	return resp, nil
}

func (c *Client) CreatePlan(ctx context.Context, token string, input domain.PlanInput) (domain.Plan, error) {
	var resp struct {
		Plan domain.Plan `json:"plan"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/plans/create", token, input, &resp); err != nil {
		return nil, err
	}
	return resp.Plan, nil
}

func (c *Client) ListPlans(ctx context.Context, token string) ([]domain.Plan, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/plans", token, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw, "plans")
}

// GetPlan reads one plan. The API answers with the bare plan object; a
// {"plan": {...}} envelope is accepted too.
func (c *Client) GetPlan(ctx context.Context, token, planID string) (domain.Plan, error) {
	var raw json.RawMessage
	path := "/plans/" + url.PathEscape(planID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRecord(raw, "plan")
}

func (c *Client) DeletePlan(ctx context.Context, token, planID string) error {
	path := "/plans/" + url.PathEscape(planID)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

// ListPublicPlans lists every public plan, most liked first. No auth needed.
func (c *Client) ListPublicPlans(ctx context.Context) ([]domain.Plan, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/plans/public", "", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw, "plans")
}

// LikePlan likes a public plan and returns its new like count.
func (c *Client) LikePlan(ctx context.Context, token, planID string) (int64, error) {
	var resp struct {
		Likes json.Number `json:"likes"`
	}
	path := "/plans/" + url.PathEscape(planID) + "/like"
	if err := c.doJSON(ctx, http.MethodPost, path, token, struct{}{}, &resp); err != nil {
		return 0, err
	}
	if resp.Likes == "" {
		return 0, nil
	}
	likes, err := resp.Likes.Int64()
	if err != nil {
		return 0, fmt.Errorf("decode likes: %w", err)
	}
	return likes, nil
}

func (c *Client) ListFavorites(ctx context.Context, token string) ([]domain.Favorite, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/favorites", token, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw, "favorites")
}

func (c *Client) AddFavorite(ctx context.Context, token, planID string) (domain.Favorite, error) {
	var resp struct {
		Favorite domain.Favorite `json:"favorite"`
	}
	path := "/favorites/" + url.PathEscape(planID)
	if err := c.doJSON(ctx, http.MethodPost, path, token, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Favorite, nil
}

func (c *Client) RemoveFavorite(ctx context.Context, token, favoriteID string) error {
	path := "/favorites/" + url.PathEscape(favoriteID)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

// Health calls the unauthenticated liveness endpoint.
func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var h domain.Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", "", nil, &h); err != nil {
		return domain.Health{}, err
	}
	return h, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, token)
	requestID := util.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = util.NewID()
	}
	req.Header.Set(util.RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.LoggerFromContext(ctx).Debug("api request failed", "method", method, "path", path, "err", err)
		return err
	}
	defer resp.Body.Close()
	util.LoggerFromContext(ctx).Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(errResp.Message)}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeList accepts either {"<key>": [...]} or a bare JSON array.
func decodeList(raw json.RawMessage, key string) ([]domain.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []domain.Record{}, nil
	}
	if trimmed[0] != '[' {
		var envelope map[string]json.RawMessage
		if err := unmarshalNumbers(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode %s envelope: %w", key, err)
		}
		trimmed = bytes.TrimSpace(envelope[key])
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return []domain.Record{}, nil
		}
	}
	var items []domain.Record
	if err := unmarshalNumbers(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

// decodeRecord accepts either {"<key>": {...}} or the bare object.
func decodeRecord(raw json.RawMessage, key string) (domain.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var rec domain.Record
	if err := unmarshalNumbers(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if _, hasID := rec["id"]; !hasID {
		if inner, ok := rec[key].(map[string]any); ok {
			return domain.Record(inner), nil
		}
	}
	return rec, nil
}

func unmarshalNumbers(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
