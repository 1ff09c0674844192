package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"loresmith-backend/shared/database/models/document"
)

// Client is a thin JSON client for the document API. Successful responses are
// reconciled into the attached State so the cache tracks what the server
// last said.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	state   *State
}

func New(baseURL, token string, state *State) *Client {
	if state == nil {
		state = NewState()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		state:   state,
	}
}

func (c *Client) State() *State {
	return c.state
}

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   int64           `json:"total"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Error.Message}
		if apiErr.Message == "" {
			apiErr.Message = env.Message
		}
		c.state.SetError(apiErr.Message)
		return nil, apiErr
	}

	return &env, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json")
}

// ListOptions mirror the server-side list filters
type ListOptions struct {
	Page     int
	Limit    int
	Status   string
	Category string
	Tag      string
	Search   string
	Favorite *bool
}

func (o ListOptions) query() string {
	values := url.Values{}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		values.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Status != "" {
		values.Set("status", o.Status)
	}
	if o.Category != "" {
		values.Set("category", o.Category)
	}
	if o.Tag != "" {
		values.Set("tag", o.Tag)
	}
	if o.Search != "" {
		values.Set("search", o.Search)
	}
	if o.Favorite != nil {
		values.Set("favorite", strconv.FormatBool(*o.Favorite))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// ListDocuments fetches a page and merges it into the state cache
func (c *Client) ListDocuments(ctx context.Context, opts ListOptions) ([]document.Document, int64, error) {
	c.state.SetLoading(true)
	env, err := c.do(ctx, http.MethodGet, "/api/documents"+opts.query(), nil, "")
	if err != nil {
		return nil, 0, err
	}

	var docs []document.Document
	if err := json.Unmarshal(env.Data, &docs); err != nil {
		c.state.SetError(err.Error())
		return nil, 0, err
	}

	c.state.UpsertAll(docs)
	c.state.SetLoading(false)
	return docs, env.Total, nil
}

// GetDocument fetches one document and caches it
func (c *Client) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/documents/"+id.String(), nil, "")
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(env.Data)
}

// UpdateDocument sends a partial update and reconciles the result
func (c *Client) UpdateDocument(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*document.Document, error) {
	env, err := c.doJSON(ctx, http.MethodPatch, "/api/documents/"+id.String(), fields)
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(env.Data)
}

// UpdateMetadata merges metadata keys server-side and reconciles the result
func (c *Client) UpdateMetadata(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*document.Document, error) {
	env, err := c.doJSON(ctx, http.MethodPatch, "/api/documents/"+id.String()+"/metadata", patch)
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(env.Data)
}

// ToggleFavorite flips the flag server-side. The cache is updated
// optimistically first, then reconciled with the response.
func (c *Client) ToggleFavorite(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	c.state.ToggleFavoriteLocal(id)
	env, err := c.doJSON(ctx, http.MethodPost, "/api/documents/"+id.String()+"/favorite", nil)
	if err != nil {
		c.state.ToggleFavoriteLocal(id)
		return nil, err
	}
	return c.decodeDocument(env.Data)
}

// DeleteDocument removes the document server-side and drops it from the cache
func (c *Client) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/documents/"+id.String(), nil, ""); err != nil {
		return err
	}
	c.state.Remove(id)
	return nil
}

// ProcessDocument asks the server to start processing
func (c *Client) ProcessDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/documents/"+id.String()+"/process", nil)
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(env.Data)
}

// DocumentStatus is the status/progress pair from the status endpoint
type DocumentStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

func (c *Client) GetStatus(ctx context.Context, id uuid.UUID) (*DocumentStatus, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/documents/"+id.String()+"/status", nil, "")
	if err != nil {
		return nil, err
	}
	var status DocumentStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BatchDelete removes several documents and prunes the cache
func (c *Client) BatchDelete(ctx context.Context, ids []uuid.UUID) error {
	payload := map[string]interface{}{"ids": idStrings(ids)}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/documents/batch/delete", payload); err != nil {
		return err
	}
	c.state.RemoveAll(ids)
	return nil
}

// BatchFavorite sets the favorite flag on several documents
func (c *Client) BatchFavorite(ctx context.Context, ids []uuid.UUID, isFavorite bool) error {
	payload := map[string]interface{}{"ids": idStrings(ids), "is_favorite": isFavorite}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/documents/batch/favorite", payload); err != nil {
		return err
	}
	for _, id := range ids {
		if doc, ok := c.state.Get(id); ok {
			doc.IsFavorite = isFavorite
			c.state.Upsert(doc)
		}
	}
	return nil
}

// BatchTags applies a tag operation and reconciles the returned documents
func (c *Client) BatchTags(ctx context.Context, ids []uuid.UUID, tags []string, operation string) ([]document.Document, error) {
	payload := map[string]interface{}{"ids": idStrings(ids), "tags": tags, "operation": operation}
	env, err := c.doJSON(ctx, http.MethodPost, "/api/documents/batch/tags", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Documents []document.Document `json:"documents"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, err
	}
	c.state.UpsertAll(result.Documents)
	return result.Documents, nil
}

func (c *Client) decodeDocument(data json.RawMessage) (*document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}
	c.state.Upsert(doc)
	return &doc, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
