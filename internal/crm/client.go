// Package crm provides the typed client for the CRM item store: get, list,
// create and patch against /items/{collection}[/{id}].
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

const (
	opGet    = "get"
	opList   = "list"
	opCreate = "create"
	opPatch  = "patch"

	maxErrorBody = 2048
)

// Store is the item store contract every workflow component depends on.
type Store interface {
	Get(ctx context.Context, collection, id string, fields ...string) (Record, error)
	List(ctx context.Context, collection string, q Query) ([]Record, error)
	Create(ctx context.Context, collection string, body map[string]any) (Record, error)
	Patch(ctx context.Context, collection, id string, body map[string]any) (Record, error)
}

// Client is the HTTP implementation of Store. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *logger.Logger
}

// NewClient creates a CRM client from configuration.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	timeout := cfg.GetCRMTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.GetCRMURL(), "/"),
		token:      cfg.GetCRMToken(),
		log:        log,
	}
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, collection, id string, fields ...string) (Record, error) {
	values := url.Values{}
	if len(fields) > 0 {
		values.Set("fields", strings.Join(fields, ","))
	}
	var rec Record
	if err := c.do(ctx, http.MethodGet, collection, id, values, nil, opGet, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List fetches the records matching q.
func (c *Client) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	var recs []Record
	if err := c.do(ctx, http.MethodGet, collection, "", q.Values(), nil, opList, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Create inserts a record and returns it as stored.
func (c *Client) Create(ctx context.Context, collection string, body map[string]any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, collection, "", nil, body, opCreate, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Patch merges body into the record. Fields not present in body are untouched.
func (c *Client) Patch(ctx context.Context, collection, id string, body map[string]any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPatch, collection, id, nil, body, opPatch, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, method, collection, id string, values url.Values, body map[string]any, op string, out any) error {
	reqURL := c.baseURL + "/items/" + url.PathEscape(collection)
	if id != "" {
		reqURL += "/" + url.PathEscape(id)
	}
	if len(values) > 0 {
		reqURL += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Collection: collection, Operation: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return &Error{Collection: collection, Operation: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamError("crm", op+" "+collection, err)
		return &Error{Collection: collection, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		crmErr := &Error{Collection: collection, Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode != http.StatusNotFound {
			c.log.UpstreamError("crm", op+" "+collection, crmErr)
		}
		return crmErr
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		if err == io.EOF {
			return nil
		}
		return &Error{Collection: collection, Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}

	dataDec := json.NewDecoder(bytes.NewReader(envelope.Data))
	dataDec.UseNumber()
	if err := dataDec.Decode(out); err != nil {
		return &Error{Collection: collection, Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// FindLatest returns the newest record matching filters. A missing record is
// reported through the bool, never as an error.
func FindLatest(ctx context.Context, store Store, collection string, filters ...Filter) (Record, bool, error) {
	recs, err := store.List(ctx, collection, Query{
		Filters: filters,
		Sort:    []string{NewestFirst},
		Limit:   1,
	})
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 || recs[0] == nil {
		return nil, false, nil
	}
	return recs[0], true, nil
}

// GetOptional fetches a record by id, mapping a 404 to (nil, false, nil).
func GetOptional(ctx context.Context, store Store, collection, id string, fields ...string) (Record, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, nil
	}
	rec, err := store.Get(ctx, collection, id, fields...)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec, true, nil
}
