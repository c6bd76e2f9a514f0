package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNotFound is returned when a record or security code does not exist.
var ErrNotFound = errors.New("not found")

// AuditEntry is one step in a record's admin chain.
type AuditEntry struct {
	AdminID   string    `json:"admin_id"`
	Role      string    `json:"role"`
	Actions   []string  `json:"actions"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a student certificate record as returned by the registrar API.
type Record struct {
	StudentID          string       `json:"student_id"`
	Name               string       `json:"name"`
	Major              string       `json:"major"`
	BirthDate          string       `json:"birth_date,omitempty"`
	CGPA               *float64     `json:"cgpa,omitempty"`
	AdminChain         []AuditEntry `json:"admin_chain,omitempty"`
	Finalized          bool         `json:"finalized"`
	CertificateSerial  string       `json:"certificate_serial,omitempty"`
	SecurityHex        string       `json:"security_hex,omitempty"`
	BlockHash          string       `json:"block_hash,omitempty"`
	Timestamp          time.Time    `json:"timestamp"`
	TimestampFinalized *time.Time   `json:"timestamp_finalized,omitempty"`
}

// VerifyResult is the public verification response. HashValid reports whether
// the stored block hash still matches the record content.
type VerifyResult struct {
	Record    Record `json:"record"`
	HashValid bool   `json:"hash_valid"`
}

// CreateRecordRequest is the payload for CreateRecord. BirthDate and CGPA are
// honored only for roles permitted to set them at creation.
type CreateRecordRequest struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	Major     string   `json:"major"`
	BirthDate string   `json:"birth_date,omitempty"`
	CGPA      *float64 `json:"cgpa,omitempty"`
}

// EditRecordRequest is the payload for EditRecord. Nil fields are untouched.
type EditRecordRequest struct {
	Name      *string  `json:"name,omitempty"`
	Major     *string  `json:"major,omitempty"`
	BirthDate *string  `json:"birth_date,omitempty"`
	CGPA      *float64 `json:"cgpa,omitempty"`
}

// LoginResult holds the session token and the authenticated admin's identity.
type LoginResult struct {
	Token string         `json:"token"`
	Admin map[string]any `json:"admin"`
}

// Client is the certchain SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *verifyCache

	// token state — guarded by mu
	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a pre-obtained session token to every request,
// skipping Login.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithCacheTTL enables in-memory caching of verification results with the
// given TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newVerifyCache(ttl)
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development against a self-signed registrar.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a new certchain SDK Client connected to baseURL.
//
//	c, err := client.New("https://registrar.example.edu",
//	    client.WithCacheTTL(60*time.Second),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Login exchanges admin credentials for a session token and caches it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, adminID, password string) (*LoginResult, error) {
	payload, _ := json.Marshal(map[string]string{"admin_id": adminID, "password": password})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", payload)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	c.mu.Lock()
	c.bearerToken = result.Token
	c.mu.Unlock()
	return &result, nil
}

// Verify looks up a finalized certificate by its security code. No
// authentication is required. Returns ErrNotFound for unknown codes.
func (c *Client) Verify(ctx context.Context, code string) (*VerifyResult, error) {
	if c.cache != nil {
		if result, ok := c.cache.get(code); ok {
			return result, nil
		}
	}

	path := "/api/v1/verify?code=" + url.QueryEscape(code)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result VerifyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	if c.cache != nil {
		c.cache.set(code, &result)
	}
	return &result, nil
}

// CreateRecord registers a new draft. Requires a session with the entry or
// chief role.
func (c *Client) CreateRecord(ctx context.Context, reg CreateRecordRequest) (*Record, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/records", payload)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &rec, nil
}

// EditRecord applies field changes to a draft. Fields the session's role may
// not touch are ignored server-side.
func (c *Client) EditRecord(ctx context.Context, studentID string, edit EditRecordRequest) (*Record, error) {
	payload, err := json.Marshal(edit)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/v1/records/"+url.PathEscape(studentID), payload)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &rec, nil
}

// FinalizeRecord performs the one-way draft to finalized transition and
// returns the sealed record including its serial, security code, and block
// hash.
func (c *Client) FinalizeRecord(ctx context.Context, studentID string) (*Record, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/records/"+url.PathEscape(studentID)+"/finalize", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &rec, nil
}

// GetRecord fetches the full record including the admin chain. Requires a
// session with the chief role.
func (c *Client) GetRecord(ctx context.Context, studentID string) (*Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/records/"+url.PathEscape(studentID), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &rec, nil
}

// GetAuditLog fetches the ordered admin chain for a record. Requires a
// session with the chief role.
func (c *Client) GetAuditLog(ctx context.Context, studentID string) ([]AuditEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/records/"+url.PathEscape(studentID)+"/log", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		AdminChain []AuditEntry `json:"admin_chain"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode audit log response: %w", err)
	}
	return wrapper.AdminChain, nil
}

// ListRecords returns all records, drafts and finals combined.
func (c *Client) ListRecords(ctx context.Context) ([]Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/records", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Records []Record `json:"records"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return wrapper.Records, nil
}

// newRequest builds an HTTP request against the registrar base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes an HTTP request, attaching the session token if present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	token := c.bearerToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: %s", string(body))
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("forbidden: %s", string(body))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// --- simple in-memory verification cache ---

type cacheEntry struct {
	result    *VerifyResult
	expiresAt time.Time
}

type verifyCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newVerifyCache(ttl time.Duration) *verifyCache {
	return &verifyCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (vc *verifyCache) get(key string) (*VerifyResult, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	e, ok := vc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (vc *verifyCache) set(key string, result *VerifyResult) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries[key] = &cacheEntry{result: result, expiresAt: time.Now().Add(vc.ttl)}
}
