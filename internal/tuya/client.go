package tuya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// transientCode is the platform error code that warrants a single delayed
// retry with a freshly computed signature.
const transientCode = 501

// tokenSafetyMargin is shaved off the server-reported token lifetime so a
// request never leaves with a token about to expire mid-flight.
const tokenSafetyMargin = 60 * time.Second

var regionEndpoints = map[string]string{
	"us": "https://openapi.tuyaus.com",
	"eu": "https://openapi.tuyaeu.com",
	"cn": "https://openapi.tuyacn.com",
	"in": "https://openapi.tuyain.com",
}

// EndpointForRegion maps a Tuya data-center region code to its API base URL.
func EndpointForRegion(region string) (string, bool) {
	endpoint, ok := regionEndpoints[strings.ToLower(region)]
	return endpoint, ok
}

// Client signs and executes Tuya Cloud API calls, hiding token acquisition
// and refresh from callers.
type Client struct {
	accessID     string
	accessSecret string
	baseURL      *url.URL
	http         *http.Client
	retryWait    time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Tuya API client for the given base URL.
func New(accessID, accessSecret, rawURL string, timeout time.Duration) (*Client, error) {
	if accessID == "" || accessSecret == "" {
		return nil, fmt.Errorf("access id and secret are required")
	}
	if rawURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("base url must include scheme")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return &Client{
		accessID:     accessID,
		accessSecret: accessSecret,
		baseURL:      parsed,
		http: &http.Client{
			Timeout: timeout,
		},
		retryWait: time.Second,
	}, nil
}

// Get issues a signed GET and returns the platform result payload.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, path, nil, false)
}

// Post issues a signed POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPost, path, body, false)
}

// Put issues a signed PUT. A nil body sends an empty request.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPut, path, body, false)
}

// Delete issues a signed DELETE.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodDelete, path, nil, false)
}

// envelope is the response wrapper every Tuya endpoint uses. success=false
// is an error regardless of HTTP status.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	ExpireTime  int64  `json:"expire_time"`
}

// ensureToken returns a valid cached token, refreshing it when the cached
// one is missing or past its safety-margin expiry. The refresh is
// serialized behind the mutex so concurrent callers share one grant call.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	result, err := c.request(ctx, http.MethodGet, "/v1.0/token?grant_type=1", nil, true)
	if err != nil {
		return "", fmt.Errorf("acquire token: %w", err)
	}
	var grant tokenResult
	if err := json.Unmarshal(result, &grant); err != nil {
		return "", fmt.Errorf("decode token grant: %w", err)
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("token grant returned empty access_token")
	}

	c.token = grant.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(grant.ExpireTime)*time.Second - tokenSafetyMargin)
	return c.token, nil
}

// request executes one signed call with a bounded single retry on the
// transient platform code. Each attempt signs with a fresh timestamp and
// nonce. The request is dispatched with the normalized (query-sorted) path,
// matching what was signed.
func (c *Client) request(ctx context.Context, method, path string, body any, tokenCall bool) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		payload = encoded
	}

	token := ""
	if !tokenCall {
		acquired, err := c.ensureToken(ctx)
		if err != nil {
			return nil, err
		}
		token = acquired
	}

	signedPath := normalizePath(path)
	hash := bodyHash(payload)

	for attempt := 0; ; attempt++ {
		result, code, msg, err := c.dispatch(ctx, method, signedPath, payload, hash, token)
		if err != nil {
			return nil, err
		}
		if code == 0 {
			return result, nil
		}
		if code == transientCode && attempt == 0 {
			select {
			case <-time.After(c.retryWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		return nil, &APIError{Code: code, Msg: msg}
	}
}

// dispatch performs a single signed HTTP exchange. A zero returned code
// means the platform reported success.
func (c *Client) dispatch(ctx context.Context, method, signedPath string, payload []byte, hash, token string) (json.RawMessage, int, string, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := uuid.NewString()
	sign := signature(c.accessID, token, timestamp, nonce, stringToSign(method, hash, signedPath), c.accessSecret)

	var reader *bytes.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+signedPath, reader)
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("client_id", c.accessID)
	req.Header.Set("access_token", token)
	req.Header.Set("sign", sign)
	req.Header.Set("t", timestamp)
	req.Header.Set("nonce", nonce)
	req.Header.Set("sign_method", "HMAC-SHA256")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("tuya request %s %s: %w", method, signedPath, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, 0, "", fmt.Errorf("decode tuya response: %w", err)
	}
	if !env.Success {
		code := env.Code
		if code == 0 {
			code = -1
		}
		return nil, code, env.Msg, nil
	}
	return env.Result, 0, "", nil
}

// APIError is a structured platform failure (success=false envelope).
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tuya api error [%d]: %s", e.Code, e.Msg)
}
