package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
)

const defaultTimeout = 30 * time.Second

// Config holds partner connection settings.
type Config struct {
	BaseURL   string
	SecretKey string
	AESKey    string
	Timeout   time.Duration
	UserAgent string
}

// Client calls the partner's internal API using the signed envelope protocol.
type Client struct {
	baseURL string
	secret  string
	aesKey  string
	ua      string
	http    *http.Client
	now     func() time.Time
}

// NewClient creates a new partner client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		aesKey:  cfg.AESKey,
		ua:      cfg.UserAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		now: time.Now,
	}
}

// Post sends an encrypted POST and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, payload, true, out)
}

// Put sends an encrypted PUT and decodes the envelope data into out.
func (c *Client) Put(ctx context.Context, path string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, payload, true, out)
}

// PostPlain sends a signed but unencrypted POST.
func (c *Client) PostPlain(ctx context.Context, path string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, payload, false, out)
}

// Get sends a signed GET. The signature covers the empty string.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, false, out)
}

// SyncUser pushes a local user to the partner.
func (c *Client) SyncUser(ctx context.Context, p SyncUserPayload) (*SyncUserResult, error) {
	var res SyncUserResult
	if err := c.Post(ctx, "/api/v1/internal/sync-user", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateUser sends a partial user update to the partner.
func (c *Client) UpdateUser(ctx context.Context, fields map[string]interface{}) error {
	return c.Post(ctx, "/api/v1/internal/update-user", fields, nil)
}

// DeleteUser removes a user on the partner side.
func (c *Client) DeleteUser(ctx context.Context, bizhubUserID string) error {
	return c.Post(ctx, "/api/v1/internal/delete-user", map[string]string{"bizhub_user_id": bizhubUserID}, nil)
}

// GetShopList returns the shops bound to userID on the partner side.
func (c *Client) GetShopList(ctx context.Context, userID string, idType IDType) ([]Shop, error) {
	if idType == "" {
		idType = IDTypeBizhub
	}

	var res ShopList
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("id_type", string(idType))
	if err := c.Get(ctx, "/api/v1/internal/shop/list", q, &res); err != nil {
		return nil, err
	}

	log.Debug().
		Str("user_id", userID).
		Int("shop_count", len(res.Shops)).
		Msg("partner shop list fetched")

	return res.Shops, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, encrypt bool, out interface{}) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("%w: client is nil", ErrRequest)
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return fmt.Errorf("%w: base_url is empty", ErrConfig)
	}
	if strings.TrimSpace(c.secret) == "" {
		return fmt.Errorf("%w: secret is empty", ErrConfig)
	}

	var body []byte
	signed := ""
	if payload != nil && method != http.MethodGet {
		if encrypt {
			blob, err := envelope.Encrypt(payload, c.aesKey)
			if err != nil {
				return err
			}
			body, err = json.Marshal(envelope.EncryptedBody{EncryptedData: blob})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrRequest, err)
			}
			signed = blob
		} else {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrRequest, err)
			}
			signed = string(body)
		}
	}

	headers, err := envelope.Headers(signed, c.secret, c.now())
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if readErr != nil {
			return &RemoteError{Status: resp.StatusCode, Body: fmt.Sprintf("<failed to read body: %v>", readErr)}
		}
		return &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}
	if readErr != nil {
		return classifyRequestError(ctx, readErr)
	}

	plain, err := c.openResponse(raw)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrRequest, err)
	}
	if env.Code != http.StatusOK {
		return &RemoteError{Status: env.Code, Body: env.Msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrRequest, err)
	}
	return nil
}

// openResponse returns the decrypted envelope when the body is an
// encrypted_data wrapper, otherwise the body unchanged.
func (c *Client) openResponse(raw []byte) ([]byte, error) {
	var wrapped envelope.EncryptedBody
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.EncryptedData == "" {
		return raw, nil
	}
	return envelope.Decrypt(wrapped.EncryptedData, c.aesKey)
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return fmt.Errorf("%w: %v", ErrRequest, err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	return false
}
