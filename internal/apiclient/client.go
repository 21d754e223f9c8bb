package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"jewelflow/internal/session"
	"jewelflow/pkg/apierror"
)

const (
	HeaderRequestID = "X-Request-ID"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client issues requests against the admin API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *session.Manager
	log       *slog.Logger
	onInvalid func(error)

	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSessionInvalidHandler registers fn to run after the session has been
// torn down because a refresh failed.
func WithSessionInvalidHandler(fn func(error)) Option {
	return func(c *Client) {
		c.onInvalid = fn
	}
}

func New(baseURL string, sess *session.Manager, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("apiclient: session manager is required")
	}

	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: sess,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Session() *session.Manager {
	return c.session
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends body as JSON and decodes a successful response into out. Either
// may be nil. Failures are returned as *apierror.APIError.
func (c *Client) Do(ctx context.Context, method string, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = data
	}

	resp, err := c.send(ctx, method, path, payload, true)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

type response struct {
	status int
	body   []byte
}

// send performs one logical request. allowRefresh is the per-request
// one-shot flag; it is cleared before the retry.
func (c *Client) send(ctx context.Context, method string, path string, payload []byte, allowRefresh bool) (*response, error) {
	authEndpoint := IsAuthEndpoint(path)

	var tok *oauth2.Token
	if !authEndpoint {
		// No token is not an error; the server decides.
		tok, _ = c.session.Token()
	}

	resp, requestID, err := c.roundTrip(ctx, method, path, payload, tok)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && tok != nil {
		if allowRefresh {
			c.log.Debug("access token rejected, refreshing", "request_id", requestID, "method", method, "path", path)

			if err := c.refreshAccess(ctx, tok); err != nil {
				return nil, err
			}
			return c.send(ctx, method, path, payload, false)
		}

		// The token from the refresh was rejected too.
		expired := apierror.SessionExpired(sessionExpiredMessage, classify(path, resp.status, resp.body))
		c.expire(tok.RefreshToken, expired)
		return nil, expired
	}

	if resp.status == http.StatusUnauthorized && !allowRefresh && !authEndpoint {
		// The session ended between the refresh and the retry.
		return nil, apierror.SessionExpired(sessionExpiredMessage, classify(path, resp.status, resp.body))
	}

	if resp.status >= http.StatusBadRequest {
		return nil, classify(path, resp.status, resp.body)
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, payload []byte, tok *oauth2.Token) (*response, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("build %s %s: %w", method, path, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "request_id", requestID, "method", method, "path", path, "error", err)
		return nil, requestID, apierror.Network(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, requestID, apierror.Network(fmt.Errorf("read response body: %w", err))
	}

	c.log.Debug("request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)

	return &response{status: res.StatusCode, body: data}, requestID, nil
}

func decode(resp *response, out any) error {
	if out == nil || resp.status == http.StatusNoContent || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &apierror.APIError{
			Kind:       apierror.KindServer,
			Code:       "INVALID_RESPONSE",
			Message:    "response body is not valid JSON",
			HTTPStatus: resp.status,
			Err:        err,
		}
	}
	return nil
}
