package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Tunable request policy. Exact values are deliberately small; operators on
// slow links can live with three tries better than with a frozen screen.
const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	backoffBase    = 250 * time.Millisecond

	defaultUserAgent = "warden/0.1"
)

// Credentials carries the session credentials for both backend roles.
type Credentials struct {
	Username        string
	Password        string
	IndexerUsername string
	IndexerPassword string
}

// Options configure a Client.
type Options struct {
	ManagerURL  string
	IndexerURL  string
	Credentials Credentials
	InsecureTLS bool
}

// Client talks to the manager API and the alert indexer. It is safe for
// concurrent use; the session token is shared across both and refreshed by at
// most one goroutine at a time.
type Client struct {
	manager   *url.URL
	indexer   *url.URL
	creds     Credentials
	http      *http.Client
	userAgent string

	mu       sync.Mutex
	token    string
	tokenGen uint64 // bumped on every successful authentication
}

// NewClient builds a Client from the connection descriptor. The indexer URL
// may be empty; event and vulnerability queries then fail with KindValidation.
func NewClient(opts Options) (*Client, error) {
	manager, err := parseBaseURL(opts.ManagerURL)
	if err != nil {
		return nil, fmt.Errorf("manager url: %w", err)
	}
	var indexer *url.URL
	if strings.TrimSpace(opts.IndexerURL) != "" {
		indexer, err = parseBaseURL(opts.IndexerURL)
		if err != nil {
			return nil, fmt.Errorf("indexer url: %w", err)
		}
	}

	transport := http.DefaultTransport
	if opts.InsecureTLS {
		// Self-signed manager certs are the norm on appliance installs.
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		manager: manager,
		indexer: indexer,
		creds:   opts.Credentials,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Authenticate establishes the initial session. The application treats a
// failure here, with no prior session to fall back on, as fatal.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.authenticateLocked(ctx)
	return err
}

// session returns the current token and its generation.
func (c *Client) session() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.tokenGen
}

// refreshSession re-authenticates unless another goroutine already did since
// the caller observed generation gen; in that case the fresher token is
// returned as-is. Callers that need a refresh queue behind the mutex and all
// observe the result of the single attempt.
func (c *Client) refreshSession(ctx context.Context, gen uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokenGen != gen && c.token != "" {
		return c.token, nil
	}
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	op := "authenticate"
	authURL := c.manager.ResolveReference(&url.URL{Path: "/security/user/authenticate"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL.String(), nil)
	if err != nil {
		return "", &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: classifyTransport(err), Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &Error{Kind: KindAuthInvalid, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{Kind: classifyStatus(resp.StatusCode), Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &Error{Kind: KindParse, Op: op, Err: err}
	}
	if payload.Data.Token == "" {
		return "", &Error{Kind: KindParse, Op: op, Err: fmt.Errorf("empty token")}
	}

	c.token = payload.Data.Token
	c.tokenGen++
	return c.token, nil
}

// doManager issues one manager-role request with the retry and re-auth policy
// described in the package doc, decoding the response into dest when non-nil.
func (c *Client) doManager(ctx context.Context, op, method string, rel *url.URL, body any, dest any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: err}
		}
	}

	reauthed := false
	for attempt := 0; ; attempt++ {
		token, gen := c.session()
		if token == "" {
			var err error
			token, err = c.refreshSession(ctx, gen)
			if err != nil {
				return err
			}
			_, gen = c.session()
		}

		status, responseBody, err := c.issue(ctx, method, c.manager.ResolveReference(rel), encoded, token)
		if err != nil {
			kind := classifyTransport(err)
			if kind == KindTimeout && attempt+1 < maxAttempts {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return &Error{Kind: KindTimeout, Op: op, Err: err}
				}
				continue
			}
			return &Error{Kind: kind, Op: op, Err: err}
		}

		if status == http.StatusUnauthorized {
			if reauthed {
				return &Error{Kind: KindAuthInvalid, Op: op, Err: fmt.Errorf("token rejected after re-authentication")}
			}
			reauthed = true
			if _, err := c.refreshSession(ctx, gen); err != nil {
				return err
			}
			continue
		}
		if status >= 400 {
			return &Error{Kind: classifyStatus(status), Op: op, Err: fmt.Errorf("status %d: %s", status, trimBody(responseBody))}
		}

		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(responseBody, dest); err != nil {
			return &Error{Kind: KindParse, Op: op, Err: err}
		}
		return nil
	}
}

// doIndexer issues one indexer-role request. The indexer uses basic auth and
// shares only the timeout-retry policy with the manager role.
func (c *Client) doIndexer(ctx context.Context, op, path string, query any, dest any) error {
	if c.indexer == nil {
		return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("indexer url not configured")}
	}
	encoded, err := json.Marshal(query)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: err}
	}

	target := c.indexer.ResolveReference(&url.URL{Path: path})
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(encoded))
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if c.creds.IndexerUsername != "" {
			req.SetBasicAuth(c.creds.IndexerUsername, c.creds.IndexerPassword)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			kind := classifyTransport(err)
			if kind == KindTimeout && attempt+1 < maxAttempts {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return &Error{Kind: KindTimeout, Op: op, Err: err}
				}
				continue
			}
			return &Error{Kind: kind, Op: op, Err: err}
		}
		responseBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return &Error{Kind: KindConnect, Op: op, Err: readErr}
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &Error{Kind: KindAuthInvalid, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		if resp.StatusCode >= 400 {
			return &Error{Kind: classifyStatus(resp.StatusCode), Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, trimBody(responseBody))}
		}
		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(responseBody, dest); err != nil {
			return &Error{Kind: KindParse, Op: op, Err: err}
		}
		return nil
	}
}

// issue performs a single manager request and returns the status and body.
func (c *Client) issue(ctx context.Context, method string, target *url.URL, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, payload, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := backoffBase << attempt
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
