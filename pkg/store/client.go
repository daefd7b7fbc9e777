package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"licensepurge/pkg/auth"
	"licensepurge/pkg/config"
	errs "licensepurge/pkg/errors"
	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/removal"
	"licensepurge/pkg/retry"
)

// maxResponseSize caps how much of a removal response is read
const maxResponseSize = 1 << 20

// Client talks to the storefront on behalf of one logged-in session
type Client struct {
	httpClient    *http.Client
	headers       map[string]string
	baseURL       string
	account       *auth.Account
	allowSkipping bool
	pageRetry     *retry.Config
	logger        logger.Logger
}

// NewClient creates a storefront client for account
func NewClient(cfg config.StoreConfig, account *auth.Account, log logger.Logger) (*Client, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := account.UserAgent
	if userAgent == "" {
		userAgent = cfg.UserAgent
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.PageRetries
	if retryCfg.MaxAttempts <= 0 {
		retryCfg.MaxAttempts = 1
	}
	retryCfg.Logger = log

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
		baseURL:   baseURL,
		account:   account,
		pageRetry: retryCfg,
		logger:    log,
	}, nil
}

// SetAllowSkipping makes unknown success codes final instead of rate limits
func (c *Client) SetAllowSkipping(allow bool) {
	c.allowSkipping = allow
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// BaseURL returns the storefront origin in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest sends req with the session cookies and configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.account.SessionID})
	if c.account.LoginSecure != "" {
		req.AddCookie(&http.Cookie{Name: "steamLoginSecure", Value: c.account.LoginSecure})
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "%s %s", req.Method, req.URL.Path)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// Remove asks the storefront to drop the license for id. It never fails;
// every response and error is folded into an Outcome.
func (c *Client) Remove(ctx context.Context, id licenses.PackageID) removal.Outcome {
	form := url.Values{}
	form.Set("sessionid", c.account.SessionID)
	form.Set("packageid", strconv.Itoa(int(id)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RemoveLicenseURL(c.baseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return removal.TransportError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", LicensesURL(c.baseURL))
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := c.doRequest(req)
	if err != nil {
		return removal.TransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return removal.TransportError(errs.Wrap(errs.ErrorTypeNetwork, err, "read removal response"))
	}

	outcome := Classify(resp.StatusCode, body, c.allowSkipping)
	c.logger.DebugWithFields("storefront removal response", map[string]interface{}{
		"package_id": int(id),
		"status":     resp.StatusCode,
		"outcome":    outcome.String(),
	})
	return outcome
}

// FetchLicensesPage downloads the account licenses page. Network and
// server errors are retried; an expired session is reported as an auth error.
// The caller closes the returned body.
func (c *Client) FetchLicensesPage(ctx context.Context) (io.ReadCloser, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, LicensesURL(c.baseURL), nil)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "create request")
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}

		if apiErr := errs.FromStatus(resp.StatusCode); apiErr != nil {
			resp.Body.Close()
			return nil, apiErr
		}
		if resp.Request != nil && strings.HasPrefix(resp.Request.URL.Path, LoginPath) {
			resp.Body.Close()
			c.logger.WarnWithFields("licenses page redirected to login", map[string]interface{}{
				"url": resp.Request.URL.String(),
			})
			return nil, errs.New(errs.ErrorTypeAuth, resp.StatusCode, "session expired: redirected to %s", resp.Request.URL.Path)
		}

		return resp.Body, nil
	}, c.pageRetry)
}

// String identifies the client in logs
func (c *Client) String() string {
	return fmt.Sprintf("store.Client(%s, account=%s)", c.baseURL, c.account.Name)
}
