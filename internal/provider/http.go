package provider

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"runtime"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	UserAgent = "duologin/1.0"
)

// HTTPClient is a cookie-persisting HTTP session. One instance is owned
// exclusively by a single authentication client for its lifetime.
type HTTPClient struct {
	*http.Client
}

type HTTPClientOptions struct {
	SkipVerify bool
	Timeout    time.Duration
}

func DefaultHTTPClientOptions() *HTTPClientOptions {
	return &HTTPClientOptions{
		SkipVerify: false,
		Timeout:    60 * time.Second,
	}
}

func NewHTTPClient(opts *HTTPClientOptions) (*HTTPClient, error) {
	if opts == nil {
		opts = DefaultHTTPClientOptions()
	}

	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.SkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   opts.Timeout,
	}

	return &HTTPClient{Client: client}, nil
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", fmt.Sprintf("%s (%s %s)", UserAgent, runtime.GOOS, runtime.GOARCH))
	return c.Client.Do(req)
}

func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostForm submits form-encoded values, carrying the session's cookies.
func (c *HTTPClient) PostForm(url string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req)
}

// ClearCookies discards all session cookies, resetting the session to an
// unauthenticated state.
func (c *HTTPClient) ClearCookies() error {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return fmt.Errorf("failed to create new cookie jar: %w", err)
	}
	c.Client.Jar = jar
	return nil
}

// Close releases the transport's idle connections. The session must not be
// used after Close.
func (c *HTTPClient) Close() {
	c.Client.CloseIdleConnections()
}
