// Package duo automates the institutional login, Duo second-factor challenge
// and SAML assertion handoff needed to reach a Shibboleth-protected service
// without a browser.
package duo

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/user/duologin/internal/provider"
)

// Client owns a cookie-persisting HTTP session and drives the authentication
// flow against it. A Client serves exactly one logical user; it must not be
// shared across concurrent authentication attempts.
type Client struct {
	httpClient  *provider.HTTPClient
	creds       *provider.Credentials
	entryURL    string
	acsPath     string
	pollTimeout time.Duration

	// newFrame builds the transport for a given Duo host. Replaceable in
	// tests to point the frame calls at a scripted server.
	newFrame func(host string) *frameTransport

	// assertion holds the SAMLResponse accepted by the service on the most
	// recent successful Authenticate call.
	assertion string
}

// ClientOptions contains optional configuration for the Client.
type ClientOptions struct {
	EntryURL    string        // protected service entry URL
	ACSPath     string        // assertion consumer path, relative to EntryURL
	PollTimeout time.Duration // second-factor approval deadline
	SkipVerify  bool          // skip TLS certificate verification
}

// AuthOptions selects the second-factor method for one Authenticate call.
type AuthOptions struct {
	Method   Method
	Passcode string // required iff Method is MethodPasscode
	Device   string // push target, DefaultDevice when empty
}

// NewClient creates a Client for the given credentials.
func NewClient(creds *provider.Credentials, opts *ClientOptions) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials cannot be nil")
	}
	if creds.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if opts == nil {
		opts = &ClientOptions{}
	}

	httpOpts := provider.DefaultHTTPClientOptions()
	httpOpts.SkipVerify = opts.SkipVerify

	httpClient, err := provider.NewHTTPClient(httpOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		httpClient:  httpClient,
		creds:       creds,
		entryURL:    DefaultEntryURL,
		acsPath:     DefaultACSPath,
		pollTimeout: DefaultPollTimeout,
	}
	c.newFrame = func(host string) *frameTransport {
		return newFrameTransport(c.httpClient, host)
	}

	if opts.EntryURL != "" {
		c.entryURL = opts.EntryURL
	}
	if opts.ACSPath != "" {
		c.acsPath = opts.ACSPath
	}
	if opts.PollTimeout > 0 {
		c.pollTimeout = opts.PollTimeout
	}

	return c, nil
}

// SetService declares the protected service to unlock: its entry URL and the
// path the assertion is posted to. Call before Authenticate.
func (c *Client) SetService(entryURL, acsPath string) {
	c.entryURL = entryURL
	c.acsPath = acsPath
}

// Authenticate runs the full flow. On success the session carries the
// service's cookies and subsequent requests through it succeed without
// re-authentication. Failures are reported as typed errors (ErrDenied,
// ErrPollTimeout, *ParseError, *ProtocolError, *StatusError, ...); no step
// runs after a predecessor fails and nothing is retried.
func (c *Client) Authenticate(opts AuthOptions) error {
	c.assertion = ""
	return c.authenticate(opts)
}

// AccessService issues a GET against the configured entry URL using the
// authenticated session. The caller inspects and closes the response.
func (c *Client) AccessService() (*http.Response, error) {
	return c.httpClient.Get(c.entryURL)
}

// Session exposes the underlying session for callers that need to issue
// further authenticated requests directly.
func (c *Client) Session() *provider.HTTPClient {
	return c.httpClient
}

// Assertion returns the base64-encoded SAMLResponse from the most recent
// successful Authenticate call, or "" if none.
func (c *Client) Assertion() string {
	return c.assertion
}

// Close releases the session. The Client must not be used afterwards.
func (c *Client) Close() {
	c.httpClient.Close()
}

// acsURL joins the entry URL and the assertion consumer path.
func (c *Client) acsURL() string {
	return strings.TrimSuffix(c.entryURL, "/") + "/" + strings.TrimPrefix(c.acsPath, "/")
}
