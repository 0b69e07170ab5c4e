package duo

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/user/duologin/internal/logging"
)

// authenticate drives the end-to-end flow: institutional login, second-factor
// challenge and poll, then the assertion handoff. Every step must succeed
// before the next one runs.
func (c *Client) authenticate(opts AuthOptions) error {
	if !opts.Method.valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, opts.Method)
	}
	if opts.Method == MethodPasscode && opts.Passcode == "" {
		return ErrPasscodeRequired
	}
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}

	tx := &transaction{}

	if err := c.initialLogin(tx); err != nil {
		return fmt.Errorf("initial login failed: %w", err)
	}

	frame := c.newFrame(tx.duoHost)

	if err := c.submitChallenge(frame, tx, opts); err != nil {
		return fmt.Errorf("second factor challenge failed: %w", err)
	}

	if err := c.pollStatus(frame, tx); err != nil {
		return err
	}

	if err := c.exchangeAssertion(frame, tx, opts); err != nil {
		return fmt.Errorf("assertion exchange failed: %w", err)
	}

	return nil
}

// initialLogin performs the username/password login and lands on the Duo
// frame, capturing the session id, the Duo host, and the frame tokens.
func (c *Client) initialLogin(tx *transaction) error {
	res, err := c.httpClient.Get(c.entryURL)
	if err != nil {
		return fmt.Errorf("failed to reach service entry URL: %w", err)
	}

	body, err := readBody(res)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return &StatusError{URL: c.entryURL, StatusCode: res.StatusCode}
	}

	csrfToken, action, err := extractLoginForm(body)
	if err != nil {
		return err
	}

	payload := url.Values{
		"csrf_token":       {csrfToken},
		"j_username":       {c.creds.Username},
		"j_password":       {c.creds.Password},
		"_eventId_proceed": {""},
	}

	res, err = c.httpClient.PostForm(resolveLoginURL(action), payload)
	if err != nil {
		return fmt.Errorf("credential submission failed: %w", err)
	}

	body, err = readBody(res)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return &StatusError{URL: res.Request.URL.String(), StatusCode: res.StatusCode}
	}

	// The redirect chain ends on the Duo frame; its URL carries the session
	// id and the tenant's API host.
	finalURL := res.Request.URL.String()

	m := sidPattern.FindStringSubmatch(finalURL)
	if m == nil {
		return &ParseError{Field: "sid"}
	}
	tx.sid = m[1]

	if hm := duoHostPattern.FindStringSubmatch(finalURL); hm != nil {
		tx.duoHost = hm[1]
	} else {
		tx.duoHost = fallbackDuoHost
		logging.Warn("no duosecurity host in redirect URL, using fallback", "host", tx.duoHost)
	}

	tokens, err := extractFrameTokens(body)
	if err != nil {
		return err
	}
	tx.tx = tokens.tx
	tx.xsrf = tokens.xsrf
	tx.akey = tokens.akey
	tx.frameURL = finalURL

	// Initialize the frame at the URL it was served from.
	initPayload := url.Values{
		"tx":                                 {tx.tx},
		"parent":                             {"None"},
		"_xsrf":                              {tx.xsrf},
		"version":                            {frameVersion},
		"akey":                               {tx.akey},
		"has_session_trust_analysis_feature": {"false"},
	}

	res, err = c.httpClient.PostForm(tx.frameURL, initPayload)
	if err != nil {
		return fmt.Errorf("frame initialization failed: %w", err)
	}
	drainBody(res)

	logging.Info("logged in", "duo_host", tx.duoHost)
	return nil
}

// submitChallenge posts the challenge to the prompt endpoint and records the
// challenge transaction id.
func (c *Client) submitChallenge(frame *frameTransport, tx *transaction, opts AuthOptions) error {
	device := opts.Device
	if opts.Method != MethodPush {
		device = nullDevice
	}

	payload := url.Values{
		"device":              {device},
		"factor":              {string(opts.Method)},
		"postAuthDestination": {postAuthDestination},
		"browser_features":    {browserFeatures},
		"sid":                 {tx.sid},
	}
	if opts.Method == MethodPasscode {
		payload.Set("passcode", opts.Passcode)
	}

	res, err := frame.Prompt(payload)
	if err != nil {
		return err
	}

	fr, err := decodeFrameResponse("prompt", res)
	if err != nil {
		return err
	}
	if fr.Stat != statOK {
		return &ProtocolError{Endpoint: "prompt", Stat: fr.Stat}
	}
	if fr.Response.TxID == "" {
		return &ParseError{Field: "txid"}
	}

	tx.txid = fr.Response.TxID
	logging.Info("second factor challenge submitted", "factor", string(opts.Method))
	return nil
}

// exchangeAssertion completes the frame flow and posts the resulting
// assertion to the service's consumption endpoint.
func (c *Client) exchangeAssertion(frame *frameTransport, tx *transaction, opts AuthOptions) error {
	payload := url.Values{
		"sid":           {tx.sid},
		"txid":          {tx.txid},
		"factor":        {string(opts.Method)},
		"_xsrf":         {tx.xsrf},
		"dampen_choice": {"true"},
	}

	res, err := frame.Exit(payload)
	if err != nil {
		return err
	}

	body, err := readBody(res)
	if err != nil {
		return err
	}

	assertion, err := extractSAMLResponse(body)
	if err != nil {
		return err
	}

	res, err = c.httpClient.PostForm(c.acsURL(), url.Values{"SAMLResponse": {assertion}})
	if err != nil {
		return fmt.Errorf("assertion submission failed: %w", err)
	}
	drainBody(res)
	if res.StatusCode != http.StatusOK {
		return &StatusError{URL: c.acsURL(), StatusCode: res.StatusCode}
	}

	c.assertion = assertion
	logging.Info("assertion accepted by service")
	return nil
}

// resolveLoginURL turns the extracted form action into an absolute URL.
// Relative actions are resolved against the fixed identity-provider base.
func resolveLoginURL(action string) string {
	if strings.HasPrefix(action, "http") {
		return action
	}
	return idpBaseURL + action
}

func readBody(res *http.Response) (string, error) {
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(b), nil
}

func drainBody(res *http.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
