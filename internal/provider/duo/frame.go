package duo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/user/duologin/internal/provider"
)

const (
	framePromptPath = "/frame/v4/prompt"
	frameStatusPath = "/frame/v4/status"
	frameExitPath   = "/frame/v4/oidc/exit"
)

// frameTransport issues the three calls the Duo frame endpoints expect. It
// carries no state beyond the destination and the shared session; response
// bodies are interpreted by the caller.
type frameTransport struct {
	session *provider.HTTPClient
	baseURL string
}

func newFrameTransport(session *provider.HTTPClient, host string) *frameTransport {
	return &frameTransport{
		session: session,
		baseURL: "https://" + host,
	}
}

// Prompt submits a second-factor challenge.
func (f *frameTransport) Prompt(payload url.Values) (*http.Response, error) {
	return f.post(framePromptPath, payload)
}

// Status asks for the pending challenge's decision.
func (f *frameTransport) Status(payload url.Values) (*http.Response, error) {
	return f.post(frameStatusPath, payload)
}

// Exit completes the frame flow and yields the assertion page.
func (f *frameTransport) Exit(payload url.Values) (*http.Response, error) {
	return f.post(frameExitPath, payload)
}

func (f *frameTransport) post(path string, payload url.Values) (*http.Response, error) {
	res, err := f.session.PostForm(f.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("frame request %s failed: %w", path, err)
	}
	return res, nil
}

// decodeFrameResponse validates the HTTP status and decodes the frame JSON
// envelope. A non-200 status is a *StatusError; an undecodable body is a
// *ProtocolError.
func decodeFrameResponse(endpoint string, res *http.Response) (*frameResponse, error) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: res.Request.URL.String(), StatusCode: res.StatusCode}
	}

	var fr frameResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, &ProtocolError{Endpoint: endpoint, Body: string(body)}
	}

	return &fr, nil
}
