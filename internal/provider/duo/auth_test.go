package duo

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/duologin/internal/provider"
)

// fakeEnv is a scripted stand-in for the whole handshake: service entry page,
// identity provider, Duo frame endpoints and the assertion consumer.
type fakeEnv struct {
	ts *httptest.Server

	mu           sync.Mutex
	hits         map[string]int
	statusScript []string
	statusIdx    int

	entryStatus        int  // entry page status, 200 by default
	rejectLogin        bool // identity endpoint answers 403
	redirectWithoutSid bool
	omitFrameTokens    bool
	omitAssertion      bool

	capturedHost string
	promptForm   url.Values
	exitForm     url.Values
	acsForm      url.Values
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()

	env := &fakeEnv{
		hits:         make(map[string]int),
		statusScript: []string{"allow"},
		entryStatus:  http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", env.handleEntry)
	mux.HandleFunc("/idp/login", env.handleLogin)
	mux.HandleFunc("/frame/v4/auth", env.handleFrame)
	mux.HandleFunc("/frame/v4/prompt", env.handlePrompt)
	mux.HandleFunc("/frame/v4/status", env.handleStatus)
	mux.HandleFunc("/frame/v4/oidc/exit", env.handleExit)
	mux.HandleFunc("/spACS", env.handleACS)

	env.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.count("total")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(env.ts.Close)

	return env
}

func (env *fakeEnv) count(name string) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.hits[name]++
}

func (env *fakeEnv) hitCount(name string) int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.hits[name]
}

func (env *fakeEnv) handleEntry(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	env.count("entry")

	if env.entryStatus != http.StatusOK {
		http.Error(w, "service unavailable", env.entryStatus)
		return
	}

	if cookie, err := r.Cookie("session"); err == nil && cookie.Value == "ok" {
		fmt.Fprint(w, "top secret area")
		return
	}

	fmt.Fprintf(w, `<html><body>
<form method="post" action="%s/idp/login">
  <input type="hidden" name="csrf_token" value="csrf-abc"/>
</form>
</body></html>`, env.ts.URL)
}

func (env *fakeEnv) handleLogin(w http.ResponseWriter, r *http.Request) {
	env.count("login")

	if env.rejectLogin {
		http.Error(w, "bad credentials", http.StatusForbidden)
		return
	}

	r.ParseForm()
	if r.PostForm.Get("j_username") == "" || r.PostForm.Get("j_password") == "" ||
		r.PostForm.Get("csrf_token") != "csrf-abc" {
		http.Error(w, "missing login fields", http.StatusBadRequest)
		return
	}

	target := "/frame/v4/auth?sid=ABC123"
	if env.redirectWithoutSid {
		target = "/frame/v4/auth"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (env *fakeEnv) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		env.count("frameinit")
		fmt.Fprint(w, "{}")
		return
	}

	env.count("frame")
	akey := `<input type="hidden" name="akey" value="akey-value"/>`
	if env.omitFrameTokens {
		akey = ""
	}
	fmt.Fprintf(w, `<html><body>
<input type="hidden" name="tx" value="tx-value"/>
<input type="hidden" name="_xsrf" value="xsrf-value"/>
%s
</body></html>`, akey)
}

func (env *fakeEnv) handlePrompt(w http.ResponseWriter, r *http.Request) {
	env.count("prompt")
	r.ParseForm()

	env.mu.Lock()
	env.promptForm = r.PostForm
	env.mu.Unlock()

	fmt.Fprint(w, `{"stat": "OK", "response": {"txid": "txid-777"}}`)
}

func (env *fakeEnv) handleStatus(w http.ResponseWriter, r *http.Request) {
	env.count("status")

	env.mu.Lock()
	i := env.statusIdx
	if i >= len(env.statusScript) {
		i = len(env.statusScript) - 1
	}
	env.statusIdx++
	status := env.statusScript[i]
	env.mu.Unlock()

	fmt.Fprintf(w, `{"stat": "OK", "response": {"status_code": %q}}`, status)
}

func (env *fakeEnv) handleExit(w http.ResponseWriter, r *http.Request) {
	env.count("exit")
	r.ParseForm()

	env.mu.Lock()
	env.exitForm = r.PostForm
	env.mu.Unlock()

	if env.omitAssertion {
		fmt.Fprint(w, `<html><body><p>not ready</p></body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body>
<form method="post">
  <input type="hidden" name="SAMLResponse" value="SAML123=="/>
</form>
</body></html>`)
}

func (env *fakeEnv) handleACS(w http.ResponseWriter, r *http.Request) {
	env.count("acs")
	r.ParseForm()

	env.mu.Lock()
	env.acsForm = r.PostForm
	env.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
	fmt.Fprint(w, "assertion accepted")
}

// newEnvClient builds a Client against the fake environment. Frame calls are
// routed to the scripted server regardless of the captured Duo host.
func newEnvClient(t *testing.T, env *fakeEnv) *Client {
	t.Helper()

	c, err := NewClient(provider.NewCredentials("testuser", "testpass"), &ClientOptions{
		PollTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	c.SetService(env.ts.URL+"/", "spACS")

	c.newFrame = func(host string) *frameTransport {
		env.mu.Lock()
		env.capturedHost = host
		env.mu.Unlock()
		return testFrame(c, env.ts.URL)
	}

	return c
}

func TestAuthenticateEndToEnd(t *testing.T) {
	env := newFakeEnv(t)
	env.statusScript = []string{"pushed", "pushed", "allow"}

	c := newEnvClient(t, env)

	err := c.Authenticate(AuthOptions{Method: MethodPush})
	require.NoError(t, err)

	assert.Equal(t, "SAML123==", c.Assertion())
	assert.Equal(t, 1, env.hitCount("prompt"))
	assert.Equal(t, 3, env.hitCount("status"))
	assert.Equal(t, 1, env.hitCount("exit"))
	assert.Equal(t, 1, env.hitCount("acs"))
	assert.Equal(t, 1, env.hitCount("frameinit"))

	// The test server is not a *.duosecurity.com host, so the fallback must
	// have been selected.
	assert.Equal(t, fallbackDuoHost, env.capturedHost)

	// Challenge payload carried the extracted session id and the push device.
	assert.Equal(t, "ABC123", env.promptForm.Get("sid"))
	assert.Equal(t, DefaultDevice, env.promptForm.Get("device"))
	assert.Equal(t, string(MethodPush), env.promptForm.Get("factor"))
	assert.Equal(t, postAuthDestination, env.promptForm.Get("postAuthDestination"))
	assert.Empty(t, env.promptForm.Get("passcode"))

	// Exit payload threaded the challenge transaction id and the xsrf token.
	assert.Equal(t, "txid-777", env.exitForm.Get("txid"))
	assert.Equal(t, "xsrf-value", env.exitForm.Get("_xsrf"))
	assert.Equal(t, "true", env.exitForm.Get("dampen_choice"))

	// The assertion reached the consumer endpoint verbatim.
	assert.Equal(t, "SAML123==", env.acsForm.Get("SAMLResponse"))

	// The session is now authenticated against the service.
	res, err := c.AccessService()
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "top secret area", string(body))
}

func TestAuthenticatePasscodeMethod(t *testing.T) {
	env := newFakeEnv(t)
	c := newEnvClient(t, env)

	err := c.Authenticate(AuthOptions{Method: MethodPasscode, Passcode: "123456"})
	require.NoError(t, err)

	assert.Equal(t, "123456", env.promptForm.Get("passcode"))
	assert.Equal(t, nullDevice, env.promptForm.Get("device"), "device is a null marker for non-push factors")
	assert.Equal(t, string(MethodPasscode), env.promptForm.Get("factor"))
}

func TestAuthenticatePasscodeWithoutCodeMakesNoCalls(t *testing.T) {
	env := newFakeEnv(t)
	c := newEnvClient(t, env)

	err := c.Authenticate(AuthOptions{Method: MethodPasscode})

	require.ErrorIs(t, err, ErrPasscodeRequired)
	assert.Zero(t, env.hitCount("total"), "validation must fail before any network call")
}

func TestAuthenticateUnsupportedMethod(t *testing.T) {
	env := newFakeEnv(t)
	c := newEnvClient(t, env)

	err := c.Authenticate(AuthOptions{Method: Method("SMS")})

	require.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Zero(t, env.hitCount("total"))
}

func TestAuthenticateStopsWhenEntryUnavailable(t *testing.T) {
	env := newFakeEnv(t)
	env.entryStatus = http.StatusInternalServerError

	c := newEnvClient(t, env)
	err := c.Authenticate(AuthOptions{Method: MethodPush})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Zero(t, env.hitCount("login"))
	assert.Zero(t, env.hitCount("prompt"))
}

func TestAuthenticateStopsWhenLoginRejected(t *testing.T) {
	env := newFakeEnv(t)
	env.rejectLogin = true

	c := newEnvClient(t, env)
	err := c.Authenticate(AuthOptions{Method: MethodPush})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)

	// The provider transport must never be invoked after a failed login.
	assert.Zero(t, env.hitCount("prompt"))
	assert.Zero(t, env.hitCount("status"))
	assert.Zero(t, env.hitCount("exit"))
	assert.Zero(t, env.hitCount("acs"))
}

func TestAuthenticateFailsWithoutSessionID(t *testing.T) {
	env := newFakeEnv(t)
	env.redirectWithoutSid = true

	c := newEnvClient(t, env)
	err := c.Authenticate(AuthOptions{Method: MethodPush})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "sid", parseErr.Field)
	assert.Zero(t, env.hitCount("prompt"))
}

func TestAuthenticateFailsOnMissingFrameTokens(t *testing.T) {
	env := newFakeEnv(t)
	env.omitFrameTokens = true

	c := newEnvClient(t, env)
	err := c.Authenticate(AuthOptions{Method: MethodPush})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "akey", parseErr.Field)
	assert.Zero(t, env.hitCount("prompt"))
}

func TestAuthenticateFailsWhenExitCarriesNoAssertion(t *testing.T) {
	env := newFakeEnv(t)
	env.omitAssertion = true

	c := newEnvClient(t, env)
	err := c.Authenticate(AuthOptions{Method: MethodPush})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "SAMLResponse", parseErr.Field)
	assert.Zero(t, env.hitCount("acs"), "a missing assertion must not be posted")
	assert.Empty(t, c.Assertion())
}

func TestSessionIDAndHostPatterns(t *testing.T) {
	redirectURL := "https://api-xyz.duosecurity.com/frame/v4/auth?sid=ABC123&tx=t1"

	m := sidPattern.FindStringSubmatch(redirectURL)
	require.NotNil(t, m)
	assert.Equal(t, "ABC123", m[1])

	hm := duoHostPattern.FindStringSubmatch(redirectURL)
	require.NotNil(t, hm)
	assert.Equal(t, "api-xyz.duosecurity.com", hm[1])

	assert.Nil(t, duoHostPattern.FindStringSubmatch("https://idp.example.edu/login?sid=ABC123"))
}

func TestResolveLoginURL(t *testing.T) {
	assert.Equal(t, "https://sso.example.edu/login", resolveLoginURL("https://sso.example.edu/login"))
	assert.Equal(t, idpBaseURL+"/idp/profile/SAML2/POST", resolveLoginURL("/idp/profile/SAML2/POST"))
}
