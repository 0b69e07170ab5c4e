package provider

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientPersistsCookies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			fmt.Fprint(w, "first")
			return
		}
		fmt.Fprint(w, "again")
	}))
	defer ts.Close()

	c, err := NewHTTPClient(nil)
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Get(ts.URL)
	require.NoError(t, err)
	res.Body.Close()

	res, err = c.Get(ts.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	cookies := c.Jar.Cookies(mustParse(t, ts.URL))
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
}

func TestHTTPClientPostFormEncoding(t *testing.T) {
	var gotContentType, gotValue string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotValue = r.PostForm.Get("j_username")
	}))
	defer ts.Close()

	c, err := NewHTTPClient(nil)
	require.NoError(t, err)
	defer c.Close()

	res, err := c.PostForm(ts.URL, url.Values{"j_username": {"jdoe"}})
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "jdoe", gotValue)
}

func TestHTTPClientSetsUserAgent(t *testing.T) {
	var gotUA string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	c, err := NewHTTPClient(nil)
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Get(ts.URL)
	require.NoError(t, err)
	res.Body.Close()

	assert.Contains(t, gotUA, UserAgent)
}

func TestClearCookies(t *testing.T) {
	c, err := NewHTTPClient(nil)
	require.NoError(t, err)
	defer c.Close()

	u := mustParse(t, "https://service.example.edu/")
	c.Jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc"}})
	require.NotEmpty(t, c.Jar.Cookies(u))

	require.NoError(t, c.ClearCookies())
	assert.Empty(t, c.Jar.Cookies(u))
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
