package duo

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// frameTokens are the hidden fields the Duo frame page carries.
type frameTokens struct {
	tx   string
	xsrf string
	akey string
}

// extractLoginForm pulls the anti-forgery token and the POST form action out
// of the identity provider's login page.
func extractLoginForm(html string) (csrfToken, action string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse login page: %w", err)
	}

	csrfToken, ok := doc.Find("input[name='csrf_token']").First().Attr("value")
	if !ok {
		return "", "", &ParseError{Field: "csrf_token"}
	}

	action, ok = doc.Find("form[method='post']").First().Attr("action")
	if !ok {
		return "", "", &ParseError{Field: "form action"}
	}

	return csrfToken, action, nil
}

// extractFrameTokens pulls tx, _xsrf and akey from the Duo frame page.
func extractFrameTokens(html string) (*frameTokens, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame page: %w", err)
	}

	tokens := &frameTokens{}
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"tx", &tokens.tx},
		{"_xsrf", &tokens.xsrf},
		{"akey", &tokens.akey},
	} {
		value, ok := doc.Find(fmt.Sprintf("input[name='%s']", field.name)).First().Attr("value")
		if !ok {
			return nil, &ParseError{Field: field.name}
		}
		*field.dst = value
	}

	return tokens, nil
}

// extractSAMLResponse pulls the assertion value from the exit page.
func extractSAMLResponse(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse exit page: %w", err)
	}

	assertion, ok := doc.Find("input[name='SAMLResponse']").First().Attr("value")
	if !ok {
		return "", &ParseError{Field: "SAMLResponse"}
	}

	return assertion, nil
}
