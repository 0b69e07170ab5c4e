// Package saml inspects the base64-encoded assertion the Duo exit page
// yields, for diagnostics only: the assertion is consumed verbatim by the
// service, never modified here.
package saml

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"
)

// AssertionInfo carries the fields worth reporting after a successful login.
// Any field the assertion does not carry is left zero.
type AssertionInfo struct {
	Subject      string    // NameID of the authenticated principal
	Destination  string    // where the response says it must be consumed
	Audience     string    // intended relying party
	NotOnOrAfter time.Time // session validity bound, zero if absent
}

// Inspect decodes and parses an assertion. It fails only on undecodable
// input; missing fields are not an error.
func Inspect(assertion string) (*AssertionInfo, error) {
	decoded, err := base64.StdEncoding.DecodeString(assertion)
	if err != nil {
		return nil, fmt.Errorf("failed to decode assertion: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(decoded); err != nil {
		return nil, fmt.Errorf("failed to parse assertion XML: %w", err)
	}

	info := &AssertionInfo{}

	if nameID := doc.FindElement("//NameID"); nameID != nil {
		info.Subject = nameID.Text()
	}

	if response := doc.FindElement("//Response"); response != nil {
		info.Destination = response.SelectAttrValue("Destination", "")
	}

	if audience := doc.FindElement("//Audience"); audience != nil {
		info.Audience = audience.Text()
	}

	if stmt := doc.FindElement("//AuthnStatement"); stmt != nil {
		raw := stmt.SelectAttrValue("SessionNotOnOrAfter", "")
		if raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				info.NotOnOrAfter = t
			}
		}
	}

	return info, nil
}
