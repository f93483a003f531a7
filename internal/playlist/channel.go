// SPDX-License-Identifier: MIT
package playlist

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Channel is a single playable entry extracted from an M3U document.
// Channels are immutable after parsing; the UI addresses them by their
// position in the parsed list.
type Channel struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Link       string            `json:"link"`
}

// Attr returns the named EXTINF attribute or "" when absent.
func (c Channel) Attr(key string) string {
	return c.Attributes[key]
}

// normalizeName canonicalises a display name to NFC and trims padding,
// so widget labels and log fields stay stable across playlist sources.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
