// SPDX-License-Identifier: MIT
package playlist

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

const extinfMarker = "#EXTINF"

// Parse converts a raw M3U document into the ordered channel list.
//
// A record starts at an #EXTINF line and ends at the first playable URL
// that follows it. The display name is the free text after the last comma
// of the EXTINF line; the prefix is tokenized on whitespace into
// key="value" attribute pairs. When secureOnly is set, http links are
// skipped and a record without an https link before the next #EXTINF is
// discarded. Malformed records are dropped silently; Parse never fails.
func Parse(raw string, secureOnly bool) []Channel {
	lines := strings.Split(raw, "\n")
	channels := make([]Channel, 0, len(lines)/2)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, extinfMarker) {
			continue
		}

		name, attrs, ok := parseEntryInfo(line)
		if !ok {
			continue
		}

		link, ok := findLink(lines, i+1, secureOnly)
		if !ok {
			continue
		}

		channels = append(channels, Channel{
			Name:       name,
			Attributes: attrs,
			Link:       link,
		})
	}
	return channels
}

// parseEntryInfo splits an #EXTINF line into display name and attributes.
// A line without a comma has no extractable name and is rejected.
func parseEntryInfo(line string) (string, map[string]string, bool) {
	comma := strings.LastIndex(line, ",")
	if comma < 0 {
		return "", nil, false
	}
	name := normalizeName(line[comma+1:])
	if name == "" {
		return "", nil, false
	}

	attrs := map[string]string{}
	for _, field := range strings.Fields(line[:comma]) {
		eq := strings.Index(field, "=")
		if eq <= 0 {
			continue
		}
		key := field[:eq]
		value := strings.Trim(field[eq+1:], `"`)
		attrs[key] = value
	}
	return name, attrs, true
}

// findLink scans forward from lines[start] for the record's playable URL.
// The scan stops at the next #EXTINF marker or end of input.
func findLink(lines []string, start int, secureOnly bool) (string, bool) {
	for l := start; l < len(lines); l++ {
		line := strings.TrimSpace(lines[l])
		switch {
		case strings.HasPrefix(line, extinfMarker):
			return "", false
		case strings.HasPrefix(line, "https://"):
			return line, true
		case strings.HasPrefix(line, "http://"):
			// Insecure links are unusable on a secure-origin player;
			// keep scanning in case an https variant follows.
			if secureOnly {
				continue
			}
			return line, true
		}
	}
	return "", false
}

// WriteM3U serialises channels back into M3U form. Attribute order is
// sorted so output is deterministic for a given list.
func WriteM3U(w io.Writer, channels []Channel) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		buf.WriteString("#EXTINF:-1")
		keys := make([]string, 0, len(ch.Attributes))
		for k := range ch.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(fmt.Sprintf(" %s=%q", k, ch.Attributes[k]))
		}
		buf.WriteString("," + ch.Name + "\n")
		buf.WriteString(ch.Link + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}
