// SPDX-License-Identifier: MIT
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Handshake is the bootstrap bundle handed to the embedded player at
// startup: the scoped credential, where to connect back, which panel
// namespace to listen on and which stream to play first.
//
// The encoding is reversible base64-of-JSON, not encryption: the scoped
// short-lived credential is the trust boundary, not token opacity.
type Handshake struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	IPAddress string `json:"ipAddress"`
	PanelID   string `json:"panelId"`
	Link      string `json:"link"`
}

// requiredKeys lists the JSON keys a receiver must find before
// proceeding; anything less is a terminal "missing parameters" state.
var requiredKeys = []string{"username", "password", "ipAddress", "panelId", "link"}

// MissingParametersError reports which handshake keys were absent.
type MissingParametersError struct {
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("handshake missing parameters: %s", strings.Join(e.Missing, ", "))
}

// Encode serialises the handshake into the opaque token form.
func (h Handshake) Encode() string {
	// Marshal of a flat string struct cannot fail.
	raw, _ := json.Marshal(h)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeHandshake parses an opaque token and verifies every required
// key is present and non-empty.
func DecodeHandshake(token string) (Handshake, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Handshake{}, fmt.Errorf("decode handshake: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Handshake{}, fmt.Errorf("decode handshake: %w", err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if fields[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Handshake{}, &MissingParametersError{Missing: missing}
	}

	return Handshake{
		Username:  fields["username"],
		Password:  fields["password"],
		IPAddress: fields["ipAddress"],
		PanelID:   fields["panelId"],
		Link:      fields["link"],
	}, nil
}
