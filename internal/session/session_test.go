// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxsd-sales/iptv-bridge/internal/xapi/xapitest"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(SecretLength)
	require.NoError(t, err)
	assert.Len(t, secret, 255)

	for _, r := range secret {
		assert.Contains(t, secretCharset, string(r))
	}

	other, err := GenerateSecret(SecretLength)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestGenerateSecretClampsLength(t *testing.T) {
	for _, length := range []int{0, -5, 300} {
		secret, err := GenerateSecret(length)
		require.NoError(t, err)
		assert.Len(t, secret, SecretLength)
	}

	short, err := GenerateSecret(16)
	require.NoError(t, err)
	assert.Len(t, short, 16)
}

func TestHandshakeRoundTrip(t *testing.T) {
	in := Handshake{
		Username:  "iptv",
		Password:  "s3cret",
		IPAddress: "192.0.2.10",
		PanelID:   "iptv",
		Link:      "https://example.com/a.m3u8",
	}

	out, err := DecodeHandshake(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeHandshakeMissingKeys(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"username":"iptv","panelId":"iptv"}`))

	_, err := DecodeHandshake(token)
	var missing *MissingParametersError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"password", "ipAddress", "link"}, missing.Missing)
}

func TestDecodeHandshakeGarbage(t *testing.T) {
	_, err := DecodeHandshake("%%% not base64 %%%")
	require.Error(t, err)

	_, err = DecodeHandshake(base64.StdEncoding.EncodeToString([]byte("not json")))
	require.Error(t, err)
}

func TestIssueCreatesScopedAccount(t *testing.T) {
	dev := xapitest.NewFakeDevice()
	issuer := NewIssuer(dev, dev, "iptv", "iptv")

	sess, err := issuer.Issue(context.Background(), "https://example.com/a.m3u8")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "iptv", sess.Handshake.Username)
	assert.Equal(t, "192.0.2.10", sess.Handshake.IPAddress)
	assert.Len(t, sess.Handshake.Password, SecretLength)
	assert.Equal(t, []string{"Integrator", "User"}, dev.Roles["iptv"])
	assert.NotContains(t, dev.Roles["iptv"], "Admin")
}

func TestIssueTwiceRotatesSingleAccount(t *testing.T) {
	dev := xapitest.NewFakeDevice()
	issuer := NewIssuer(dev, dev, "iptv", "iptv")

	first, err := issuer.Issue(context.Background(), "https://example.com/a.m3u8")
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), "https://example.com/b.m3u8")
	require.NoError(t, err)

	assert.Len(t, dev.Users, 1)
	assert.NotEqual(t, first.Handshake.Password, second.Handshake.Password)
	assert.Equal(t, second.Handshake.Password, dev.Users["iptv"])
}

func TestRevokeIdempotent(t *testing.T) {
	dev := xapitest.NewFakeDevice()
	issuer := NewIssuer(dev, dev, "iptv", "iptv")

	_, err := issuer.Issue(context.Background(), "https://example.com/a.m3u8")
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(context.Background()))
	assert.Empty(t, dev.Users)

	// Second revoke hits "does not exist" and still succeeds.
	require.NoError(t, issuer.Revoke(context.Background()))
}

func TestHandshakeTokenIsOpaqueBase64(t *testing.T) {
	hs := Handshake{
		Username:  "iptv",
		Password:  "pw",
		IPAddress: "192.0.2.10",
		PanelID:   "iptv",
		Link:      "https://example.com/a.m3u8",
	}
	token := hs.Encode()
	assert.False(t, strings.Contains(token, "iptv") && strings.Contains(token, "{"),
		"token should not be raw JSON")
	_, err := base64.StdEncoding.DecodeString(token)
	assert.NoError(t, err)
}
