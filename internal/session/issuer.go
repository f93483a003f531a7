// SPDX-License-Identifier: MIT

// Package session mints the short-lived scoped credential for one
// player session and packages it into the handshake token handed to the
// embedded player.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// scopedRoles is the least-privilege role set: enough to open a remote
// command connection and drive UI widgets, never admin.
var scopedRoles = []string{"Integrator", "User"}

// Session describes one issued player session.
type Session struct {
	ID        string
	Handshake Handshake
	CreatedAt time.Time
}

// Issuer provisions the scoped account and builds handshake tokens.
type Issuer struct {
	accounts xapi.Accounts
	status   xapi.Status
	username string
	panelID  string
}

// NewIssuer wires an Issuer against the host account and status
// capabilities.
func NewIssuer(accounts xapi.Accounts, status xapi.Status, username, panelID string) *Issuer {
	return &Issuer{
		accounts: accounts,
		status:   status,
		username: username,
		panelID:  panelID,
	}
}

// Issue rotates (or creates) the scoped account with a fresh secret and
// returns the session carrying the encoded handshake. Issuing twice for
// the same logical session rotates the one account, it never duplicates.
func (i *Issuer) Issue(ctx context.Context, link string) (*Session, error) {
	logger := xglog.WithComponentFromContext(ctx, "session")

	secret, err := GenerateSecret(SecretLength)
	if err != nil {
		return nil, err
	}

	if err := i.upsertAccount(ctx, secret); err != nil {
		return nil, err
	}

	address, err := i.status.IPv4Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device address: %w", err)
	}

	sess := &Session{
		ID: uuid.NewString(),
		Handshake: Handshake{
			Username:  i.username,
			Password:  secret,
			IPAddress: address,
			PanelID:   i.panelID,
			Link:      link,
		},
		CreatedAt: time.Now(),
	}

	logger.Info().
		Str(xglog.FieldSessionID, sess.ID).
		Str(xglog.FieldUsername, i.username).
		Str(xglog.FieldLink, link).
		Str("event", "session.issued").
		Msg("scoped credential issued")
	metrics.RecordSessionStarted()

	return sess, nil
}

// upsertAccount creates the scoped account, rotating the passphrase
// when it already exists.
func (i *Issuer) upsertAccount(ctx context.Context, secret string) error {
	err := i.accounts.CreateUser(ctx, i.username, secret, scopedRoles)
	if err == nil {
		metrics.RecordCredentialOp("create", nil)
		return nil
	}
	if !errors.Is(err, xapi.ErrUserExists) {
		metrics.RecordCredentialOp("create", err)
		return fmt.Errorf("create account %q: %w", i.username, err)
	}

	err = i.accounts.SetPassphrase(ctx, i.username, secret)
	metrics.RecordCredentialOp("rotate", err)
	if err != nil {
		return fmt.Errorf("rotate account %q: %w", i.username, err)
	}
	return nil
}

// Revoke deletes the scoped account. A missing account counts as
// success; any other failure is reported once, not retried.
func (i *Issuer) Revoke(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "session")

	err := i.accounts.DeleteUser(ctx, i.username)
	if errors.Is(err, xapi.ErrUserNotFound) {
		logger.Debug().
			Str(xglog.FieldUsername, i.username).
			Msg("account already absent, nothing to revoke")
		err = nil
	}
	metrics.RecordCredentialOp("revoke", err)
	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldUsername, i.username).
			Str("event", "session.revoke_failed").
			Msg("failed to revoke scoped credential")
		return fmt.Errorf("revoke account %q: %w", i.username, err)
	}

	logger.Info().
		Str(xglog.FieldUsername, i.username).
		Str("event", "session.revoked").
		Msg("scoped credential revoked")
	return nil
}
