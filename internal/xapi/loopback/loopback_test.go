// SPDX-License-Identifier: MIT
package loopback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

func TestDriverRegistered(t *testing.T) {
	assert.Contains(t, xapi.DriverNames(), "loopback")

	dev, err := xapi.Connect(context.Background(), "loopback", "192.0.2.7")
	require.NoError(t, err)

	addr, err := dev.IPv4Address(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", addr)
}

func TestPanelsAssignStableOrders(t *testing.T) {
	ctx := context.Background()
	d := New("")

	require.NoError(t, d.SavePanel(ctx, "first", "<Extensions/>"))
	require.NoError(t, d.SavePanel(ctx, "second", "<Extensions/>"))
	require.NoError(t, d.SavePanel(ctx, "first", "<Extensions><Panel/></Extensions>"))
	require.NoError(t, d.OpenPanel(ctx, "first", "first-page"))

	panels, err := d.ListPanels(ctx)
	require.NoError(t, err)
	require.Len(t, panels, 2)

	orders := map[string]int{}
	for _, p := range panels {
		orders[p.PanelID] = p.Order
	}
	assert.Equal(t, 1, orders["first"], "re-saving a panel keeps its order")
	assert.Equal(t, 2, orders["second"])
}

func TestWebViewLifecycle(t *testing.T) {
	ctx := context.Background()
	d := New("")

	require.NoError(t, d.DisplayWebView(ctx, "Channel A", "https://player.example.com/app#token"))
	views, err := d.ListWebViews(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Visible", views[0].Status)

	require.NoError(t, d.ClearWebViews(ctx))
	views, err = d.ListWebViews(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestAudioCommandsEmitEvents(t *testing.T) {
	ctx := context.Background()
	d := New("")

	events, err := d.Events(ctx)
	require.NoError(t, err)

	require.NoError(t, d.SetVolume(ctx, 80))
	require.NoError(t, d.ToggleMute(ctx))
	require.NoError(t, d.SendMessage(ctx, `{"link":"https://cdn.example.com/a.m3u8"}`))

	vol, ok := (<-events).(xapi.VolumeChanged)
	require.True(t, ok)
	assert.Equal(t, 80, vol.Level)

	mute, ok := (<-events).(xapi.MuteChanged)
	require.True(t, ok)
	assert.True(t, mute.Muted)
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	d := New("")

	require.NoError(t, d.CreateUser(ctx, "viewer", "secret", []string{"User"}))
	assert.ErrorIs(t, d.CreateUser(ctx, "viewer", "other", nil), xapi.ErrUserExists)
	require.NoError(t, d.SetPassphrase(ctx, "viewer", "rotated"))

	exists, err := d.UserExists(ctx, "viewer")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, d.DeleteUser(ctx, "viewer"))
	assert.ErrorIs(t, d.DeleteUser(ctx, "viewer"), xapi.ErrUserNotFound)
}
