// SPDX-License-Identifier: MIT
package control

import (
	"strings"
	"sync"

	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// GhostTable tracks the embedded player surfaces opened by the current
// session. A presence transition for a tracked id with no explicit
// close command is a ghost disconnect and triggers defensive cleanup.
type GhostTable struct {
	mu        sync.Mutex
	playerURL string
	views     map[string]xapi.WebView
}

// NewGhostTable tracks integration views whose URL starts with the
// configured player URL.
func NewGhostTable(playerURL string) *GhostTable {
	return &GhostTable{
		playerURL: playerURL,
		views:     map[string]xapi.WebView{},
	}
}

// Observe records a view if it is a visible integration surface opened
// from the player URL. Returns true when the view was tracked.
func (g *GhostTable) Observe(v xapi.WebView) bool {
	if v.Status != "Visible" || v.Type != "Integration" {
		return false
	}
	if !strings.HasPrefix(v.URL, g.playerURL) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.views[v.ID] = v
	return true
}

// Ghosted reports whether the vanished id belongs to this session and,
// if so, forgets every tracked view: one ghost invalidates the session.
func (g *GhostTable) Ghosted(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.views[id]; !ok {
		return false
	}
	g.views = map[string]xapi.WebView{}
	return true
}

// Len returns the number of currently tracked surfaces.
func (g *GhostTable) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.views)
}
