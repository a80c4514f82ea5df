package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const geofenceTTL = 5 * time.Minute

type geofenceResponse struct {
	Blocked bool   `json:"blocked"`
	Country string `json:"country"`
}

// Geofence implementa ports.Compliance. El resultado se cachea geofenceTTL
// para no consultar en cada submission. Sin URL configurada siempre permite.
type Geofence struct {
	c   *Client
	now func() time.Time

	mu        sync.Mutex
	permitted bool
	checkedAt time.Time
}

// NewGeofence returns the compliance adapter backed by c.
func NewGeofence(c *Client) *Geofence {
	return &Geofence{c: c, now: time.Now}
}

// Permitted reports whether bidding is allowed from the current region.
func (g *Geofence) Permitted(ctx context.Context) (bool, error) {
	if g.c.cfg.GeofenceURL == "" {
		return true, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.checkedAt.IsZero() && g.now().Sub(g.checkedAt) < geofenceTTL {
		return g.permitted, nil
	}

	var resp geofenceResponse
	if err := g.c.get(ctx, g.c.geofenceLimiter, g.c.cfg.GeofenceURL, &resp); err != nil {
		return false, fmt.Errorf("httpapi.Permitted: %w", err)
	}
	g.permitted = !resp.Blocked
	g.checkedAt = g.now()
	if resp.Blocked {
		slog.Warn("httpapi: region blocked", "country", resp.Country)
	}
	return g.permitted, nil
}
