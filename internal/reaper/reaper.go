// Package reaper periodically garbage-collects empty, non-admin lobbies.
// Admin-created lobbies are exempt — they persist across a full disconnect
// so the admin can reconnect participants later.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veto-ceremony/server/internal/dispatch"
	"github.com/veto-ceremony/server/internal/engine"
	"github.com/veto-ceremony/server/internal/lobbyactor"
	"github.com/veto-ceremony/server/internal/store"
)

type Reaper struct {
	store    *store.Store
	pub      *dispatch.Service
	log      *zap.Logger
	interval time.Duration
}

func New(st *store.Store, pub *dispatch.Service, log *zap.Logger, interval time.Duration) *Reaper {
	return &Reaper{store: st, pub: pub, log: log, interval: interval}
}

// Run sweeps every interval until ctx is canceled. Each lobby's occupancy
// is checked concurrently (errgroup), since each check is itself a
// round-trip through that lobby's own actor goroutine and nothing here
// needs them serialized.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	actors := r.store.List()
	g, gctx := errgroup.WithContext(ctx)
	reap := make(chan *lobbyactor.Actor, len(actors))

	for _, a := range actors {
		a := a
		g.Go(func() error {
			status, err := a.Status(gctx)
			if err != nil {
				return nil // context canceled mid-sweep; next tick retries
			}
			if status.Empty && !status.Admin {
				reap <- a
			}
			return nil
		})
	}
	_ = g.Wait()
	close(reap)

	reaped := false
	for a := range reap {
		r.log.Info("reaping empty lobby", zap.String("lobby", a.ID()))
		r.pub.Publish(a.ID(), []engine.Event{{Type: engine.EvtLobbyDeleted}})
		a.Shutdown()
		r.store.Delete(a.ID())
		reaped = true
	}
	if reaped {
		r.pub.PublishLobbiesUpdated(r.lobbyIDs())
	}
}

func (r *Reaper) lobbyIDs() []string {
	actors := r.store.List()
	ids := make([]string, 0, len(actors))
	for _, a := range actors {
		ids = append(ids, a.ID())
	}
	return ids
}
