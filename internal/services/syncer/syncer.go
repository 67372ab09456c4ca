// Package syncer reconciles the session cache back into the durable store.
// The periodic pass is a safety net; every foreground operation writes
// through on its own.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/internal/system"
	"github.com/ravenhold/squadcore/pkg/logger"
)

var _ system.Service = (*Synchronizer)(nil)

// Synchronizer warms the cache at startup and periodically re-persists the
// level and treasury of every cached squad.
type Synchronizer struct {
	cache    *cache.Cache
	squads   storage.SquadStore
	members  storage.MemberStore
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a lifecycle-managed synchronizer.
func New(c *cache.Cache, squads storage.SquadStore, members storage.MemberStore, interval, timeout time.Duration, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.NewDefault("syncer")
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Synchronizer{
		cache:    c,
		squads:   squads,
		members:  members,
		log:      log,
		interval: interval,
		timeout:  timeout,
	}
}

func (s *Synchronizer) Name() string { return "squad-synchronizer" }

// Start loads every active squad into the cache, then begins the periodic
// reconciliation loop. The cache never starts cold while squads exist in
// storage.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.flush(runCtx)
			}
		}
	}()

	s.log.WithField("interval", s.interval.String()).Info("squad synchronizer started")
	return nil
}

// Stop cancels the periodic loop, waits for any in-flight pass, then runs a
// final flush. The final flush can never overlap a periodic one.
func (s *Synchronizer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.flush(ctx)
	s.log.Info("squad synchronizer stopped")
	return nil
}

// Load populates the cache from storage.
func (s *Synchronizer) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	squads, err := s.squads.ListActiveSquads(ctx)
	if err != nil {
		return err
	}
	for _, sq := range squads {
		roster, err := s.members.ListMembers(ctx, sq.ID)
		if err != nil {
			return err
		}
		byPlayer := make(map[string]member.Member, len(roster))
		for _, m := range roster {
			byPlayer[m.PlayerID] = m
		}
		s.cache.Put(cache.State{Squad: sq, Members: byPlayer})
	}
	s.log.WithField("squads", len(squads)).Info("session cache loaded")
	return nil
}

func (s *Synchronizer) flush(ctx context.Context) {
	for _, sq := range s.cache.ListSquads() {
		if sq.Disbanded() {
			continue
		}
		flushCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.squads.UpdateSquadLevelAndTreasury(flushCtx, sq.ID, sq.Level, sq.MaxMembers, sq.Treasury)
		cancel()
		if err != nil {
			s.log.WithError(err).WithField("squad_id", sq.ID).Warn("squad flush failed")
		}
	}
}
