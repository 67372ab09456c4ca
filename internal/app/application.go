// Package app ties the squad services together and manages their lifecycle.
package app

import (
	"context"

	"github.com/ravenhold/squadcore/internal/audit"
	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/config"
	"github.com/ravenhold/squadcore/internal/services/directory"
	"github.com/ravenhold/squadcore/internal/services/roster"
	"github.com/ravenhold/squadcore/internal/services/syncer"
	"github.com/ravenhold/squadcore/internal/services/treasury"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/internal/storage/memory"
	"github.com/ravenhold/squadcore/internal/system"
	"github.com/ravenhold/squadcore/internal/wallet"
	"github.com/ravenhold/squadcore/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Squads  storage.SquadStore
	Members storage.MemberStore
	Ledger  storage.LedgerStore
	Audit   storage.AuditStore
}

// Application exposes the squad subsystem services behind one lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Cache     *cache.Cache
	Directory *directory.Service
	Roster    *roster.Service
	Treasury  *treasury.Service
	Syncer    *syncer.Synchronizer
}

// New builds a fully initialised application with the provided stores and
// wallet. A nil wallet falls back to the in-memory wallet.
func New(cfg *config.Config, stores Stores, w wallet.Wallet, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("squadcore")
	}

	mem := memory.New()
	if stores.Squads == nil {
		stores.Squads = mem
	}
	if stores.Members == nil {
		stores.Members = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}
	if w == nil {
		w = wallet.NewMemory()
	}

	sessionCache := cache.New()
	recorder := audit.NewRecorder(stores.Audit, log)

	directorySvc := directory.New(cfg, sessionCache, stores.Squads, stores.Members, w, recorder, log)
	rosterSvc := roster.New(cfg, sessionCache, stores.Squads, stores.Members, recorder, log)
	treasurySvc := treasury.New(cfg, sessionCache, stores.Squads, stores.Members, stores.Ledger, recorder, log)
	sync := syncer.New(sessionCache, stores.Squads, stores.Members, cfg.SyncInterval(), cfg.StoreTimeout(), log)

	manager := system.NewManager()
	if err := manager.Register(sync); err != nil {
		return nil, err
	}

	return &Application{
		manager:   manager,
		log:       log,
		Cache:     sessionCache,
		Directory: directorySvc,
		Roster:    rosterSvc,
		Treasury:  treasurySvc,
		Syncer:    sync,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start warms the session cache and begins background reconciliation.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop cancels background services and performs the final flush.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}
