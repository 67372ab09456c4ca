// Package directory owns squad creation, lookup and disbanding, and the
// interaction with the external player wallet.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/ravenhold/squadcore/internal/audit"
	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/config"
	auditdomain "github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/internal/wallet"
	"github.com/ravenhold/squadcore/pkg/logger"
)

// Service implements the squad directory and lifecycle.
type Service struct {
	cfg     *config.Config
	cache   *cache.Cache
	squads  storage.SquadStore
	members storage.MemberStore
	wallet  wallet.Wallet
	audit   *audit.Recorder
	perms   member.PermissionTable
	log     *logger.Logger
}

// New constructs the directory service.
func New(cfg *config.Config, c *cache.Cache, squads storage.SquadStore, members storage.MemberStore, w wallet.Wallet, recorder *audit.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("directory")
	}
	return &Service{
		cfg:     cfg,
		cache:   c,
		squads:  squads,
		members: members,
		wallet:  w,
		audit:   recorder,
		perms:   cfg.PermissionTable(),
		log:     log,
	}
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout())
}

// CreateSquad charges the captain's wallet the creation cost, persists the
// squad at level 1 with an empty treasury, enrolls the captain and caches the
// new squad. If persistence fails after the wallet charge succeeded, the
// charge is refunded before the error is returned.
func (s *Service) CreateSquad(ctx context.Context, captainID, captainName, name, description string) (squad.Squad, error) {
	if !s.cfg.Enabled {
		return squad.Squad{}, squad.ErrDisabled
	}
	if err := squad.ValidateName(name); err != nil {
		return squad.Squad{}, err
	}
	if s.cfg.MaxSquads > 0 && s.cache.Len() >= s.cfg.MaxSquads {
		return squad.Squad{}, squad.ErrSquadLimit
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if !s.cfg.AllowMultiSquad {
		existing, err := s.members.ListMembershipsByPlayer(ctx, captainID)
		if err != nil {
			return squad.Squad{}, fmt.Errorf("check memberships: %w", err)
		}
		if len(existing) > 0 {
			return squad.Squad{}, member.ErrAlreadyMember
		}
	}

	cost := s.cfg.Economy.CreateCost
	if cost > 0 {
		ok, err := s.wallet.Withdraw(ctx, captainID, cost)
		if err != nil {
			return squad.Squad{}, fmt.Errorf("wallet charge: %w", err)
		}
		if !ok {
			return squad.Squad{}, squad.ErrInsufficientFunds
		}
	}

	created, err := s.squads.CreateSquad(ctx, squad.Squad{
		Name:        name,
		CaptainID:   captainID,
		Description: description,
		Level:       1,
		MaxMembers:  s.cfg.MaxMembersFor(1),
	})
	if err != nil {
		s.refund(ctx, captainID, cost)
		return squad.Squad{}, fmt.Errorf("persist squad: %w", err)
	}

	captain, err := s.members.CreateMember(ctx, member.Member{
		SquadID:    created.ID,
		PlayerID:   captainID,
		PlayerName: captainName,
		Role:       member.RoleCaptain,
	})
	if err != nil {
		// Compensate: retire the half-created squad and return the fee.
		if dbErr := s.squads.MarkDisbanded(ctx, created.ID, time.Now()); dbErr != nil {
			s.log.WithError(dbErr).WithField("squad_id", created.ID).Error("cleanup of half-created squad failed")
		}
		s.refund(ctx, captainID, cost)
		return squad.Squad{}, fmt.Errorf("persist captain membership: %w", err)
	}

	s.cache.Put(cache.State{
		Squad:   created,
		Members: map[string]member.Member{captainID: captain},
	})

	s.audit.Record(ctx, created.ID, auditdomain.EventSquadCreated,
		fmt.Sprintf("%s founded %s", captainName, created.Name), captainName)
	s.log.WithField("squad_id", created.ID).
		WithField("captain_id", captainID).
		Info("squad created")
	return created, nil
}

func (s *Service) refund(ctx context.Context, playerID string, amount int64) {
	if amount <= 0 {
		return
	}
	ok, err := s.wallet.Deposit(ctx, playerID, amount)
	if err != nil || !ok {
		s.log.WithError(err).
			WithField("player_id", playerID).
			WithField("amount", amount).
			Error("creation fee refund failed")
	}
}

// DisbandSquad marks the squad terminal and evicts it from the cache. Only
// the captain may disband. Historical rows remain queryable.
func (s *Service) DisbandSquad(ctx context.Context, squadID, actorID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var actorName string
	err := s.cache.Update(squadID, func(state *cache.State) error {
		actor, ok := state.Members[actorID]
		if !ok || !s.perms.Allows(actor.Role, member.PermDisbandSquad) {
			return member.ErrPermissionDenied
		}
		actorName = actor.PlayerName

		now := time.Now().UTC()
		if err := s.squads.MarkDisbanded(ctx, squadID, now); err != nil {
			return fmt.Errorf("persist disband: %w", err)
		}
		t := now
		state.Squad.DisbandedAt = &t
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Remove(squadID)
	s.audit.Record(ctx, squadID, auditdomain.EventSquadDisbanded,
		fmt.Sprintf("squad disbanded by %s", actorName), actorName)
	s.log.WithField("squad_id", squadID).Info("squad disbanded")
	return nil
}

// GetSquad returns the cached record for an active squad.
func (s *Service) GetSquad(squadID string) (squad.Squad, error) {
	if sq, ok := s.cache.Squad(squadID); ok {
		return sq, nil
	}
	return squad.Squad{}, storage.ErrNotFound
}

// ListActiveSquads returns every cached active squad.
func (s *Service) ListActiveSquads() []squad.Squad {
	return s.cache.ListSquads()
}

// Log returns the squad's audit trail ordered by timestamp. A non-empty
// actor must be a member whose role grants ACCESS_SQUAD_LOG.
func (s *Service) Log(ctx context.Context, squadID, actorID string) ([]auditdomain.Event, error) {
	if actorID != "" {
		actor, ok := s.cache.Member(squadID, actorID)
		if !ok || !s.perms.Allows(actor.Role, member.PermAccessSquadLog) {
			return nil, member.ErrPermissionDenied
		}
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.audit.Events(ctx, squadID)
}
