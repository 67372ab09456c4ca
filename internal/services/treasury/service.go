// Package treasury gatekeeps every squad balance mutation. All operations on
// one squad are serialized through the session cache entry lock and written
// through to the store before the cache copy is committed, so no interleaving
// can drive a balance negative or push the level past the cap.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ravenhold/squadcore/internal/audit"
	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/config"
	auditdomain "github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/ledger"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/pkg/logger"
)

// ErrWithdrawLimit is the declined outcome when an amount exceeds the acting
// role's configured treasury limit.
var ErrWithdrawLimit = errors.New("amount exceeds role treasury limit")

// WithdrawResult reports a completed withdrawal. Net is the amount after the
// configured treasury tax.
type WithdrawResult struct {
	Amount   int64
	Tax      int64
	Net      int64
	Treasury squad.Treasury
}

// Service implements the treasury ledger.
type Service struct {
	cfg    *config.Config
	cache  *cache.Cache
	squads storage.SquadStore
	member storage.MemberStore
	ledger storage.LedgerStore
	audit  *audit.Recorder
	perms  member.PermissionTable
	log    *logger.Logger
}

// New constructs the treasury service.
func New(cfg *config.Config, c *cache.Cache, squads storage.SquadStore, members storage.MemberStore, ledgerStore storage.LedgerStore, recorder *audit.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	return &Service{
		cfg:    cfg,
		cache:  c,
		squads: squads,
		member: members,
		ledger: ledgerStore,
		audit:  recorder,
		perms:  cfg.PermissionTable(),
		log:    log,
	}
}

// UpgradeCost is the pure level-up cost curve: base × multiplier^(level−1),
// rounded to the nearest coin.
func UpgradeCost(base, multiplier float64, currentLevel int) int64 {
	return int64(math.Round(base * math.Pow(multiplier, float64(currentLevel-1))))
}

// Cost returns the configured cost to upgrade from the given level.
func (s *Service) Cost(currentLevel int) int64 {
	return UpgradeCost(s.cfg.Economy.LevelUpCostBase, s.cfg.Economy.LevelUpCostMultiplier, currentLevel)
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout())
}

// Deposit adds amount to the squad's balance of the given resource. The
// acting member's contribution counters are advanced alongside. Deposits
// never decline for valid input.
func (s *Service) Deposit(ctx context.Context, squadID string, resource ledger.ResourceType, amount int64, actorID string) (squad.Treasury, error) {
	if amount < 0 {
		return squad.Treasury{}, squad.ErrNegativeAmount
	}
	if !resource.Valid() {
		return squad.Treasury{}, fmt.Errorf("unknown resource type %q", resource)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		result    squad.Treasury
		actorName string
	)
	err := s.cache.Update(squadID, func(state *cache.State) error {
		if state.Squad.Disbanded() {
			return squad.ErrDisbanded
		}
		next := state.Squad.Treasury
		switch resource {
		case ledger.ResourceCoins:
			next.Coins += amount
		case ledger.ResourceXP:
			next.XP += amount
		}

		if err := s.squads.UpdateSquadLevelAndTreasury(ctx, squadID, state.Squad.Level, state.Squad.MaxMembers, next); err != nil {
			return fmt.Errorf("persist treasury: %w", err)
		}

		actor, isMember := state.Members[actorID]
		if isMember {
			actorName = actor.PlayerName
			switch resource {
			case ledger.ResourceCoins:
				actor.ContributionCoins += amount
			case ledger.ResourceXP:
				actor.ContributionXP += amount
			}
			if err := s.member.UpdateMemberContributions(ctx, squadID, actorID, actor.ContributionCoins, actor.ContributionXP); err != nil {
				return fmt.Errorf("persist contributions: %w", err)
			}
			state.Members[actorID] = actor
		}

		if _, err := s.ledger.AppendTransaction(ctx, ledger.Transaction{
			SquadID:      squadID,
			Action:       ledger.ActionDeposit,
			Amount:       amount,
			ResourceType: resource,
			ActorName:    actorName,
		}); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		state.Squad.Treasury = next
		result = next
		return nil
	})
	if err != nil {
		return squad.Treasury{}, err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventTreasuryDeposit,
		fmt.Sprintf("deposited %d %s", amount, resource), actorName)
	return result, nil
}

// Withdraw removes amount from the squad's balance. On insufficient funds
// the operation declines with squad.ErrInsufficientFunds and nothing is
// mutated. An empty actor is treated as a trusted system caller; otherwise
// the actor must be a member whose role grants WITHDRAW_TREASURY and whose
// configured treasury limit covers the amount.
func (s *Service) Withdraw(ctx context.Context, squadID string, resource ledger.ResourceType, amount int64, actorID string) (WithdrawResult, error) {
	if amount < 0 {
		return WithdrawResult{}, squad.ErrNegativeAmount
	}
	if !resource.Valid() {
		return WithdrawResult{}, fmt.Errorf("unknown resource type %q", resource)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		result    WithdrawResult
		actorName string
	)
	err := s.cache.Update(squadID, func(state *cache.State) error {
		if state.Squad.Disbanded() {
			return squad.ErrDisbanded
		}
		if actorID != "" {
			actor, ok := state.Members[actorID]
			if !ok {
				return member.ErrPermissionDenied
			}
			if !s.perms.Allows(actor.Role, member.PermWithdrawTreasury) {
				return member.ErrPermissionDenied
			}
			if limit := s.cfg.TreasuryLimitFor(actor.Role); limit > 0 && amount > limit {
				return ErrWithdrawLimit
			}
			actorName = actor.PlayerName
		}

		next := state.Squad.Treasury
		switch resource {
		case ledger.ResourceCoins:
			if next.Coins < amount {
				return squad.ErrInsufficientFunds
			}
			next.Coins -= amount
		case ledger.ResourceXP:
			if next.XP < amount {
				return squad.ErrInsufficientFunds
			}
			next.XP -= amount
		}

		if err := s.squads.UpdateSquadLevelAndTreasury(ctx, squadID, state.Squad.Level, state.Squad.MaxMembers, next); err != nil {
			return fmt.Errorf("persist treasury: %w", err)
		}
		if _, err := s.ledger.AppendTransaction(ctx, ledger.Transaction{
			SquadID:      squadID,
			Action:       ledger.ActionWithdraw,
			Amount:       amount,
			ResourceType: resource,
			ActorName:    actorName,
		}); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		tax := int64(math.Round(float64(amount) * s.cfg.Economy.TreasuryTaxPercent / 100))
		state.Squad.Treasury = next
		result = WithdrawResult{Amount: amount, Tax: tax, Net: amount - tax, Treasury: next}
		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventTreasuryWithdraw,
		fmt.Sprintf("withdrew %d %s", amount, resource), actorName)
	return result, nil
}

// Upgrade performs the atomic check-then-deduct for a level-up. It declines
// with squad.ErrMaxLevel at the cap and squad.ErrInsufficientFunds when the
// coin balance cannot cover the cost; either way nothing is mutated.
func (s *Service) Upgrade(ctx context.Context, squadID, actorID string) (squad.Squad, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		updated   squad.Squad
		cost      int64
		actorName string
	)
	err := s.cache.Update(squadID, func(state *cache.State) error {
		if state.Squad.Disbanded() {
			return squad.ErrDisbanded
		}
		if actorID != "" {
			actor, ok := state.Members[actorID]
			if !ok {
				return member.ErrPermissionDenied
			}
			if !s.perms.Allows(actor.Role, member.PermUpgradeSquad) {
				return member.ErrPermissionDenied
			}
			actorName = actor.PlayerName
		}

		if state.Squad.Level >= squad.MaxLevel {
			return squad.ErrMaxLevel
		}
		cost = s.Cost(state.Squad.Level)
		if state.Squad.Treasury.Coins < cost {
			return squad.ErrInsufficientFunds
		}

		next := state.Squad.Treasury
		next.Coins -= cost
		newLevel := state.Squad.Level + 1
		newMax := s.cfg.MaxMembersFor(newLevel)

		if err := s.squads.UpdateSquadLevelAndTreasury(ctx, squadID, newLevel, newMax, next); err != nil {
			return fmt.Errorf("persist level-up: %w", err)
		}
		if _, err := s.ledger.AppendTransaction(ctx, ledger.Transaction{
			SquadID:      squadID,
			Action:       ledger.ActionUpgradeSpend,
			Amount:       cost,
			ResourceType: ledger.ResourceCoins,
			ActorName:    actorName,
		}); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		state.Squad.Level = newLevel
		state.Squad.MaxMembers = newMax
		state.Squad.Treasury = next
		updated = state.Squad
		return nil
	})
	if err != nil {
		return squad.Squad{}, err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventSquadLevelUp,
		fmt.Sprintf("reached level %d for %d coins", updated.Level, cost), actorName)
	s.log.WithField("squad_id", squadID).
		WithField("level", updated.Level).
		Info("squad leveled up")
	return updated, nil
}

// Transactions returns the squad's ledger history. A non-empty actor must be
// a member whose role grants ACCESS_SQUAD_LOG.
func (s *Service) Transactions(ctx context.Context, squadID, actorID string, limit int) ([]ledger.Transaction, error) {
	if actorID != "" {
		actor, ok := s.cache.Member(squadID, actorID)
		if !ok || !s.perms.Allows(actor.Role, member.PermAccessSquadLog) {
			return nil, member.ErrPermissionDenied
		}
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.ledger.ListTransactions(ctx, squadID, limit)
}
