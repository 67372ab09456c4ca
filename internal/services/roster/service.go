// Package roster manages squad membership and role authorization.
package roster

import (
	"context"
	"fmt"

	"github.com/ravenhold/squadcore/internal/audit"
	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/config"
	auditdomain "github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/pkg/logger"
)

// Service implements membership and role authority.
type Service struct {
	cfg     *config.Config
	cache   *cache.Cache
	squads  storage.SquadStore
	members storage.MemberStore
	audit   *audit.Recorder
	perms   member.PermissionTable
	log     *logger.Logger
}

// New constructs the roster service.
func New(cfg *config.Config, c *cache.Cache, squads storage.SquadStore, members storage.MemberStore, recorder *audit.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("roster")
	}
	return &Service{
		cfg:     cfg,
		cache:   c,
		squads:  squads,
		members: members,
		audit:   recorder,
		perms:   cfg.PermissionTable(),
		log:     log,
	}
}

// HasPermission answers whether a role holds a permission. The decision
// table is data, not control flow; see member.DefaultPermissions.
func (s *Service) HasPermission(role member.Role, perm member.Permission) bool {
	return s.perms.Allows(role, perm)
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout())
}

// AddMember joins a player to a squad. It declines with squad.ErrSquadFull
// at the member cap and member.ErrAlreadyMember for duplicate or, unless
// allow_multi_squad is set, cross-squad memberships. The captain role can
// only be assigned to the first member of a squad.
func (s *Service) AddMember(ctx context.Context, squadID, playerID, playerName string, role member.Role) (member.Member, error) {
	if !role.Valid() {
		return member.Member{}, member.ErrInvalidRole
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if !s.cfg.AllowMultiSquad {
		existing, err := s.members.ListMembershipsByPlayer(ctx, playerID)
		if err != nil {
			return member.Member{}, fmt.Errorf("check memberships: %w", err)
		}
		for _, m := range existing {
			if m.SquadID != squadID {
				return member.Member{}, member.ErrAlreadyMember
			}
		}
	}

	var added member.Member
	err := s.cache.Update(squadID, func(state *cache.State) error {
		if state.Squad.Disbanded() {
			return squad.ErrDisbanded
		}
		if _, exists := state.Members[playerID]; exists {
			return member.ErrAlreadyMember
		}
		if len(state.Members) >= state.Squad.MaxMembers {
			return squad.ErrSquadFull
		}
		if role == member.RoleCaptain && len(state.Members) > 0 {
			return member.ErrCaptainImmovable
		}

		created, err := s.members.CreateMember(ctx, member.Member{
			SquadID:    squadID,
			PlayerID:   playerID,
			PlayerName: playerName,
			Role:       role,
		})
		if err != nil {
			return fmt.Errorf("persist membership: %w", err)
		}
		state.Members[playerID] = created
		added = created
		return nil
	})
	if err != nil {
		return member.Member{}, err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventMemberJoined,
		fmt.Sprintf("%s joined as %s", playerName, role), playerName)
	return added, nil
}

// RemoveMember removes a player from a squad. Removing the captain declines
// with member.ErrCaptainImmovable; transfer the captaincy first. When the
// actor is not the leaving player, the actor's role must grant KICK_MEMBERS.
func (s *Service) RemoveMember(ctx context.Context, squadID, playerID, actorID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		removedName string
		actorName   string
	)
	err := s.cache.Update(squadID, func(state *cache.State) error {
		target, ok := state.Members[playerID]
		if !ok {
			return storage.ErrNotFound
		}
		if target.Role == member.RoleCaptain {
			return member.ErrCaptainImmovable
		}
		if actorID != "" && actorID != playerID {
			actor, ok := state.Members[actorID]
			if !ok || !s.perms.Allows(actor.Role, member.PermKickMembers) {
				return member.ErrPermissionDenied
			}
			actorName = actor.PlayerName
		}

		if err := s.members.DeleteMember(ctx, squadID, playerID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		delete(state.Members, playerID)
		removedName = target.PlayerName
		return nil
	})
	if err != nil {
		return err
	}

	description := fmt.Sprintf("%s left the squad", removedName)
	if actorName != "" {
		description = fmt.Sprintf("%s was removed by %s", removedName, actorName)
	}
	s.audit.Record(ctx, squadID, auditdomain.EventMemberLeft, description, removedName)
	return nil
}

// ChangeRole promotes or demotes a member between LIEUTENANT and MEMBER.
// Only a role granting CHANGE_RANKS may act, and the captaincy cannot be
// granted or revoked through this path; use TransferCaptaincy.
func (s *Service) ChangeRole(ctx context.Context, squadID, playerID string, newRole member.Role, actorID string) (member.Member, error) {
	if !newRole.Valid() {
		return member.Member{}, member.ErrInvalidRole
	}
	if newRole == member.RoleCaptain {
		return member.Member{}, member.ErrCaptainImmovable
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		updated   member.Member
		actorName string
	)
	err := s.cache.Update(squadID, func(state *cache.State) error {
		actor, ok := state.Members[actorID]
		if !ok || !s.perms.Allows(actor.Role, member.PermChangeRanks) {
			return member.ErrPermissionDenied
		}
		actorName = actor.PlayerName

		target, ok := state.Members[playerID]
		if !ok {
			return storage.ErrNotFound
		}
		if target.Role == member.RoleCaptain {
			return member.ErrCaptainImmovable
		}
		if target.Role == newRole {
			updated = target
			return nil
		}

		if err := s.members.UpdateMemberRole(ctx, squadID, playerID, newRole); err != nil {
			return fmt.Errorf("persist role change: %w", err)
		}
		target.Role = newRole
		state.Members[playerID] = target
		updated = target
		return nil
	})
	if err != nil {
		return member.Member{}, err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventRoleChanged,
		fmt.Sprintf("%s is now %s", updated.PlayerName, updated.Role), actorName)
	return updated, nil
}

// TransferCaptaincy hands the captaincy from the current captain to another
// member. The outgoing captain becomes a lieutenant. This is the only path
// that reassigns the CAPTAIN role, keeping exactly one captain per squad.
func (s *Service) TransferCaptaincy(ctx context.Context, squadID, fromPlayerID, toPlayerID string) error {
	if fromPlayerID == toPlayerID {
		return member.ErrInvalidRole
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var fromName, toName string
	err := s.cache.Update(squadID, func(state *cache.State) error {
		from, ok := state.Members[fromPlayerID]
		if !ok || from.Role != member.RoleCaptain {
			return member.ErrPermissionDenied
		}
		to, ok := state.Members[toPlayerID]
		if !ok {
			return storage.ErrNotFound
		}

		if err := s.members.UpdateMemberRole(ctx, squadID, toPlayerID, member.RoleCaptain); err != nil {
			return fmt.Errorf("promote new captain: %w", err)
		}
		if err := s.members.UpdateMemberRole(ctx, squadID, fromPlayerID, member.RoleLieutenant); err != nil {
			// Revert the promotion so the store keeps exactly one captain.
			if revertErr := s.members.UpdateMemberRole(ctx, squadID, toPlayerID, to.Role); revertErr != nil {
				s.log.WithError(revertErr).WithField("squad_id", squadID).Error("captaincy transfer revert failed")
			}
			return fmt.Errorf("demote old captain: %w", err)
		}
		if err := s.squads.UpdateSquadCaptain(ctx, squadID, toPlayerID); err != nil {
			if revertErr := s.members.UpdateMemberRole(ctx, squadID, fromPlayerID, member.RoleCaptain); revertErr != nil {
				s.log.WithError(revertErr).WithField("squad_id", squadID).Error("captaincy transfer revert failed")
			}
			if revertErr := s.members.UpdateMemberRole(ctx, squadID, toPlayerID, to.Role); revertErr != nil {
				s.log.WithError(revertErr).WithField("squad_id", squadID).Error("captaincy transfer revert failed")
			}
			return fmt.Errorf("persist captain change: %w", err)
		}

		from.Role = member.RoleLieutenant
		to.Role = member.RoleCaptain
		state.Members[fromPlayerID] = from
		state.Members[toPlayerID] = to
		state.Squad.CaptainID = toPlayerID
		fromName = from.PlayerName
		toName = to.PlayerName
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, squadID, auditdomain.EventCaptainChanged,
		fmt.Sprintf("%s handed the captaincy to %s", fromName, toName), fromName)
	return nil
}

// Members lists a squad's cached roster.
func (s *Service) Members(ctx context.Context, squadID string) ([]member.Member, error) {
	if members, ok := s.cache.Members(squadID); ok {
		return members, nil
	}
	return nil, storage.ErrNotFound
}
