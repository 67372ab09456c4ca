package member

// Permission names a squad action a role may be allowed to perform.
type Permission string

const (
	PermInviteMembers    Permission = "INVITE_MEMBERS"
	PermKickMembers      Permission = "KICK_MEMBERS"
	PermDepositTreasury  Permission = "DEPOSIT_TREASURY"
	PermWithdrawTreasury Permission = "WITHDRAW_TREASURY"
	PermUpgradeSquad     Permission = "UPGRADE_SQUAD"
	PermChangeRanks      Permission = "CHANGE_RANKS"
	PermDisbandSquad     Permission = "DISBAND_SQUAD"
	PermAccessSquadLog   Permission = "ACCESS_SQUAD_LOG"
)

// AllPermissions lists every known permission.
var AllPermissions = []Permission{
	PermInviteMembers,
	PermKickMembers,
	PermDepositTreasury,
	PermWithdrawTreasury,
	PermUpgradeSquad,
	PermChangeRanks,
	PermDisbandSquad,
	PermAccessSquadLog,
}

// PermissionTable maps each role to the set of permissions it holds. It is
// the single source of truth for authorization decisions.
type PermissionTable map[Role]map[Permission]bool

// Allows reports whether the role holds the permission.
func (t PermissionTable) Allows(role Role, perm Permission) bool {
	set, ok := t[role]
	if !ok {
		return false
	}
	return set[perm]
}

// DefaultPermissions returns the built-in role decision table: captains hold
// every permission, lieutenants everything except disband and rank changes,
// members only log access.
func DefaultPermissions() PermissionTable {
	captain := make(map[Permission]bool, len(AllPermissions))
	lieutenant := make(map[Permission]bool, len(AllPermissions))
	for _, perm := range AllPermissions {
		captain[perm] = true
		if perm != PermDisbandSquad && perm != PermChangeRanks {
			lieutenant[perm] = true
		}
	}
	return PermissionTable{
		RoleCaptain:    captain,
		RoleLieutenant: lieutenant,
		RoleMember: {
			PermAccessSquadLog: true,
		},
	}
}
