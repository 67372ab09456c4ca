package member

import "testing"

func TestDefaultPermissions(t *testing.T) {
	table := DefaultPermissions()

	for _, perm := range AllPermissions {
		if !table.Allows(RoleCaptain, perm) {
			t.Fatalf("captain should hold %s", perm)
		}
	}

	if table.Allows(RoleLieutenant, PermDisbandSquad) {
		t.Fatal("lieutenant must not disband squads")
	}
	if table.Allows(RoleLieutenant, PermChangeRanks) {
		t.Fatal("lieutenant must not change ranks")
	}
	if !table.Allows(RoleLieutenant, PermWithdrawTreasury) {
		t.Fatal("lieutenant should withdraw from the treasury")
	}

	if !table.Allows(RoleMember, PermAccessSquadLog) {
		t.Fatal("member should read the squad log")
	}
	for _, perm := range AllPermissions {
		if perm == PermAccessSquadLog {
			continue
		}
		if table.Allows(RoleMember, perm) {
			t.Fatalf("member must not hold %s", perm)
		}
	}
}

func TestPermissionTableUnknownRole(t *testing.T) {
	table := DefaultPermissions()
	if table.Allows(Role("HERALD"), PermAccessSquadLog) {
		t.Fatal("unknown role should hold nothing")
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleCaptain, RoleLieutenant, RoleMember} {
		if !role.Valid() {
			t.Fatalf("%s should be valid", role)
		}
	}
	if Role("OVERLORD").Valid() {
		t.Fatal("unknown role should be invalid")
	}
}
