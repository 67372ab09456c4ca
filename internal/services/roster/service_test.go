package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/ravenhold/squadcore/internal/audit"
	"github.com/ravenhold/squadcore/internal/cache"
	"github.com/ravenhold/squadcore/internal/config"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage/memory"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	cache   *cache.Cache
	squadID string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	store := memory.New()
	sessionCache := cache.New()
	recorder := audit.NewRecorder(store, nil)
	svc := New(cfg, sessionCache, store, store, recorder, nil)

	ctx := context.Background()
	sq, err := store.CreateSquad(ctx, squad.Squad{
		Name:       "Iron Banner",
		CaptainID:  "captain",
		Level:      1,
		MaxMembers: cfg.MaxMembersFor(1),
	})
	if err != nil {
		t.Fatalf("create squad: %v", err)
	}
	captain, err := store.CreateMember(ctx, member.Member{
		SquadID: sq.ID, PlayerID: "captain", PlayerName: "Jon", Role: member.RoleCaptain,
	})
	if err != nil {
		t.Fatalf("create captain: %v", err)
	}
	sessionCache.Put(cache.State{Squad: sq, Members: map[string]member.Member{"captain": captain}})
	return &fixture{svc: svc, store: store, cache: sessionCache, squadID: sq.ID}
}

func TestAddMember(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	added, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if added.Role != member.RoleMember {
		t.Fatalf("unexpected role: %s", added.Role)
	}

	stored, err := f.store.GetMember(ctx, f.squadID, "p2")
	if err != nil {
		t.Fatalf("membership not persisted: %v", err)
	}
	if stored.PlayerName != "Sam" {
		t.Fatalf("unexpected name: %s", stored.PlayerName)
	}

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); !errors.Is(err, member.ErrAlreadyMember) {
		t.Fatalf("duplicate join should decline, got %v", err)
	}
}

func TestAddMemberCapacity(t *testing.T) {
	cfg := config.Default()
	cfg.SquadLevels = map[int]config.LevelSpec{1: {MinMembers: 1, MaxMembers: 2}}
	f := newFixture(t, cfg)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); err != nil {
		t.Fatalf("second member: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.squadID, "p3", "Pip", member.RoleMember); !errors.Is(err, squad.ErrSquadFull) {
		t.Fatalf("expected capacity decline, got %v", err)
	}

	members, _ := f.svc.Members(ctx, f.squadID)
	if len(members) != 2 {
		t.Fatalf("declined join must not change the roster: %d", len(members))
	}
}

func TestAddMemberSingleSquadPolicy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	other, err := f.store.CreateSquad(ctx, squad.Squad{Name: "Second Sons", CaptainID: "x", Level: 1, MaxMembers: 10})
	if err != nil {
		t.Fatalf("create squad: %v", err)
	}
	f.cache.Put(cache.State{Squad: other, Members: map[string]member.Member{}})

	if _, err := f.svc.AddMember(ctx, other.ID, "captain", "Jon", member.RoleCaptain); !errors.Is(err, member.ErrAlreadyMember) {
		t.Fatalf("cross-squad join should decline by default, got %v", err)
	}

	cfg := config.Default()
	cfg.AllowMultiSquad = true
	multi := New(cfg, f.cache, f.store, f.store, audit.NewRecorder(f.store, nil), nil)
	if _, err := multi.AddMember(ctx, other.ID, "captain", "Jon", member.RoleCaptain); err != nil {
		t.Fatalf("multi-squad join should be allowed when configured: %v", err)
	}
}

func TestSecondCaptainRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleCaptain); !errors.Is(err, member.ErrCaptainImmovable) {
		t.Fatalf("second captain should be rejected, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	// Self leave.
	if err := f.svc.RemoveMember(ctx, f.squadID, "p2", "p2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := f.store.GetMember(ctx, f.squadID, "p2"); err == nil {
		t.Fatal("membership row should be deleted")
	}
}

func TestRemoveCaptainRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.svc.RemoveMember(ctx, f.squadID, "captain", "captain"); !errors.Is(err, member.ErrCaptainImmovable) {
		t.Fatalf("captain removal should be rejected, got %v", err)
	}
	if _, err := f.store.GetMember(ctx, f.squadID, "captain"); err != nil {
		t.Fatalf("captain must remain: %v", err)
	}
}

func TestKickRequiresPermission(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.squadID, "p3", "Pip", member.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	if err := f.svc.RemoveMember(ctx, f.squadID, "p2", "p3"); !errors.Is(err, member.ErrPermissionDenied) {
		t.Fatalf("member kick should be denied, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.squadID, "p2", "captain"); err != nil {
		t.Fatalf("captain kick: %v", err)
	}
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	updated, err := f.svc.ChangeRole(ctx, f.squadID, "p2", member.RoleLieutenant, "captain")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if updated.Role != member.RoleLieutenant {
		t.Fatalf("unexpected role: %s", updated.Role)
	}

	if _, err := f.svc.ChangeRole(ctx, f.squadID, "p2", member.RoleMember, "p2"); !errors.Is(err, member.ErrPermissionDenied) {
		t.Fatalf("rank change needs CHANGE_RANKS, got %v", err)
	}
	if _, err := f.svc.ChangeRole(ctx, f.squadID, "p2", member.RoleCaptain, "captain"); !errors.Is(err, member.ErrCaptainImmovable) {
		t.Fatalf("captaincy cannot be granted via role change, got %v", err)
	}
	if _, err := f.svc.ChangeRole(ctx, f.squadID, "captain", member.RoleMember, "captain"); !errors.Is(err, member.ErrCaptainImmovable) {
		t.Fatalf("captain cannot be demoted via role change, got %v", err)
	}
}

func TestTransferCaptaincy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.squadID, "p2", "Sam", member.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	if err := f.svc.TransferCaptaincy(ctx, f.squadID, "p2", "captain"); !errors.Is(err, member.ErrPermissionDenied) {
		t.Fatalf("only the captain may transfer, got %v", err)
	}

	if err := f.svc.TransferCaptaincy(ctx, f.squadID, "captain", "p2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	newCaptain, _ := f.store.GetMember(ctx, f.squadID, "p2")
	if newCaptain.Role != member.RoleCaptain {
		t.Fatalf("target not promoted: %s", newCaptain.Role)
	}
	oldCaptain, _ := f.store.GetMember(ctx, f.squadID, "captain")
	if oldCaptain.Role != member.RoleLieutenant {
		t.Fatalf("old captain not demoted: %s", oldCaptain.Role)
	}
	sq, _ := f.store.GetSquad(ctx, f.squadID)
	if sq.CaptainID != "p2" {
		t.Fatalf("captain id not persisted: %s", sq.CaptainID)
	}

	// After the transfer the old captain can leave.
	if err := f.svc.RemoveMember(ctx, f.squadID, "captain", "captain"); err != nil {
		t.Fatalf("old captain should leave freely: %v", err)
	}
}

func TestHasPermission(t *testing.T) {
	f := newFixture(t, nil)

	if f.svc.HasPermission(member.RoleMember, member.PermDisbandSquad) {
		t.Fatal("member must not disband")
	}
	for _, perm := range member.AllPermissions {
		if !f.svc.HasPermission(member.RoleCaptain, perm) {
			t.Fatalf("captain should hold %s", perm)
		}
	}
}
