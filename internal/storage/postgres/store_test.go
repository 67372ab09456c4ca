package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/ledger"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
)

// openTestDB connects to the database named by TEST_POSTGRES_DSN and runs
// migrations. Tests are skipped when the variable is unset so the suite stays
// runnable without a database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"squad_log", "squad_treasury_history", "squad_members", "squads"} {
			if _, err := db.Exec("DELETE FROM " + table); err != nil {
				t.Errorf("cleanup %s: %v", table, err)
			}
		}
		db.Close()
	})
	return db
}

func TestSquadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	created, err := s.CreateSquad(ctx, squad.Squad{
		Name:       "Night Watch",
		CaptainID:  "11111111-1111-1111-1111-111111111111",
		Level:      1,
		MaxMembers: 10,
		Treasury:   squad.Treasury{Coins: 100, XP: 5},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("id must be assigned")
	}

	got, err := s.GetSquad(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Night Watch" || got.Treasury.Coins != 100 || got.Treasury.XP != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := s.UpdateSquadLevelAndTreasury(ctx, created.ID, 2, 15, squad.Treasury{Coins: 40}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetSquad(ctx, created.ID)
	if got.Level != 2 || got.MaxMembers != 15 || got.Treasury.Coins != 40 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.MarkDisbanded(ctx, created.ID, time.Now()); err != nil {
		t.Fatalf("disband: %v", err)
	}
	// The disbanded guard freezes the row against further level writes.
	if err := s.UpdateSquadLevelAndTreasury(ctx, created.ID, 3, 20, squad.Treasury{}); err != nil {
		t.Fatalf("update after disband: %v", err)
	}
	got, _ = s.GetSquad(ctx, created.ID)
	if got.Level != 2 {
		t.Fatalf("disbanded row must be frozen: %+v", got)
	}
	active, err := s.ListActiveSquads(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, sq := range active {
		if sq.ID == created.ID {
			t.Fatal("disbanded squad listed as active")
		}
	}
}

func TestSquadNotFound(t *testing.T) {
	db := openTestDB(t)
	s := New(db)

	_, err := s.GetSquad(context.Background(), "22222222-2222-2222-2222-222222222222")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemberRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	sq, err := s.CreateSquad(ctx, squad.Squad{Name: "Night Watch", CaptainID: "33333333-3333-3333-3333-333333333333", Level: 1, MaxMembers: 10})
	if err != nil {
		t.Fatalf("create squad: %v", err)
	}

	m, err := s.CreateMember(ctx, member.Member{
		SquadID:    sq.ID,
		PlayerID:   "33333333-3333-3333-3333-333333333333",
		PlayerName: "Jon",
		Role:       member.RoleCaptain,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if m.ID == "" || m.JoinedAt.IsZero() {
		t.Fatalf("id and join timestamp must be assigned: %+v", m)
	}

	// UNIQUE(squad_id, player_uuid) rejects a second row for the same player.
	if _, err := s.CreateMember(ctx, member.Member{SquadID: sq.ID, PlayerID: m.PlayerID, Role: member.RoleMember}); err == nil {
		t.Fatal("duplicate membership must be rejected")
	}

	if err := s.UpdateMemberRole(ctx, sq.ID, m.PlayerID, member.RoleLieutenant); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if err := s.UpdateMemberContributions(ctx, sq.ID, m.PlayerID, 250, 10); err != nil {
		t.Fatalf("update contributions: %v", err)
	}
	got, err := s.GetMember(ctx, sq.ID, m.PlayerID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got.Role != member.RoleLieutenant || got.ContributionCoins != 250 || got.ContributionXP != 10 {
		t.Fatalf("updates not applied: %+v", got)
	}

	if err := s.DeleteMember(ctx, sq.ID, m.PlayerID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteMember(ctx, sq.ID, m.PlayerID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestLedgerAndAuditAppend(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	sq, err := s.CreateSquad(ctx, squad.Squad{Name: "Night Watch", CaptainID: "44444444-4444-4444-4444-444444444444", Level: 1, MaxMembers: 10})
	if err != nil {
		t.Fatalf("create squad: %v", err)
	}

	for i := int64(1); i <= 3; i++ {
		_, err := s.AppendTransaction(ctx, ledger.Transaction{
			SquadID:      sq.ID,
			ActorName:    "Jon",
			Action:       ledger.ActionDeposit,
			ResourceType: ledger.ResourceCoins,
			Amount:       i * 10,
		})
		if err != nil {
			t.Fatalf("append tx: %v", err)
		}
	}
	rows, err := s.ListTransactions(ctx, sq.ID, 2)
	if err != nil {
		t.Fatalf("list tx: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if _, err := s.AppendEvent(ctx, audit.Event{
		SquadID:     sq.ID,
		EventType:   audit.EventSquadCreated,
		Description: "squad Night Watch created",
		ActorName:   "Jon",
	}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	events, err := s.ListEvents(ctx, sq.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventSquadCreated {
		t.Fatalf("unexpected events: %+v", events)
	}
}
