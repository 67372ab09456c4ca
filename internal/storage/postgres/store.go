// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/ledger"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.SquadStore = (*Store)(nil)
var _ storage.MemberStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- SquadStore -------------------------------------------------------------

func (s *Store) CreateSquad(ctx context.Context, sq squad.Squad) (squad.Squad, error) {
	if sq.ID == "" {
		sq.ID = uuid.NewString()
	}
	if sq.CreatedAt.IsZero() {
		sq.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO squads (id, name, captain_uuid, description, level, treasury_coins, treasury_xp, max_members, created_at, disbanded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    captain_uuid = EXCLUDED.captain_uuid,
		    description = EXCLUDED.description,
		    level = EXCLUDED.level,
		    treasury_coins = EXCLUDED.treasury_coins,
		    treasury_xp = EXCLUDED.treasury_xp,
		    max_members = EXCLUDED.max_members
	`, sq.ID, sq.Name, sq.CaptainID, sq.Description, sq.Level, sq.Treasury.Coins, sq.Treasury.XP, sq.MaxMembers, sq.CreatedAt, sq.DisbandedAt)
	if err != nil {
		return squad.Squad{}, err
	}
	return sq, nil
}

func (s *Store) GetSquad(ctx context.Context, id string) (squad.Squad, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, captain_uuid, description, level, treasury_coins, treasury_xp, max_members, created_at, disbanded_at
		FROM squads
		WHERE id = $1
	`, id)
	return scanSquad(row)
}

func (s *Store) UpdateSquadLevelAndTreasury(ctx context.Context, id string, level, maxMembers int, treasury squad.Treasury) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE squads
		SET level = $2, max_members = $3, treasury_coins = $4, treasury_xp = $5
		WHERE id = $1 AND disbanded_at IS NULL
	`, id, level, maxMembers, treasury.Coins, treasury.XP)
	return err
}

func (s *Store) UpdateSquadCaptain(ctx context.Context, id, captainID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE squads SET captain_uuid = $2 WHERE id = $1
	`, id, captainID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) MarkDisbanded(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE squads SET disbanded_at = $2 WHERE id = $1 AND disbanded_at IS NULL
	`, id, at.UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveSquads(ctx context.Context) ([]squad.Squad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, captain_uuid, description, level, treasury_coins, treasury_xp, max_members, created_at, disbanded_at
		FROM squads
		WHERE disbanded_at IS NULL
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []squad.Squad
	for rows.Next() {
		sq, err := scanSquad(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sq)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSquad(row rowScanner) (squad.Squad, error) {
	var (
		sq        squad.Squad
		disbanded sql.NullTime
	)
	err := row.Scan(&sq.ID, &sq.Name, &sq.CaptainID, &sq.Description, &sq.Level,
		&sq.Treasury.Coins, &sq.Treasury.XP, &sq.MaxMembers, &sq.CreatedAt, &disbanded)
	if err != nil {
		return squad.Squad{}, translateErr(err)
	}
	if disbanded.Valid {
		t := disbanded.Time
		sq.DisbandedAt = &t
	}
	return sq, nil
}

// --- MemberStore ------------------------------------------------------------

func (s *Store) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO squad_members (id, squad_id, player_uuid, player_name, role, joined_at, contributions_coins, contributions_xp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.SquadID, m.PlayerID, m.PlayerName, string(m.Role), m.JoinedAt, m.ContributionCoins, m.ContributionXP)
	if err != nil {
		return member.Member{}, err
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, squadID, playerID string) (member.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, squad_id, player_uuid, player_name, role, joined_at, contributions_coins, contributions_xp
		FROM squad_members
		WHERE squad_id = $1 AND player_uuid = $2
	`, squadID, playerID)
	return scanMember(row)
}

func (s *Store) ListMembers(ctx context.Context, squadID string) ([]member.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, squad_id, player_uuid, player_name, role, joined_at, contributions_coins, contributions_xp
		FROM squad_members
		WHERE squad_id = $1
		ORDER BY joined_at
	`, squadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

func (s *Store) ListMembershipsByPlayer(ctx context.Context, playerID string) ([]member.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.squad_id, m.player_uuid, m.player_name, m.role, m.joined_at, m.contributions_coins, m.contributions_xp
		FROM squad_members m
		JOIN squads s ON s.id = m.squad_id
		WHERE m.player_uuid = $1 AND s.disbanded_at IS NULL
		ORDER BY m.joined_at
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

func (s *Store) UpdateMemberRole(ctx context.Context, squadID, playerID string, role member.Role) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE squad_members SET role = $3 WHERE squad_id = $1 AND player_uuid = $2
	`, squadID, playerID, string(role))
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateMemberContributions(ctx context.Context, squadID, playerID string, coins, xp int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE squad_members SET contributions_coins = $3, contributions_xp = $4
		WHERE squad_id = $1 AND player_uuid = $2
	`, squadID, playerID, coins, xp)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, squadID, playerID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM squad_members WHERE squad_id = $1 AND player_uuid = $2
	`, squadID, playerID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanMember(row rowScanner) (member.Member, error) {
	var (
		m    member.Member
		role string
	)
	err := row.Scan(&m.ID, &m.SquadID, &m.PlayerID, &m.PlayerName, &role, &m.JoinedAt,
		&m.ContributionCoins, &m.ContributionXP)
	if err != nil {
		return member.Member{}, translateErr(err)
	}
	m.Role = member.Role(role)
	return m, nil
}

func collectMembers(rows *sql.Rows) ([]member.Member, error) {
	var result []member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO squad_treasury_history (id, squad_id, action, amount, resource_type, player_name, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tx.ID, tx.SquadID, string(tx.Action), tx.Amount, string(tx.ResourceType), tx.ActorName, tx.Timestamp)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, squadID string, limit int) ([]ledger.Transaction, error) {
	query := `
		SELECT id, squad_id, action, amount, resource_type, player_name, timestamp
		FROM squad_treasury_history
		WHERE squad_id = $1
		ORDER BY timestamp`
	args := []interface{}{squadID}
	if limit > 0 {
		query += ` DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		var (
			tx       ledger.Transaction
			action   string
			resource string
		)
		if err := rows.Scan(&tx.ID, &tx.SquadID, &action, &tx.Amount, &resource, &tx.ActorName, &tx.Timestamp); err != nil {
			return nil, err
		}
		tx.Action = ledger.Action(action)
		tx.ResourceType = ledger.ResourceType(resource)
		result = append(result, tx)
	}
	return result, rows.Err()
}

// --- AuditStore -------------------------------------------------------------

func (s *Store) AppendEvent(ctx context.Context, ev audit.Event) (audit.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO squad_log (id, squad_id, event_type, description, player_name, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.SquadID, ev.EventType, ev.Description, ev.ActorName, ev.Timestamp)
	if err != nil {
		return audit.Event{}, err
	}
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context, squadID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, squad_id, event_type, description, player_name, timestamp
		FROM squad_log
		WHERE squad_id = $1
		ORDER BY timestamp
	`, squadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Event
	for rows.Next() {
		var ev audit.Event
		if err := rows.Scan(&ev.ID, &ev.SquadID, &ev.EventType, &ev.Description, &ev.ActorName, &ev.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
