package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenhold/squadcore/internal/domain/member"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "squads.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, int64(500), cfg.Economy.CreateCost)
	assert.Equal(t, 1000.0, cfg.Economy.LevelUpCostBase)
	assert.Equal(t, 1.5, cfg.Economy.LevelUpCostMultiplier)
	assert.Equal(t, 60*time.Second, cfg.SyncInterval())
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 10, cfg.MaxMembersFor(1))
	assert.Equal(t, 50, cfg.MaxMembersFor(5))
}

func TestLoadPartialOverride(t *testing.T) {
	path := writeConfig(t, `
enabled: true
max_squads: 100
economy:
  create_cost: 250
sync_interval_seconds: 30
storage:
  driver: postgres
  dsn: postgres://localhost/squads
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MaxSquads)
	assert.Equal(t, int64(250), cfg.Economy.CreateCost)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1000.0, cfg.Economy.LevelUpCostBase)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval())
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
enabled: true
some_future_flag: 42
economy:
  create_cost: 10
  not_yet_a_thing: true
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, int64(10), cfg.Economy.CreateCost)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, int64(500), cfg.Economy.CreateCost)
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "enabled: [broken")
	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestPermissionTableOverride(t *testing.T) {
	path := writeConfig(t, `
roles:
  MEMBER:
    permissions: [DEPOSIT_TREASURY, ACCESS_SQUAD_LOG]
  LIEUTENANT:
    permissions: [INVITE_MEMBERS]
    treasury_limit: 100
  NOT_A_ROLE:
    permissions: [DISBAND_SQUAD]
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	table := cfg.PermissionTable()
	assert.True(t, table.Allows(member.RoleMember, member.PermDepositTreasury))
	assert.False(t, table.Allows(member.RoleMember, member.PermInviteMembers))
	assert.True(t, table.Allows(member.RoleLieutenant, member.PermInviteMembers))
	assert.False(t, table.Allows(member.RoleLieutenant, member.PermKickMembers))
	// Captain keeps the built-in grants when not overridden.
	assert.True(t, table.Allows(member.RoleCaptain, member.PermDisbandSquad))

	assert.Equal(t, int64(100), cfg.TreasuryLimitFor(member.RoleLieutenant))
	assert.Equal(t, int64(0), cfg.TreasuryLimitFor(member.RoleCaptain))
}

func TestMaxMembersForClamping(t *testing.T) {
	path := writeConfig(t, `
max_squad_size: 25
squad_levels:
  1:
    min_members: 1
    max_members: 10
  2:
    min_members: 1
    max_members: 40
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxMembersFor(1))
	assert.Equal(t, 25, cfg.MaxMembersFor(2))
	// Levels above the table fall back to the highest configured cap.
	assert.Equal(t, 25, cfg.MaxMembersFor(3))
}
