// Package config loads the squad subsystem configuration from a yaml
// document. Unknown keys are ignored and missing keys fall back to defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ravenhold/squadcore/internal/domain/member"
)

// Config is the root configuration document.
type Config struct {
	Enabled               bool                `yaml:"enabled"`
	MaxSquads             int                 `yaml:"max_squads"`
	MaxSquadSize          int                 `yaml:"max_squad_size"`
	MinSquadSize          int                 `yaml:"min_squad_size"`
	SquadLevelRequirement int                 `yaml:"squad_level_requirement"`
	AllowMultiSquad       bool                `yaml:"allow_multi_squad"`
	Economy               Economy             `yaml:"economy"`
	Roles                 map[string]RoleSpec `yaml:"roles"`
	SquadLevels           map[int]LevelSpec   `yaml:"squad_levels"`
	Perks                 map[string]float64  `yaml:"perks"`
	TreasuryPerks         map[string]float64  `yaml:"treasury_perks"`
	SyncIntervalSeconds   int                 `yaml:"sync_interval_seconds"`
	StoreTimeoutSeconds   int                 `yaml:"store_timeout_seconds"`
	Storage               Storage             `yaml:"storage"`
	Logging               Logging             `yaml:"logging"`
}

// Economy holds the cost constants for squad creation and leveling.
type Economy struct {
	CreateCost            int64   `yaml:"create_cost"`
	LevelUpCostBase       float64 `yaml:"level_up_cost_base"`
	LevelUpCostMultiplier float64 `yaml:"level_up_cost_multiplier"`
	TreasuryTaxPercent    float64 `yaml:"treasury_tax_percent"`
}

// RoleSpec configures one role's permissions and withdrawal ceiling.
type RoleSpec struct {
	Permissions []string `yaml:"permissions"`
	// TreasuryLimit caps a single withdrawal for this role; zero means
	// unlimited.
	TreasuryLimit int64 `yaml:"treasury_limit"`
}

// LevelSpec configures member bounds and perks for one squad level.
type LevelSpec struct {
	MinMembers int      `yaml:"min_members"`
	MaxMembers int      `yaml:"max_members"`
	Perks      []string `yaml:"perks"`
}

// Storage configures the durable store connection.
type Storage struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Enabled:      true,
		MaxSquads:    0,
		MaxSquadSize: 50,
		MinSquadSize: 1,
		Economy: Economy{
			CreateCost:            500,
			LevelUpCostBase:       1000,
			LevelUpCostMultiplier: 1.5,
			TreasuryTaxPercent:    0,
		},
		SquadLevels: map[int]LevelSpec{
			1: {MinMembers: 1, MaxMembers: 10},
			2: {MinMembers: 1, MaxMembers: 15},
			3: {MinMembers: 1, MaxMembers: 20, Perks: []string{"treasury_interest"}},
			4: {MinMembers: 1, MaxMembers: 30, Perks: []string{"treasury_interest"}},
			5: {MinMembers: 1, MaxMembers: 50, Perks: []string{"treasury_interest", "xp_boost"}},
		},
		Perks:               map[string]float64{"xp_boost": 1.1},
		TreasuryPerks:       map[string]float64{"treasury_interest": 0.01},
		SyncIntervalSeconds: 60,
		StoreTimeoutSeconds: 5,
		Storage:             Storage{Driver: "memory"},
		Logging:             Logging{Level: "info", Format: "text"},
	}
}

// Load reads config/squads.yaml relative to the working directory.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "squads.yaml"))
}

// LoadFromPath reads and parses the configuration at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read squads config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse squads config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads the configuration or returns defaults when the file is
// absent.
func LoadOrDefault(path string) *Config {
	cfg, err := LoadFromPath(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Economy.LevelUpCostBase <= 0 {
		c.Economy.LevelUpCostBase = def.Economy.LevelUpCostBase
	}
	if c.Economy.LevelUpCostMultiplier <= 0 {
		c.Economy.LevelUpCostMultiplier = def.Economy.LevelUpCostMultiplier
	}
	if len(c.SquadLevels) == 0 {
		c.SquadLevels = def.SquadLevels
	}
	if c.SyncIntervalSeconds <= 0 {
		c.SyncIntervalSeconds = def.SyncIntervalSeconds
	}
	if c.StoreTimeoutSeconds <= 0 {
		c.StoreTimeoutSeconds = def.StoreTimeoutSeconds
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
}

// SyncInterval returns the reconciliation interval as a duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// StoreTimeout returns the bound applied to individual store operations.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// MaxMembersFor returns the member cap for a squad level. Levels above the
// configured table clamp to the highest configured level.
func (c *Config) MaxMembersFor(level int) int {
	if spec, ok := c.SquadLevels[level]; ok && spec.MaxMembers > 0 {
		return capSize(spec.MaxMembers, c.MaxSquadSize)
	}
	best := 0
	for lvl, spec := range c.SquadLevels {
		if lvl <= level && spec.MaxMembers > best {
			best = spec.MaxMembers
		}
	}
	if best == 0 {
		best = Default().SquadLevels[1].MaxMembers
	}
	return capSize(best, c.MaxSquadSize)
}

func capSize(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}

// PermissionTable builds the role decision table. Roles configured in the
// document override the built-in defaults; an empty roles section leaves the
// defaults intact.
func (c *Config) PermissionTable() member.PermissionTable {
	table := member.DefaultPermissions()
	for name, spec := range c.Roles {
		role := member.Role(name)
		if !role.Valid() {
			continue
		}
		set := make(map[member.Permission]bool, len(spec.Permissions))
		for _, perm := range spec.Permissions {
			set[member.Permission(perm)] = true
		}
		table[role] = set
	}
	return table
}

// TreasuryLimitFor returns the single-withdrawal cap for a role; zero means
// unlimited.
func (c *Config) TreasuryLimitFor(role member.Role) int64 {
	spec, ok := c.Roles[string(role)]
	if !ok {
		return 0
	}
	return spec.TreasuryLimit
}
