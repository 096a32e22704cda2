package config

import (
	"time"

	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	AI       AIConfig       `mapstructure:"ai"`
	Economy  EconomyConfig  `mapstructure:"economy"`
	Skirmish SkirmishConfig `mapstructure:"skirmish"`
}

type ServerConfig struct {
	Debug          bool     `mapstructure:"debug"`
	DebugPort      int      `mapstructure:"debug_port"` // 0 = no debug HTTP server
	AllowIPs       []string `mapstructure:"allow_ips"`  // empty = any client
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// AIConfig holds the archetype tunables.
type AIConfig struct {
	HealerRetreat   float64  `mapstructure:"healer_retreat"`
	MeleeRetreat    float64  `mapstructure:"melee_retreat"`
	RangedRetreat   float64  `mapstructure:"ranged_retreat"`
	GuardianRetreat float64  `mapstructure:"guardian_retreat"`
	HealThreshold   float64  `mapstructure:"heal_threshold"`
	DangerZone      int      `mapstructure:"danger_zone"`
	MoveRadius      int      `mapstructure:"move_radius"`
	SupportRange    int      `mapstructure:"support_range"`
	PriorityRoles   []string `mapstructure:"priority_roles"`
}

// Archetype converts the section into the tree builder's config.
func (c AIConfig) Archetype() ai.ArchetypeConfig {
	roles := make([]ai.Role, len(c.PriorityRoles))
	for i, r := range c.PriorityRoles {
		roles[i] = ai.Role(r)
	}
	return ai.ArchetypeConfig{
		HealerRetreatThreshold:   c.HealerRetreat,
		MeleeRetreatThreshold:    c.MeleeRetreat,
		RangedRetreatThreshold:   c.RangedRetreat,
		GuardianRetreatThreshold: c.GuardianRetreat,
		HealThreshold:            c.HealThreshold,
		DangerZone:               c.DangerZone,
		MoveRadius:               c.MoveRadius,
		SupportRange:             c.SupportRange,
		PriorityRoles:            roles,
	}
}

type EconomyConfig struct {
	InitialTokens  int `mapstructure:"initial_tokens"`
	TokensPerRound int `mapstructure:"tokens_per_round"`
	MaxTokens      int `mapstructure:"max_tokens"`
}

type SkirmishConfig struct {
	ScenarioPath  string        `mapstructure:"scenario_path"`
	SkillsPath    string        `mapstructure:"skills_path"`
	MaxRounds     int           `mapstructure:"max_rounds"`
	RoundInterval time.Duration `mapstructure:"round_interval"`
	TurnsPerSec   float64       `mapstructure:"turns_per_sec"` // 0 = unpaced
	TurnBurst     int           `mapstructure:"turn_burst"`
	Seed          int64         `mapstructure:"seed"`
	LogLimit      int           `mapstructure:"log_limit"`
	TraceChannel  string        `mapstructure:"trace_channel"`
	TraceKeep     int           `mapstructure:"trace_keep"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.debug", false)
	v.SetDefault("server.debug_port", 8081)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/tactics.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("ai.healer_retreat", 0.30)
	v.SetDefault("ai.melee_retreat", 0.25)
	v.SetDefault("ai.ranged_retreat", 0.30)
	v.SetDefault("ai.guardian_retreat", 0.20)
	v.SetDefault("ai.heal_threshold", 0.60)
	v.SetDefault("ai.danger_zone", 2)
	v.SetDefault("ai.move_radius", 4)
	v.SetDefault("ai.support_range", 3)
	v.SetDefault("ai.priority_roles", []string{"healer", "ranged", "support"})
	v.SetDefault("economy.initial_tokens", 2)
	v.SetDefault("economy.tokens_per_round", 2)
	v.SetDefault("economy.max_tokens", 6)
	v.SetDefault("skirmish.scenario_path", "./data/scenario.yaml")
	v.SetDefault("skirmish.skills_path", "./data/skills.yaml")
	v.SetDefault("skirmish.max_rounds", 30)
	v.SetDefault("skirmish.round_interval", "1s")
	v.SetDefault("skirmish.turns_per_sec", 0)
	v.SetDefault("skirmish.turn_burst", 1)
	v.SetDefault("skirmish.log_limit", 500)
	v.SetDefault("skirmish.trace_channel", "ai:trace")
	v.SetDefault("skirmish.trace_keep", 2000)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
