package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmhelper/extension/internal/combat"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the directory passed to Load.
const FileName = "dmhelper.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the sqlite backend settings.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds the streaming backend settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the combat log backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database,
	)
}

// InfluxConfig holds the influx backend settings.
type InfluxConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

// GraylogConfig holds the GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// RosterMemberConfig is one statically configured party member.
type RosterMemberConfig struct {
	ID   uint32 `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// RosterConfig selects where the party roster comes from.
type RosterConfig struct {
	Source  string               `json:"source" mapstructure:"source"`
	Members []RosterMemberConfig `json:"members" mapstructure:"members"`
}

// APIConfig holds the companion web service settings.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("DMHELPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./dmlogs")

	def := combat.DefaultConfig()
	viper.SetDefault("combat.autoApplyDamage", def.AutoApplyDamage)
	viper.SetDefault("combat.clearRollsAfterResolve", def.ClearRollsAfterResolve)
	viper.SetDefault("combat.clampHPToZero", def.ClampHPToZero)
	viper.SetDefault("combat.autoEngageOnAdd", def.AutoEngageOnAdd)
	viper.SetDefault("combat.defaultPlayerDamage", def.DefaultPlayerDamage)
	viper.SetDefault("combat.defaultMonsterDamage", def.DefaultMonsterDamage)
	viper.SetDefault("combat.defaultMonsterHP", def.DefaultMonsterHP)
	viper.SetDefault("combat.defaultMonsterDC", def.DefaultMonsterDC)
	viper.SetDefault("combat.defaultPlayerHP", def.DefaultPlayerHP)
	viper.SetDefault("combat.maxRollValue", def.MaxRollValue)
	viper.SetDefault("combat.feedMaxEntries", def.FeedMaxEntries)
	viper.SetDefault("combat.showRollBreakdown", true)

	viper.SetDefault("narrative.poolsFile", "")

	viper.SetDefault("roster.source", "static")
	viper.SetDefault("roster.members", []RosterMemberConfig{})

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "dmhelper")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "dmhelper")
	viper.SetDefault("influx.bucket", "combat")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./combatlogs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "dmhelper")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCombatConfig returns the adjudication rules.
func GetCombatConfig() combat.Config {
	return combat.Config{
		AutoApplyDamage:        viper.GetBool("combat.autoApplyDamage"),
		ClearRollsAfterResolve: viper.GetBool("combat.clearRollsAfterResolve"),
		ClampHPToZero:          viper.GetBool("combat.clampHPToZero"),
		AutoEngageOnAdd:        viper.GetBool("combat.autoEngageOnAdd"),
		DefaultPlayerDamage:    viper.GetInt("combat.defaultPlayerDamage"),
		DefaultMonsterDamage:   viper.GetInt("combat.defaultMonsterDamage"),
		DefaultMonsterHP:       viper.GetInt("combat.defaultMonsterHP"),
		DefaultMonsterDC:       viper.GetInt("combat.defaultMonsterDC"),
		DefaultPlayerHP:        viper.GetInt("combat.defaultPlayerHP"),
		MaxRollValue:           viper.GetInt("combat.maxRollValue"),
		FeedMaxEntries:         viper.GetInt("combat.feedMaxEntries"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the influx settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL:     viper.GetString("influx.url"),
		Token:   viper.GetString("influx.token"),
		Org:     viper.GetString("influx.org"),
		Bucket:  viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetRosterConfig returns the roster source. Members are only used by the
// static source.
func GetRosterConfig() (RosterConfig, error) {
	rc := RosterConfig{Source: viper.GetString("roster.source")}
	if err := viper.UnmarshalKey("roster.members", &rc.Members); err != nil {
		return rc, fmt.Errorf("roster.members: %w", err)
	}
	return rc, nil
}

// GetAPIConfig returns the companion web service settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}
