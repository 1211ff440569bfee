package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./dmlogs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", viper.GetString("api.serverUrl"))
	assert.Equal(t, "", viper.GetString("api.apiKey"))
	assert.Equal(t, "dmhelper", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "combat", viper.GetString("influx.bucket"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "", viper.GetString("narrative.poolsFile"))
	assert.Equal(t, "static", viper.GetString("roster.source"))
	assert.True(t, viper.GetBool("combat.showRollBreakdown"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("DMHELPER_COMBAT_MAXROLLVALUE", "100")

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, 100, GetCombatConfig().MaxRollValue)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetCombatConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetCombatConfig()
	assert.True(t, cfg.AutoApplyDamage)
	assert.True(t, cfg.ClearRollsAfterResolve)
	assert.True(t, cfg.ClampHPToZero)
	assert.False(t, cfg.AutoEngageOnAdd)
	assert.Equal(t, 1, cfg.DefaultPlayerDamage)
	assert.Equal(t, 1, cfg.DefaultMonsterDamage)
	assert.Equal(t, 10, cfg.DefaultMonsterHP)
	assert.Equal(t, 10, cfg.DefaultMonsterDC)
	assert.Equal(t, 10, cfg.DefaultPlayerHP)
	assert.Equal(t, 20, cfg.MaxRollValue)
	assert.Equal(t, 0, cfg.FeedMaxEntries)
}

func TestGetCombatConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"combat": {
			"autoApplyDamage": false,
			"autoEngageOnAdd": true,
			"defaultMonsterDamage": 3,
			"defaultMonsterDC": 14,
			"feedMaxEntries": 200
		}
	}`)))

	cfg := GetCombatConfig()
	assert.False(t, cfg.AutoApplyDamage)
	assert.True(t, cfg.AutoEngageOnAdd)
	assert.Equal(t, 3, cfg.DefaultMonsterDamage)
	assert.Equal(t, 14, cfg.DefaultMonsterDC)
	assert.Equal(t, 200, cfg.FeedMaxEntries)
	assert.True(t, cfg.ClearRollsAfterResolve)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./combatlogs", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "ws://localhost:5000/api/v1/stream", cfg.WebSocket.URL)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "path": "/tmp/combat.db", "dumpInterval": "10m" },
			"websocket": { "url": "ws://display:9000/stream", "secret": "s3" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, "/tmp/combat.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://display:9000/stream", sc.WebSocket.URL)
	assert.Equal(t, "s3", sc.WebSocket.Secret)
}

func TestGetDBConfig_DSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"db": {"host": "db", "password": "pw"}}`)))

	assert.Equal(t,
		"host=db port=5432 user=postgres password=pw dbname=dmhelper sslmode=disable",
		GetDBConfig().DSN())
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "dmhelper", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetRosterConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"roster": {
			"source": "static",
			"members": [
				{ "id": 101, "name": "Bram Stoutheart@Cactuar" },
				{ "id": 102, "name": "Aurora Vance@Balmung" }
			]
		}
	}`)))

	rc, err := GetRosterConfig()
	require.NoError(t, err)
	assert.Equal(t, "static", rc.Source)
	require.Len(t, rc.Members, 2)
	assert.Equal(t, uint32(101), rc.Members[0].ID)
	assert.Equal(t, "Aurora Vance@Balmung", rc.Members[1].Name)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "url": "http://influx:8086", "org": "table" },
		"graylog": { "enabled": true, "address": "gelf:12201" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "http://influx:8086", ic.URL)
	assert.Equal(t, "table", ic.Org)
	assert.Equal(t, "combat", ic.Bucket)

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "gelf:12201", gc.Address)
}
