package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
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
		"storage": { "type": "sqlite" },
		"run": { "events": 50 }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, 50, viper.GetInt("run.events"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./varbeamlogs", viper.GetString("logsDir"))
	assert.Equal(t, "fs", viper.GetString("storage.type"))
	assert.Equal(t, "./tables", viper.GetString("storage.fs.root"))
	assert.Equal(t, "reuse", viper.GetString("tabulation.mode"))
	assert.Equal(t, 11, viper.GetInt("tabulation.samplePoints"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "varbeam", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
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

func TestGetCatalogConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cc := GetCatalogConfig()
	assert.Equal(t, DefaultProjectiles, cc.Projectiles)
	assert.Equal(t, DefaultTargets, cc.Targets)
}

func TestGetCatalogConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"catalog": { "projectiles": [2212, 211], "targets": [1000070140] }
	}`)))

	cc := GetCatalogConfig()
	assert.Equal(t, []int{2212, 211}, cc.Projectiles)
	assert.Equal(t, []int{1000070140}, cc.Targets)
}

func TestGetTabulationConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	tc := GetTabulationConfig()
	assert.Equal(t, 1e2, tc.MinLabMomentum)
	assert.Equal(t, 1e12, tc.MaxLabMomentum)
	assert.Equal(t, 11, tc.SamplePoints)
	assert.Equal(t, "reuse", tc.Mode)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "fs", cfg.Type)
	assert.Equal(t, "./tables", cfg.FS.Root)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "tables/", cfg.S3.Prefix)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "s3",
			"sqlite": { "dumpInterval": "10m" },
			"s3": {
				"bucket": "tables",
				"endpoint": "http://localhost:9000",
				"usePathStyle": true,
				"accessKeyId": "minio",
				"secretAccessKey": "minio123"
			}
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "s3", sc.Type)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "tables", sc.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", sc.S3.Endpoint)
	assert.True(t, sc.S3.UsePathStyle)
	assert.Equal(t, "minio", sc.S3.AccessKeyID)
	assert.Equal(t, "minio123", sc.S3.SecretAccessKey)
}

func TestGetRunConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"run": {
			"selector": "list",
			"list": ["2212:1000070140:500"],
			"maxFailures": 3,
			"statusInterval": "1s"
		}
	}`)))

	rc := GetRunConfig()
	assert.Equal(t, "list", rc.Selector)
	assert.Equal(t, []string{"2212:1000070140:500"}, rc.List)
	assert.Equal(t, 3, rc.MaxFailures)
	assert.Equal(t, time.Second, rc.StatusInterval)
	assert.Equal(t, "cm", rc.Frame)
	assert.Equal(t, uint64(1), rc.Seed)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "varbeam", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetInfluxAndPrometheusConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "bucket": "runs" },
		"prometheus": { "enabled": true, "textfile": "/tmp/v.prom" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "runs", ic.Bucket)
	assert.Equal(t, "8086", ic.Port)

	pc := GetPrometheusConfig()
	assert.True(t, pc.Enabled)
	assert.Equal(t, "/tmp/v.prom", pc.Textfile)
}

func TestBindFlags_OverridesFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "run": { "events": 10 } }`)))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("run.events", 0, "")
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--run.events=25"}))

	assert.Equal(t, 25, GetRunConfig().Events)
}
