package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "varbeam.cfg.json"

// CatalogConfig lists the species a run may request.
type CatalogConfig struct {
	Projectiles []int `json:"projectiles" mapstructure:"projectiles"`
	Targets     []int `json:"targets" mapstructure:"targets"`
}

// TabulationConfig controls the precomputed initialization tables.
type TabulationConfig struct {
	MinLabMomentum float64 `json:"minLabMomentum" mapstructure:"minLabMomentum"`
	MaxLabMomentum float64 `json:"maxLabMomentum" mapstructure:"maxLabMomentum"`
	SamplePoints   int     `json:"samplePoints" mapstructure:"samplePoints"`
	Mode           string  `json:"mode" mapstructure:"mode"` // create | overwrite | reuse
}

// FSConfig holds local directory storage settings
type FSConfig struct {
	Root string `json:"root" mapstructure:"root"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"` // empty = in-memory with periodic dump
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds PostgreSQL storage backend settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// S3Config holds S3 / MinIO storage backend settings
type S3Config struct {
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" mapstructure:"secretAccessKey"`
	UsePathStyle    bool   `json:"usePathStyle" mapstructure:"usePathStyle"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"` // fs | memory | sqlite | postgres | s3
	FS       FSConfig       `json:"fs" mapstructure:"fs"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	S3       S3Config       `json:"s3" mapstructure:"s3"`
}

// RunConfig controls the event loop.
type RunConfig struct {
	Events         int           `json:"events" mapstructure:"events"`
	Selector       string        `json:"selector" mapstructure:"selector"` // roundrobin | random | list
	Frame          string        `json:"frame" mapstructure:"frame"`       // cm | asymmetric
	MinEnergy      float64       `json:"minEnergy" mapstructure:"minEnergy"`
	MaxEnergy      float64       `json:"maxEnergy" mapstructure:"maxEnergy"`
	List           []string      `json:"list" mapstructure:"list"` // "proj:targ:energy" triples
	Seed           uint64        `json:"seed" mapstructure:"seed"`
	MaxFailures    int           `json:"maxFailures" mapstructure:"maxFailures"`
	StatusFile     string        `json:"statusFile" mapstructure:"statusFile"`
	StatusInterval time.Duration `json:"statusInterval" mapstructure:"statusInterval"`
	HistogramFile  string        `json:"histogramFile" mapstructure:"histogramFile"`
}

// InfluxConfig holds InfluxDB statistics sink settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Backup   string `json:"backup" mapstructure:"backup"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// PrometheusConfig holds the Prometheus textfile exporter settings
type PrometheusConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// DefaultProjectiles reproduces the projectile list of the original runs.
var DefaultProjectiles = []int{2212, -2212, 2112, -2112, 111, 211, -211, 311, 321, -321, 130, 310, 3122, 3212, 3222, 3112, 3322}

// DefaultTargets are proton plus the nuclei of air and argon.
var DefaultTargets = []int{2212, 1000060120, 1000070140, 1000080160, 1000180400}

// SetDefaults registers every default value. Load calls it; tests may too.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./varbeamlogs")

	viper.SetDefault("catalog.projectiles", DefaultProjectiles)
	viper.SetDefault("catalog.targets", DefaultTargets)

	viper.SetDefault("tabulation.minLabMomentum", 1e2)
	viper.SetDefault("tabulation.maxLabMomentum", 1e12)
	viper.SetDefault("tabulation.samplePoints", 11)
	viper.SetDefault("tabulation.mode", "reuse")

	viper.SetDefault("storage.type", "fs")
	viper.SetDefault("storage.fs.root", "./tables")
	viper.SetDefault("storage.sqlite.path", "./tables.db")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "varbeam")
	viper.SetDefault("storage.postgres.sslMode", "disable")
	viper.SetDefault("storage.s3.bucket", "")
	viper.SetDefault("storage.s3.prefix", "tables/")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.usePathStyle", false)

	viper.SetDefault("run.events", 1000)
	viper.SetDefault("run.selector", "roundrobin")
	viper.SetDefault("run.frame", "cm")
	viper.SetDefault("run.minEnergy", 0.0)
	viper.SetDefault("run.maxEnergy", 0.0)
	viper.SetDefault("run.seed", 1)
	viper.SetDefault("run.maxFailures", 10)
	viper.SetDefault("run.statusFile", "")
	viper.SetDefault("run.statusInterval", "5s")
	viper.SetDefault("run.histogramFile", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "varbeam")
	viper.SetDefault("influx.bucket", "corrections")
	viper.SetDefault("influx.backup", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "varbeam")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("prometheus.enabled", false)
	viper.SetDefault("prometheus.textfile", "./varbeam.prom")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags binds command-line flags into viper so they take precedence over
// file values. Flag names use the dotted config keys.
func BindFlags(fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		if err := viper.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
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

// GetCatalogConfig returns the species catalog configuration.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Projectiles: viper.GetIntSlice("catalog.projectiles"),
		Targets:     viper.GetIntSlice("catalog.targets"),
	}
}

// GetTabulationConfig returns the table precomputation configuration.
func GetTabulationConfig() TabulationConfig {
	return TabulationConfig{
		MinLabMomentum: viper.GetFloat64("tabulation.minLabMomentum"),
		MaxLabMomentum: viper.GetFloat64("tabulation.maxLabMomentum"),
		SamplePoints:   viper.GetInt("tabulation.samplePoints"),
		Mode:           viper.GetString("tabulation.mode"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		FS: FSConfig{
			Root: viper.GetString("storage.fs.root"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
		S3: S3Config{
			Bucket:          viper.GetString("storage.s3.bucket"),
			Prefix:          viper.GetString("storage.s3.prefix"),
			Region:          viper.GetString("storage.s3.region"),
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			AccessKeyID:     viper.GetString("storage.s3.accessKeyId"),
			SecretAccessKey: viper.GetString("storage.s3.secretAccessKey"),
			UsePathStyle:    viper.GetBool("storage.s3.usePathStyle"),
		},
	}
}

// GetRunConfig returns the event loop configuration.
func GetRunConfig() RunConfig {
	return RunConfig{
		Events:         viper.GetInt("run.events"),
		Selector:       viper.GetString("run.selector"),
		Frame:          viper.GetString("run.frame"),
		MinEnergy:      viper.GetFloat64("run.minEnergy"),
		MaxEnergy:      viper.GetFloat64("run.maxEnergy"),
		List:           viper.GetStringSlice("run.list"),
		Seed:           viper.GetUint64("run.seed"),
		MaxFailures:    viper.GetInt("run.maxFailures"),
		StatusFile:     viper.GetString("run.statusFile"),
		StatusInterval: viper.GetDuration("run.statusInterval"),
		HistogramFile:  viper.GetString("run.histogramFile"),
	}
}

// GetInfluxConfig returns the InfluxDB sink configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Backup:   viper.GetString("influx.backup"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetPrometheusConfig returns the Prometheus textfile configuration.
func GetPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Enabled:  viper.GetBool("prometheus.enabled"),
		Textfile: viper.GetString("prometheus.textfile"),
	}
}

// GetGraylogConfig returns the GELF shipping configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
