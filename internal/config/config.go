package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		AllowedOrigins  []string      `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"` // sqlite only
	} `yaml:"database"`

	Minio struct {
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	AI struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`

	Auth struct {
		// APIKeys maps a client name (e.g. "detector-1") to its key.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Scan struct {
		// Threshold is a pointer so an explicit 0 is kept.
		Threshold *float64 `yaml:"threshold"`
		Timezone  string   `yaml:"timezone"`
	} `yaml:"scan"`

	System struct {
		// StaleAfter marks the detector host INACTIVE when its last status is older.
		StaleAfter time.Duration `yaml:"staleAfter"`
	} `yaml:"system"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`
}

// DefaultThreshold is used when scan.threshold is not set.
const DefaultThreshold = 70.0

// AcceptanceThreshold returns scan.threshold, or DefaultThreshold when unset.
func (c *Config) AcceptanceThreshold() float64 {
	if c.Scan.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Scan.Threshold
}

// Load baca file config.yaml. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 6060
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "data/sdbelt.db"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case DriverMySQL:
			c.Database.Port = 3306
		case DriverPostgres:
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "sdbelt-archive"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 120
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 20
	}
	if c.Scan.Threshold == nil {
		v := DefaultThreshold
		c.Scan.Threshold = &v
	}
	if c.System.StaleAfter == 0 {
		c.System.StaleAfter = 30 * time.Second
	}
	if c.Scan.Timezone == "" {
		c.Scan.Timezone = "Local"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the values applyDefaults cannot fix.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverMySQL, DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q not supported (mysql, postgres, sqlite)", c.Database.Driver))
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		errs = append(errs, errors.New("minio.accessKey and minio.secretKey are required when minio.endpoint is set"))
	}
	if t := c.AcceptanceThreshold(); math.IsNaN(t) || t < -100 || t > 100 {
		errs = append(errs, fmt.Errorf("scan.threshold %.2f outside [-100, 100]", t))
	}
	if c.System.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("system.staleAfter %s is negative", c.System.StaleAfter))
	}
	if _, err := time.LoadLocation(c.Scan.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scan.timezone: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	for name, key := range c.Auth.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Errorf("auth.apiKeys.%s is empty", name))
		}
	}
	return errors.Join(errs...)
}

// Location returns the zone scans are stamped in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scan.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ArchiveEnabled reports whether MinIO is configured.
func (c *Config) ArchiveEnabled() bool { return c.Minio.Endpoint != "" }

// DSN builds the data source name for the configured driver.
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case DriverMySQL:
		return c.MySQLDSN()
	case DriverPostgres:
		return c.PostgresDSN()
	}
	return c.Database.Path
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
