//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Checkpoint store backends.
const (
	BackendRedis = "redis"
	BackendSSM   = "ssm"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Leader     LeaderConfig     `yaml:"leader"`
	AWS        AWSConfig        `yaml:"aws"`
	Source     SourceConfig     `yaml:"source"`
	Query      QueryConfig      `yaml:"query"`
	Window     WindowConfig     `yaml:"window"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Publish    PublishConfig    `yaml:"publish"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Inventory  InventoryConfig  `yaml:"inventory"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// RedisConfig holds Redis client configuration.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// LeaderConfig holds leader election configuration.
type LeaderConfig struct {
	LockKey       string        `yaml:"lock_key"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	RenewInterval time.Duration `yaml:"renew_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// AWSConfig selects the AWS region and endpoint.
type AWSConfig struct {
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// SourceConfig locates the gzipped inventory document.
type SourceConfig struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
}

// QueryConfig holds the S3 Select filters. Empty values take the Landsat 8
// OLI/TIRS Tier 1 defaults.
type QueryConfig struct {
	AcquiredPattern  string `yaml:"acquired_pattern"`
	WindowPattern    string `yaml:"window_pattern"`
	ProcessingLevel  string `yaml:"processing_level"`
	SensorID         string `yaml:"sensor_id"`
	SpacecraftID     string `yaml:"spacecraft_id"`
	ProductIDPattern string `yaml:"product_id_pattern"`
}

// WindowConfig holds checkpoint and window settings.
type WindowConfig struct {
	Backend           string `yaml:"backend"`
	ParameterName     string `yaml:"parameter_name"`
	Layout            string `yaml:"layout"`
	Unit              string `yaml:"unit"`
	Lookback          int    `yaml:"lookback"`
	InitialCheckpoint string `yaml:"initial_checkpoint"`
}

// DispatchConfig holds result stream settings.
type DispatchConfig struct {
	// MaxFragmentSize is a human readable byte size, e.g. "1MiB".
	MaxFragmentSize string `yaml:"max_fragment_size"`
	MalformedPolicy string `yaml:"malformed_policy"`

	maxFragmentBytes int
}

// PublishConfig holds the notification topic.
type PublishConfig struct {
	TopicARN string `yaml:"topic_arn"`
}

// EnrichmentConfig holds record enrichment settings.
type EnrichmentConfig struct {
	ExpectedSensors []string `yaml:"expected_sensors"`
	LocationBucket  string   `yaml:"location_bucket"`
}

// ProcessorConfig holds run settings.
type ProcessorConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ScheduleConfig controls the periodic backfill loop of the serve command.
type ScheduleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// InventoryConfig controls refreshing the inventory copy from USGS.
type InventoryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SourceBucket string        `yaml:"source_bucket"`
	SourceKey    string        `yaml:"source_key"`
	DestKey      string        `yaml:"dest_key"`
	Interval     time.Duration `yaml:"interval"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration and sets defaults.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if c.Source.Bucket == "" {
		return errors.New("source.bucket is required")
	}

	if c.Source.Key == "" {
		c.Source.Key = "inventory_product_list.json.gz"
	}

	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("window: %w", err)
	}

	if err := c.validateWindowPattern(); err != nil {
		return err
	}

	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if c.Publish.TopicARN == "" {
		return errors.New("publish.topic_arn is required")
	}

	if c.Processor.Timeout == 0 {
		c.Processor.Timeout = 15 * time.Minute
	}

	if c.Processor.Timeout < 0 {
		return errors.New("processor.timeout must be positive")
	}

	if c.Schedule.Enabled && c.Schedule.Interval <= 0 {
		return errors.New("schedule.interval must be positive when scheduling is enabled")
	}

	if err := c.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	// Redis backs the default checkpoint store and the leader lock.
	if c.NeedsRedis() {
		if err := c.validateRedis(); err != nil {
			return err
		}
	}

	return nil
}

// NeedsRedis reports whether any configured component uses Redis.
func (c *Config) NeedsRedis() bool {
	return c.Window.Backend == BackendRedis || c.Schedule.Enabled || c.Inventory.Enabled
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	if c.Redis.DialTimeout <= 0 {
		return fmt.Errorf("redis.dial_timeout must be positive")
	}

	if c.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be positive")
	}

	if c.Leader.LockKey == "" {
		return fmt.Errorf("leader.lock_key is required")
	}

	if c.Leader.LockTTL <= 0 {
		return fmt.Errorf("leader.lock_ttl must be positive")
	}

	if c.Leader.RenewInterval <= 0 {
		return fmt.Errorf("leader.renew_interval must be positive")
	}

	if c.Leader.RetryInterval <= 0 {
		return fmt.Errorf("leader.retry_interval must be positive")
	}

	if c.Leader.RenewInterval >= c.Leader.LockTTL {
		return fmt.Errorf("leader.renew_interval must be shorter than leader.lock_ttl")
	}

	return nil
}

// Validate validates the configuration and sets defaults.
func (c *WindowConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendRedis
	}

	if c.Backend != BackendRedis && c.Backend != BackendSSM {
		return fmt.Errorf("backend must be '%s' or '%s'", BackendRedis, BackendSSM)
	}

	if c.ParameterName == "" {
		c.ParameterName = "landsat_historic_last_date"
	}

	if c.Layout == "" {
		c.Layout = time.DateTime
	}

	if c.Unit == "" {
		c.Unit = "day"
	}

	if c.Unit != "day" && c.Unit != "hour" {
		return fmt.Errorf("unit must be 'day' or 'hour', got %q", c.Unit)
	}

	if c.Lookback < 1 {
		return fmt.Errorf("lookback must be at least 1, got %d", c.Lookback)
	}

	if c.InitialCheckpoint != "" {
		if _, err := time.Parse(c.Layout, c.InitialCheckpoint); err != nil {
			return fmt.Errorf("initial_checkpoint does not match layout %q: %w", c.Layout, err)
		}
	}

	return nil
}

// validateWindowPattern ties the query's window bound pattern to the
// checkpoint layout. An unset pattern is derived from the layout.
func (c *Config) validateWindowPattern() error {
	pattern, err := WindowPattern(c.Window.Layout)
	if err != nil {
		return fmt.Errorf("window.layout: %w", err)
	}

	if c.Query.WindowPattern == "" {
		c.Query.WindowPattern = pattern

		return nil
	}

	if c.Query.WindowPattern != pattern {
		return fmt.Errorf(
			"query.window_pattern %q does not match window.layout %q, expected %q",
			c.Query.WindowPattern, c.Window.Layout, pattern,
		)
	}

	return nil
}

// layoutTokens maps Go reference time elements to S3 Select TO_TIMESTAMP
// pattern letters.
var layoutTokens = []struct{ layout, pattern string }{
	{"2006", "y"},
	{"01", "MM"},
	{"02", "dd"},
	{"15", "HH"},
	{"04", "mm"},
	{"05", "ss"},
}

// WindowPattern converts a Go time layout into the equivalent S3 Select
// timestamp pattern. Only numeric elements and the separators - / : space
// are supported.
func WindowPattern(layout string) (string, error) {
	var b strings.Builder

	for rest := layout; rest != ""; {
		matched := false

		for _, tok := range layoutTokens {
			if strings.HasPrefix(rest, tok.layout) {
				b.WriteString(tok.pattern)
				rest = rest[len(tok.layout):]
				matched = true

				break
			}
		}

		if matched {
			continue
		}

		switch rest[0] {
		case '-', '/', ':', ' ':
			b.WriteByte(rest[0])
			rest = rest[1:]
		default:
			return "", fmt.Errorf("unsupported element at %q in layout %q", rest, layout)
		}
	}

	if b.Len() == 0 {
		return "", errors.New("layout is empty")
	}

	return b.String(), nil
}

// Validate validates the configuration and sets defaults.
func (c *DispatchConfig) Validate() error {
	if c.MaxFragmentSize == "" {
		c.MaxFragmentSize = "1MiB"
	}

	size, err := humanize.ParseBytes(c.MaxFragmentSize)
	if err != nil {
		return fmt.Errorf("max_fragment_size: %w", err)
	}

	if size == 0 || size > math.MaxInt32 {
		return fmt.Errorf("max_fragment_size out of range: %s", c.MaxFragmentSize)
	}

	c.maxFragmentBytes = int(size)

	if c.MalformedPolicy == "" {
		c.MalformedPolicy = "abort"
	}

	if c.MalformedPolicy != "abort" && c.MalformedPolicy != "skip" {
		return fmt.Errorf("malformed_policy must be 'abort' or 'skip'")
	}

	return nil
}

// MaxFragmentBytes returns the parsed fragment bound. Valid after Validate.
func (c *DispatchConfig) MaxFragmentBytes() int {
	return c.maxFragmentBytes
}

// Validate validates the configuration and sets defaults.
func (c *InventoryConfig) Validate() error {
	if c.SourceKey == "" {
		c.SourceKey = "inventory_product_list.zip"
	}

	if c.DestKey == "" {
		c.DestKey = c.SourceKey
	}

	if c.Interval == 0 {
		c.Interval = 24 * time.Hour
	}

	if !c.Enabled {
		return nil
	}

	if c.SourceBucket == "" {
		return errors.New("source_bucket is required when inventory sync is enabled")
	}

	if c.Interval < time.Minute {
		return fmt.Errorf("interval must be at least 1 minute, got %v", c.Interval)
	}

	return nil
}
