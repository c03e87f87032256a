package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"airsuck/internal/ais"
	"airsuck/internal/track"
)

// Input formats
const (
	FormatAVR   = "avr"
	FormatBeast = "beast"
	FormatNMEA  = "nmea"
)

// Default configuration constants
const (
	DefaultFormat        = FormatAVR
	DefaultInput         = "-" // stdin
	DefaultSourceName    = "airsuck"
	DefaultLogDir        = "./logs"
	DefaultLogFormat     = "text"
	DefaultDedupTTL      = 3 * time.Second
	DefaultFragmentTTL   = ais.DefaultFragmentTTL
	DefaultCPRExpire     = track.DefaultCPRExpire
	DefaultStateTTL      = track.DefaultStateTTL
	DefaultStatsInterval = 30 * time.Second
	DefaultSampleRatio   = 1.0
	DefaultEnvPrefix     = "AIRSUCK_"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	Format     string `yaml:"format"`
	Input      string `yaml:"input"`
	SourceName string `yaml:"sourceName"`

	LogDir       string `yaml:"logDir"`
	LogRotateUTC bool   `yaml:"logRotateUTC"`
	LogFormat    string `yaml:"logFormat"`
	Verbose      bool   `yaml:"verbose"`

	DecodeNames bool `yaml:"decodeNames"`
	FixErrors   bool `yaml:"fixErrors"`

	DedupTTL    time.Duration `yaml:"dedupTTL"`
	FragmentTTL time.Duration `yaml:"fragmentTTL"`
	CPRExpire   time.Duration `yaml:"cprExpire"`
	StateTTL    time.Duration `yaml:"stateTTL"`
	// Receiver is "lat,lon" of the receiving station, or empty.
	Receiver string `yaml:"receiver"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	NATSURL     string `yaml:"natsURL"`
	PostgresDSN string `yaml:"postgresDSN"`
	RecordLog   bool   `yaml:"recordLog"`
	BaseStation bool   `yaml:"baseStation"`

	MetricsAddr   string        `yaml:"metricsAddr"`
	StatsInterval time.Duration `yaml:"statsInterval"`
	Tracing       bool          `yaml:"tracing"`
	SampleRatio   float64       `yaml:"sampleRatio"`

	ShowVersion bool `yaml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Format:        DefaultFormat,
		Input:         DefaultInput,
		SourceName:    DefaultSourceName,
		LogDir:        DefaultLogDir,
		LogRotateUTC:  true,
		LogFormat:     DefaultLogFormat,
		DedupTTL:      DefaultDedupTTL,
		FragmentTTL:   DefaultFragmentTTL,
		CPRExpire:     DefaultCPRExpire,
		StateTTL:      DefaultStateTTL,
		StatsInterval: DefaultStatsInterval,
		SampleRatio:   DefaultSampleRatio,
	}
}

// LoadConfigFile overlays the YAML file at path onto c. Keys missing from
// the file keep their current value.
func (c *Config) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv loads envFile, when it exists, and overlays AIRSUCK_* variables
// onto c.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var errs []error
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(DefaultEnvPrefix + name); ok {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(DefaultEnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", DefaultEnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := os.LookupEnv(DefaultEnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", DefaultEnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(DefaultEnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", DefaultEnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(DefaultEnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", DefaultEnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	setString("FORMAT", &c.Format)
	setString("INPUT", &c.Input)
	setString("SOURCE_NAME", &c.SourceName)
	setString("LOG_DIR", &c.LogDir)
	setBool("LOG_ROTATE_UTC", &c.LogRotateUTC)
	setString("LOG_FORMAT", &c.LogFormat)
	setBool("VERBOSE", &c.Verbose)
	setBool("DECODE_NAMES", &c.DecodeNames)
	setBool("FIX_ERRORS", &c.FixErrors)
	setDuration("DEDUP_TTL", &c.DedupTTL)
	setDuration("FRAGMENT_TTL", &c.FragmentTTL)
	setDuration("CPR_EXPIRE", &c.CPRExpire)
	setDuration("STATE_TTL", &c.StateTTL)
	setString("RECEIVER", &c.Receiver)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	setInt("REDIS_DB", &c.RedisDB)
	setString("NATS_URL", &c.NATSURL)
	setString("POSTGRES_DSN", &c.PostgresDSN)
	setBool("RECORD_LOG", &c.RecordLog)
	setBool("BASESTATION", &c.BaseStation)
	setString("METRICS_ADDR", &c.MetricsAddr)
	setDuration("STATS_INTERVAL", &c.StatsInterval)
	setBool("TRACING", &c.Tracing)
	setFloat("SAMPLE_RATIO", &c.SampleRatio)

	return errors.Join(errs...)
}

// BindFlags defines the command line flags on fs, using the current values
// of c as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Format, "format", "F", c.Format, "Input format: avr, beast or nmea")
	fs.StringVarP(&c.Input, "input", "i", c.Input, "Input file, - for stdin")
	fs.StringVar(&c.SourceName, "source", c.SourceName, "Source name attached to every record")
	fs.StringVarP(&c.LogDir, "log-dir", "l", c.LogDir, "Log directory")
	fs.BoolVarP(&c.LogRotateUTC, "utc", "u", c.LogRotateUTC, "Use UTC for log rotation")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: text or json")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Verbose logging")
	fs.BoolVar(&c.DecodeNames, "names", c.DecodeNames, "Include human readable names in records")
	fs.BoolVar(&c.FixErrors, "fix", c.FixErrors, "Repair single bit errors in extended squitters")
	fs.DurationVar(&c.DedupTTL, "dedup-ttl", c.DedupTTL, "Duplicate detection window")
	fs.DurationVar(&c.FragmentTTL, "fragment-ttl", c.FragmentTTL, "AIS fragment lifetime")
	fs.DurationVar(&c.CPRExpire, "cpr-expire", c.CPRExpire, "Maximum age of a CPR frame pair")
	fs.DurationVar(&c.StateTTL, "state-ttl", c.StateTTL, "Aircraft state lifetime")
	fs.StringVar(&c.Receiver, "receiver", c.Receiver, "Receiver position as lat,lon")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for shared dedup and fragments")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database")
	fs.StringVar(&c.NATSURL, "nats", c.NATSURL, "NATS URL for JetStream output")
	fs.StringVar(&c.PostgresDSN, "postgres", c.PostgresDSN, "Postgres connection string")
	fs.BoolVar(&c.RecordLog, "record-log", c.RecordLog, "Write JSON records to the rotated log")
	fs.BoolVar(&c.BaseStation, "basestation", c.BaseStation, "Write SBS-1 lines to the rotated log")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Address to serve /metrics on")
	fs.DurationVar(&c.StatsInterval, "stats-interval", c.StatsInterval, "Statistics log interval")
	fs.BoolVar(&c.Tracing, "tracing", c.Tracing, "Export trace spans to stdout")
	fs.Float64Var(&c.SampleRatio, "sample-ratio", c.SampleRatio, "Trace sample ratio")
}

// ApplyFlags copies the flags explicitly set on fs onto c, so that command
// line values win over the file and the environment.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	c.BindFlags(overlay)

	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// ReceiverPosition parses Receiver. It returns nil when no receiver is set.
func (c *Config) ReceiverPosition() (*track.Position, error) {
	if strings.TrimSpace(c.Receiver) == "" {
		return nil, nil
	}
	parts := strings.Split(c.Receiver, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: receiver %q is not lat,lon", ErrInvalidConfig, c.Receiver)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: receiver latitude: %v", ErrInvalidConfig, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: receiver longitude: %v", ErrInvalidConfig, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: receiver %q out of range", ErrInvalidConfig, c.Receiver)
	}
	return &track.Position{Lat: lat, Lon: lon}, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatAVR, FormatBeast, FormatNMEA:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Input == "" {
		return fmt.Errorf("%w: input is required", ErrInvalidConfig)
	}
	if c.DedupTTL <= 0 || c.FragmentTTL <= 0 || c.CPRExpire <= 0 || c.StateTTL <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("%w: stats interval must be positive", ErrInvalidConfig)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("%w: sample ratio must be within [0, 1]", ErrInvalidConfig)
	}
	if _, err := c.ReceiverPosition(); err != nil {
		return err
	}
	return nil
}
