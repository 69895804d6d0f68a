// Package config loads the runtime's configuration: every knob from spec
// §6 plus the ambient logging/telemetry sections, layered as environment >
// file > defaults (there is no CLI-flag layer), with the teacher's
// `pkg/config` decode/validate pipeline (viper + mapstructure +
// go-playground/validator).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/obinexus/polycall-core/internal/bytesize"
)

// IsolationLevel mirrors internal/ffi.IsolationLevel's string values
// without importing internal/ffi, keeping config free of a dependency on
// the component it configures.
type IsolationLevel string

const (
	IsolationNone     IsolationLevel = "none"
	IsolationBasic    IsolationLevel = "basic"
	IsolationStandard IsolationLevel = "standard"
	IsolationStrict   IsolationLevel = "strict"
	IsolationParanoid IsolationLevel = "paranoid"
)

// Config is the root runtime configuration (spec §6's enumerated
// configuration options, plus the ambient logging/telemetry sections the
// teacher's own config carries).
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Core      CoreConfig      `mapstructure:"core" yaml:"core"`
}

// CoreConfig covers every spec §6 knob for the C1-C10 runtime.
type CoreConfig struct {
	// IsolationLevel widens or narrows C3's default-deny security posture.
	IsolationLevel IsolationLevel `mapstructure:"isolation_level" validate:"required,oneof=none basic standard strict paranoid" yaml:"isolation_level"`

	// MemoryPoolSize is C2's pool initial capacity ("512MB", "1GiB", ...).
	MemoryPoolSize bytesize.ByteSize `mapstructure:"memory_pool_size" validate:"required" yaml:"memory_pool_size"`

	// MaxMessageSize is C5's per-frame payload ceiling.
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" validate:"required" yaml:"max_message_size"`

	// MaxSubscriptions and MaxSubscribersPerTopic are C7's capacity ceilings.
	MaxSubscriptions       int `mapstructure:"max_subscriptions" validate:"gte=0" yaml:"max_subscriptions"`
	MaxSubscribersPerTopic int `mapstructure:"max_subscribers_per_topic" validate:"gte=0" yaml:"max_subscribers_per_topic"`

	// EnableWildcards turns on C7's pattern matching.
	EnableWildcards bool `mapstructure:"enable_wildcards" yaml:"enable_wildcards"`

	// EnableGCNotification enables C2's GC callback fan-out.
	EnableGCNotification bool `mapstructure:"enable_gc_notification" yaml:"enable_gc_notification"`

	// StrictTypes makes C3 reject implicit numeric widening.
	StrictTypes bool `mapstructure:"strict_types" yaml:"strict_types"`

	// CaseSensitive controls pattern matching in C7 and name lookup in C8.
	CaseSensitive bool `mapstructure:"case_sensitive" yaml:"case_sensitive"`

	// CallCacheTTL and TraceRingSize configure C10's advisory caches.
	CallCacheTTL   string `mapstructure:"call_cache_ttl" yaml:"call_cache_ttl"`
	TraceRingSize  int    `mapstructure:"trace_ring_size" validate:"gte=0" yaml:"trace_ring_size"`
	TracingEnabled bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`

	// ListenAddr is the TCP address cmd/polycore's `serve` command binds.
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`
}

// LoggingConfig controls internal/logger's behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls internal/telemetry's OTLP exporter.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from defaults, file, and environment. File
// values override defaults; a POLYCORE_-prefixed environment variable
// overrides a key only when the config file sets that key. When no config
// file is found, Load returns the validated defaults and does not consult
// the environment. configPath == "" searches the default location.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration failed validation: %w", err)
		}
		return cfg, nil
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate applies go-playground/validator's struct-tag validation.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("POLYCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(byteSizeDecodeHook(), durationDecodeHook())
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files may use human-readable sizes like "512MB" or "1Gi" for
// memory_pool_size/max_message_size.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings/numbers to time.Duration for any
// future duration-typed fields, mirroring the teacher's hook composition.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "polycore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "polycore")
}
