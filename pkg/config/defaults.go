package config

import "github.com/obinexus/polycall-core/internal/bytesize"

// Default returns a Config populated with the runtime's default values,
// mirroring the teacher's GetDefaultConfig (`pkg/config/defaults.go`).
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Core: CoreConfig{
			IsolationLevel:         IsolationStandard,
			MemoryPoolSize:         64 * bytesize.ByteSize(1<<20),
			MaxMessageSize:         4 * bytesize.ByteSize(1<<20),
			MaxSubscriptions:       10000,
			MaxSubscribersPerTopic: 1000,
			EnableWildcards:        true,
			EnableGCNotification:   false,
			StrictTypes:            false,
			CaseSensitive:          true,
			CallCacheTTL:           "30s",
			TraceRingSize:          256,
			TracingEnabled:         false,
			ListenAddr:             "127.0.0.1:7890",
		},
	}
}
