package rolecall

import (
	"fmt"
	"time"
)

// Config is the configuration shared by the Coordinator and the Hub.
//
// All duration fields accept standard Go duration strings like "30s", "5m".
type Config struct {
	// SubjectPrefix is the NATS subject prefix for hub broadcast fan-out.
	// Broadcasts for a session are published to
	// "<SubjectPrefix>.session.<sessionID>", which is how multiple server
	// instances serving the same session stay consistent.
	SubjectPrefix string `yaml:"subjectPrefix"`

	// RecommendTimeout bounds the external recommendation call. Expiry
	// surfaces as a transport failure and leaves the session open for a
	// retry trigger.
	// Recommended: 30-60 seconds.
	RecommendTimeout time.Duration `yaml:"recommendTimeout"`

	// OperationTimeout bounds each store operation performed during the
	// commit phase of an assignment run, which executes detached from the
	// triggering client's context.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// SendBuffer is the per-connection outbound queue length. Delivery is
	// best-effort: a connection whose queue is full misses the message
	// rather than stalling the whole session group.
	// Recommended: 16.
	SendBuffer int `yaml:"sendBuffer"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix:    "rolecall",
		RecommendTimeout: 45 * time.Second,
		OperationTimeout: 10 * time.Second,
		SendBuffer:       16,
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.RecommendTimeout == 0 {
		cfg.RecommendTimeout = defaults.RecommendTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
}

// Validate checks configuration constraints.
//
// Returns:
//   - error: Validation error with a clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.RecommendTimeout <= 0 {
		return fmt.Errorf("RecommendTimeout must be > 0, got %v", cfg.RecommendTimeout)
	}

	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}

	if cfg.SendBuffer < 1 {
		return fmt.Errorf("SendBuffer must be >= 1, got %d", cfg.SendBuffer)
	}

	return nil
}

// TestConfig returns a configuration with short timings for fast test
// execution. Use DefaultConfig() for production deployments.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.RecommendTimeout = 2 * time.Second
	cfg.OperationTimeout = 2 * time.Second
	cfg.SendBuffer = 4

	return cfg
}
