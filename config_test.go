package rolecall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "rolecall", cfg.SubjectPrefix)
	assert.Equal(t, 45*time.Second, cfg.RecommendTimeout)
	assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 16, cfg.SendBuffer)

	require.NoError(t, cfg.Validate())
}

func TestSetDefaults_FillsOnlyMissing(t *testing.T) {
	cfg := Config{
		SubjectPrefix: "teamflow",
		SendBuffer:    64,
	}

	SetDefaults(&cfg)

	assert.Equal(t, "teamflow", cfg.SubjectPrefix)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, 45*time.Second, cfg.RecommendTimeout)
	assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative recommend timeout",
			mutate:  func(c *Config) { c.RecommendTimeout = -time.Second },
			wantErr: "RecommendTimeout",
		},
		{
			name:    "zero operation timeout",
			mutate:  func(c *Config) { c.OperationTimeout = 0 },
			wantErr: "OperationTimeout",
		},
		{
			name:    "zero send buffer",
			mutate:  func(c *Config) { c.SendBuffer = 0 },
			wantErr: "SendBuffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.NoError(t, cfg.Validate())
	assert.Less(t, cfg.RecommendTimeout, DefaultConfig().RecommendTimeout)
}
