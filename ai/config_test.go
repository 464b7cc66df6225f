package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash first", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty host untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfig_NormalizeToken(t *testing.T) {
	cfg := Config{}
	cfg.Normalize()
	assert.Equal(t, "none", cfg.Token)

	cfg = Config{Token: "sk-real"}
	cfg.Normalize()
	assert.Equal(t, "sk-real", cfg.Token)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Host: "http://localhost:11434", Model: "gpt-4o-mini"}
	require.NoError(t, cfg.Validate())

	cfg = Config{Host: "http://localhost:11434"}
	require.Error(t, cfg.Validate())
}
