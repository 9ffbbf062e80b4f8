package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Oracle.Provider)
	assert.Equal(t, DefaultCallInterval, cfg.Oracle.CallInterval)
	assert.Equal(t, DefaultMaxConsecutiveFailures, cfg.Oracle.MaxConsecutiveFailures)
	assert.Equal(t, 0, cfg.Oracle.MaxRetries)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, []string{DefaultSubreddit}, cfg.Reddit.Subreddits)
	assert.Empty(t, cfg.Oracle.APIKey)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	tests := []struct {
		env      map[string]string
		name     string
		provider string
		wantKey  string
	}{
		{
			name:     "gemini key",
			provider: "gemini",
			env:      map[string]string{"GEMINI_API_KEY": "g-key"},
			wantKey:  "g-key",
		},
		{
			name:     "anthropic key",
			provider: "anthropic",
			env:      map[string]string{"ANTHROPIC_API_KEY": "a-key", "GEMINI_API_KEY": "g-key"},
			wantKey:  "a-key",
		},
		{
			name:     "openai key",
			provider: "OpenAI",
			env:      map[string]string{"OPENAI_API_KEY": "o-key"},
			wantKey:  "o-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY"} {
				t.Setenv(name, tt.env[name])
			}

			v := viper.New()
			v.Set("oracle.provider", tt.provider)

			cfg, err := Load(v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.Oracle.APIKey)
		})
	}
}

func TestLoad_ExplicitKeyWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	v := viper.New()
	v.Set("oracle.api_key", "from-config")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.Oracle.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		setting string
	}{
		{name: "unknown provider", key: "oracle.provider", value: "llama", setting: "oracle.provider"},
		{name: "negative interval", key: "oracle.call_interval", value: -time.Second, setting: "oracle.call_interval"},
		{name: "negative retries", key: "oracle.max_retries", value: -1, setting: "oracle.max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			var cfgErr *common.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.setting, cfgErr.Setting)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SOOTH_TEST_DIR", "/tmp/sooth")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "data"), ExpandPath("~/data"))
	assert.Equal(t, "/tmp/sooth/x.db", ExpandPath("$SOOTH_TEST_DIR/x.db"))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SOOTH_DOTENV_PROBE=loaded\n"), 0o600))

	t.Setenv("ENV_FILE", envFile)
	t.Setenv("SOOTH_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("SOOTH_DOTENV_PROBE"))

	require.NoError(t, LoadEnvFiles())
	assert.Equal(t, "loaded", os.Getenv("SOOTH_DOTENV_PROBE"))
}

func TestLoadEnvFiles_MissingFileIgnored(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, LoadEnvFiles())
}
