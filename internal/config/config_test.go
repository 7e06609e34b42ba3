package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, domain.MaxVideoBytes, cfg.MaxVideoBytes)
	assert.Equal(t, 5*time.Second, cfg.TwelveLabsPollInterval)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, 30*time.Minute, cfg.UploadReadTimeout)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TWELVELABS_POLL_INTERVAL", "250ms")
	t.Setenv("MAX_VIDEO_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.TwelveLabsPollInterval)
	assert.Equal(t, int64(1024), cfg.MaxVideoBytes)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":     {"TWELVELABS_POLL_INTERVAL", "soon"},
		"bad int":          {"PORT", "eighty"},
		"non positive max": {"MAX_VIDEO_BYTES", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestGetAIBackoffConfig(t *testing.T) {
	c := Config{AppEnv: "test"}
	maxElapsed, _, _, _ := c.GetAIBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)

	c = Config{AppEnv: "prod", AIBackoffMaxElapsedTime: time.Minute, AIBackoffInitialInterval: time.Second, AIBackoffMaxInterval: 5 * time.Second, AIBackoffMultiplier: 3}
	me, ii, mi, m := c.GetAIBackoffConfig()
	assert.Equal(t, time.Minute, me)
	assert.Equal(t, time.Second, ii)
	assert.Equal(t, 5*time.Second, mi)
	assert.Equal(t, 3.0, m)
}

func TestLoadQuestionBank(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		qs, err := LoadQuestionBank("")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultQuestionBank, qs)
		qs[0] = "mutated"
		assert.Equal(t, "Tell me about yourself.", domain.DefaultQuestionBank[0])
	})

	t.Run("file with blanks and duplicates", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bank.yaml")
		require.NoError(t, os.WriteFile(p, []byte("questions:\n  - Why us?\n  - \"  \"\n  - Why us?\n  - Describe a conflict.\n"), 0o600))
		qs, err := LoadQuestionBank(p)
		require.NoError(t, err)
		assert.Equal(t, []string{"Why us?", "Describe a conflict."}, qs)
	})

	t.Run("empty file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bank.yaml")
		require.NoError(t, os.WriteFile(p, []byte("questions: []\n"), 0o600))
		_, err := LoadQuestionBank(p)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadQuestionBank(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bank.yaml")
		require.NoError(t, os.WriteFile(p, []byte("questions: [unterminated\n"), 0o600))
		_, err := LoadQuestionBank(p)
		require.Error(t, err)
	})
}
