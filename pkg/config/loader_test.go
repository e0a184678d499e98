package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `env:"PINGLINE_TEST_NAME" envDefault:"fallback"`
	Count   int           `env:"PINGLINE_TEST_COUNT" envDefault:"3"`
	Timeout time.Duration `env:"PINGLINE_TEST_TIMEOUT" envDefault:"5s"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 3, cfg.Count)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("PINGLINE_TEST_NAME", "from-env")
		t.Setenv("PINGLINE_TEST_COUNT", "42")

		var cfg testConfig
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "from-env", cfg.Name)
		assert.Equal(t, 42, cfg.Count)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, Load[testConfig](nil), ErrNilPointer)
	})

	t.Run("unparseable value", func(t *testing.T) {
		t.Setenv("PINGLINE_TEST_COUNT", "not-a-number")

		var cfg testConfig
		assert.ErrorIs(t, Load(&cfg), ErrParsingConfig)
	})
}
