package policy

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"testing"
)

func TestEnvPolicyImpl(t *testing.T) {
	t.Run("Defaults to capturing nothing", func(t *testing.T) {
		p, err := NewEnvPolicyImpl("LANTERN_TEST_EMPTY")
		require.Nil(t, err)
		assert.False(t, p.CaptureEnabled())
		assert.False(t, p.PersistEnabled())
		assert.False(t, p.StrictSkipMode())
		assert.True(t, p.ClientAllowed("192.168.1.4"))
		assert.Equal(t, zapcore.InfoLevel, p.LogCaptureLevel())
	})

	t.Run("Reads the log capture level", func(t *testing.T) {
		t.Setenv("LANTERN_LOGS_LOG_CAPTURE_LEVEL", "debug")
		p, err := NewEnvPolicyImpl("LANTERN_LOGS")
		require.Nil(t, err)
		assert.Equal(t, zapcore.DebugLevel, p.LogCaptureLevel())
	})

	t.Run("Unknown log capture level fails safe to disabled", func(t *testing.T) {
		t.Setenv("LANTERN_BADLOG_CAPTURE_ENABLED", "true")
		t.Setenv("LANTERN_BADLOG_LOG_CAPTURE_LEVEL", "chatty")
		p, err := NewEnvPolicyImpl("LANTERN_BADLOG")
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.False(t, p.CaptureEnabled())
	})

	t.Run("Reads flags and allow list from the environment", func(t *testing.T) {
		t.Setenv("LANTERN_TEST_CAPTURE_ENABLED", "true")
		t.Setenv("LANTERN_TEST_PERSIST_ENABLED", "true")
		t.Setenv("LANTERN_TEST_STRICT_SKIP", "true")
		t.Setenv("LANTERN_TEST_ALLOWED_CLIENTS", "127.0.0.1,10.1.0.0/16")

		p, err := NewEnvPolicyImpl("LANTERN_TEST")
		require.Nil(t, err)
		assert.True(t, p.CaptureEnabled())
		assert.True(t, p.PersistEnabled())
		assert.True(t, p.StrictSkipMode())
		assert.True(t, p.ClientAllowed("127.0.0.1"))
		assert.True(t, p.ClientAllowed("10.1.200.3"))
		assert.False(t, p.ClientAllowed("10.2.0.1"))
		assert.False(t, p.ClientAllowed("not-an-ip"))
	})

	t.Run("Observes changes after reload", func(t *testing.T) {
		t.Setenv("LANTERN_RELOAD_PERSIST_ENABLED", "true")
		p, err := NewEnvPolicyImpl("LANTERN_RELOAD")
		require.Nil(t, err)
		assert.True(t, p.PersistEnabled())

		t.Setenv("LANTERN_RELOAD_PERSIST_ENABLED", "false")
		require.Nil(t, p.Reload())
		assert.False(t, p.PersistEnabled())
	})

	t.Run("Malformed flags fail safe to disabled", func(t *testing.T) {
		t.Setenv("LANTERN_BAD_CAPTURE_ENABLED", "sometimes")
		p, err := NewEnvPolicyImpl("LANTERN_BAD")
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.False(t, p.CaptureEnabled())
	})

	t.Run("Malformed allow list fails safe to disabled", func(t *testing.T) {
		t.Setenv("LANTERN_BADIP_CAPTURE_ENABLED", "true")
		t.Setenv("LANTERN_BADIP_ALLOWED_CLIENTS", "10.0.0.0/99")
		p, err := NewEnvPolicyImpl("LANTERN_BADIP")
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.False(t, p.CaptureEnabled())
	})
}

func TestPersistenceGate_Allow(t *testing.T) {
	cases := map[string]struct {
		capture bool
		persist bool
		allowed bool
	}{
		"both enabled":     {capture: true, persist: true, allowed: true},
		"capture disabled": {capture: false, persist: true, allowed: false},
		"persist disabled": {capture: true, persist: false, allowed: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := NewStaticPolicy(Settings{CaptureEnabled: tc.capture, PersistEnabled: tc.persist})
			require.Nil(t, err)
			assert.Equal(t, tc.allowed, NewPersistenceGate(p).Allow())
		})
	}
}
