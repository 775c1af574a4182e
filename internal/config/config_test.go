package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "resitrack-dev")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "resitrack-dev", c.ProjectID)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
	assert.Equal(t, BackendFirestore, c.Backend)
	assert.Equal(t, 5, c.TxPolicy().MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, c.TxPolicy().BaseDelay)
	assert.Equal(t, time.Second, c.TxPolicy().MaxDelay)
	assert.Equal(t, "resitrack.events", c.EventsExchange)
	assert.True(t, c.PushEnabled)
	assert.Equal(t, time.UTC, c.Location())
}

func TestLoadFallsBackToGoogleCloudProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "gcp-project")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gcp-project", c.ProjectID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "p")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("APP_TIMEZONE", "Asia/Kolkata")
	t.Setenv("TX_MAX_ATTEMPTS", "8")
	t.Setenv("TX_RETRY_BASE_DELAY", "10ms")
	t.Setenv("PUSH_ENABLED", "false")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", c.Location().String())
	assert.Equal(t, 8, c.TxPolicy().MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, c.TxPolicy().BaseDelay)
	assert.False(t, c.PushEnabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing project", env: map[string]string{"FIREBASE_PROJECT_ID": "", "GOOGLE_CLOUD_PROJECT": ""}},
		{name: "zero attempts", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "TX_MAX_ATTEMPTS": "0"}},
		{name: "base above max", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "TX_RETRY_BASE_DELAY": "2s"}},
		{name: "bad zone", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "APP_TIMEZONE": "Mars/Olympus"}},
		{name: "bad backend", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "STORE_BACKEND": "redis"}},
		{name: "unparsable attempts", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "TX_MAX_ATTEMPTS": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestMemoryBackendNeedsNoProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("STORE_BACKEND", "memory")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.Backend)
}
