package txn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "single attempt no delay", policy: Policy{MaxAttempts: 1}},
		{name: "zero attempts", policy: Policy{MaxAttempts: 0}, wantErr: true},
		{name: "negative delay", policy: Policy{MaxAttempts: 3, BaseDelay: -time.Millisecond}, wantErr: true},
		{name: "base above max", policy: Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Millisecond}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPolicyDelayIsCapped(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	for retry := 1; retry <= 20; retry++ {
		d := p.Delay(retry)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 50*time.Millisecond)
	}
	first := p.Delay(1)
	assert.Less(t, first, 10*time.Millisecond)
}

func TestExponential(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, exponential(100*time.Millisecond, 0))
	assert.Equal(t, 400*time.Millisecond, exponential(100*time.Millisecond, 2))
	assert.Equal(t, 100*time.Millisecond, exponential(100*time.Millisecond, -3))
	assert.Equal(t, time.Duration(0), exponential(0, 4))
	assert.Positive(t, exponential(time.Second, 200))
}

func TestZeroDelayPolicy(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	assert.Equal(t, time.Duration(0), p.Delay(2))
}
