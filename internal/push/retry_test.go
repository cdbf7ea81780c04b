package push

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyBackoffSequence(t *testing.T) {
	policy := newRetryPolicy()

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
		300 * time.Second,
		300 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}
	for i, expected := range want {
		delay, disabled := policy.Failure()
		assert.Equal(t, expected, delay, "failure %d", i+1)
		assert.False(t, disabled, "failure %d", i+1)
	}

	delay, disabled := policy.Failure()
	assert.Equal(t, maxDelay, delay)
	assert.True(t, disabled, "eleventh consecutive failure disables")
	assert.Equal(t, 11, policy.Failures())
}

func TestRetryPolicySuccessResets(t *testing.T) {
	policy := newRetryPolicy()
	policy.Failure()
	policy.Failure()
	policy.Failure()

	policy.Success()
	assert.Equal(t, 0, policy.Failures())

	delay, disabled := policy.Failure()
	assert.Equal(t, normalDelay, delay)
	assert.False(t, disabled)
}

func TestIdleReadTimeout(t *testing.T) {
	assert.Equal(t, 29*time.Minute, idleReadTimeout(24))
	assert.Equal(t, time.Duration(2*60000+300000)*time.Millisecond, idleReadTimeout(2))
}
