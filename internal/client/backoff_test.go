package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsGeometrically(t *testing.T) {
	b := DefaultBackoff

	assert.Equal(t, 3*time.Second, b.Delay(1))
	assert.Equal(t, 4500*time.Millisecond, b.Delay(2))
	assert.Equal(t, 6750*time.Millisecond, b.Delay(3))
}

func TestBackoffCaps(t *testing.T) {
	b := DefaultBackoff

	// 3s * 1.5^6 ≈ 34.2s, past the cap.
	assert.Equal(t, 30*time.Second, b.Delay(7))
	assert.Equal(t, 30*time.Second, b.Delay(20))
}

func TestBackoffHugeAttemptDoesNotOverflow(t *testing.T) {
	b := DefaultBackoff

	assert.Equal(t, 30*time.Second, b.Delay(1000))
}

func TestBackoffClampsLowAttempts(t *testing.T) {
	b := DefaultBackoff

	assert.Equal(t, b.Delay(1), b.Delay(0))
	assert.Equal(t, b.Delay(1), b.Delay(-5))
}
