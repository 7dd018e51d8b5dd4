package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := 2 * time.Second
	max := time.Minute

	assert.Equal(t, 2*time.Second, Backoff(1, base, max))
	assert.Equal(t, 4*time.Second, Backoff(2, base, max))
	assert.Equal(t, 8*time.Second, Backoff(3, base, max))
	assert.Equal(t, 16*time.Second, Backoff(4, base, max))
}

func TestBackoffCapsAtMax(t *testing.T) {
	base := 2 * time.Second
	max := 10 * time.Second

	assert.Equal(t, max, Backoff(4, base, max))
	assert.Equal(t, max, Backoff(20, base, max))
}

func TestBackoffClampsAttempt(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, base, Backoff(0, base, time.Minute))
	assert.Equal(t, base, Backoff(-3, base, time.Minute))
}
