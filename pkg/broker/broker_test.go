package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelayDoublesAndCaps(t *testing.T) {
	base := 2 * time.Second

	assert.Equal(t, 2*time.Second, reconnectDelay(base, 1))
	assert.Equal(t, 4*time.Second, reconnectDelay(base, 2))
	assert.Equal(t, 8*time.Second, reconnectDelay(base, 3))
	assert.Equal(t, 16*time.Second, reconnectDelay(base, 4))
	assert.Equal(t, maxReconnectWait, reconnectDelay(base, 5))

	// large attempt counts stay at the cap instead of overflowing
	assert.Equal(t, maxReconnectWait, reconnectDelay(base, 1000))
}

func TestReconnectDelayDefaultsZeroBase(t *testing.T) {
	assert.Equal(t, time.Second, reconnectDelay(0, 1))
	assert.Equal(t, 2*time.Second, reconnectDelay(0, 2))
}
