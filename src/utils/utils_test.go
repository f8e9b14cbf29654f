package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "value", OrDefault("value", "default"))
	assert.Equal(t, "default", OrDefault("", "default"))
	assert.Equal(t, 5, OrDefault(0, 5))
}

func TestIntClamp(t *testing.T) {
	assert.Equal(t, 1, IntClamp(1, 0, 50))
	assert.Equal(t, 1, IntClamp(1, -10, 50))
	assert.Equal(t, 50, IntClamp(1, 1000, 50))
	assert.Equal(t, 25, IntClamp(1, 25, 50))
}

func TestSleepContext(t *testing.T) {
	err := SleepContext(context.Background(), 1*time.Millisecond)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = SleepContext(ctx, time.Hour)
	assert.Error(t, err)
}
