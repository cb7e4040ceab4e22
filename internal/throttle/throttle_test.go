package throttle

import (
	"testing"
	"time"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
	"github.com/stretchr/testify/assert"
)

func newTestController(cfg config.ThrottleConfig) (*Controller, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewController(cfg)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestController_DelayGrowsAndCaps(t *testing.T) {
	c, _ := newTestController(config.ThrottleConfig{
		Base:            100 * time.Millisecond,
		Multiplier:      2,
		MaxDelay:        time.Second,
		MaxFailureCount: 5,
	})
	class := types.FileQueue

	assert.Equal(t, time.Duration(0), c.ComputeDelay(class))

	expected := []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
		time.Second,
	}
	previous := time.Duration(0)
	for i, want := range expected {
		c.RecordFailure(class)
		got := c.ComputeDelay(class)
		assert.Equal(t, want, got, "failure %d", i+1)
		assert.GreaterOrEqual(t, got, previous)
		previous = got
	}
	assert.Equal(t, 5, c.FailureCount(class))
}

func TestController_SuccessResets(t *testing.T) {
	c, _ := newTestController(config.DefaultThrottleConfig())
	c.RecordFailure(types.MetadataQueue)
	c.RecordFailure(types.MetadataQueue)
	assert.Equal(t, 2, c.FailureCount(types.MetadataQueue))
	assert.Greater(t, c.Wait(types.MetadataQueue), time.Duration(0))

	c.RecordSuccess(types.MetadataQueue)
	assert.Equal(t, 0, c.FailureCount(types.MetadataQueue))
	assert.Equal(t, time.Duration(0), c.ComputeDelay(types.MetadataQueue))
	assert.Equal(t, time.Duration(0), c.Wait(types.MetadataQueue))
}

func TestController_ClassesAreIndependent(t *testing.T) {
	c, _ := newTestController(config.DefaultThrottleConfig())
	c.RecordFailure(types.FileQueue)

	assert.Equal(t, 1, c.FailureCount(types.FileQueue))
	assert.Equal(t, 0, c.FailureCount(types.MetadataQueue))
	assert.Equal(t, time.Duration(0), c.Wait(types.MetadataQueue))
}

func TestController_WaitCountsDown(t *testing.T) {
	c, now := newTestController(config.ThrottleConfig{
		Base:            time.Second,
		Multiplier:      1,
		MaxDelay:        time.Minute,
		MaxFailureCount: 3,
	})
	c.RecordFailure(types.FileQueue)
	assert.Equal(t, time.Second, c.Wait(types.FileQueue))

	*now = now.Add(400 * time.Millisecond)
	assert.Equal(t, 600*time.Millisecond, c.Wait(types.FileQueue))

	*now = now.Add(time.Second)
	assert.Equal(t, time.Duration(0), c.Wait(types.FileQueue))
}

func TestController_JitterAndDisabled(t *testing.T) {
	cfg := config.ThrottleConfig{
		Base:            time.Second,
		Multiplier:      1,
		MaxDelay:        time.Minute,
		MaxFailureCount: 3,
		Jitter:          time.Second,
	}
	c, _ := newTestController(cfg)
	c.jitter = func(max time.Duration) time.Duration { return max / 2 }
	c.RecordFailure(types.FileQueue)
	assert.Equal(t, 1500*time.Millisecond, c.Wait(types.FileQueue))

	cfg.Disabled = true
	disabled, _ := newTestController(cfg)
	disabled.RecordFailure(types.FileQueue)
	assert.Equal(t, 1, disabled.FailureCount(types.FileQueue))
	assert.Equal(t, time.Duration(0), disabled.ComputeDelay(types.FileQueue))
	assert.Equal(t, time.Duration(0), disabled.Wait(types.FileQueue))
}
