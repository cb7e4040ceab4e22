// Package throttle implements the exponential backoff shared by every job
// of a queue class.
package throttle

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
)

type classState struct {
	failures int
	readyAt  time.Time
}

type Controller struct {
	mu      sync.Mutex
	cfg     config.ThrottleConfig
	classes map[types.QueueClass]*classState
	now     func() time.Time
	jitter  func(max time.Duration) time.Duration
}

func NewController(cfg config.ThrottleConfig) *Controller {
	return &Controller{
		cfg:     cfg,
		classes: make(map[types.QueueClass]*classState),
		now:     time.Now,
		jitter: func(max time.Duration) time.Duration {
			return rand.N(max)
		},
	}
}

func (c *Controller) stateLocked(class types.QueueClass) *classState {
	s, ok := c.classes[class]
	if !ok {
		s = &classState{}
		c.classes[class] = s
	}
	return s
}

// ComputeDelay returns the backoff implied by the current failure streak.
func (c *Controller) ComputeDelay(class types.QueueClass) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delayLocked(c.stateLocked(class).failures)
}

func (c *Controller) delayLocked(failures int) time.Duration {
	if failures == 0 || c.cfg.Disabled {
		return 0
	}
	exp := min(failures, c.cfg.MaxFailureCount)
	delay := float64(c.cfg.Base) * math.Pow(c.cfg.Multiplier, float64(exp))
	if delay >= float64(c.cfg.MaxDelay) {
		return c.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// RecordFailure bumps the streak, capped at MaxFailureCount, and pushes the
// class ready time out by the new delay.
func (c *Controller) RecordFailure(class types.QueueClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stateLocked(class)
	if s.failures < c.cfg.MaxFailureCount {
		s.failures++
	}
	delay := c.delayLocked(s.failures)
	if delay > 0 && c.cfg.Jitter > 0 {
		delay += c.jitter(c.cfg.Jitter)
	}
	s.readyAt = c.now().Add(delay)
}

func (c *Controller) RecordSuccess(class types.QueueClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stateLocked(class)
	s.failures = 0
	s.readyAt = time.Time{}
}

func (c *Controller) FailureCount(class types.QueueClass) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(class).failures
}

// Wait returns how long the class must stay idle before its next dispatch.
func (c *Controller) Wait(class types.QueueClass) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stateLocked(class)
	if s.readyAt.IsZero() {
		return 0
	}
	if remaining := s.readyAt.Sub(c.now()); remaining > 0 {
		return remaining
	}
	return 0
}
