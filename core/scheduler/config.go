package scheduler

import (
	"fmt"
	"time"
)

// Config defines the scheduler cadences. Simulated intervals are in
// simulated seconds; FrameInterval is the wall-clock resumption period
// used when the scheduler drives itself instead of being resumed by a
// host frame callback.
type Config struct {
	TickSeconds       int64         `json:"tick_seconds"`
	GCIntervalSeconds int64         `json:"gc_interval_seconds"`
	FrameInterval     time.Duration `json:"-"`
	FrameIntervalMS   int           `json:"frame_interval_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TickSeconds <= 0 {
		c.TickSeconds = 1
	}
	if c.GCIntervalSeconds <= 0 {
		c.GCIntervalSeconds = 60
	}
	if c.FrameIntervalMS <= 0 {
		c.FrameIntervalMS = 100
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = time.Duration(c.FrameIntervalMS) * time.Millisecond
	}
}

// Validate checks the cadences.
func (c Config) Validate() error {
	if c.GCIntervalSeconds < c.TickSeconds {
		return fmt.Errorf("gc interval %ds shorter than tick %ds", c.GCIntervalSeconds, c.TickSeconds)
	}
	return nil
}
