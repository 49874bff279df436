package beacon

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Config holds the chain timing constants.
type Config struct {
	SlotsPerEpoch  uint64
	SecondsPerSlot uint64
	GenesisTime    time.Time
	ForkDigest     ForkDigest
}

func (c Config) Validate() error {
	if c.SlotsPerEpoch == 0 {
		return fmt.Errorf("beacon: slots per epoch must be positive")
	}
	if c.SecondsPerSlot == 0 {
		return fmt.Errorf("beacon: seconds per slot must be positive")
	}
	return nil
}

func (c Config) SlotDuration() time.Duration {
	return time.Duration(c.SecondsPerSlot) * time.Second
}

// EpochDuration is the wall-clock length of one epoch.
func (c Config) EpochDuration() time.Duration {
	return time.Duration(c.SlotsPerEpoch) * c.SlotDuration()
}

func (c Config) EpochAtSlot(slot Slot) Epoch {
	return Epoch(uint64(slot) / c.SlotsPerEpoch)
}

func (c Config) StartSlot(epoch Epoch) Slot {
	return Slot(uint64(epoch) * c.SlotsPerEpoch)
}

// Clock maps wall-clock time to slots.
type Clock struct {
	cfg   Config
	clock clock.Clock
}

func NewClock(cfg Config, clk clock.Clock) *Clock {
	if clk == nil {
		clk = clock.New()
	}
	return &Clock{cfg: cfg, clock: clk}
}

// CurrentSlot returns the slot of the current time, or 0 before genesis.
func (c *Clock) CurrentSlot() Slot {
	return c.SlotAt(c.clock.Now())
}

func (c *Clock) CurrentEpoch() Epoch {
	return c.cfg.EpochAtSlot(c.CurrentSlot())
}

func (c *Clock) SlotAt(t time.Time) Slot {
	if !t.After(c.cfg.GenesisTime) {
		return 0
	}
	return Slot(t.Sub(c.cfg.GenesisTime) / c.cfg.SlotDuration())
}

// TimeAtSlot returns the start time of the slot.
func (c *Clock) TimeAtSlot(slot Slot) time.Time {
	return c.cfg.GenesisTime.Add(time.Duration(slot) * c.cfg.SlotDuration())
}

func (c *Clock) Config() Config {
	return c.cfg
}
