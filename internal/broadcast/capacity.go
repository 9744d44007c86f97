package broadcast

import "sync/atomic"

// capacity caps concurrently held connection slots without a lock.
type capacity struct {
	current atomic.Int64
	max     int64
}

func newCapacity(max int) *capacity {
	return &capacity{max: int64(max)}
}

func (c *capacity) acquire() bool {
	for {
		cur := c.current.Load()
		if cur >= c.max {
			return false
		}
		if c.current.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (c *capacity) release() {
	c.current.Add(-1)
}

func (c *capacity) inUse() int64 {
	return c.current.Load()
}

// utilization is a percentage of max.
func (c *capacity) utilization() float64 {
	if c.max == 0 {
		return 0
	}
	return float64(c.inUse()) / float64(c.max) * 100
}
