package task

// clock counts simulated time units (character-equivalents) for one episode.
type clock struct {
	elapsed int
	max     int
}

func (c *clock) expired() bool { return c.elapsed >= c.max }

// advance adds units and reports whether the budget is now used up. Elapsed
// never passes max, so a timeout is always recorded at exactly max.
func (c *clock) advance(units int) bool {
	c.elapsed += units
	if c.elapsed > c.max {
		c.elapsed = c.max
	}
	return c.expired()
}
