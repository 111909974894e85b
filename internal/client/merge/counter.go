package merge

// Counter hands out ids for one batch operation. It is seeded once, from the
// clock, and then only increments, so ids stay unique within the batch no
// matter how coarse the clock is.
type Counter struct {
	next int64
}

func NewCounter(seed int64) *Counter {
	return &Counter{next: seed}
}

// Next returns the next id for which taken reports false. taken may be nil.
func (c *Counter) Next(taken func(int64) bool) int64 {
	for taken != nil && taken(c.next) {
		c.next++
	}
	id := c.next
	c.next++
	return id
}
