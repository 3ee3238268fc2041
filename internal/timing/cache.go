package timing

// Cache memoizes shared evaluations inside a scope. Entries exist only
// while at least one scope is open; the outermost release discards them.
// A Cache must not be shared by concurrent evaluations.
type Cache struct {
	depth   int
	entries map[string]any

	hits   int
	misses int
}

func NewCache() *Cache {
	return &Cache{}
}

// Enter opens a scope and returns its release function. Entering a nil
// cache is a no-op.
func (c *Cache) Enter() (release func()) {
	if c == nil {
		return func() {}
	}
	if c.depth == 0 {
		c.entries = make(map[string]any)
	}
	c.depth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		c.depth--
		if c.depth == 0 {
			c.entries = nil
		}
	}
}

// Active reports whether a scope is open.
func (c *Cache) Active() bool {
	return c != nil && c.depth > 0
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	return c.hits, c.misses
}

func (c *Cache) get(key string) (any, bool) {
	if !c.Active() {
		return nil, false
	}
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *Cache) put(key string, v any) {
	if c.Active() {
		c.entries[key] = v
	}
}
