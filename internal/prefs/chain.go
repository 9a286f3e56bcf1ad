package prefs

// Chain strings several setters together. Every call still persists on its
// own; after the first failure the remaining calls are skipped and Err
// reports it.
//
//	err := p.Chain().
//		PutInt("vee_int", 50).
//		PutLong("vee_long", 12345678910).
//		PutString("vee_string", "demo").
//		Err()
type Chain struct {
	p   *Prefs
	err error
}

func (p *Prefs) Chain() *Chain {
	return &Chain{p: p}
}

func (c *Chain) do(fn func() error) *Chain {
	if c.err == nil {
		c.err = fn()
	}
	return c
}

func (c *Chain) PutBool(key string, v bool) *Chain {
	return c.do(func() error { return c.p.PutBool(key, v) })
}

func (c *Chain) PutInt(key string, v int32) *Chain {
	return c.do(func() error { return c.p.PutInt(key, v) })
}

func (c *Chain) PutLong(key string, v int64) *Chain {
	return c.do(func() error { return c.p.PutLong(key, v) })
}

func (c *Chain) PutFloat(key string, v float32) *Chain {
	return c.do(func() error { return c.p.PutFloat(key, v) })
}

func (c *Chain) PutString(key string, v string) *Chain {
	return c.do(func() error { return c.p.PutString(key, v) })
}

func (c *Chain) PutStringSet(key string, v StringSet) *Chain {
	return c.do(func() error { return c.p.PutStringSet(key, v) })
}

func (c *Chain) Remove(key string) *Chain {
	return c.do(func() error { return c.p.Remove(key) })
}

func (c *Chain) Clear() *Chain {
	return c.do(c.p.Clear)
}

// Err returns the first error hit by the chain.
func (c *Chain) Err() error {
	return c.err
}
