package core

// Prune asks the block store to drop blocks whose height is strictly below
// bexec.height - staleness. A staleness larger than bexec.height (a floor
// below genesis) is silently ignored (§7).
func (c *Core) Prune(staleness uint32) {
	c.requireFinalized()
	if staleness > c.bexec.Height {
		// Pruning below genesis makes no sense; ignore (no-op).
		return
	}
	minHeight := c.bexec.Height - staleness
	c.graph.prune(minHeight)
}
