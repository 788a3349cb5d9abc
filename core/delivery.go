package core

// OnDeliverBlk informs the core that blk, the block referenced by its
// attached QC (if any), and all its parents have been delivered. Returns
// false and drops blk if it is structurally malformed (§4.2): empty parent
// list, a QC referencing an undelivered block, a height not equal to
// max(parent.height)+1, or an unknown parent.
func (c *Core) OnDeliverBlk(blk *Block) bool {
	if !c.finalized && blk.IsGenesis() {
		// The genesis is the one input accepted before Finalize; Finalize
		// itself interns and delivers it.
		return true
	}
	c.requireFinalized()

	if blk.Hash == c.b0.Hash {
		// Delivering the genesis again is a no-op (idempotence law).
		return true
	}
	if c.graph.Delivered(blk.Hash) {
		return true
	}
	if len(blk.Parents) == 0 {
		return false
	}

	var maxParentHeight uint32
	haveMaxParent := false
	for _, p := range blk.Parents {
		parent, ok := c.graph.Get(p)
		if !ok || !c.graph.Delivered(p) {
			return false
		}
		if !haveMaxParent || parent.Height > maxParentHeight {
			maxParentHeight = parent.Height
			haveMaxParent = true
		}
	}
	if blk.Height != maxParentHeight+1 {
		return false
	}
	if blk.QC != nil {
		if !c.graph.Delivered(Hash(blk.QC.CertifiedHash)) {
			return false
		}
	}

	c.graph.Intern(blk)
	c.graph.markDelivered(blk)
	return true
}
