package core

// checkCommit implements §4.5: arm a commit timer for b whenever bqc
// advances to it, bounded by delta. If a timer was already armed for a
// lower-height block, it is stopped in favor of the new one.
func (c *Core) checkCommit(b *Block) {
	if c.armed && b.Height <= c.armedHeight {
		return
	}
	if c.armed {
		c.acts.StopCommitTimer(c.armedHeight)
	}
	c.armed = true
	c.armedHeight = b.Height
	c.armedBlock = b.Hash
	c.acts.SetCommitTimer(b.Hash, b.Height, c.delta)
}

// OnCommitTimeout fires when the commit timer armed for blkHash expires.
// If blkHash is still on the bqc chain (i.e. it is bqc or an ancestor of
// bqc) and no later bqc advance has superseded the armed timer, commit
// every uncommitted ancestor of blkHash, oldest first, then advance bexec.
func (c *Core) OnCommitTimeout(blkHash Hash) {
	c.requireFinalized()

	if !c.armed || c.armedBlock != blkHash {
		// Timer was already superseded/stopped; at-most-one-fire is the
		// transport's guarantee, but a stale fire racing a stop is still
		// possible and is simply ignored.
		return
	}
	b, ok := c.graph.Get(blkHash)
	if !ok {
		return
	}
	if !c.graph.IsDescendant(c.bqc.Hash, blkHash) {
		// blkHash is no longer on the bqc chain.
		c.armed = false
		return
	}

	chain := c.ancestorsSince(b, c.bexec)
	for _, blk := range chain {
		for idx, cmd := range blk.Cmds {
			c.acts.DoDecide(&Finality{
				RID:       c.self,
				Decision:  1,
				CmdIdx:    uint32(idx),
				CmdHeight: blk.Height,
				CmdHash:   cmdHash(cmd),
				BlkHash:   blk.Hash,
			})
		}
	}
	c.bexec = b
	c.armed = false
}

// ancestorsSince walks from b toward (but not including) floor along the
// true-parent chain, returning blocks in increasing-height order.
func (c *Core) ancestorsSince(b, floor *Block) []*Block {
	var chain []*Block
	cur := b
	for cur.Hash != floor.Hash {
		chain = append(chain, cur)
		if len(cur.Parents) == 0 {
			break
		}
		parent, ok := c.graph.Get(cur.Parents[0])
		if !ok {
			break
		}
		cur = parent
	}
	// reverse into increasing-height order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
