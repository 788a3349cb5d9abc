package core

// OnPropose implements §4.7. Preconditions (caller-enforced, MissingDelivery
// otherwise): parents is non-empty, parents[0] is delivered, and the caller
// is leader for the current view.
func (c *Core) OnPropose(cmds [][]byte, parents []*Block, extra []byte) *Proposal {
	c.requireFinalized()
	invariant(len(parents) > 0, "OnPropose: no parents")
	invariant(c.graph.Delivered(parents[0].Hash), "OnPropose: parents[0] not delivered")
	defer c.hooks.waitPropose.resolve()

	trueParent := parents[0]
	qcForParent := trueParent.QC
	if trueParent.Hash == c.b0.Hash {
		qcForParent = nil
	}

	parentHashes := make([]Hash, len(parents))
	for i, p := range parents {
		parentHashes[i] = p.Hash
	}

	bnew := &Block{
		Parents: parentHashes,
		Height:  trueParent.Height + 1,
		QC:      qcForParent,
		Cmds:    cmds,
		Extra:   extra,
	}
	bnew.Hash = hashBlock(bnew)

	c.graph.Intern(bnew)
	c.graph.markDelivered(bnew)

	statusCert := c.statusCert

	prop := &Proposal{
		Proposer:   c.self,
		Blk:        bnew,
		QCParent:   qcForParent,
		StatusCert: statusCert,
	}

	// Reuse the same path remote proposals traverse: the proposer also
	// votes for its own proposal if the safety predicate holds.
	c.OnReceiveProposal(prop)

	c.acts.DoBroadcastProposal(prop)
	c.statusCert = nil

	return prop
}
