package core

import "Hotcore/sign"

// OnReceiveProposal implements §4.3: the safety/vote rule. prop.Blk must
// already be delivered and prop must already be verified by the caller
// (MissingDelivery is a caller bug, not recoverable here).
func (c *Core) OnReceiveProposal(prop *Proposal) {
	c.requireFinalized()
	defer c.hooks.waitRecvPropose.resolve()

	bnew := prop.Blk
	invariant(c.graph.Delivered(bnew.Hash), "OnReceiveProposal: block not delivered")
	invariant(len(bnew.Parents) > 0, "OnReceiveProposal: block without parents")

	bnewParent, ok := c.graph.Get(bnew.Parents[0])
	invariant(ok, "OnReceiveProposal: parent not delivered")

	if prop.QCParent != nil && !c.verifyQC(sign.KindVote, prop.QCParent) {
		return
	}
	for _, notify := range prop.StatusCert {
		if notify.QC != nil && !c.verifyQC(sign.KindVote, notify.QC) {
			return
		}
	}

	voted := false
	if !c.negVote {
		voted = c.votePredicate(bnew, bnewParent, prop.QCParent)
	}

	// update() runs regardless of vote outcome (step 4).
	c.update(bnew, prop.QCParent)

	if voted {
		c.vheight = bnew.Height
		text := bnew.Hash[:]
		pc := sign.CreatePartCert(c.keys, sign.KindVote, text)
		c.acts.DoBroadcastVote(&Vote{
			Voter:    c.self,
			BlkHash:  bnew.Hash,
			PartCert: pc,
		})
	}
}

// votePredicate implements §4.3 step 3: monotonic voting plus the locked-
// branch extension check.
func (c *Core) votePredicate(bnew, bnewParent *Block, qcParent *sign.QuorumCert) bool {
	if bnew.Height <= c.vheight {
		return false
	}
	if qcParent == nil {
		// Only the genesis's children may lack a meaningful parent QC,
		// and the genesis itself is never re-proposed; treat as unsafe.
		return bnewParent.Hash == c.b0.Hash
	}

	certifiedHeight, ok := c.heightOf(Hash(qcParent.CertifiedHash))
	extendsByQCHeight := ok && certifiedHeight >= c.bqc.Height
	extendsByDescent := c.graph.IsDescendant(bnewParent.Hash, c.bqc.Hash)

	return extendsByQCHeight || extendsByDescent
}

func (c *Core) heightOf(h Hash) (uint32, bool) {
	b, ok := c.graph.Get(h)
	if !ok {
		return 0, false
	}
	return b.Height, true
}
