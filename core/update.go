package core

import "Hotcore/sign"

// update implements §4.4: examine the QC attached to blk (or passed
// explicitly when the attachment isn't yet stored on the interned block,
// as happens right after QC formation in OnReceiveVote). If the block it
// certifies has a greater height than the current bqc, advance bqc, fire
// the async hook, resolve qc_waiting, and check_commit.
func (c *Core) update(blk *Block, qc *sign.QuorumCert) {
	if qc == nil {
		qc = blk.QC
	}
	if qc == nil {
		return
	}
	certifiedHash := Hash(qc.CertifiedHash)
	bqcPrime, ok := c.graph.Get(certifiedHash)
	if !ok {
		return
	}
	if bqcPrime.Height <= c.bqc.Height {
		return
	}

	c.bqc = bqcPrime
	c.hooks.bqcUpdate.resolve()
	c.hooks.resolveQCFinish(bqcPrime.Hash)
	c.checkCommit(bqcPrime)
}
