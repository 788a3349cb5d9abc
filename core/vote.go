package core

import "Hotcore/sign"

// OnReceiveVote implements §4.6: append the partial certificate to the
// in-flight QC builder for vote.BlkHash; once n_maj distinct-voter
// certificates are collected, finalize the QC, attach it to the block,
// invoke update, and resolve qc_waiting.
func (c *Core) OnReceiveVote(vote *Vote) {
	c.requireFinalized()
	invariant(c.graph.Delivered(vote.BlkHash), "OnReceiveVote: block not delivered")

	collector, ok := c.voteQC[vote.BlkHash]
	if !ok {
		collector = newVoteCollector()
		c.voteQC[vote.BlkHash] = collector
	}
	if collector.done {
		// Votes for blocks that already reached quorum are ignored.
		return
	}

	reached := collector.add(vote.PartCert, c.replicas.NMaj)
	if !reached {
		return
	}

	qc, err := sign.CreateQuorumCert(c.replicas.TSPublicKey, sign.KindVote, vote.BlkHash[:],
		collector.list(), c.replicas.NMaj, c.replicas.N)
	if err != nil {
		return
	}

	blk, ok := c.graph.Get(vote.BlkHash)
	if !ok {
		return
	}
	if blk.QC == nil {
		blk.QC = qc
	}
	c.update(blk, qc)
	c.hooks.resolveQCFinish(vote.BlkHash)
}
