package core

import "Hotcore/sign"

// OnReceiveBlame implements §4.8's first half: aggregate blames for the
// current view; when n_maj are collected, form a blame-QC, broadcast it,
// advance the view, and emit a status Notify so the next leader learns of
// the highest locked QC.
func (c *Core) OnReceiveBlame(blame *Blame) {
	c.requireFinalized()
	if blame.View != c.view {
		// Only blames for the current view count toward this view's quorum.
		return
	}

	collector, ok := c.blameQC[blame.View]
	if !ok {
		collector = newBlameCollector()
		c.blameQC[blame.View] = collector
	}
	if collector.done {
		return
	}
	reached := collector.add(blame.PartCert, c.replicas.NMaj)
	if !reached {
		return
	}

	viewBytes := viewToBytes(blame.View)
	qc, err := sign.CreateQuorumCert(c.replicas.TSPublicKey, sign.KindBlame, viewBytes,
		collector.list(), c.replicas.NMaj, c.replicas.N)
	if err != nil {
		return
	}

	c.acts.DoBroadcastBlameNotify(&BlameNotify{View: blame.View, QC: qc})
	c.advanceViewAndNotify(blame.View)
}

// OnReceiveBlameNotify implements §4.8's second half: verify the carried
// blame-QC, and — for a view at least as high as our own — advance the
// view and emit our own status Notify so the new leader can learn our
// locked state too. An unverifiable QC is an invalid entity: dropped, no
// state change.
func (c *Core) OnReceiveBlameNotify(bn *BlameNotify) {
	c.requireFinalized()
	if bn.View < c.view {
		return
	}
	if bn.QC == nil || !c.verifyQC(sign.KindBlame, bn.QC) {
		return
	}
	c.advanceViewAndNotify(bn.View)
}

func (c *Core) advanceViewAndNotify(observedView uint32) {
	c.view = observedView + 1

	notify := &Notify{BlkHash: c.bqc.Hash, QC: c.bqc.QC}
	c.acts.DoBroadcastNotify(notify)
	if c.bqc.Height > c.nheight {
		c.nheight = c.bqc.Height
	}
	c.recordStatusNotify(notify)
}

// OnReceiveNotify implements §4.8's third clause: verify, update (may
// advance bqc), and accumulate the Notify into the next proposal's
// status_cert (up to n_maj entries). Every verified Notify is recorded;
// the core does not check whether this replica leads the next view.
func (c *Core) OnReceiveNotify(notify *Notify) {
	c.requireFinalized()
	invariant(c.graph.Delivered(notify.BlkHash), "OnReceiveNotify: block not delivered")

	// notify.QC is nil only for a Notify about the genesis block itself
	// (b0.QC is always nil); anything else must carry a genuine QC.
	if notify.QC != nil && !c.verifyQC(sign.KindVote, notify.QC) {
		return
	}

	blk, ok := c.graph.Get(notify.BlkHash)
	if !ok {
		return
	}
	c.update(blk, notify.QC)
	c.recordStatusNotify(notify)
}

// recordStatusNotify appends notify to the accumulator forming the next
// proposal's status_cert. Per §9's decision, the representation kept is
// the full n_maj-Notify vector the wire format specifies, not a dedup'd
// highest-QC-only form.
func (c *Core) recordStatusNotify(notify *Notify) {
	if len(c.statusCert) >= c.replicas.NMaj {
		return
	}
	c.statusCert = append(c.statusCert, notify)
}

func viewToBytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
