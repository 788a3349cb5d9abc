package core

import "Hotcore/sign"

// voteCollector aggregates partial certificates for one block's QC, the
// hash-keyed generalization of fork1/node.go's
// `partialVote map[view]map[height]map[sender]*Vote` plus `generateQC`.
type voteCollector struct {
	certs map[ReplicaID]*sign.PartCert
	done  bool
}

// blameCollector aggregates partial certificates for one view's blame QC,
// the generalization of fork1/node.go's `finish map[view]map[sender]*Finish`.
type blameCollector struct {
	certs map[ReplicaID]*sign.PartCert
	done  bool
}

func newVoteCollector() *voteCollector {
	return &voteCollector{certs: make(map[ReplicaID]*sign.PartCert)}
}

func newBlameCollector() *blameCollector {
	return &blameCollector{certs: make(map[ReplicaID]*sign.PartCert)}
}

// add appends a partial certificate, deduplicating by signer (§4.6.4).
// Returns true iff this call brought the collector to exactly n_maj
// distinct signers for the first time.
func (c *voteCollector) add(pc *sign.PartCert, nMaj int) bool {
	if c.done {
		return false
	}
	if _, dup := c.certs[ReplicaID(pc.Signer)]; dup {
		return false
	}
	c.certs[ReplicaID(pc.Signer)] = pc
	if len(c.certs) >= nMaj {
		c.done = true
		return true
	}
	return false
}

func (c *voteCollector) list() []*sign.PartCert {
	out := make([]*sign.PartCert, 0, len(c.certs))
	for _, pc := range c.certs {
		out = append(out, pc)
	}
	return out
}

func (c *blameCollector) add(pc *sign.PartCert, nMaj int) bool {
	if c.done {
		return false
	}
	if _, dup := c.certs[ReplicaID(pc.Signer)]; dup {
		return false
	}
	c.certs[ReplicaID(pc.Signer)] = pc
	if len(c.certs) >= nMaj {
		c.done = true
		return true
	}
	return false
}

func (c *blameCollector) list() []*sign.PartCert {
	out := make([]*sign.PartCert, 0, len(c.certs))
	for _, pc := range c.certs {
		out = append(out, pc)
	}
	return out
}
