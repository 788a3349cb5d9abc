package core

import "go.dedis.ch/kyber/v3/share"

// ReplicaSet is the fixed configuration the core consults for quorum size
// and the threshold public polynomial. It is shared-immutable once
// Finalize is called.
type ReplicaSet struct {
	N       int
	NMaj    int
	Members []ReplicaID

	TSPublicKey *share.PubPoly
}

func (r *ReplicaSet) has(rid ReplicaID) bool {
	for _, m := range r.Members {
		if m == rid {
			return true
		}
	}
	return false
}
