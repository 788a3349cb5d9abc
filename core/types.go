// Package core implements the consensus state machine: the safety/vote
// rule, QC formation, the commit rule, and the blame/view-change path.
// It is network- and timer-agnostic: every side effect an external
// pacemaker or transport needs to see is emitted through the Actions
// interface or an observation hook, never performed directly.
package core

import (
	"Hotcore/sign"
)

// Hash identifies a Block by its content.
type Hash [32]byte

// ReplicaID is a replica's stable small integer id.
type ReplicaID uint16

// Block is the opaque unit this core reasons about. Two blocks are equal
// iff their Hash fields match; Hash is computed once by hashBlock when the
// block is created (see OnPropose) and carried from then on.
type Block struct {
	Hash    Hash
	Parents []Hash // Parents[0] is the true parent; the rest are uncles.
	Height  uint32
	QC      *sign.QuorumCert // QC certifying Parents[0], or nil only for b0.
	Cmds    [][]byte
	Extra   []byte
}

// IsGenesis reports whether b is the distinguished root b0.
func (b *Block) IsGenesis() bool {
	return b.Height == 0 && len(b.Parents) == 0 && b.QC == nil
}

// Proposal is the leader-broadcast message carrying a new block, optionally
// attaching a status certificate proving the leader's locked state across a
// view change.
type Proposal struct {
	Proposer   ReplicaID
	Blk        *Block
	QCParent   *sign.QuorumCert
	StatusCert []*Notify // nil unless this proposal follows a view change.
}

// Vote is a replica-to-leader attestation for a block.
type Vote struct {
	Voter     ReplicaID
	BlkHash   Hash
	PartCert  *sign.PartCert
}

// Notify carries a quorum certificate to inform peers — especially the next
// leader — of the highest block this replica has locked.
type Notify struct {
	BlkHash Hash
	QC      *sign.QuorumCert
}

// Blame is a replica-signed accusation that the current view has failed.
type Blame struct {
	Blamer   ReplicaID
	View     uint32
	PartCert *sign.PartCert
}

// BlameNotify announces a freshly formed blame quorum certificate for a view.
type BlameNotify struct {
	View uint32
	QC   *sign.QuorumCert
}

// Finality is the only externally-visible positive outcome the core emits:
// one per command in a committed block.
type Finality struct {
	RID       ReplicaID
	Decision  int8
	CmdIdx    uint32
	CmdHeight uint32
	CmdHash   [32]byte
	BlkHash   Hash // only meaningful when Decision == 1.
}
