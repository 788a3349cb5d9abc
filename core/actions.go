package core

import "time"

// Actions is the set of externally-observable side effects the core emits.
// An enclosing node implements this the way fork1.Node implements
// broadcast/send over its conn.NetworkTransport; the core never touches a
// socket or a timer directly.
type Actions interface {
	DoBroadcastProposal(*Proposal)
	DoBroadcastVote(*Vote)
	DoBroadcastNotify(*Notify)
	DoBroadcastBlame(*Blame)
	DoBroadcastBlameNotify(*BlameNotify)

	DoDecide(*Finality)

	SetCommitTimer(blk Hash, height uint32, d time.Duration)
	StopCommitTimer(height uint32)
}

// NoopActions discards every action; useful for unit tests that only
// inspect Core's internal state.
type NoopActions struct{}

func (NoopActions) DoBroadcastProposal(*Proposal)         {}
func (NoopActions) DoBroadcastVote(*Vote)                 {}
func (NoopActions) DoBroadcastNotify(*Notify)             {}
func (NoopActions) DoBroadcastBlame(*Blame)               {}
func (NoopActions) DoBroadcastBlameNotify(*BlameNotify)   {}
func (NoopActions) DoDecide(*Finality)                    {}
func (NoopActions) SetCommitTimer(Hash, uint32, time.Duration) {}
func (NoopActions) StopCommitTimer(uint32)                {}
