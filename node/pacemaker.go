package node

import (
	"time"

	"Hotcore/core"
	"Hotcore/sign"
)

// selfBlame synthesizes this replica's own Blame for view, the local
// counterpart to a peer's Blame arriving over the wire (spec.md §4.8:
// "The pacemaker synthesizes on_receive_blame for local self-blame").
func (n *Node) selfBlame(view uint32) *core.Blame {
	pc := sign.CreatePartCert(n.keys, sign.KindBlame, viewBytes(view))
	return &core.Blame{Blamer: n.self, View: view, PartCert: pc}
}

func viewBytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// RunLoop drives proposing whenever this replica leads the current view,
// the generalization of fork1.Node.RunLoop's per-view broadcastBlock1:
// here one block is proposed per view instead of the teacher's two-phase
// block1/block2 scheme, since this protocol commits via an explicit timer
// rather than a second in-view QC.
func (n *Node) RunLoop(cmdSource func() [][]byte) {
	n.resetViewTimer()
	lastProposed := uint32(0)
	proposedAny := false
	for {
		time.Sleep(10 * time.Millisecond)

		n.mu.Lock()
		view := n.core.View()
		isLeader := n.IsLeader(view)
		alreadyProposed := proposedAny && view == lastProposed
		n.mu.Unlock()

		if !isLeader || alreadyProposed {
			continue
		}

		n.mu.Lock()
		tails := n.core.Tails()
		if len(tails) == 0 {
			n.mu.Unlock()
			continue
		}
		cmds := cmdSource()
		prop := n.core.OnPropose(cmds, tails[:1], nil)
		n.mu.Unlock()

		lastProposed = view
		proposedAny = true
		_ = n.broadcast(prop)
	}
}

// ActionSink adapts Node to core.Actions, the way fork1.Node's
// broadcast*/send helpers play that role implicitly; here it's explicit
// so core.Core stays fully decoupled from the node package.
type ActionSink struct {
	n *Node
}

// Actions returns the core.Actions implementation backed by n.
func (n *Node) Actions() *ActionSink { return &ActionSink{n: n} }

func (a *ActionSink) DoBroadcastProposal(p *core.Proposal)       { _ = a.n.broadcast(p) }
func (a *ActionSink) DoBroadcastVote(v *core.Vote)               { _ = a.n.broadcast(v) }
func (a *ActionSink) DoBroadcastNotify(nt *core.Notify)          { _ = a.n.broadcast(nt) }
func (a *ActionSink) DoBroadcastBlame(b *core.Blame)             { _ = a.n.broadcast(b) }
func (a *ActionSink) DoBroadcastBlameNotify(bn *core.BlameNotify) { _ = a.n.broadcast(bn) }

func (a *ActionSink) DoDecide(f *core.Finality) {
	a.n.logger.Info("commit", "height", f.CmdHeight, "cmd_idx", f.CmdIdx, "block", f.BlkHash)
}

func (a *ActionSink) SetCommitTimer(blk core.Hash, height uint32, d time.Duration) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	if t, ok := a.n.commitTimers[height]; ok {
		t.Stop()
	}
	a.n.commitTimers[height] = time.AfterFunc(d, func() {
		a.n.mu.Lock()
		defer a.n.mu.Unlock()
		a.n.core.OnCommitTimeout(blk)
	})
}

func (a *ActionSink) StopCommitTimer(height uint32) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	if t, ok := a.n.commitTimers[height]; ok {
		t.Stop()
		delete(a.n.commitTimers, height)
	}
}
