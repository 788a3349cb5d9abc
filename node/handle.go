package node

import (
	"time"

	"Hotcore/conn"
	"Hotcore/core"
)

// HandleMsgLoop mirrors fork1.Node.HandleMsgLoop: range over the
// transport's message channel, verify the authentication signature, and
// dispatch to the matching core handler. Verification runs inline here
// since this demo node has no separate verifier pool; a production
// deployment would offload verify() to worker goroutines and only feed
// the core once it resolves positively, per spec.md §5.
func (n *Node) HandleMsgLoop() {
	for raw := range n.trans.MsgChan() {
		if !n.verify(raw.Envelope) {
			n.logger.Error("dropping message with invalid signature", "sender", raw.Envelope.Sender, "tag", raw.Tag)
			continue
		}
		n.dispatch(raw)
	}
}

func (n *Node) dispatch(raw conn.RawMsg) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch msg := raw.Msg.(type) {
	case *core.Proposal:
		n.handleProposal(msg)
	case *core.Vote:
		n.core.OnReceiveVote(msg)
	case *core.Notify:
		n.handleNotify(msg)
	case *core.Blame:
		n.core.OnReceiveBlame(msg)
		n.resetViewTimer()
	case *core.BlameNotify:
		n.core.OnReceiveBlameNotify(msg)
		n.resetViewTimer()
	default:
		n.logger.Error("unrecognized decoded message", "tag", raw.Tag)
	}
}

func (n *Node) handleProposal(prop *core.Proposal) {
	if !n.core.OnDeliverBlk(prop.Blk) {
		n.logger.Error("dropping malformed proposal", "proposer", prop.Proposer, "height", prop.Blk.Height)
		return
	}
	n.core.OnReceiveProposal(prop)
	n.resetViewTimer()
}

func (n *Node) handleNotify(notify *core.Notify) {
	blk, ok := n.core.Block(notify.BlkHash)
	if !ok {
		// Notify references a block we haven't seen; without the full
		// delivery pipeline wired in this demo we simply drop it — a
		// production node would queue it behind block fetch.
		return
	}
	_ = blk
	n.core.OnReceiveNotify(notify)
}

// resetViewTimer restarts the pacemaker's view timer; its expiry is the
// only way OnReceiveBlame gets synthesized locally (spec.md §4.8).
func (n *Node) resetViewTimer() {
	if n.viewTimer != nil {
		n.viewTimer.Stop()
	}
	n.viewTimer = time.AfterFunc(n.viewTimeout, n.onViewTimeout)
}

func (n *Node) onViewTimeout() {
	n.mu.Lock()
	defer n.mu.Unlock()

	view := n.core.View()
	n.logger.Info("view timer expired, blaming", "view", view)
	blame := n.selfBlame(view)
	n.core.OnReceiveBlame(blame)
	_ = n.broadcast(blame)
}
