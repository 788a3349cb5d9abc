package core

import "sync"

// deferred is a single-shot observer slot: at most one pending completion
// per kind, replaced with a fresh pending one as soon as it is consumed.
// This mirrors the teacher's nextView/nextRound channel-of-one idiom
// (fork1/node.go's `nextView chan uint64`), generalized from one fixed
// channel to a reusable resolve/wait pair so the four async_* hooks in
// §4.9 can share one implementation.
type deferred struct {
	mu sync.Mutex
	ch chan struct{}
}

func newDeferred() *deferred {
	return &deferred{ch: make(chan struct{})}
}

// wait returns a channel that closes the next time resolve is called.
func (d *deferred) wait() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ch
}

// resolve fires the current slot and installs a fresh one.
func (d *deferred) resolve() {
	d.mu.Lock()
	defer d.mu.Unlock()
	close(d.ch)
	d.ch = make(chan struct{})
}

// Hooks holds the four observation hooks a pacemaker can wait on without
// polling. They impose no ordering on the core's own transitions (§4.9).
type Hooks struct {
	bqcUpdate       *deferred
	waitPropose     *deferred
	waitRecvPropose *deferred
	qcFinish        map[Hash]*deferred
	mu              sync.Mutex
}

func newHooks() *Hooks {
	return &Hooks{
		bqcUpdate:       newDeferred(),
		waitPropose:     newDeferred(),
		waitRecvPropose: newDeferred(),
		qcFinish:        make(map[Hash]*deferred),
	}
}

// AsyncBQCUpdate resolves the next time bqc advances.
func (h *Hooks) AsyncBQCUpdate() <-chan struct{} { return h.bqcUpdate.wait() }

// AsyncWaitPropose resolves the next time on_propose completes.
func (h *Hooks) AsyncWaitPropose() <-chan struct{} { return h.waitPropose.wait() }

// AsyncWaitReceiveProposal resolves the next time on_receive_proposal completes.
func (h *Hooks) AsyncWaitReceiveProposal() <-chan struct{} { return h.waitRecvPropose.wait() }

// AsyncQCFinish resolves the next time b's QC is formed.
func (h *Hooks) AsyncQCFinish(b Hash) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.qcFinish[b]
	if !ok {
		d = newDeferred()
		h.qcFinish[b] = d
	}
	return d.wait()
}

func (h *Hooks) resolveQCFinish(b Hash) {
	h.mu.Lock()
	d, ok := h.qcFinish[b]
	if ok {
		delete(h.qcFinish, b)
	}
	h.mu.Unlock()
	if ok {
		d.resolve()
	}
}
