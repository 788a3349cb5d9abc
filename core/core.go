package core

import (
	"time"

	"Hotcore/sign"

	"go.dedis.ch/kyber/v3/share"
)

// ProposePolicy decides whether a leader re-proposes the same candidate
// across a view change or must always produce a fresh block. spec.md §9
// flags this as an open question the source left as a TODO; this core
// defaults to ProposeFresh for safety (see DESIGN.md).
type ProposePolicy int

const (
	ProposeFresh ProposePolicy = iota
	ProposeRetry
)

// Core is the consensus state machine of §2–§4. It owns b0, bqc, bexec,
// vheight, nheight, view, status_cert, tails (via the block graph),
// qc_waiting, and neg_vote; it is not thread-safe (§5) — callers must
// serialize every On*/Prune call onto one logical event loop.
type Core struct {
	self ReplicaID

	replicas *ReplicaSet
	delta    time.Duration

	graph *BlockGraph

	b0    *Block
	bqc   *Block
	bexec *Block

	vheight uint32
	nheight uint32
	view    uint32

	statusCert []*Notify

	negVote bool

	policy ProposePolicy

	voteQC  map[Hash]*voteCollector
	blameQC map[uint32]*blameCollector

	armedHeight uint32
	armedBlock  Hash
	armed       bool

	finalized bool

	keys  *sign.KeySet
	acts  Actions
	hooks *Hooks
}

// New constructs an unconfigured Core. OnInit and AddReplica must run
// before Finalize; no other On* method may run before Finalize (ConfigMisuse).
func New(self ReplicaID, keys *sign.KeySet, acts Actions) *Core {
	return &Core{
		self:    self,
		graph:   newBlockGraph(),
		voteQC:  make(map[Hash]*voteCollector),
		blameQC: make(map[uint32]*blameCollector),
		keys:    keys,
		acts:    acts,
		hooks:   newHooks(),
		policy:  ProposeFresh,
	}
}

// OnInit fixes n_maj = n_faulty + 1 and the view-time parameter. It may be
// called exactly once, before Finalize.
func (c *Core) OnInit(nFaulty uint32, delta time.Duration) {
	invariant(!c.finalized, "OnInit after Finalize")
	invariant(c.replicas == nil, "OnInit called twice")
	c.replicas = &ReplicaSet{NMaj: int(nFaulty + 1)}
	c.delta = delta
}

// AddReplica appends a replica to the configuration. Only callable before
// Finalize.
func (c *Core) AddReplica(rid ReplicaID) {
	invariant(!c.finalized, "AddReplica after Finalize")
	invariant(c.replicas != nil, "AddReplica before OnInit")
	c.replicas.Members = append(c.replicas.Members, rid)
	c.replicas.N = len(c.replicas.Members)
}

// SetTSPublicKey installs the group's threshold public polynomial, used to
// verify quorum certificates. Only callable before Finalize.
func (c *Core) SetTSPublicKey(pub *share.PubPoly) {
	invariant(!c.finalized, "SetTSPublicKey after Finalize")
	c.replicas.TSPublicKey = pub
}

// SetProposePolicy overrides the default fresh-block-per-view policy.
// Only callable before Finalize.
func (c *Core) SetProposePolicy(p ProposePolicy) {
	invariant(!c.finalized, "SetProposePolicy after Finalize")
	c.policy = p
}

// SetNegVote toggles the neg_vote feature flag exercised by scenario 4.
func (c *Core) SetNegVote(v bool) { c.negVote = v }

// SetActions installs the Actions sink. Needed because a real node's
// Actions implementation typically wraps the very Node that owns this
// Core, so construction order requires setting it after New.
func (c *Core) SetActions(a Actions) { c.acts = a }

// Finalize closes configuration, interns the genesis block, and makes the
// core ready to accept protocol messages. Every On* call before Finalize,
// other than OnDeliverBlk(b0) itself, is a ConfigMisuse.
func (c *Core) Finalize(genesis *Block) {
	invariant(!c.finalized, "Finalize called twice")
	invariant(c.replicas != nil && c.replicas.N > 0, "Finalize before replicas configured")
	invariant(genesis.IsGenesis(), "genesis block malformed")

	c.b0 = genesis
	c.bqc = genesis
	c.bexec = genesis
	c.view = 0

	c.graph.Intern(genesis)
	c.graph.markDelivered(genesis)
	c.finalized = true
}

func (c *Core) requireFinalized() {
	invariant(c.finalized, "protocol message processed before Finalize")
}

// Hooks exposes the four observation hooks to the enclosing pacemaker.
func (c *Core) Hooks() *Hooks { return c.hooks }

// BQC returns the block currently carrying the highest known QC.
func (c *Core) BQC() *Block { return c.bqc }

// BExec returns the highest committed block.
func (c *Core) BExec() *Block { return c.bexec }

// View returns the current view number.
func (c *Core) View() uint32 { return c.view }

// VHeight returns the height of the last block this replica voted for.
func (c *Core) VHeight() uint32 { return c.vheight }

// NHeight returns the height of the last block this replica notified on.
func (c *Core) NHeight() uint32 { return c.nheight }

// Block looks up a block by hash in the underlying block graph.
func (c *Core) Block(h Hash) (*Block, bool) { return c.graph.Get(h) }

// Tails returns the currently known tip blocks (by hash), sorted
// deterministically by (height, hash) per §4.3's tie-break rule.
func (c *Core) Tails() []*Block {
	hashes := c.graph.Tails()
	out := make([]*Block, 0, len(hashes))
	for _, h := range hashes {
		b, ok := c.graph.Get(h)
		if ok {
			out = append(out, b)
		}
	}
	sortBlocksByHeightThenHash(out)
	return out
}

// verifyQC checks that qc is tagged for kind and carries a genuine
// threshold signature over its proof text, per spec.md §4.8's "verify,
// then update" requirement for externally-supplied quorum certificates
// (Notify.QC, BlameNotify.QC, Proposal.QCParent/StatusCert). Callers must
// check qc != nil themselves first; a nil QC (e.g. a genesis Notify) is
// never something this method is asked about.
func (c *Core) verifyQC(kind sign.Kind, qc *sign.QuorumCert) bool {
	return qc.Kind == kind && sign.VerifyQuorumCert(c.replicas.TSPublicKey, qc)
}

func sortBlocksByHeightThenHash(blocks []*Block) {
	for i := 1; i < len(blocks); i++ {
		j := i
		for j > 0 && less(blocks[j], blocks[j-1]) {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
			j--
		}
	}
}

func less(a, b *Block) bool {
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	return lessHash(a.Hash, b.Hash)
}

func lessHash(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
