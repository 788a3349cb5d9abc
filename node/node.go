// Package node wires the core state machine to a transport, crypto, and a
// concrete pacemaker, the way CGCL-codes-Remora's fork1.Node wires its
// ForkBFT core to conn.NetworkTransport and sign. The pacemaker — view
// timers and leader selection — is explicitly a policy the core only
// observes through hooks (spec.md §2.9, §4.8); this package supplies one
// concrete, overridable policy so the repo runs end to end.
package node

import (
	"crypto/ed25519"
	"encoding/binary"
	"strconv"
	"sync"
	"time"

	"Hotcore/conn"
	"Hotcore/core"
	"Hotcore/sign"
	"Hotcore/wire"

	"github.com/hashicorp/go-hclog"
)

// Peer is one other replica's address and verification key.
type Peer struct {
	RID     core.ReplicaID
	Addr    string
	Port    int
	PubKey  ed25519.PublicKey
}

// Node is the demo pacemaker + core wiring.
type Node struct {
	self core.ReplicaID

	mu    sync.Mutex
	core  *core.Core
	trans *conn.Transport

	peers  map[core.ReplicaID]Peer
	logger hclog.Logger

	keys *sign.KeySet

	viewTimeout time.Duration
	viewTimer   *time.Timer

	batchSize int
	leader    func(view uint32) core.ReplicaID

	commitTimers map[uint32]*time.Timer
}

// NewNode builds a Node around an already-Finalized core.
func NewNode(self core.ReplicaID, c *core.Core, trans *conn.Transport, peers map[core.ReplicaID]Peer,
	keys *sign.KeySet, logger hclog.Logger, viewTimeout time.Duration, batchSize int) *Node {

	n := &Node{
		self:         self,
		core:         c,
		trans:        trans,
		peers:        peers,
		logger:       logger,
		keys:         keys,
		viewTimeout:  viewTimeout,
		batchSize:    batchSize,
		commitTimers: make(map[uint32]*time.Timer),
	}
	n.leader = n.electLeaderByView
	return n
}

// electLeaderByView is the default leader-selection policy: round-robin
// over the replica set by view number, the simple deterministic scheme
// scenario 2 of spec.md §8 assumes ("replica 1 becomes leader").
// electLeaderByQC offers the teacher's alternative (fork1.electLeader)
// for deployments that want unpredictability guarantees from an
// aggregated-signature-derived leader instead.
func (n *Node) electLeaderByView(view uint32) core.ReplicaID {
	ids := make([]core.ReplicaID, 0, len(n.peers)+1)
	ids = append(ids, n.self)
	for rid := range n.peers {
		ids = append(ids, rid)
	}
	// deterministic order: sort by numeric id
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 && ids[j] < ids[j-1] {
			ids[j], ids[j-1] = ids[j-1], ids[j]
			j--
		}
	}
	return ids[int(view)%len(ids)]
}

// electLeaderByQC reproduces fork1.Node.electLeader's trick: read the first
// four bytes of the aggregated blame-QC signature as a big-endian integer
// and reduce it modulo the replica count.
func electLeaderByQC(qcSig []byte, nodeNum int) int {
	if len(qcSig) < 4 {
		return 0
	}
	asInt := binary.BigEndian.Uint32(qcSig[:4])
	return int(asInt) % nodeNum
}

// IsLeader reports whether this replica leads the given view.
func (n *Node) IsLeader(view uint32) bool {
	return n.leader(view) == n.self
}

// StartListen opens this replica's inbound socket.
func (n *Node) StartListen(addr string, port int) error {
	return n.trans.Listen(addr, port)
}

func (n *Node) addrWithPort(p Peer) string {
	return p.Addr + ":" + strconv.Itoa(p.Port)
}

// broadcast signs and sends msg to every peer, mirroring fork1.broadcast.
func (n *Node) broadcast(msg interface{}) error {
	tag, err := wire.TagFor(msg)
	if err != nil {
		return err
	}
	payload, err := wire.Encode(tag, msg)
	if err != nil {
		return err
	}
	sig := sign.SignEd25519(n.keys.PrivateKey, payload)
	env := conn.Envelope{Sender: uint16(n.self), Payload: payload, Signature: sig}

	for _, p := range n.peers {
		addr := n.addrWithPort(p)
		c, err := n.trans.GetConn(addr)
		if err != nil {
			n.logger.Error("conn: dial failed", "peer", p.RID, "error", err)
			continue
		}
		if err := n.trans.SendMsg(c, env); err != nil {
			n.logger.Error("conn: send failed", "peer", p.RID, "error", err)
			continue
		}
		_ = n.trans.ReturnConn(addr, c)
	}
	return nil
}

// send signs and sends msg to exactly one peer, mirroring fork1.send.
func (n *Node) send(msg interface{}, target core.ReplicaID) error {
	p, ok := n.peers[target]
	if !ok {
		if target == n.self {
			return nil
		}
		return nil
	}
	tag, err := wire.TagFor(msg)
	if err != nil {
		return err
	}
	payload, err := wire.Encode(tag, msg)
	if err != nil {
		return err
	}
	sig := sign.SignEd25519(n.keys.PrivateKey, payload)
	env := conn.Envelope{Sender: uint16(n.self), Payload: payload, Signature: sig}

	addr := n.addrWithPort(p)
	c, err := n.trans.GetConn(addr)
	if err != nil {
		return err
	}
	if err := n.trans.SendMsg(c, env); err != nil {
		return err
	}
	return n.trans.ReturnConn(addr, c)
}

func (n *Node) verify(env conn.Envelope) bool {
	p, ok := n.peers[core.ReplicaID(env.Sender)]
	if !ok {
		return false
	}
	return sign.VerifyEd25519(p.PubKey, env.Payload, env.Signature)
}
