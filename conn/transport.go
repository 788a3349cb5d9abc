// Package conn is the external network collaborator the core never touches
// directly: a pooled TCP transport, the message-authentication envelope
// (ed25519 over the wire-encoded payload), and — for large proposals — an
// erasure-coded fragmentation scheme so a block survives f lost shards over
// an unreliable link. Grounded on fork1/send_msg.go's NetworkTransport
// (GetConn/ReturnConn/broadcast/send) and the qcdag/CBC family's erasure
// broadcast idiom in the same source tree.
package conn

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"

	"Hotcore/wire"

	"github.com/hashicorp/go-hclog"
)

// FragmentThreshold is the encoded-payload size above which Transport
// erasure-codes a message into shards instead of sending it whole.
const FragmentThreshold = 16 * 1024

// Envelope is what actually crosses the wire: the tag-prefixed wire.Encode
// payload plus the sender's ed25519 signature over it, the same pairing
// fork1's broadcast()/send() build before calling Transport.SendMsg.
type Envelope struct {
	Sender    uint16
	Payload   []byte
	Signature []byte
}

// RawMsg is what Transport hands to its consumer: a reassembled, still-
// authenticated envelope. Signature verification itself is the caller's
// job (core/sign's concern), matching spec.md §5's "offloaded to an
// external verifier pool" carve-out.
type RawMsg struct {
	Envelope Envelope
	Tag      wire.Tag
	Msg      interface{}
}

// Transport is a pooled TCP connection manager plus a reassembly buffer for
// fragmented envelopes.
type Transport struct {
	mu    sync.Mutex
	pools map[string][]net.Conn

	listener net.Listener
	logger   hclog.Logger

	msgCh chan RawMsg

	fragMu sync.Mutex
	frags  map[uint64]*fragmentSet

	dataShards   int
	parityShards int
}

// NewTransport creates an idle transport; call Listen to start accepting.
// nMaj is the cluster's quorum size (n_faulty+1): fragmentation is sized off
// it so a proposal survives the same number of lost shards the core itself
// tolerates of lost votes.
func NewTransport(logger hclog.Logger, nMaj int) *Transport {
	data, parity := shardCounts(nMaj)
	return &Transport{
		pools:        make(map[string][]net.Conn),
		msgCh:        make(chan RawMsg, 1024),
		frags:        make(map[uint64]*fragmentSet),
		logger:       logger,
		dataShards:   data,
		parityShards: parity,
	}
}

// MsgChan is the channel a node's HandleMsgLoop range-selects over.
func (t *Transport) MsgChan() <-chan RawMsg { return t.msgCh }

// Listen starts accepting inbound connections on addr:port.
func (t *Transport) Listen(addr string, port int) error {
	l, err := net.Listen("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("conn: listen failed: %w", err)
	}
	t.listener = l
	go t.acceptLoop()
	return nil
}

func (t *Transport) acceptLoop() {
	for {
		c, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.readLoop(c)
	}
}

func (t *Transport) readLoop(c net.Conn) {
	r := bufio.NewReader(c)
	for {
		frame, err := readFrame(r)
		if err != nil {
			return
		}
		t.handleFrame(frame)
	}
}

func (t *Transport) handleFrame(frame []byte) {
	env, isFragment, fragHdr, err := decodeFrame(frame)
	if err != nil {
		t.logger.Error("conn: dropping malformed frame", "error", err)
		return
	}
	if isFragment {
		t.handleFragment(fragHdr, env)
		return
	}
	t.deliver(env)
}

func (t *Transport) deliver(env Envelope) {
	tag, msg, err := wire.Decode(env.Payload)
	if err != nil {
		t.logger.Error("conn: dropping undecodable payload", "error", err)
		return
	}
	t.msgCh <- RawMsg{Envelope: env, Tag: tag, Msg: msg}
}

// GetConn returns a pooled connection to addrWithPort, dialing a fresh one
// if the pool is empty.
func (t *Transport) GetConn(addrWithPort string) (net.Conn, error) {
	t.mu.Lock()
	pool := t.pools[addrWithPort]
	if len(pool) > 0 {
		c := pool[len(pool)-1]
		t.pools[addrWithPort] = pool[:len(pool)-1]
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	c, err := net.Dial("tcp", addrWithPort)
	if err != nil {
		return nil, fmt.Errorf("conn: dial %s failed: %w", addrWithPort, err)
	}
	return c, nil
}

// ReturnConn returns c to the pool for addrWithPort for reuse.
func (t *Transport) ReturnConn(addrWithPort string, c net.Conn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pools[addrWithPort] = append(t.pools[addrWithPort], c)
	return nil
}

// Close tears down the listener and every pooled connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		_ = t.listener.Close()
	}
	for _, pool := range t.pools {
		for _, c := range pool {
			_ = c.Close()
		}
	}
	return nil
}

// SendMsg writes env as one length-prefixed frame to c, fragmenting into
// erasure-coded shards first if the payload exceeds FragmentThreshold.
func (t *Transport) SendMsg(c net.Conn, env Envelope) error {
	if len(env.Payload) <= FragmentThreshold {
		frame := encodeFrame(env)
		return writeFrame(c, frame)
	}
	shards, err := t.fragment(env)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		if err := writeFrame(c, shard); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeFrame(c net.Conn, frame []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := c.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := c.Write(frame)
	return err
}
