package conn

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// fragmentSet buffers the shards received so far for one erasure-coded
// envelope until enough have arrived to reconstruct it.
type fragmentSet struct {
	hdr    fragmentHeader
	shards [][]byte
	have   int
}

func shardCounts(nMaj int) (data, parity int) {
	// data shards are sized for survival of up to nMaj-1 losses; parity
	// shards make up the rest of a 2*nMaj-1 total, matching the quorum
	// margin the core itself uses for votes.
	data = nMaj
	parity = nMaj - 1
	if parity < 1 {
		parity = 1
	}
	return
}

// fragment erasure-codes env's payload into reedsolomon shards, each
// wrapped as its own frame, sized off t's dataShards/parityShards (set at
// construction from the cluster's n_maj).
func (t *Transport) fragment(env Envelope) ([][]byte, error) {
	data, parity := t.dataShards, t.parityShards
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, fmt.Errorf("conn: reedsolomon setup failed: %w", err)
	}

	payload := encodeFrame(env)[1:] // strip the frameKindWhole marker; shards carry their own header
	shards, err := enc.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("conn: reedsolomon split failed: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("conn: reedsolomon encode failed: %w", err)
	}

	msgID := msgIDFor(payload)
	total := data + parity
	out := make([][]byte, total)
	for i, shard := range shards {
		hdr := fragmentHeader{
			MsgID:       msgID,
			ShardIdx:    uint16(i),
			DataShards:  uint16(data),
			TotalShards: uint16(total),
			OrigLen:     uint32(len(payload)),
		}
		var buf bytes.Buffer
		buf.WriteByte(frameKindFragment)
		_ = binary.Write(&buf, binary.LittleEndian, hdr)
		buf.Write(shard)
		out[i] = buf.Bytes()
	}
	return out, nil
}

func msgIDFor(payload []byte) uint64 {
	sum := sha256.Sum256(payload)
	return binary.LittleEndian.Uint64(sum[:8])
}

// handleFragment accumulates shard into the reassembly buffer for its
// MsgID; once DataShards distinct shards are present, reconstructs the
// original envelope and delivers it.
func (t *Transport) handleFragment(hdr fragmentHeader, shardEnv Envelope) {
	t.fragMu.Lock()
	set, ok := t.frags[hdr.MsgID]
	if !ok {
		set = &fragmentSet{hdr: hdr, shards: make([][]byte, hdr.TotalShards)}
		t.frags[hdr.MsgID] = set
	}
	if set.shards[hdr.ShardIdx] == nil {
		set.shards[hdr.ShardIdx] = shardEnv.Payload
		set.have++
	}
	ready := set.have >= int(hdr.DataShards)
	if ready {
		delete(t.frags, hdr.MsgID)
	}
	t.fragMu.Unlock()

	if !ready {
		return
	}

	enc, err := reedsolomon.New(int(hdr.DataShards), int(hdr.TotalShards)-int(hdr.DataShards))
	if err != nil {
		t.logger.Error("conn: reedsolomon setup failed on reassembly", "error", err)
		return
	}
	if err := enc.Reconstruct(set.shards); err != nil {
		t.logger.Error("conn: reedsolomon reconstruct failed", "error", err)
		return
	}
	var buf bytes.Buffer
	if err := enc.Join(&buf, set.shards, int(hdr.OrigLen)); err != nil {
		t.logger.Error("conn: reedsolomon join failed", "error", err)
		return
	}

	var env Envelope
	dec := frameDecoder(buf.Bytes())
	if err := dec.Decode(&env); err != nil {
		t.logger.Error("conn: dropping unreassemblable envelope", "error", err)
		return
	}
	t.deliver(env)
}
