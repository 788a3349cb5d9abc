package conn

import (
	"bytes"
	"encoding/binary"
	"fmt"

	msgpack "github.com/hashicorp/go-msgpack/codec"
)

var frameHandle = &msgpack.MsgpackHandle{}

const (
	frameKindWhole byte = iota
	frameKindFragment
)

// fragmentHeader precedes every erasure-coded shard of a large envelope.
type fragmentHeader struct {
	MsgID      uint64
	ShardIdx   uint16
	DataShards uint16
	TotalShards uint16
	OrigLen    uint32
}

func encodeFrame(env Envelope) []byte {
	var buf bytes.Buffer
	buf.WriteByte(frameKindWhole)
	enc := msgpack.NewEncoder(&buf, frameHandle)
	_ = enc.Encode(env)
	return buf.Bytes()
}

func frameDecoder(payload []byte) *msgpack.Decoder {
	return msgpack.NewDecoder(bytes.NewReader(payload), frameHandle)
}

func decodeFrame(frame []byte) (Envelope, bool, fragmentHeader, error) {
	if len(frame) < 1 {
		return Envelope{}, false, fragmentHeader{}, fmt.Errorf("conn: empty frame")
	}
	switch frame[0] {
	case frameKindWhole:
		var env Envelope
		dec := msgpack.NewDecoder(bytes.NewReader(frame[1:]), frameHandle)
		if err := dec.Decode(&env); err != nil {
			return Envelope{}, false, fragmentHeader{}, err
		}
		return env, false, fragmentHeader{}, nil
	case frameKindFragment:
		var hdr fragmentHeader
		r := bytes.NewReader(frame[1:])
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return Envelope{}, false, fragmentHeader{}, err
		}
		shard := make([]byte, r.Len())
		_, _ = r.Read(shard)
		return Envelope{Payload: shard}, true, hdr, nil
	default:
		return Envelope{}, false, fragmentHeader{}, fmt.Errorf("conn: unknown frame kind %d", frame[0])
	}
}
