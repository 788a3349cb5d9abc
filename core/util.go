package core

import (
	"crypto/sha256"
	"encoding/binary"
)

func cmdHash(cmd []byte) [32]byte {
	return sha256.Sum256(cmd)
}

// hashBlock computes a block's content hash over its parents, height,
// commands, and extra bytes — everything but the hash field itself and the
// attached QC (a block's identity does not depend on which QC a proposer
// chose to attach, only its own content and lineage).
func hashBlock(b *Block) Hash {
	h := sha256.New()
	for _, p := range b.Parents {
		h.Write(p[:])
	}
	var heightBuf [4]byte
	binary.LittleEndian.PutUint32(heightBuf[:], b.Height)
	h.Write(heightBuf[:])
	for _, cmd := range b.Cmds {
		h.Write(cmd)
	}
	h.Write(b.Extra)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
