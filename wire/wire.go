// Package wire implements the bit-exact message codec specified in §6:
// a one-byte type tag followed by a msgpack-encoded payload, the same
// tag-then-payload framing fork1/msg_type.go and fork1/tools.go use
// (ProposalTag.. ViewChangeTag plus the shared encode() helper), adapted to
// this spec's five message kinds plus the output-only Finality kind.
package wire

import (
	"bytes"
	"fmt"

	"Hotcore/core"
	"Hotcore/sign"

	msgpack "github.com/hashicorp/go-msgpack/codec"
)

// Tag identifies a message's wire type, exactly like fork1.ProposalTag..ViewChangeTag.
type Tag uint8

const (
	TagProposal Tag = iota
	TagVote
	TagNotify
	TagBlame
	TagBlameNotify
	TagFinality
)

var mh = &msgpack.MsgpackHandle{}

// Encode msgpack-encodes v and prefixes it with tag, ready to hand to a
// transport.
func Encode(tag Tag, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	enc := msgpack.NewEncoder(&buf, mh)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the tag byte off data and decodes the remainder into the
// concrete type it names, mirroring fork1.HandleMsgLoop's type switch but
// driven by an explicit tag rather than a gob/reflect type registry.
func Decode(data []byte) (Tag, interface{}, error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("wire: empty message")
	}
	tag := Tag(data[0])
	dec := msgpack.NewDecoder(bytes.NewReader(data[1:]), mh)

	switch tag {
	case TagProposal:
		var m core.Proposal
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		if err := validateQuorumCert(m.QCParent); err != nil {
			return tag, nil, err
		}
		for _, notify := range m.StatusCert {
			if err := validateQuorumCert(notify.QC); err != nil {
				return tag, nil, err
			}
		}
		return tag, &m, nil
	case TagVote:
		var m core.Vote
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		if err := validatePartCert(m.PartCert); err != nil {
			return tag, nil, err
		}
		return tag, &m, nil
	case TagNotify:
		var m core.Notify
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		if err := validateQuorumCert(m.QC); err != nil {
			return tag, nil, err
		}
		return tag, &m, nil
	case TagBlame:
		var m core.Blame
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		if err := validatePartCert(m.PartCert); err != nil {
			return tag, nil, err
		}
		return tag, &m, nil
	case TagBlameNotify:
		var m core.BlameNotify
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		if err := validateQuorumCert(m.QC); err != nil {
			return tag, nil, err
		}
		return tag, &m, nil
	case TagFinality:
		var m core.Finality
		if err := dec.Decode(&m); err != nil {
			return tag, nil, err
		}
		return tag, &m, nil
	default:
		return tag, nil, fmt.Errorf("wire: unknown tag %d", tag)
	}
}

// validateQuorumCert re-derives a decoded QuorumCert's proof-text body and
// runs it through sign.ParseQuorumCert's shape check, catching a truncated
// or zero-length signature before the cert ever reaches core. Cryptographic
// verification against the group's threshold key happens later, in
// core.Core.verifyQC, which is the only place holding that key.
func validateQuorumCert(qc *sign.QuorumCert) error {
	if qc == nil {
		return nil
	}
	var body []byte
	switch qc.Kind {
	case sign.KindVote:
		body = qc.CertifiedHash[:]
	case sign.KindBlame:
		body = sign.ViewBytes(qc.CertifiedView)
	default:
		return fmt.Errorf("wire: quorum cert has unknown kind %d", qc.Kind)
	}
	_, err := sign.ParseQuorumCert(qc.Kind, body, qc.Sig)
	return err
}

// validatePartCert runs a decoded PartCert through sign.ParsePartCert's
// shape check.
func validatePartCert(pc *sign.PartCert) error {
	if pc == nil {
		return nil
	}
	_, err := sign.ParsePartCert(pc.Kind, pc.Signer, pc.Share)
	return err
}

// TagFor returns the wire tag for a given message value, used by senders
// that only have an interface{} in hand (e.g. node.Node's broadcast/send).
func TagFor(v interface{}) (Tag, error) {
	switch v.(type) {
	case *core.Proposal:
		return TagProposal, nil
	case *core.Vote:
		return TagVote, nil
	case *core.Notify:
		return TagNotify, nil
	case *core.Blame:
		return TagBlame, nil
	case *core.BlameNotify:
		return TagBlameNotify, nil
	case *core.Finality:
		return TagFinality, nil
	default:
		return 0, fmt.Errorf("wire: unrecognized message type %T", v)
	}
}
