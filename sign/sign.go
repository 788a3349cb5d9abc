// Package sign provides the partial-certificate and quorum-certificate
// crypto factories the core state machine is configured with. Partial
// certificates are threshold signature shares; quorum certificates are
// assembled from (n_maj) partial certificates into a threshold signature
// via go.dedis.ch/kyber, the same pairing the ForkBFT/Remora nodes use for
// vote and view-change aggregation.
package sign

import (
	"crypto/ed25519"
	"errors"

	"github.com/seafooler/sign_tools"
	"go.dedis.ch/kyber/v3/share"
)

// Kind tags a proof text's domain so a Vote signature can never be
// replayed as a Blame signature or vice versa.
type Kind uint8

const (
	KindVote Kind = iota
	KindBlame
)

func (k Kind) tag() byte {
	switch k {
	case KindVote:
		return 0x00
	case KindBlame:
		return 0x01
	default:
		panic("sign: unknown proof-text kind")
	}
}

// ProofText builds the domain-separated payload a partial certificate signs.
func ProofText(k Kind, body []byte) []byte {
	out := make([]byte, 0, 1+len(body))
	out = append(out, k.tag())
	out = append(out, body...)
	return out
}

// PartCert is one replica's signature share over a domain-separated proof
// text. The signer id travels alongside the message it is attached to
// (explicitly in Vote/Blame), never inferred from share position here.
type PartCert struct {
	Kind   Kind
	Signer uint16
	Share  []byte
}

// QuorumCert aggregates NMaj distinct-signer PartCerts into one
// verifier-efficient threshold signature, tagged with the hash or view it
// certifies.
type QuorumCert struct {
	Kind Kind
	// CertifiedHash is the block hash for KindVote QCs.
	CertifiedHash [32]byte
	// CertifiedView is the view number for KindBlame QCs.
	CertifiedView uint32
	Sig           []byte
}

var (
	ErrInvalidSignature = errors.New("sign: signature verification failed")
	ErrQuorumMismatch    = errors.New("sign: too few partial certificates to assemble a quorum certificate")
)

// KeySet holds this replica's long-term ed25519 identity plus the threshold
// key material used to build and verify quorum certificates, mirroring
// config.Config's publicKeyMap/privateKey/tsPublicKey/tsPrivateKey fields.
type KeySet struct {
	RID        uint16
	PrivateKey ed25519.PrivateKey
	PublicKeys map[uint16]ed25519.PublicKey

	TSPrivateKey *share.PriShare
	TSPublicKey  *share.PubPoly
}

// GenKeys creates n ed25519 identities and a (threshold, n) kyber threshold
// key, the same generation path fork0/node_test.go exercises.
func GenKeys(n, threshold int) ([]ed25519.PrivateKey, []ed25519.PublicKey, []*share.PriShare, *share.PubPoly) {
	privs := make([]ed25519.PrivateKey, n)
	pubs := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		privs[i], pubs[i] = sign_tools.GenED25519Keys()
	}
	shares, pubPoly := sign_tools.GenTSKeys(threshold, n)
	return privs, pubs, shares, pubPoly
}

// CreatePartCert wraps body in ProofText(kind, body) and signs the result
// with this replica's threshold share, for later aggregation into a
// QuorumCert.
func CreatePartCert(ks *KeySet, kind Kind, body []byte) *PartCert {
	text := ProofText(kind, body)
	sig := sign_tools.SignTSPartial(ks.TSPrivateKey, text)
	return &PartCert{Kind: kind, Signer: ks.RID, Share: sig}
}

// ParsePartCert validates a PartCert carried inline in a Vote or Blame
// message. Since the threshold share itself is only checked for validity
// once n_maj are aggregated (the teacher's checkIfQuorumVote path does not
// verify shares individually either), ParsePartCert only checks shape.
func ParsePartCert(kind Kind, signer uint16, share []byte) (*PartCert, error) {
	if len(share) == 0 {
		return nil, ErrInvalidSignature
	}
	return &PartCert{Kind: kind, Signer: signer, Share: share}, nil
}

// CreateQuorumCert assembles nMaj partial certificates collected over the
// same proof text into one threshold quorum certificate.
func CreateQuorumCert(pub *share.PubPoly, kind Kind, body []byte, certs []*PartCert, nMaj, n int) (*QuorumCert, error) {
	if len(certs) < nMaj {
		return nil, ErrQuorumMismatch
	}
	text := ProofText(kind, body)
	shares := make([][]byte, 0, len(certs))
	seen := make(map[uint16]bool, len(certs))
	for _, c := range certs {
		if seen[c.Signer] {
			continue
		}
		seen[c.Signer] = true
		shares = append(shares, c.Share)
	}
	if len(shares) < nMaj {
		return nil, ErrQuorumMismatch
	}
	sig := sign_tools.AssembleIntactTSPartial(shares, pub, text, nMaj, n)
	qc := &QuorumCert{Kind: kind}
	switch kind {
	case KindVote:
		copy(qc.CertifiedHash[:], body)
	case KindBlame:
		qc.CertifiedView = beUint32(body)
	}
	qc.Sig = sig
	return qc, nil
}

// ParseQuorumCert is the deserialization-side factory: it checks the wire
// shape and re-derives the certified hash/view from the body. It does not
// check the aggregate threshold signature against the public polynomial —
// that is VerifyQuorumCert's job, run once the caller has a TSPublicKey to
// check against (core.Core.verifyQC).
func ParseQuorumCert(kind Kind, body []byte, sig []byte) (*QuorumCert, error) {
	if len(sig) == 0 {
		return nil, ErrInvalidSignature
	}
	if kind == KindVote && len(body) != 32 {
		return nil, ErrInvalidSignature
	}
	qc := &QuorumCert{Kind: kind, Sig: sig}
	switch kind {
	case KindVote:
		copy(qc.CertifiedHash[:], body)
	case KindBlame:
		qc.CertifiedView = beUint32(body)
	}
	return qc, nil
}

// VerifyQuorumCert checks a QC's aggregate threshold signature against the
// group public polynomial over its domain-separated proof text.
func VerifyQuorumCert(pub *share.PubPoly, qc *QuorumCert) bool {
	var body []byte
	switch qc.Kind {
	case KindVote:
		body = qc.CertifiedHash[:]
	case KindBlame:
		body = beBytes(qc.CertifiedView)
	}
	text := ProofText(qc.Kind, body)
	ok, err := sign_tools.VerifyTS(pub, text, qc.Sig)
	if err != nil {
		return false
	}
	return ok
}

// SignEd25519 signs the message authentication wrapper (proposer/voter/blamer
// identity binding) around a serialized message, the way fork1's
// broadcast/send helpers call sign.SignEd25519 before handing bytes to conn.
func SignEd25519(priv ed25519.PrivateKey, msg []byte) []byte {
	return sign_tools.SignEd25519(priv, msg)
}

// VerifyEd25519 checks the message-authentication signature attached by the
// sender, independent of the threshold partial-certificate it may carry.
func VerifyEd25519(pub ed25519.PublicKey, msg, sig []byte) bool {
	ok, err := sign_tools.VerifySignEd25519(pub, msg, sig)
	if err != nil {
		return false
	}
	return ok
}

func beUint32(b []byte) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(b); i++ {
		v = v<<8 | uint32(b[i])
	}
	return v
}

func beBytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// ViewBytes is the exported form of the big-endian view encoding
// ParseQuorumCert/VerifyQuorumCert expect as the body of a KindBlame
// certificate, for callers (wire.Decode) that only have the already-decoded
// QuorumCert and need to re-derive its proof-text body.
func ViewBytes(v uint32) []byte {
	return beBytes(v)
}
