package wire

import (
	"reflect"
	"testing"

	"Hotcore/core"
	"Hotcore/sign"
)

func hash32(b byte) core.Hash {
	var h core.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// TestWireRoundTrip is the wire-format law from spec.md §8:
// unserialize(serialize(m)) == m, for every message kind this codec knows.
func TestWireRoundTrip(t *testing.T) {
	qcVote := &sign.QuorumCert{Kind: sign.KindVote, CertifiedHash: hash32(0xAB), Sig: []byte{9, 9, 9}}
	qcBlame := &sign.QuorumCert{Kind: sign.KindBlame, CertifiedView: 7, Sig: []byte{4, 4, 4}}
	partCertVote := &sign.PartCert{Kind: sign.KindVote, Signer: 3, Share: []byte{1, 2, 3}}
	partCertBlame := &sign.PartCert{Kind: sign.KindBlame, Signer: 2, Share: []byte{5, 6}}

	blk := &core.Block{
		Hash:    hash32(0x01),
		Parents: []core.Hash{hash32(0x00)},
		Height:  1,
		QC:      nil,
		Cmds:    [][]byte{[]byte("cmd-a"), []byte("cmd-b")},
	}

	cases := []struct {
		name string
		tag  Tag
		msg  interface{}
	}{
		{"Proposal", TagProposal, &core.Proposal{
			Proposer:   1,
			Blk:        blk,
			QCParent:   qcVote,
			StatusCert: []*core.Notify{{BlkHash: hash32(0x00), QC: nil}, {BlkHash: hash32(0xAB), QC: qcVote}},
		}},
		{"ProposalNoStatusCert", TagProposal, &core.Proposal{
			Proposer: 0,
			Blk:      blk,
			QCParent: nil,
		}},
		{"Vote", TagVote, &core.Vote{
			Voter:    3,
			BlkHash:  hash32(0xAB),
			PartCert: partCertVote,
		}},
		{"Notify", TagNotify, &core.Notify{
			BlkHash: hash32(0xAB),
			QC:      qcVote,
		}},
		{"NotifyGenesis", TagNotify, &core.Notify{
			BlkHash: hash32(0x00),
			QC:      nil,
		}},
		{"Blame", TagBlame, &core.Blame{
			Blamer:   2,
			View:     7,
			PartCert: partCertBlame,
		}},
		{"BlameNotify", TagBlameNotify, &core.BlameNotify{
			View: 7,
			QC:   qcBlame,
		}},
		{"Finality", TagFinality, &core.Finality{
			RID:       1,
			Decision:  1,
			CmdIdx:    2,
			CmdHeight: 1,
			CmdHash:   [32]byte{0xEE},
			BlkHash:   hash32(0x01),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.tag, tc.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			gotTag, gotMsg, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if gotTag != tc.tag {
				t.Fatalf("tag mismatch: want %d, got %d", tc.tag, gotTag)
			}
			if !reflect.DeepEqual(tc.msg, gotMsg) {
				t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", tc.msg, gotMsg)
			}
		})
	}
}

// TestDecodeRejectsMalformedQuorumCert confirms the shape-validation wired
// into Decode actually rejects an unsigned QC rather than silently
// accepting it, matching the per-field ParsePartCert/ParseQuorumCert checks.
func TestDecodeRejectsMalformedQuorumCert(t *testing.T) {
	notify := &core.Notify{
		BlkHash: hash32(0xAB),
		QC:      &sign.QuorumCert{Kind: sign.KindVote, CertifiedHash: hash32(0xAB), Sig: nil},
	}
	encoded, err := Encode(TagNotify, notify)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, _, err := Decode(encoded); err == nil {
		t.Fatalf("Decode should reject a Notify whose QC carries an empty signature")
	}
}

// TestDecodeRejectsMalformedPartCert mirrors the above for a Vote's PartCert.
func TestDecodeRejectsMalformedPartCert(t *testing.T) {
	vote := &core.Vote{
		Voter:    1,
		BlkHash:  hash32(0xAB),
		PartCert: &sign.PartCert{Kind: sign.KindVote, Signer: 1, Share: nil},
	}
	encoded, err := Encode(TagVote, vote)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, _, err := Decode(encoded); err == nil {
		t.Fatalf("Decode should reject a Vote whose PartCert carries an empty share")
	}
}

func TestTagForRoundTrip(t *testing.T) {
	cases := []struct {
		msg interface{}
		tag Tag
	}{
		{&core.Proposal{}, TagProposal},
		{&core.Vote{}, TagVote},
		{&core.Notify{}, TagNotify},
		{&core.Blame{}, TagBlame},
		{&core.BlameNotify{}, TagBlameNotify},
		{&core.Finality{}, TagFinality},
	}
	for _, tc := range cases {
		got, err := TagFor(tc.msg)
		if err != nil {
			t.Fatalf("TagFor failed: %v", err)
		}
		if got != tc.tag {
			t.Fatalf("TagFor mismatch: want %d, got %d", tc.tag, got)
		}
	}
}
