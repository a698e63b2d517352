package smp

import (
	"github.com/rigado/btstack"
	"github.com/rigado/btstack/crypto"
)

// BRState enumerates the parallel BR/EDR state machine's states, §4.3.1's
// "A parallel 'BR state machine' handles cross-transport key derivation".
// Grounded on smp_br_process_pairing_command/smp_br_select_next_key/
// smp_br_process_link_key in original_source/stack/smp/smp_act.cc, which
// this module gives an explicit small state machine rather than inlining
// as policy text.
type BRState int

const (
	BRStateIdle BRState = iota
	BRStateWaitApp
	BRStatePairReqRspPending
	BRStateBondPending
	BRStateRelease
)

func (s BRState) String() string {
	switch s {
	case BRStateIdle:
		return "idle"
	case BRStateWaitApp:
		return "wait-app"
	case BRStatePairReqRspPending:
		return "pair-req-rsp-pending"
	case BRStateBondPending:
		return "bond-pending"
	case BRStateRelease:
		return "release"
	default:
		return "unknown"
	}
}

// BRPairingControlBlock is the BR/EDR-side counterpart of
// PairingControlBlock, tracking SMP-over-BR/EDR cross-transport key
// derivation (§4.3.6). It never carries its own ECDH/nonce state — BR/EDR
// pairing itself is out of scope (§1); only the derivation step is in scope.
type BRPairingControlBlock struct {
	PeerAddr  btstack.Addr
	LocalAddr btstack.Addr

	State BRState

	// LinkKey is the BR/EDR link key, either the input to LE-direction
	// derivation or the output of LE-to-BR derivation.
	LinkKey []byte

	// LTK is the LE long-term key, either the output of BR-to-LE
	// derivation or the input to LE-to-BR derivation.
	LTK []byte

	UseH7 bool

	// LinkKeyAuthenticated records whether LinkKey already carries MITM
	// protection at least as strong as the LE link, §4.3.6's policy
	// guard against overwriting a stronger key with a weaker derivation.
	LinkKeyAuthenticated bool
}

// h6KeyIDBRToLE and h6KeyIDLEToBR are the fixed 4-byte key IDs Core Spec
// Vol 3 Part H §2.2.8 assigns to the two derivation directions, ASCII
// "brle" / "lebr", stored least-significant octet first like every other
// input to crypto.Engine.AESCMAC.
var (
	h6KeyIDBRToLE = []byte{0x65, 0x6c, 0x72, 0x62} // "brle"
	h6KeyIDLEToBR = []byte{0x72, 0x62, 0x65, 0x6c} // "lebr"

	h7Salt = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x74, 0x6d, 0x31, 0x00}
)

// DeriveLinkKeyFromLTK implements the LE-to-BR direction of §4.3.6: a BR/EDR
// link key is derived from the LE LTK via h6 (or h7 if useH7). The policy
// guard ("a BR key already more-authenticated than the LE link blocks
// derivation-overwrite") is the caller's responsibility — this function
// only computes the value.
func DeriveLinkKeyFromLTK(e crypto.Engine, ltk []byte, useH7 bool) ([]byte, error) {
	if useH7 {
		ilk, err := crypto.H7(e, h7Salt, ltk)
		if err != nil {
			return nil, err
		}
		return crypto.H6(e, ilk, h6KeyIDLEToBR)
	}
	return crypto.H6(e, ltk, h6KeyIDLEToBR)
}

// DeriveLTKFromLinkKey implements the BR-to-LE direction of §4.3.6, the
// mirror of DeriveLinkKeyFromLTK.
func DeriveLTKFromLinkKey(e crypto.Engine, linkKey []byte, useH7 bool) ([]byte, error) {
	if useH7 {
		ilk, err := crypto.H7(e, h7Salt, linkKey)
		if err != nil {
			return nil, err
		}
		return crypto.H6(e, ilk, h6KeyIDBRToLE)
	}
	return crypto.H6(e, linkKey, h6KeyIDBRToLE)
}
