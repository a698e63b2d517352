package smp

import (
	"crypto/elliptic"

	"github.com/rigado/btstack"
	"github.com/rigado/btstack/crypto"
)

// State enumerates the LE pairing state machine's states, §4.3.1.
type State int

const (
	StateIdle State = iota
	StateWaitAppResponse
	StateSecurityRequestPending
	StatePairingRequestSent
	StatePairingResponsePending // responder: Pairing Response being sent, before phase 1
	StateWaitConfirm
	StateConfirmSent
	StateLegacyWaitPeerRandom // responder only: confirm exchanged, waiting on Mrand before Srand
	StateRandomPending
	StatePublicKeyExchange
	StateSCPhase1Start
	StateWaitNonce
	StateSCPhase2Start
	StateWaitDHKeyCheck
	StateEncryptionPending
	StateBondPending
	StateRelease
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitAppResponse:
		return "wait-app-rsp"
	case StateSecurityRequestPending:
		return "sec-req-pending"
	case StatePairingRequestSent:
		return "pair-req-sent"
	case StatePairingResponsePending:
		return "pair-rsp-pending"
	case StateWaitConfirm:
		return "wait-confirm"
	case StateConfirmSent:
		return "confirm-sent"
	case StateLegacyWaitPeerRandom:
		return "legacy-wait-peer-rand"
	case StateRandomPending:
		return "rand-pending"
	case StatePublicKeyExchange:
		return "public-key-exch"
	case StateSCPhase1Start:
		return "sec-conn-phs1-start"
	case StateWaitNonce:
		return "wait-nonce"
	case StateSCPhase2Start:
		return "sec-conn-phs2-start"
	case StateWaitDHKeyCheck:
		return "wait-dhk-check"
	case StateEncryptionPending:
		return "encryption-pending"
	case StateBondPending:
		return "bond-pending"
	case StateRelease:
		return "release"
	default:
		return "unknown"
	}
}

// PairingControlBlock is the single per-link SMP pairing record, §3
// "Entity: SMP Pairing Control Block". One is allocated per link when
// pairing starts and zeroized on completion or failure.
type PairingControlBlock struct {
	PeerAddr  btstack.Addr
	LocalAddr btstack.Addr
	LocalRole Role

	Model AssociationModel
	IsSC  bool

	LocalParams PairingParams
	PeerParams  PairingParams

	KeySize byte // negotiated encryption key size, 7..16

	LocalNonce []byte // 16 bytes
	PeerNonce  []byte // 16 bytes

	LocalConfirm []byte // 16 bytes
	PeerConfirm  []byte // 16 bytes

	LocalDHKeyCheck []byte // 16 bytes
	PeerDHKeyCheck  []byte // 16 bytes

	LocalPrivKey crypto.PrivateKey
	LocalPubKey  crypto.PublicKey
	PeerPubKey   crypto.PublicKey
	DHKey        []byte // 32 bytes

	MacKey []byte // 16 bytes, SC phase 2
	LTK    []byte // 16 bytes
	STK    []byte // 16 bytes, legacy
	IRK    []byte // 16 bytes
	CSRK   []byte // 16 bytes

	EDIV uint16
	Rand uint64

	Masks *keyMaskTracker

	PasskeyRound int // 0..19, SC passkey-entry rounds
	Passkey      uint32

	tk      []byte // legacy temporary key, never exposed outside this package
	OOBData []byte // legacy randomizer or SC ra/rb, provided via Manager.ProvideOOBData

	HavePeerPublicKey   bool
	HavePeerCommitment  bool
	HavePeerDHKeyCheck  bool
	WeInitiated         bool
	OverBREDR           bool
	DeriveLinkKey       bool

	UnackedTx int

	State State

	DelayedAuthTimerHandle uint32
}

// Zeroize clears every piece of key material and commitment/nonce state,
// §3's "zeroized on completion or failure" lifecycle rule. It deliberately
// leaves addressing/role fields intact so a final log line can still
// identify which link the zeroized PCB belonged to.
func (p *PairingControlBlock) Zeroize() {
	zero := func(b []byte) {
		for i := range b {
			b[i] = 0
		}
	}
	zero(p.LocalNonce)
	zero(p.PeerNonce)
	zero(p.LocalConfirm)
	zero(p.PeerConfirm)
	zero(p.LocalDHKeyCheck)
	zero(p.PeerDHKeyCheck)
	zero(p.DHKey)
	zero(p.MacKey)
	zero(p.LTK)
	zero(p.STK)
	zero(p.IRK)
	zero(p.CSRK)
	zero(p.tk)
	zero(p.OOBData)

	p.LocalPrivKey = nil
	p.LocalPubKey = nil
	p.PeerPubKey = nil
	p.Masks = nil
	p.HavePeerPublicKey = false
	p.HavePeerCommitment = false
	p.HavePeerDHKeyCheck = false
	p.PasskeyRound = 0
	p.Passkey = 0
	p.UnackedTx = 0
	p.State = StateIdle
}

// curve is the fixed curve Secure Connections pairing uses, Core Spec Vol 3
// Part H §2.3.5.6: "P-256".
var curve = elliptic.P256
