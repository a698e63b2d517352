package smp

import (
	"github.com/rigado/btstack"
	"github.com/rigado/btstack/crypto"
)

// beginLegacyPhase2 resolves the temporary key (TK) for the selected
// association model and, once resolved, sends the local Pairing Confirm.
// Grounded on sendMConfirm in linux/hci/smp/transport.go, split here into
// an explicit TK-resolution step so the passkey/OOB branches can park on
// the application callback instead of blocking.
func (m *Manager) beginLegacyPhase2(addr string, p *PairingControlBlock) {
	switch p.Model {
	case ModelJustWorks:
		m.resolveTKAndSendConfirm(addr, p, make([]byte, 16))
	case ModelPasskey:
		m.requestLegacyPasskey(addr, p)
	case ModelOOB:
		if p.OOBData == nil {
			m.fail(addr, ReasonOOBNotAvailable, nil)
			return
		}
		m.resolveTKAndSendConfirm(addr, p, p.OOBData)
	default:
		m.fail(addr, ReasonPairingNotSupported, nil)
	}
}

func (m *Manager) requestLegacyPasskey(addr string, p *PairingControlBlock) {
	p.State = StateWaitAppResponse
	switch p.LocalParams.IOCapability {
	case IOCapKeyboardOnly, IOCapKeyboardDisplay:
		m.appcb.RequestPasskey(addr)
	default:
		b, err := m.engine().Rand(4)
		if err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
		passkey := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) % 1000000
		p.Passkey = passkey
		m.appcb.DisplayPasskey(addr, passkey)
		m.resolveTKAndSendConfirm(addr, p, tkFromPasskey(passkey))
	}
}

// ResolvePasskey delivers the application's 6-digit passkey entry in
// response to ApplicationCallback.RequestPasskey, for either the legacy or
// Secure-Connections passkey association model.
func (m *Manager) ResolvePasskey(addr string, passkey uint32) {
	m.submit(func() {
		p, ok := m.pcbs[addr]
		if !ok || p.State != StateWaitAppResponse {
			m.log().Warnf("smp: %s: unexpected passkey resolution", addr)
			return
		}
		p.Passkey = passkey
		if p.IsSC {
			m.startSCPassKeyRounds(addr, p)
			return
		}
		m.resolveTKAndSendConfirm(addr, p, tkFromPasskey(passkey))
	})
}

// ProvideOOBData delivers out-of-band authentication data (the randomizer
// for legacy pairing, or ra/rb for Secure Connections) ahead of a pairing
// attempt that will use ModelOOB.
func (m *Manager) ProvideOOBData(addr string, data []byte) {
	m.submit(func() {
		p := m.pcbFor(addr, RoleResponder, false)
		p.OOBData = data
	})
}

// tkFromPasskey packs a 0..999999 passkey into the low 4 bytes of a
// 16-byte TK, big-endian, per Core Spec Vol 3 Part H §2.3.3.
func tkFromPasskey(passkey uint32) []byte {
	tk := make([]byte, 16)
	tk[12] = byte(passkey >> 24)
	tk[13] = byte(passkey >> 16)
	tk[14] = byte(passkey >> 8)
	tk[15] = byte(passkey)
	return tk
}

func (m *Manager) resolveTKAndSendConfirm(addr string, p *PairingControlBlock, tk []byte) {
	r, err := m.engine().Rand(16)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalNonce = r
	p.tk = tk

	c1, err := m.computeLegacyConfirm(p, r)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalConfirm = c1
	p.State = StateConfirmSent

	if err := m.transport.Send(addr, EncodePairingConfirm(c1)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func (m *Manager) computeLegacyConfirm(p *PairingControlBlock, r []byte) ([]byte, error) {
	preq := EncodePairingRequest(reqParams(p))
	pres := EncodePairingResponse(rspParams(p))
	ia := addressForCrypto(initiatorAddr(p), 0)
	ra := addressForCrypto(responderAddr(p), 0)
	return crypto.C1(m.engine(), p.tk, r, preq, pres, ia[0], ra[0], ia[1:], ra[1:])
}

func reqParams(p *PairingControlBlock) PairingParams {
	if p.LocalRole == RoleInitiator {
		return p.LocalParams
	}
	return p.PeerParams
}

func rspParams(p *PairingControlBlock) PairingParams {
	if p.LocalRole == RoleInitiator {
		return p.PeerParams
	}
	return p.LocalParams
}

func initiatorAddr(p *PairingControlBlock) btstack.Addr {
	if p.LocalRole == RoleInitiator {
		return p.LocalAddr
	}
	return p.PeerAddr
}

func responderAddr(p *PairingControlBlock) btstack.Addr {
	if p.LocalRole == RoleResponder {
		return p.LocalAddr
	}
	return p.PeerAddr
}

func (m *Manager) onLegacyPairingConfirm(addr string, cfm []byte) {
	p, ok := m.pcbs[addr]
	if !ok || p.State != StateConfirmSent {
		m.log().Warnf("smp: %s: unexpected pairing confirm", addr)
		return
	}
	p.PeerConfirm = cfm
	p.HavePeerCommitment = true

	if p.LocalRole == RoleInitiator {
		// We already sent our confirm; now send our random, which is
		// what prompts the responder to validate it against Mconfirm.
		m.sendLegacyRandom(addr, p)
		return
	}

	// We are the responder. Our confirm is already sent (in
	// beginLegacyPhase2), and we now hold Mconfirm, but Srand must stay
	// secret until Mrand arrives and Mconfirm checks out. Revealing it
	// any earlier lets a peer that skipped committing to Mrand still
	// learn Srand. Just park here and wait for the random.
	p.State = StateLegacyWaitPeerRandom
}

func (m *Manager) sendLegacyRandom(addr string, p *PairingControlBlock) {
	p.State = StateRandomPending
	if err := m.transport.Send(addr, EncodePairingRandom(p.LocalNonce)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func (m *Manager) onLegacyPairingRandom(addr string, rand []byte) {
	p, ok := m.pcbs[addr]
	if !ok || (p.State != StateRandomPending && p.State != StateLegacyWaitPeerRandom) {
		m.log().Warnf("smp: %s: unexpected pairing random", addr)
		return
	}
	awaitingOwnRandom := p.State == StateLegacyWaitPeerRandom
	p.PeerNonce = rand

	expected, err := m.computeLegacyConfirm(p, p.PeerNonce)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	if !bytesEqual(expected, p.PeerConfirm) {
		m.fail(addr, ReasonConfirmValueFailed, nil)
		return
	}

	if awaitingOwnRandom {
		// Mconfirm checked out against Mrand; only now is it safe to
		// reveal Srand.
		m.sendLegacyRandom(addr, p)
	}

	var stk []byte
	if p.LocalRole == RoleInitiator {
		stk, err = crypto.S1(m.engine(), p.tk, p.PeerNonce, p.LocalNonce)
	} else {
		stk, err = crypto.S1(m.engine(), p.tk, p.LocalNonce, p.PeerNonce)
	}
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.STK = stk
	p.State = StateEncryptionPending

	if err := m.transport.StartEncryption(addr, stk); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
