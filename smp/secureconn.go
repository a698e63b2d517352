package smp

import "github.com/rigado/btstack/crypto"

// beginSCPhase1 generates this side's ECDH key pair and sends the local
// public key, §4.3.4 step 1. Grounded on sendPublicKey in
// linux/hci/smp/transport.go, generalized to run for both initiator and
// responder (the teacher only drove this from the initiator side).
func (m *Manager) beginSCPhase1(addr string, p *PairingControlBlock) {
	priv, pub, err := m.engine().GenerateKeyPair()
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalPrivKey = priv
	p.LocalPubKey = pub
	p.State = StatePublicKeyExchange

	wire := m.engine().MarshalPublicKeyXY(pub)
	if err := m.transport.Send(addr, EncodePairingPublicKey(wire)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

// onPairingPublicKey validates and stores the peer's ECDH public key,
// §4.3.4 step 1: "validates the point is on curve P-256 ... a failure or
// equality with local key yields PAIR_AUTH_FAIL." Grounded on
// smpOnPairingPublicKey in linux/hci/smp/handler.go, including its
// CVE-2020-26558 equal-key check.
func (m *Manager) onPairingPublicKey(addr string, wire []byte) {
	p, ok := m.pcbs[addr]
	if !ok || p.State != StatePublicKeyExchange {
		m.log().Warnf("smp: %s: unexpected pairing public key", addr)
		return
	}

	localWire := m.engine().MarshalPublicKeyXY(p.LocalPubKey)
	if bytesEqual(localWire, wire) {
		m.fail(addr, ReasonAuthenticationRequirements, newFailure(ReasonAuthenticationRequirements, "peer public key equals local public key (CVE-2020-26558)"))
		return
	}

	peerPub, valid := m.engine().UnmarshalPublicKey(wire)
	if !valid {
		m.fail(addr, ReasonAuthenticationRequirements, newFailure(ReasonAuthenticationRequirements, "invalid ecdh point"))
		return
	}
	p.PeerPubKey = peerPub
	p.HavePeerPublicKey = true

	dhkey, err := m.engine().ECDH(p.LocalPrivKey, peerPub)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.DHKey = dhkey

	switch p.Model {
	case ModelJustWorks, ModelNumericComparison:
		m.startSCJustWorksOrNumericCompare(addr, p)
	case ModelPasskey:
		m.resolveSCPasskey(addr, p)
	case ModelOOB:
		m.startSCOOB(addr, p)
	}
}

// startSCJustWorksOrNumericCompare implements §4.3.4's JustWorks/Numeric
// Comparison branch: responder computes and sends Cb = f4(PKbx, PKax, Nb,
// 0) first.
func (m *Manager) startSCJustWorksOrNumericCompare(addr string, p *PairingControlBlock) {
	nonce, err := m.engine().Rand(16)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalNonce = nonce

	if p.LocalRole == RoleResponder {
		cb, err := m.scCommit(p, nonce, 0)
		if err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
		p.LocalConfirm = cb
		p.State = StateConfirmSent
		if err := m.transport.Send(addr, EncodePairingConfirm(cb)); err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
		}
		return
	}

	p.State = StateWaitConfirm
}

func (m *Manager) startSCOOB(addr string, p *PairingControlBlock) {
	// OOB randomizers arrive via ProvideOOBData; once present, nonce
	// exchange proceeds the same as JustWorks but without a confirm check
	// on the side that received ra/rb out of band.
	m.startSCJustWorksOrNumericCompare(addr, p)
}

// scCommit computes f4(PKbx, PKax, N, z): the responder's public-key X
// coordinate is always the "U" parameter and the initiator's the "V"
// parameter, Core Spec Vol 3 Part H §2.3.5.6.
func (m *Manager) scCommit(p *PairingControlBlock, n []byte, z byte) ([]byte, error) {
	var u, v []byte
	if p.LocalRole == RoleResponder {
		u = m.engine().MarshalPublicKeyX(p.LocalPubKey)
		v = m.engine().MarshalPublicKeyX(p.PeerPubKey)
	} else {
		u = m.engine().MarshalPublicKeyX(p.PeerPubKey)
		v = m.engine().MarshalPublicKeyX(p.LocalPubKey)
	}
	return crypto.F4(m.engine(), u, v, n, z)
}

// resolveSCPasskey determines, from this side's IO capability, whether it
// must prompt the user to enter a passkey or generate and display one,
// mirroring requestLegacyPasskey's heuristic for the SC branch. Whichever
// side resolves last effectively drives round 0 first; since both sides
// use the identical shared passkey value, round order only affects which
// PDU is observed first on the wire, not the outcome.
func (m *Manager) resolveSCPasskey(addr string, p *PairingControlBlock) {
	switch p.LocalParams.IOCapability {
	case IOCapKeyboardOnly, IOCapKeyboardDisplay:
		p.State = StateWaitAppResponse
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
		m.startSCPassKeyRounds(addr, p)
	}
}

func (m *Manager) startSCPassKeyRounds(addr string, p *PairingControlBlock) {
	p.PasskeyRound = 0
	m.continueSCPassKeyRound(addr, p)
}

func (m *Manager) continueSCPassKeyRound(addr string, p *PairingControlBlock) {
	nonce, err := m.engine().Rand(16)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalNonce = nonce

	bit := byte(0x80 | ((p.Passkey >> uint(p.PasskeyRound)) & 1))
	cfm, err := m.scCommit(p, nonce, bit)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalConfirm = cfm
	p.State = StateConfirmSent
	if err := m.transport.Send(addr, EncodePairingConfirm(cfm)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func (m *Manager) onSCPairingConfirm(addr string, p *PairingControlBlock, cfm []byte) {
	p.PeerConfirm = cfm
	p.HavePeerCommitment = true

	if p.Model == ModelPasskey {
		if p.LocalRole == RoleResponder && p.State != StateConfirmSent {
			// responder mirrors the initiator's round driving.
			m.continueSCPassKeyRound(addr, p)
			return
		}
	}

	if p.LocalRole == RoleInitiator && p.State == StateWaitConfirm {
		nonce, err := m.engine().Rand(16)
		if err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
		p.LocalNonce = nonce
	}

	p.State = StateRandomPending
	if err := m.transport.Send(addr, EncodePairingRandom(p.LocalNonce)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func (m *Manager) onSCPairingRandom(addr string, p *PairingControlBlock, nonce []byte) {
	p.PeerNonce = nonce

	var z byte
	if p.Model == ModelPasskey {
		bit := byte(0x80 | ((p.Passkey >> uint(p.PasskeyRound)) & 1))
		z = bit
	}

	var u, v []byte
	if p.LocalRole == RoleResponder {
		u = m.engine().MarshalPublicKeyX(p.LocalPubKey)
		v = m.engine().MarshalPublicKeyX(p.PeerPubKey)
	} else {
		u = m.engine().MarshalPublicKeyX(p.PeerPubKey)
		v = m.engine().MarshalPublicKeyX(p.LocalPubKey)
	}
	expect, err := crypto.F4(m.engine(), u, v, p.PeerNonce, z)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	// Outside passkey entry only the responder commits (Cb), so only the
	// initiator checks a commitment; the responder answers Na with Nb.
	checkCommit := p.Model == ModelPasskey || p.LocalRole == RoleInitiator
	if checkCommit && !bytesEqual(expect, p.PeerConfirm) {
		m.fail(addr, ReasonConfirmValueFailed, nil)
		return
	}
	if !checkCommit {
		if err := m.transport.Send(addr, EncodePairingRandom(p.LocalNonce)); err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
	}

	if p.Model == ModelPasskey {
		p.PasskeyRound++
		if p.PasskeyRound < 20 {
			m.continueSCPassKeyRound(addr, p)
			return
		}
	}

	if p.Model == ModelNumericComparison {
		pkaX, pkbX := m.engine().MarshalPublicKeyX(p.LocalPubKey), m.engine().MarshalPublicKeyX(p.PeerPubKey)
		na, nb := p.LocalNonce, p.PeerNonce
		if p.LocalRole == RoleResponder {
			pkaX, pkbX = pkbX, pkaX
			na, nb = nb, na
		}
		value, err := crypto.G2(m.engine(), pkaX, pkbX, na, nb)
		if err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
		p.State = StateWaitAppResponse
		m.appcb.ConfirmNumeric(addr, value)
		return
	}

	m.beginSCPhase2(addr, p)
}

// ResolveNumericComparison delivers the user's yes/no answer to
// ApplicationCallback.ConfirmNumeric. A "no" fails pairing with
// NUMERIC_COMPAR_FAIL, the model-specific reason of §4.3.7.
func (m *Manager) ResolveNumericComparison(addr string, confirmed bool) {
	m.submit(func() {
		p, ok := m.pcbs[addr]
		if !ok || p.State != StateWaitAppResponse || p.Model != ModelNumericComparison {
			m.log().Warnf("smp: %s: unexpected numeric comparison resolution", addr)
			return
		}
		if !confirmed {
			m.fail(addr, ReasonNumericComparisonFailed, nil)
			return
		}
		m.beginSCPhase2(addr, p)
	})
}

// beginSCPhase2 computes MacKey||LTK via f5 and sends the local DHKey
// check, §4.3.5.
func (m *Manager) beginSCPhase2(addr string, p *PairingControlBlock) {
	na, nb := p.LocalNonce, p.PeerNonce
	a1 := addressForCrypto(initiatorAddr(p), 0)
	a2 := addressForCrypto(responderAddr(p), 0)
	if p.LocalRole == RoleResponder {
		na, nb = p.PeerNonce, p.LocalNonce
	}

	mk, ltk, err := crypto.F5(m.engine(), p.DHKey, na, nb, a1, a2)
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.MacKey = mk
	p.LTK = ltk

	ioCap := []byte{p.LocalParams.AuthReq, p.LocalParams.OOBDataFlag, p.LocalParams.IOCapability}
	r := make([]byte, 16)
	if p.Model == ModelPasskey {
		r = tkFromPasskey(p.Passkey)
	} else if p.Model == ModelOOB && p.OOBData != nil {
		r = p.OOBData
	}

	var ea []byte
	if p.LocalRole == RoleInitiator {
		ea, err = crypto.F6(m.engine(), mk, p.LocalNonce, p.PeerNonce, r, ioCap, a1, a2)
	} else {
		ea, err = crypto.F6(m.engine(), mk, p.LocalNonce, p.PeerNonce, r, ioCap, a2, a1)
	}
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	p.LocalDHKeyCheck = ea
	p.State = StateWaitDHKeyCheck

	if err := m.transport.Send(addr, EncodePairingDHKeyCheck(ea)); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

func (m *Manager) onPairingDHKeyCheck(addr string, e []byte) {
	p, ok := m.pcbs[addr]
	if !ok || p.State != StateWaitDHKeyCheck {
		m.log().Warnf("smp: %s: unexpected dhkey check", addr)
		return
	}
	p.PeerDHKeyCheck = e
	p.HavePeerDHKeyCheck = true

	peerIOCap := []byte{p.PeerParams.AuthReq, p.PeerParams.OOBDataFlag, p.PeerParams.IOCapability}
	a1 := addressForCrypto(initiatorAddr(p), 0)
	a2 := addressForCrypto(responderAddr(p), 0)
	r := make([]byte, 16)
	if p.Model == ModelPasskey {
		r = tkFromPasskey(p.Passkey)
	} else if p.Model == ModelOOB && p.OOBData != nil {
		r = p.OOBData
	}

	var expect []byte
	var err error
	if p.LocalRole == RoleInitiator {
		expect, err = crypto.F6(m.engine(), p.MacKey, p.PeerNonce, p.LocalNonce, r, peerIOCap, a2, a1)
	} else {
		expect, err = crypto.F6(m.engine(), p.MacKey, p.PeerNonce, p.LocalNonce, r, peerIOCap, a1, a2)
	}
	if err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}
	if !bytesEqual(expect, e) {
		m.fail(addr, ReasonDHKeyCheckFailed, nil)
		return
	}

	p.State = StateEncryptionPending
	if err := m.transport.StartEncryption(addr, p.LTK); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}
