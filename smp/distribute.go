package smp

// OnEncryptionChanged is called by the Transport once a requested
// StartEncryption completes, resuming the state machine from
// StateEncryptionPending. On success it enters BOND-PENDING and begins the
// key-distribution walk of §4.3.3; on failure it terminates the attempt.
func (m *Manager) OnEncryptionChanged(addr string, encrypted bool, err error) {
	m.submit(func() {
		p, ok := m.pcbs[addr]
		if !ok {
			m.appcb.EncryptionChanged(addr, encrypted, err)
			return
		}

		if !encrypted || err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}

		if p.State != StateEncryptionPending {
			m.appcb.EncryptionChanged(addr, encrypted, nil)
			return
		}

		p.State = StateBondPending
		m.sendOwnKeys(addr, p)
		m.maybeArmDelayedAuth(addr, p)
	})
}

// sendOwnKeys walks this side's key-distribution mask in the fixed order
// {ENC, ID, CSRK, LK} and sends each still-set key type, §4.3.3.
func (m *Manager) sendOwnKeys(addr string, p *PairingControlBlock) {
	mask := p.Masks.responderKey
	if p.LocalRole == RoleInitiator {
		mask = p.Masks.initiatorKey
	}

	for _, bit := range pending(mask) {
		if err := m.sendOneKey(addr, p, bit); err != nil {
			m.fail(addr, ReasonUnspecifiedReason, err)
			return
		}
		p.Masks.clear(bit, p.LocalRole, true)
	}
}

func (m *Manager) sendOneKey(addr string, p *PairingControlBlock, bit byte) error {
	switch bit {
	case KeyDistEnc:
		ltk, err := m.engine().Rand(16)
		if err != nil {
			return err
		}
		ediv, edivErr := m.engine().Rand(2)
		randBytes, randErr := m.engine().Rand(8)
		if edivErr != nil {
			return edivErr
		}
		if randErr != nil {
			return randErr
		}
		p.LTK = ltk
		p.EDIV = uint16(ediv[0]) | uint16(ediv[1])<<8
		p.Rand = leUint64(randBytes)
		if err := m.transport.Send(addr, EncodeEncryptionInformation(ltk)); err != nil {
			return err
		}
		return m.transport.Send(addr, EncodeMasterIdentification(p.EDIV, p.Rand))
	case KeyDistID:
		irk, err := m.engine().Rand(16)
		if err != nil {
			return err
		}
		p.IRK = irk
		if err := m.transport.Send(addr, EncodeIdentityInformation(irk)); err != nil {
			return err
		}
		var addrBytes [6]byte
		copy(addrBytes[:], p.LocalAddr.Bytes())
		return m.transport.Send(addr, EncodeIdentityAddressInformation(0x00, addrBytes))
	case KeyDistSign:
		csrk, err := m.engine().Rand(16)
		if err != nil {
			return err
		}
		p.CSRK = csrk
		return m.transport.Send(addr, EncodeSigningInformation(csrk))
	case KeyDistLink:
		// Cross-transport derivation is computed, not sent over SMP; the
		// bit is cleared here so the walk terminates, and the BR/EDR side
		// picks the value up via DeriveLinkKeyFromLTK (§4.3.6).
		return nil
	}
	return nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (m *Manager) onEncryptionInformation(addr string, body []byte) {
	p, ok := m.requireBondPending(addr)
	if !ok {
		return
	}
	p.LTK = append([]byte{}, body...)
}

func (m *Manager) onMasterIdentification(addr string, body []byte) {
	p, ok := m.requireBondPending(addr)
	if !ok {
		return
	}
	mi := DecodeMasterIdentification(body)
	p.EDIV = mi.EDIV
	p.Rand = mi.Rand
	// EncryptionInformation + MasterIdentification together form the ENC
	// key; the mask bit clears once both halves have arrived.
	m.ackReceivedKey(addr, p, KeyDistEnc)
}

func (m *Manager) onIdentityInformation(addr string, body []byte) {
	p, ok := m.requireBondPending(addr)
	if !ok {
		return
	}
	p.IRK = append([]byte{}, body...)
}

func (m *Manager) onIdentityAddressInformation(addr string, body []byte) {
	p, ok := m.requireBondPending(addr)
	if !ok {
		return
	}
	_ = DecodeIdentityAddressInformation(body)
	// IdentityInformation + IdentityAddressInformation together form the
	// ID key; the mask bit clears once both halves have arrived.
	m.ackReceivedKey(addr, p, KeyDistID)
}

func (m *Manager) onSigningInformation(addr string, body []byte) {
	p, ok := m.requireBondPending(addr)
	if !ok {
		return
	}
	p.CSRK = append([]byte{}, body...)
	m.ackReceivedKey(addr, p, KeyDistSign)
}

func (m *Manager) requireBondPending(addr string) (*PairingControlBlock, bool) {
	p, ok := m.pcbs[addr]
	if !ok || p.State != StateBondPending {
		m.log().Warnf("smp: %s: key distribution pdu outside bond-pending", addr)
		return nil, false
	}
	return p, true
}

// ackReceivedKey clears bit in the peer's mask after a received key PDU
// (or pair of PDUs, for ENC) completes, and arms the delayed-auth timer
// once every bit across both masks is clear.
func (m *Manager) ackReceivedKey(addr string, p *PairingControlBlock, bit byte) {
	p.Masks.clear(bit, p.LocalRole, false)
	m.finishBondIfReady(addr, p)
}

func (m *Manager) finishBondIfReady(addr string, p *PairingControlBlock) {
	if p == nil || p.Masks == nil {
		return
	}
	if p.Masks.done() {
		m.maybeArmDelayedAuth(addr, p)
	}
}

// maybeArmDelayedAuth implements the §4.3.3 "tail delay": once both masks
// are zero and there is no unacked outbound traffic, wait delayedAuthTail
// before declaring success, so a late Pairing Failed can still flip the
// outcome.
func (m *Manager) maybeArmDelayedAuth(addr string, p *PairingControlBlock) {
	if p.Masks == nil || !p.Masks.done() || p.UnackedTx != 0 {
		return
	}

	p.DelayedAuthTimerHandle = nextTimerHandle()
	m.cfg.timers.SetOneshot(p.DelayedAuthTimerHandle, m.cfg.delayedAuthTail, func() {
		m.submit(func() {
			m.completeBonding(addr)
		})
	})
}

func (m *Manager) completeBonding(addr string) {
	p, ok := m.pcbs[addr]
	if !ok {
		return
	}

	if err := m.cfg.bonds.Save(addr, BondKeys{
		LTK:    p.LTK,
		EDIV:   p.EDIV,
		Rand:   p.Rand,
		IRK:    p.IRK,
		CSRK:   p.CSRK,
		Legacy: !p.IsSC,
	}); err != nil {
		m.log().Errorf("smp: %s: saving bond: %v", addr, err)
	}

	if p.DeriveLinkKey {
		m.deriveCrossTransportKey(addr, p)
	}

	p.Zeroize()
	delete(m.pcbs, addr)
	m.appcb.PairingComplete(addr, nil)
}

func (m *Manager) deriveCrossTransportKey(addr string, p *PairingControlBlock) {
	br, ok := m.brs[addr]
	if !ok {
		br = &BRPairingControlBlock{PeerAddr: p.PeerAddr, LocalAddr: p.LocalAddr}
		m.brs[addr] = br
	}
	useH7 := p.LocalParams.AuthReq&AuthReqH7Support != 0 && p.PeerParams.AuthReq&AuthReqH7Support != 0
	br.UseH7 = useH7

	if br.LinkKeyAuthenticated {
		m.log().Warnf("smp: %s: refusing to overwrite authenticated BR link key", addr)
		return
	}

	if !m.cfg.allowCrossTransport {
		m.log().Warnf("smp: %s: cross-transport key derivation disabled by policy", addr)
		return
	}

	lk, err := DeriveLinkKeyFromLTK(m.engine(), p.LTK, useH7)
	if err != nil {
		m.log().Errorf("smp: %s: cross-transport derivation: %v", addr, err)
		return
	}
	br.LinkKey = lk
	br.State = BRStateBondPending
}

var timerHandleCounter uint32

func nextTimerHandle() uint32 {
	timerHandleCounter++
	return timerHandleCounter
}
