package smp

// onPairingRequest handles a peer-initiated pairing attempt: we are the
// responder. Grounded on the commented-out smpOnPairingRequest stub in
// linux/hci/smp/handler.go, completed here since the teacher never
// finished that half of the exchange.
func (m *Manager) onPairingRequest(addr string, req PairingParams) {
	if p, ok := m.pcbs[addr]; ok && p.State != StateIdle {
		m.log().Warnf("smp: %s: pairing request while busy, ignoring", addr)
		return
	}

	p := m.pcbFor(addr, RoleResponder, false)
	p.PeerParams = req
	p.LocalParams = PairingParams{
		IOCapability: m.cfg.localIOCapability,
		OOBDataFlag:  0,
		AuthReq:      m.cfg.localAuthReq,
		MaxKeySize:   m.cfg.localMaxKeySize,
		InitKeyDist:  m.cfg.localInitKeyDist,
		RespKeyDist:  m.cfg.localRespKeyDist,
	}
	p.KeySize = minByte(req.MaxKeySize, p.LocalParams.MaxKeySize)
	if p.KeySize < 7 {
		m.fail(addr, ReasonEncryptionKeySize, nil)
		return
	}

	if err := m.finishNegotiation(addr, p, req, p.LocalParams); err != nil {
		return
	}

	pdu := EncodePairingResponse(p.LocalParams)
	p.State = StatePairingResponsePending
	if err := m.transport.Send(addr, pdu); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
		return
	}

	m.beginPhase1(addr, p)
}

// onPairingResponse handles the peer's reply to our Pairing Request: we
// are the initiator. Grounded on smpOnPairingResponse in
// linux/hci/smp/handler.go.
func (m *Manager) onPairingResponse(addr string, rsp PairingParams) {
	p, ok := m.pcbs[addr]
	if !ok || p.State != StatePairingRequestSent {
		m.log().Warnf("smp: %s: unexpected pairing response", addr)
		return
	}

	p.PeerParams = rsp
	p.KeySize = minByte(rsp.MaxKeySize, p.LocalParams.MaxKeySize)
	if p.KeySize < 7 {
		m.fail(addr, ReasonEncryptionKeySize, nil)
		return
	}

	if err := m.finishNegotiation(addr, p, p.LocalParams, rsp); err != nil {
		return
	}

	m.beginPhase1(addr, p)
}

func minByte(a, b byte) byte {
	if a < b {
		return a
	}
	return b
}

// finishNegotiation computes the association model and enforces the
// SC-only policy gate, §4.3.2. Returns a non-nil error (already reported
// via m.fail) when the attempt must stop here.
func (m *Manager) finishNegotiation(addr string, p *PairingControlBlock, req, rsp PairingParams) error {
	p.IsSC = isSecureConnections(req, rsp)
	p.Model = selectAssociationModel(req, rsp, p.IsSC)

	if m.cfg.scOnlyMode && (!p.IsSC || p.Model == ModelJustWorks) {
		err := newFailure(ReasonAuthenticationRequirements, "secure connections only mode requires an authenticated SC model")
		m.fail(addr, ReasonAuthenticationRequirements, nil)
		return err
	}

	p.Masks = newKeyMaskTracker(req, rsp)
	if p.IsSC {
		p.Masks.clearForSCMode()
	}

	bothRequestedLK := req.InitKeyDist&KeyDistLink != 0 && rsp.RespKeyDist&KeyDistLink != 0
	eligible := bothRequestedLK && p.IsSC && m.cfg.allowCrossTransport
	p.Masks.clearLinkKeyUnlessEligible(bothRequestedLK, p.IsSC, m.cfg.allowCrossTransport)
	p.DeriveLinkKey = eligible

	m.log().Infof("smp: %s: association model %s (sc=%v)", addr, p.Model, p.IsSC)
	return nil
}

// beginPhase1 dispatches to the legacy or Secure-Connections branch once
// both Pairing Request and Response have been exchanged.
func (m *Manager) beginPhase1(addr string, p *PairingControlBlock) {
	if p.IsSC {
		m.beginSCPhase1(addr, p)
		return
	}
	m.beginLegacyPhase2(addr, p)
}
