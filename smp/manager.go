package smp

import (
	"github.com/rigado/btstack"
	"github.com/rigado/btstack/crypto"
)

// Manager is the SMP pairing engine: one per local device, tracking one
// PairingControlBlock per peer address. It realizes §5's "central event
// loop" as a single goroutine draining an unbuffered channel of job
// closures, the same pattern hci.go's sktProcessLoop/chCmdPkt uses to
// serialize access to *HCI state in the teacher repository.
type Manager struct {
	cfg *config

	transport Transport
	appcb     ApplicationCallback

	jobs chan func()
	quit chan struct{}

	pcbs map[string]*PairingControlBlock
	brs  map[string]*BRPairingControlBlock

	localAddr btstack.Addr
}

// NewManager creates a Manager and starts its event-loop goroutine.
func NewManager(localAddr btstack.Addr, transport Transport, appcb ApplicationCallback, opts ...Option) *Manager {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	m := &Manager{
		cfg:       cfg,
		transport: transport,
		appcb:     appcb,
		jobs:      make(chan func()),
		quit:      make(chan struct{}),
		pcbs:      make(map[string]*PairingControlBlock),
		brs:       make(map[string]*BRPairingControlBlock),
		localAddr: localAddr,
	}

	go m.loop()
	return m
}

// Close stops the event loop. Pending pairing attempts are abandoned
// without notification; callers should have already quiesced all links.
func (m *Manager) Close() {
	close(m.quit)
}

func (m *Manager) loop() {
	for {
		select {
		case job := <-m.jobs:
			job()
		case <-m.quit:
			return
		}
	}
}

// submit enqueues fn to run on the event-loop goroutine and blocks the
// caller until it has run, matching §5's "every public entry point submits
// a job to [the] channel rather than mutating engine state directly".
func (m *Manager) submit(fn func()) {
	done := make(chan struct{})
	m.jobs <- func() {
		fn()
		close(done)
	}
	<-done
}

func (m *Manager) log() btstack.Logger {
	return m.cfg.logger
}

func (m *Manager) pcbFor(addr string, role Role, weInitiated bool) *PairingControlBlock {
	p, ok := m.pcbs[addr]
	if ok {
		return p
	}
	p = &PairingControlBlock{
		LocalAddr:   m.localAddr,
		PeerAddr:    btstack.NewAddr(addr),
		LocalRole:   role,
		WeInitiated: weInitiated,
		State:       StateIdle,
	}
	m.pcbs[addr] = p
	return p
}

// Pair starts pairing as the initiator, §4.3.1's PAIR-REQ-SENT entry.
func (m *Manager) Pair(addr string) error {
	errCh := make(chan error, 1)
	m.submit(func() {
		errCh <- m.startPairing(addr, RoleInitiator)
	})
	return <-errCh
}

// HandleSecurityRequest processes a peer's Security Request PDU arriving
// out-of-band of OnData (e.g. from the link-layer role that receives it as
// the peripheral), starting local-initiated pairing in response.
func (m *Manager) HandleSecurityRequest(addr string, authReq byte) error {
	errCh := make(chan error, 1)
	m.submit(func() {
		errCh <- m.startPairing(addr, RoleInitiator)
	})
	return <-errCh
}

func (m *Manager) startPairing(addr string, role Role) error {
	p := m.pcbFor(addr, role, true)
	p.LocalParams = PairingParams{
		IOCapability: m.cfg.localIOCapability,
		OOBDataFlag:  0,
		AuthReq:      m.cfg.localAuthReq,
		MaxKeySize:   m.cfg.localMaxKeySize,
		InitKeyDist:  m.cfg.localInitKeyDist,
		RespKeyDist:  m.cfg.localRespKeyDist,
	}
	p.State = StatePairingRequestSent
	pdu := EncodePairingRequest(p.LocalParams)
	return m.transport.Send(addr, pdu)
}

// OnData submits a received SMP PDU for processing on the event loop. It
// returns once the PDU (and any synchronous consequences, such as sending
// a reply) has been fully handled.
func (m *Manager) OnData(addr string, raw []byte) {
	m.submit(func() {
		m.dispatch(addr, raw)
	})
}

func (m *Manager) dispatch(addr string, raw []byte) {
	op, body, err := ParsePDU(raw)
	if err != nil {
		if op == OpPairingFailed {
			// §4.1: truncated Pairing Failed body must not cause a reply.
			m.log().Warnf("smp: %s: %v", addr, err)
			return
		}
		m.log().Warnf("smp: %s: malformed pdu: %v", addr, err)
		m.fail(addr, ReasonInvalidParameters, err)
		return
	}

	m.log().Debugf("smp: %s: rx %s", addr, op)

	switch op {
	case OpPairingRequest:
		m.onPairingRequest(addr, DecodePairingRequest(body))
	case OpPairingResponse:
		m.onPairingResponse(addr, DecodePairingResponse(body))
	case OpPairingConfirm:
		m.dispatchConfirm(addr, body)
	case OpPairingRandom:
		m.dispatchRandom(addr, body)
	case OpPairingFailed:
		m.onPairingFailed(addr, Reason(body[0]))
	case OpEncryptionInformation:
		m.onEncryptionInformation(addr, body)
	case OpMasterIdentification:
		m.onMasterIdentification(addr, body)
	case OpIdentityInformation:
		m.onIdentityInformation(addr, body)
	case OpIdentityAddrInformation:
		m.onIdentityAddressInformation(addr, body)
	case OpSigningInformation:
		m.onSigningInformation(addr, body)
	case OpSecurityRequest:
		m.onSecurityRequest(addr, body[0])
	case OpPairingPublicKey:
		m.onPairingPublicKey(addr, body)
	case OpPairingDHKeyCheck:
		m.onPairingDHKeyCheck(addr, body)
	case OpPairingKeypress:
		m.appcb.KeypressNotification(addr, body[0])
	default:
		m.log().Warnf("smp: %s: unhandled opcode %s", addr, op)
	}
}

func (m *Manager) onSecurityRequest(addr string, authReq byte) {
	p, ok := m.pcbs[addr]
	if ok && p.State != StateIdle {
		m.log().Warnf("smp: %s: security request while pairing in progress, ignored", addr)
		return
	}

	if bonded, err := m.cfg.bonds.Find(addr); err == nil {
		m.log().Debugf("smp: %s: using existing bond, requesting encryption", addr)
		if err := m.transport.StartEncryption(addr, bonded.LTK); err != nil {
			m.appcb.PairingComplete(addr, err)
		}
		return
	}

	if err := m.startPairing(addr, RoleInitiator); err != nil {
		m.fail(addr, ReasonUnspecifiedReason, err)
	}
}

// fail implements §4.3.7: send Pairing Failed (unless the trigger was
// itself a received Pairing Failed), cancel timers, zeroize, and report to
// the application.
func (m *Manager) fail(addr string, reason Reason, cause error) {
	p, ok := m.pcbs[addr]
	if ok {
		m.cfg.timers.Cancel(p.DelayedAuthTimerHandle)
	}

	if cause == nil || !isPeerFailure(cause) {
		_ = m.transport.Send(addr, EncodePairingFailed(reason))
	}

	if ok {
		p.Zeroize()
		delete(m.pcbs, addr)
	}

	if cause == nil {
		cause = newFailure(reason, "")
	}
	m.appcb.PairingComplete(addr, cause)
}

func isPeerFailure(err error) bool {
	be, ok := err.(*btstack.Error)
	return ok && be.Kind == btstack.KindPeerFailure
}

func (m *Manager) onPairingFailed(addr string, reason Reason) {
	p, ok := m.pcbs[addr]
	if ok {
		m.cfg.timers.Cancel(p.DelayedAuthTimerHandle)
		p.Zeroize()
		delete(m.pcbs, addr)
	}
	m.appcb.PairingComplete(addr, newFailure(reason, "peer reported pairing failed"))
}

func (m *Manager) engine() crypto.Engine { return m.cfg.engine }

// dispatchConfirm routes a received Pairing Confirm to the legacy or
// Secure-Connections handler depending on which mode this link negotiated.
func (m *Manager) dispatchConfirm(addr string, cfm []byte) {
	p, ok := m.pcbs[addr]
	if !ok {
		m.log().Warnf("smp: %s: pairing confirm with no pairing context", addr)
		return
	}
	if p.IsSC {
		m.onSCPairingConfirm(addr, p, cfm)
		return
	}
	m.onLegacyPairingConfirm(addr, cfm)
}

func (m *Manager) dispatchRandom(addr string, nonce []byte) {
	p, ok := m.pcbs[addr]
	if !ok {
		m.log().Warnf("smp: %s: pairing random with no pairing context", addr)
		return
	}
	if p.IsSC {
		m.onSCPairingRandom(addr, p, nonce)
		return
	}
	m.onLegacyPairingRandom(addr, nonce)
}

// addressForCrypto builds the 7-byte {type, address} form the SMP crypto
// functions expect for A1/A2 parameters, Core Spec Vol 3 Part H §2.2.3/.7.
// addrType 0x00 is public, 0x01 is random, matching the HCI convention.
func addressForCrypto(addr btstack.Addr, addrType byte) []byte {
	b := addr.Bytes()
	out := make([]byte, 7)
	out[0] = addrType
	copy(out[1:], b)
	return out
}
