package avdtp

import (
	"errors"

	"github.com/rigado/btstack"
)

// Manager is the AVDTP signaling engine: one per local device, tracking one
// CCB per peer address. Like smp.Manager, it realizes §5's "central event
// loop" as a single goroutine draining an unbuffered channel of job
// closures, the pattern hci.go's sktProcessLoop/chCmdPkt uses to serialize
// access to *HCI state in the teacher repository.
type Manager struct {
	cfg *config

	transport Transport
	appcb     ApplicationCallback

	jobs chan func()
	quit chan struct{}

	ccbs     map[string]*CCB
	timerSeq uint32
}

// NewManager creates a Manager and starts its event-loop goroutine.
func NewManager(transport Transport, appcb ApplicationCallback, opts ...Option) *Manager {
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
		ccbs:      make(map[string]*CCB),
	}

	go m.loop()
	return m
}

// Close stops the event loop. Channels with commands in flight are
// abandoned without notification; callers should have already quiesced
// all links.
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

func (m *Manager) log() btstack.Logger { return m.cfg.logger }

// ccbFor returns the CCB for addr, creating one (with a fresh pair of
// timer handles) on first use.
func (m *Manager) ccbFor(addr string) *CCB {
	c, ok := m.ccbs[addr]
	if ok {
		return c
	}
	peerMTU := m.cfg.defaultPeerMTU
	if mtu := m.transport.PeerMTU(addr); mtu > 0 {
		peerMTU = mtu
	}
	m.timerSeq++
	respHandle := m.timerSeq
	m.timerSeq++
	retransHandle := m.timerSeq
	c = newCCB(addr, peerMTU, respHandle, retransHandle)
	m.ccbs[addr] = c
	return c
}

// Discover sends a discover command, resolved via ApplicationCallback.OnDiscover.
func (m *Manager) Discover(addr string) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigDiscover, 0, nil)
	})
}

// GetCapabilities sends a get_capabilities command for seid.
func (m *Manager) GetCapabilities(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigGetCap, seid, EncodeSingleSEID(seid))
	})
}

// GetAllCapabilities sends a get_all_capabilities command for seid.
func (m *Manager) GetAllCapabilities(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigGetAllCap, seid, EncodeSingleSEID(seid))
	})
}

// SetConfiguration sends a set_configuration command.
func (m *Manager) SetConfiguration(addr string, cmd SetConfigCommand) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigSetConfig, cmd.ACPSEID, EncodeSetConfigCommand(cmd))
	})
}

// GetConfiguration sends a get_configuration command for seid.
func (m *Manager) GetConfiguration(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigGetConfig, seid, EncodeSingleSEID(seid))
	})
}

// Reconfigure sends a reconfigure command for acpSEID.
func (m *Manager) Reconfigure(addr string, acpSEID byte, cfg *SepConfig) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigReconfig, acpSEID, EncodeReconfigCommand(acpSEID, cfg))
	})
}

// Open sends an open command for seid.
func (m *Manager) Open(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigOpen, seid, EncodeSingleSEID(seid))
	})
}

// Start sends a start command for the given stream endpoints.
func (m *Manager) Start(addr string, seids []byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigStart, 0, EncodeMultiSEID(seids))
	})
}

// CloseStream sends a close command for seid. Named to avoid colliding with
// Manager.Close, which shuts the engine down entirely.
func (m *Manager) CloseStream(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigClose, seid, EncodeSingleSEID(seid))
	})
}

// Suspend sends a suspend command for the given stream endpoints.
func (m *Manager) Suspend(addr string, seids []byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigSuspend, 0, EncodeMultiSEID(seids))
	})
}

// Abort sends an abort command for seid. Abort carries no retransmit
// policy of its own failure beyond the normal command path; per the Core
// Spec its response has no reject variant.
func (m *Manager) Abort(addr string, seid byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigAbort, seid, EncodeSingleSEID(seid))
	})
}

// SecurityControl sends a security_control command carrying data.
func (m *Manager) SecurityControl(addr string, seid byte, data []byte) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigSecurity, seid, EncodeSecurityCommand(seid, data))
	})
}

// DelayReport sends a delay_report command. It is the one signal that
// arms no response or retransmit timer at all (§4.2).
func (m *Manager) DelayReport(addr string, seid byte, delay uint16) {
	m.submit(func() {
		m.sendCmd(m.ccbFor(addr), SigDelayReport, seid, EncodeDelayReport(seid, delay))
	})
}

// Resume continues sending any fragments left over from a Transport.Send
// that previously returned ErrCongested.
func (m *Manager) Resume(addr string) {
	m.submit(func() {
		if ccb, ok := m.ccbs[addr]; ok {
			m.pump(ccb)
		}
	})
}

// OnData submits a received signaling fragment for processing on the
// event loop. It returns once the fragment (and any synchronous
// consequence, such as sending a reply) has been fully handled.
func (m *Manager) OnData(addr string, raw []byte) {
	m.submit(func() {
		m.handleMessage(m.ccbFor(addr), raw)
	})
}

// sendCmd queues sig as a command, fragmenting it against the CCB's known
// peer MTU, and kicks the send/dispatch pump. It never blocks on
// congestion; Resume continues a stalled send later.
func (m *Manager) sendCmd(ccb *CCB, sig Signal, param byte, body []byte) {
	label := ccb.nextLabel()
	frags := ccb.frag.fragments(label, MsgTypeCmd, sig, body)
	ccb.cmdQ = append(ccb.cmdQ, pendingMsg{sig: sig, isCmd: true, label: label, param: param, frags: frags})
	m.pump(ccb)
}

func (m *Manager) sendRsp(ccb *CCB, label byte, sig Signal, body []byte) {
	frags := ccb.frag.fragments(label, MsgTypeRsp, sig, body)
	ccb.rspQ = append(ccb.rspQ, pendingMsg{sig: sig, label: label, frags: frags})
	m.pump(ccb)
}

func (m *Manager) sendRej(ccb *CCB, label byte, sig Signal, r RejectBody) {
	frags := ccb.frag.fragments(label, MsgTypeRej, sig, EncodeReject(sig, r))
	ccb.rspQ = append(ccb.rspQ, pendingMsg{sig: sig, label: label, frags: frags})
	m.pump(ccb)
}

// sendGeneralReject replies with the header-only General Reject message,
// ported from avdt_msg_send_grej: used when the peer's command carries an
// unrecognized or out-of-range signal id.
func (m *Manager) sendGeneralReject(ccb *CCB, label byte) {
	pkt := []byte{(label&0x0F)<<4 | byte(PktTypeSingle)<<2 | byte(MsgTypeRej)}
	ccb.rspQ = append(ccb.rspQ, pendingMsg{label: label, frags: [][]byte{pkt}})
	m.pump(ccb)
}

// pump drains rspQ ahead of cmdQ (responses to the peer are never held up
// behind our own outgoing commands), then advances at most one queued
// command into curCmd if none is already outstanding, ported from
// avdt_msg_send's per-CCB queue discipline.
func (m *Manager) pump(ccb *CCB) {
	for len(ccb.rspQ) > 0 {
		pm := &ccb.rspQ[0]
		if m.drain(ccb, pm) {
			return
		}
		ccb.rspQ = ccb.rspQ[1:]
	}

	if ccb.curCmd == nil && len(ccb.cmdQ) > 0 {
		next := ccb.cmdQ[0]
		ccb.cmdQ = ccb.cmdQ[1:]
		ccb.curCmd = &outstandingCmd{pendingMsg: next}
	}

	if ccb.curCmd == nil {
		return
	}
	if m.drain(ccb, &ccb.curCmd.pendingMsg) {
		return
	}
	m.armTimer(ccb)
}

// drain sends pm's remaining fragments in order, stopping (and reporting
// congested=true) the first time Transport.Send refuses one. On any other
// send error the fragment is dropped and sending stops the same way;
// transport failure is left to the response/retransmit timer to report.
func (m *Manager) drain(ccb *CCB, pm *pendingMsg) (congested bool) {
	for pm.next < len(pm.frags) {
		err := m.transport.Send(ccb.Addr, pm.frags[pm.next])
		if err != nil {
			if !errors.Is(err, ErrCongested) {
				m.log().Warnf("avdtp: %s: send failed: %v", ccb.Addr, err)
			}
			return true
		}
		pm.next++
	}
	return false
}

// armTimer starts the response or retransmit timer for the CCB's current
// outstanding command, per §4.2: discover/get-cap/get-all-cap/security-
// control (or any command once retransmission is globally disabled via
// OptMaxRetransmit(0)) get a terminal response timer; delay_report gets
// none at all; everything else gets a retransmit timer.
func (m *Manager) armTimer(ccb *CCB) {
	cmd := ccb.curCmd
	if cmd == nil || cmd.armed {
		return
	}
	cmd.armed = true

	switch cmd.sig {
	case SigDelayReport:
		return
	case SigDiscover, SigGetCap, SigGetAllCap, SigSecurity:
		addr := ccb.Addr
		m.cfg.timers.SetOneshot(ccb.respTimer, m.cfg.responseTimeout, func() {
			m.submit(func() { m.onResponseTimeout(addr) })
		})
		return
	}

	if m.cfg.maxRetransmit <= 0 {
		addr := ccb.Addr
		m.cfg.timers.SetOneshot(ccb.respTimer, m.cfg.responseTimeout, func() {
			m.submit(func() { m.onResponseTimeout(addr) })
		})
		return
	}

	addr := ccb.Addr
	m.cfg.timers.SetOneshot(ccb.retransTimer, m.cfg.retransmitTimeout, func() {
		m.submit(func() { m.onRetransmitTimeout(addr) })
	})
}

func (m *Manager) cancelTimers(ccb *CCB) {
	m.cfg.timers.Cancel(ccb.respTimer)
	m.cfg.timers.Cancel(ccb.retransTimer)
}

// clearOutstanding detaches and returns the CCB's current outstanding
// command, cancelling its timers. Called once a matching response, reject,
// or General Reject has arrived.
func (m *Manager) clearOutstanding(ccb *CCB) *outstandingCmd {
	cmd := ccb.curCmd
	ccb.curCmd = nil
	m.cancelTimers(ccb)
	return cmd
}

func (m *Manager) onResponseTimeout(addr string) {
	ccb, ok := m.ccbs[addr]
	if !ok || ccb.curCmd == nil {
		return
	}
	sig := ccb.curCmd.sig
	ccb.curCmd = nil
	m.appcb.OnTransportFailure(addr, sig, btstack.NewError(btstack.KindTimeout, 0, "no response"))
	m.pump(ccb)
}

// onRetransmitTimeout resends the outstanding command's original fragments
// up to cfg.maxRetransmit times before reporting a transport failure,
// ported from the retransmit-count check in avdt_msg_send's command path.
func (m *Manager) onRetransmitTimeout(addr string) {
	ccb, ok := m.ccbs[addr]
	if !ok || ccb.curCmd == nil {
		return
	}
	cmd := ccb.curCmd
	if cmd.retries >= m.cfg.maxRetransmit {
		sig := cmd.sig
		ccb.curCmd = nil
		m.appcb.OnTransportFailure(addr, sig, btstack.NewError(btstack.KindTimeout, 0, "retransmit limit exceeded"))
		m.pump(ccb)
		return
	}
	cmd.retries++
	cmd.next = 0
	cmd.armed = false
	m.pump(ccb)
}
