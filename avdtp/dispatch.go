package avdtp

import "github.com/rigado/btstack"

// handleMessage reassembles one inbound fragment and, once a full message
// is available, dispatches it: General Reject resolution, signal-range
// validation, response/reject cross-checking against the CCB's single
// outstanding command, and routing to the matching ApplicationCallback
// method. Ported from avdt_msg_ind.
func (m *Manager) handleMessage(ccb *CCB, raw []byte) {
	msg, complete, err := ccb.asmbl.feed(raw)
	if err != nil {
		m.log().Warnf("avdtp: %s: dropping fragment: %v", ccb.Addr, err)
		return
	}
	if !complete {
		return
	}

	if msg.MsgType == MsgTypeRej && msg.Signal == 0 {
		m.handleGeneralReject(ccb, msg)
		return
	}

	if msg.Signal == 0 || msg.Signal > sigMax {
		if msg.MsgType == MsgTypeCmd {
			m.sendGeneralReject(ccb, msg.Label)
		} else {
			m.log().Warnf("avdtp: %s: response/reject with invalid signal id, dropped", ccb.Addr)
		}
		return
	}

	switch msg.MsgType {
	case MsgTypeCmd:
		m.handleCommand(ccb, msg)
	case MsgTypeRsp:
		m.handleResponse(ccb, msg)
	case MsgTypeRej:
		m.handleReject(ccb, msg)
	}
}

// handleGeneralReject resolves a header-only General Reject against the
// CCB's outstanding command, since the wire format carries no signal id of
// its own, ported from avdt_msg_ind's p_ccb->p_curr_cmd fallback.
func (m *Manager) handleGeneralReject(ccb *CCB, msg *reassembledMessage) {
	if ccb.curCmd == nil || ccb.curCmd.label != msg.Label {
		m.log().Warnf("avdtp: %s: unexpected general reject, dropped", ccb.Addr)
		return
	}
	cmd := m.clearOutstanding(ccb)
	m.reportResult(ccb.Addr, cmd, wireError(ErrNotSupportedCmd, "peer sent general reject"))
	m.pump(ccb)
}

// matchedOutstanding cross-checks a response/reject's signal and label
// against the CCB's single outstanding command, ported from avdt_msg_ind's
// "signal matches and the transaction label matches" guard.
func matchedOutstanding(ccb *CCB, msg *reassembledMessage) *outstandingCmd {
	cmd := ccb.curCmd
	if cmd == nil || cmd.sig != msg.Signal || cmd.label != msg.Label {
		return nil
	}
	return cmd
}

func (m *Manager) handleResponse(ccb *CCB, msg *reassembledMessage) {
	cmd := matchedOutstanding(ccb, msg)
	if cmd == nil {
		m.log().Warnf("avdtp: %s: unexpected %s response, dropped", ccb.Addr, msg.Signal)
		return
	}
	m.clearOutstanding(ccb)

	switch msg.Signal {
	case SigDiscover:
		seps, err := DecodeDiscoverResponse(msg.Body)
		m.appcb.OnDiscover(ccb.Addr, seps, err)
	case SigGetCap, SigGetAllCap:
		cfg, err := DecodeGetCapResponse(msg.Body, msg.Signal == SigGetAllCap)
		m.appcb.OnGetCapabilities(ccb.Addr, cmd.param, cfg, err)
	default:
		m.appcb.OnCommandResult(ccb.Addr, msg.Signal, nil)
	}
	m.pump(ccb)
}

func (m *Manager) handleReject(ccb *CCB, msg *reassembledMessage) {
	cmd := matchedOutstanding(ccb, msg)
	if cmd == nil {
		m.log().Warnf("avdtp: %s: unexpected %s reject, dropped", ccb.Addr, msg.Signal)
		return
	}
	m.clearOutstanding(ccb)

	r, err := DecodeReject(msg.Signal, msg.Body)
	if err != nil {
		m.reportResult(ccb.Addr, cmd, err)
		m.pump(ccb)
		return
	}
	m.reportResult(ccb.Addr, cmd, wireError(r.ErrCode, "peer rejected "+msg.Signal.String()))
	m.pump(ccb)
}

// reportResult routes a resolved response/reject/general-reject outcome to
// the result callback matching the original command's signal.
func (m *Manager) reportResult(addr string, cmd *outstandingCmd, err error) {
	if cmd == nil {
		return
	}
	switch cmd.sig {
	case SigDiscover:
		m.appcb.OnDiscover(addr, nil, err)
	case SigGetCap, SigGetAllCap:
		m.appcb.OnGetCapabilities(addr, cmd.param, nil, err)
	default:
		m.appcb.OnCommandResult(addr, cmd.sig, err)
	}
}

// handleCommand answers one of the peer's incoming signaling commands by
// invoking the matching ApplicationCallback method and sending back a
// response or reject, ported from the per-signal branches of avdt_msg_ind.
func (m *Manager) handleCommand(ccb *CCB, msg *reassembledMessage) {
	switch msg.Signal {
	case SigDiscover:
		seps := m.appcb.OnDiscoverRequest(ccb.Addr)
		m.sendRsp(ccb, msg.Label, msg.Signal, EncodeDiscoverResponse(seps))

	case SigGetCap, SigGetAllCap:
		seid, err := DecodeSingleSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		cfg, ec := m.appcb.OnGetCapabilitiesRequest(ccb.Addr, seid)
		if ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, EncodeGetCapResponse(cfg, msg.Signal == SigGetAllCap))

	case SigSetConfig:
		cmd, err := DecodeSetConfigCommand(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnSetConfiguration(ccb.Addr, cmd); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigGetConfig:
		seid, err := DecodeSingleSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		cfg, ec := m.appcb.OnGetConfiguration(ccb.Addr, seid)
		if ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, EncodeConfig(cfg))

	case SigReconfig:
		cmd, err := DecodeReconfigCommand(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnReconfigure(ccb.Addr, cmd); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigOpen:
		seid, err := DecodeSingleSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnOpen(ccb.Addr, seid); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigStart:
		seids, err := DecodeMultiSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnStart(ccb.Addr, seids); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrParam: seids[0], HasParam: true, ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigClose:
		seid, err := DecodeSingleSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnClose(ccb.Addr, seid); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigSuspend:
		seids, err := DecodeMultiSEID(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnSuspend(ccb.Addr, seids); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrParam: seids[0], HasParam: true, ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigAbort:
		// Abort never gets a reject on parse failure, command or not:
		// the peer is already tearing the stream down.
		seid, err := DecodeSingleSEID(msg.Body)
		if err != nil {
			m.log().Warnf("avdtp: %s: dropping malformed abort: %v", ccb.Addr, err)
			return
		}
		m.appcb.OnAbort(ccb.Addr, seid)
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)

	case SigSecurity:
		pdu, err := DecodeSecurityCommand(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		data, ec := m.appcb.OnSecurityControl(ccb.Addr, pdu.SEID, pdu.Data)
		if ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, data)

	case SigDelayReport:
		seid, delay, err := DecodeDelayReport(msg.Body)
		if err != nil {
			m.rejectMalformed(ccb, msg, err)
			return
		}
		if ec := m.appcb.OnDelayReport(ccb.Addr, seid, delay); ec != 0 {
			m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: ec})
			return
		}
		m.sendRsp(ccb, msg.Label, msg.Signal, nil)
	}
}

// rejectMalformed replies with the decode error's own AVDTP error code,
// falling back to bad_length if err wasn't one of this package's wire errors.
func (m *Manager) rejectMalformed(ccb *CCB, msg *reassembledMessage, err error) {
	code := ErrBadLength
	if be, ok := err.(*btstack.Error); ok {
		code = ErrorCode(be.Reason)
	}
	m.sendRej(ccb, msg.Label, msg.Signal, RejectBody{ErrCode: code})
}
