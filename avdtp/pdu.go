package avdtp

import "github.com/rigado/btstack"

// SEID bounds, Core Spec Vol 3 Part A §8.20.
const (
	SEIDMin byte = 0x01
	SEIDMax byte = 0x3E
)

// encodeHeaderSingle builds a 2-byte SINGLE-packet header: transaction
// label + packet type + message type, followed by the signal id, ported
// from AVDT_MSG_BLD_HDR/AVDT_MSG_BLD_SIG for the SINGLE case.
func encodeHeaderSingle(label byte, msgType MsgType, sig Signal) []byte {
	return []byte{
		(label&0x0F)<<4 | byte(PktTypeSingle)<<2 | byte(msgType),
		byte(sig) & 0x3F,
	}
}

// encodeHeaderStart builds the 3-byte START-packet header: header byte,
// NOSP (number of subsequent packets), signal id.
func encodeHeaderStart(label byte, msgType MsgType, nosp byte, sig Signal) []byte {
	return []byte{
		(label&0x0F)<<4 | byte(PktTypeStart)<<2 | byte(msgType),
		nosp,
		byte(sig) & 0x3F,
	}
}

// encodeHeaderContOrEnd builds the 1-byte CONT/END-packet header.
func encodeHeaderContOrEnd(label byte, msgType MsgType, pkt PktType) []byte {
	return []byte{(label&0x0F)<<4 | byte(pkt)<<2 | byte(msgType)}
}

func decodeHeaderByte(b byte) (label byte, pkt PktType, msgType MsgType) {
	return b >> 4, PktType((b >> 2) & 0x03), MsgType(b & 0x03)
}

func encodeSEID(seid byte) byte { return (seid & 0x3F) << 2 }
func decodeSEID(b byte) byte    { return (b >> 2) & 0x3F }

// SEPInfo is one entry of a Discover response, ported from tAVDT_SEP_INFO.
type SEPInfo struct {
	SEID      byte
	InUse     bool
	MediaType byte
	TSEP      byte // 0 = source, 1 = sink
}

func encodeSEPInfo(i SEPInfo) [2]byte {
	var b [2]byte
	b[0] = encodeSEID(i.SEID)
	if i.InUse {
		b[0] |= 0x02
	}
	b[1] = (i.MediaType&0x0F)<<4 | (i.TSEP&0x01)<<3
	return b
}

func decodeSEPInfo(b []byte) SEPInfo {
	return SEPInfo{
		SEID:      decodeSEID(b[0]),
		InUse:     b[0]&0x02 != 0,
		MediaType: b[1] >> 4,
		TSEP:      (b[1] >> 3) & 0x01,
	}
}

// EncodeDiscoverResponse builds the body of a Discover response.
func EncodeDiscoverResponse(seps []SEPInfo) []byte {
	out := make([]byte, 0, len(seps)*2)
	for _, s := range seps {
		b := encodeSEPInfo(s)
		out = append(out, b[0], b[1])
	}
	return out
}

// DecodeDiscoverResponse parses the body of a Discover response.
func DecodeDiscoverResponse(body []byte) ([]SEPInfo, error) {
	if len(body)%2 != 0 {
		return nil, malformed(ErrBadLength, "discover response length not a multiple of 2")
	}
	seps := make([]SEPInfo, 0, len(body)/2)
	for i := 0; i < len(body); i += 2 {
		s := decodeSEPInfo(body[i : i+2])
		if s.SEID < SEIDMin || s.SEID > SEIDMax {
			return nil, malformed(ErrBadAcpSEID, "discover response: seid out of range")
		}
		seps = append(seps, s)
	}
	return seps, nil
}

// EncodeSingleSEID builds the body of any command whose payload is a
// single SEID (get_capabilities, get_configuration, open, close, abort,
// get_all_capabilities).
func EncodeSingleSEID(seid byte) []byte { return []byte{encodeSEID(seid)} }

// DecodeSingleSEID parses the body of a single-SEID command.
func DecodeSingleSEID(body []byte) (byte, error) {
	if len(body) != 1 {
		return 0, malformed(ErrBadLength, "expected single-seid body")
	}
	return decodeSEID(body[0]), nil
}

// EncodeMultiSEID builds the body of start/suspend, a list of SEIDs.
func EncodeMultiSEID(seids []byte) []byte {
	out := make([]byte, len(seids))
	for i, s := range seids {
		out[i] = encodeSEID(s)
	}
	return out
}

// DecodeMultiSEID parses the body of start/suspend.
func DecodeMultiSEID(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, malformed(ErrBadLength, "start/suspend requires at least one seid")
	}
	out := make([]byte, len(body))
	for i, b := range body {
		out[i] = decodeSEID(b)
	}
	return out, nil
}

// SetConfigCommand is the body of a Set Configuration or Reconfigure command.
type SetConfigCommand struct {
	ACPSEID byte
	INTSEID byte // only meaningful for set_configuration
	Config  *SepConfig
}

// EncodeSetConfigCommand builds a set_configuration command body.
func EncodeSetConfigCommand(c SetConfigCommand) []byte {
	out := []byte{encodeSEID(c.ACPSEID), encodeSEID(c.INTSEID)}
	return append(out, EncodeConfig(c.Config)...)
}

// DecodeSetConfigCommand parses a set_configuration command body.
func DecodeSetConfigCommand(body []byte) (*SetConfigCommand, error) {
	if len(body) < 2 {
		return nil, malformed(ErrBadLength, "set_configuration: truncated")
	}
	cfg, err := DecodeConfig(body[2:], SigSetConfig)
	if err != nil {
		return nil, err
	}
	if cfg.PSCMask&^uint16(legPSC|pscRecov|pscHdrcmp|pscMux) != 0 {
		return nil, malformed(ErrInvalidCapabilities, "set_configuration: unsupported psc bit")
	}
	if len(cfg.CodecInfo) == 0 {
		return nil, malformed(ErrInvalidCapabilities, "set_configuration: missing codec element")
	}
	return &SetConfigCommand{ACPSEID: decodeSEID(body[0]), INTSEID: decodeSEID(body[1]), Config: cfg}, nil
}

// EncodeReconfigCommand builds a reconfigure command body: only codec and
// content-protection elements are legal, per avdt_msg_bld_reconfig_cmd
// forcing psc_mask to zero before building.
func EncodeReconfigCommand(acpSEID byte, cfg *SepConfig) []byte {
	reconfig := &SepConfig{CodecInfo: cfg.CodecInfo, ProtectInfo: cfg.ProtectInfo}
	out := []byte{encodeSEID(acpSEID)}
	return append(out, EncodeConfig(reconfig)...)
}

// DecodeReconfigCommand parses a reconfigure command body.
func DecodeReconfigCommand(body []byte) (*SetConfigCommand, error) {
	if len(body) < 1 {
		return nil, malformed(ErrBadLength, "reconfigure: truncated")
	}
	cfg, err := DecodeConfig(body[1:], SigReconfig)
	if err != nil {
		return nil, err
	}
	if cfg.PSCMask != 0 || (len(cfg.CodecInfo) == 0 && len(cfg.ProtectInfo) == 0) {
		return nil, malformed(ErrInvalidCapabilities, "reconfigure: must carry only codec/protection elements")
	}
	return &SetConfigCommand{ACPSEID: decodeSEID(body[0]), Config: cfg}, nil
}

// EncodeGetCapResponse builds a get_capabilities/get_all_capabilities
// response body, trimming to the legacy PSC mask for plain get_capabilities.
func EncodeGetCapResponse(cfg *SepConfig, all bool) []byte {
	c := *cfg
	if !all {
		c.PSCMask &= legPSC
	}
	return EncodeConfig(&c)
}

// DecodeGetCapResponse parses a get_capabilities/get_all_capabilities response body.
func DecodeGetCapResponse(body []byte, all bool) (*SepConfig, error) {
	sig := SigGetCap
	if all {
		sig = SigGetAllCap
	}
	cfg, err := DecodeConfig(body, sig)
	if err != nil {
		return nil, err
	}
	if all {
		cfg.PSCMask &= legPSC | pscRecov | pscHdrcmp | pscMux
	} else {
		cfg.PSCMask &= legPSC
	}
	return cfg, nil
}

// SecurityControlPDU is the body of a security_control command or response.
type SecurityControlPDU struct {
	SEID byte // command only
	Data []byte
}

// EncodeSecurityCommand builds a security_control command body.
func EncodeSecurityCommand(seid byte, data []byte) []byte {
	return append([]byte{encodeSEID(seid)}, data...)
}

// DecodeSecurityCommand parses a security_control command body.
func DecodeSecurityCommand(body []byte) (*SecurityControlPDU, error) {
	if len(body) < 1 {
		return nil, malformed(ErrBadLength, "security_control: truncated")
	}
	return &SecurityControlPDU{SEID: decodeSEID(body[0]), Data: body[1:]}, nil
}

// EncodeDelayReport builds a delay_report command body: SEID + 16-bit delay
// in 1/10 ms units, big-endian.
func EncodeDelayReport(seid byte, delay uint16) []byte {
	return []byte{encodeSEID(seid), byte(delay >> 8), byte(delay)}
}

// DecodeDelayReport parses a delay_report command body.
func DecodeDelayReport(body []byte) (seid byte, delay uint16, err error) {
	if len(body) != 3 {
		return 0, 0, malformed(ErrBadLength, "delay_report: bad length")
	}
	return decodeSEID(body[0]), uint16(body[1])<<8 | uint16(body[2]), nil
}

// RejectBody is the body of a Reject message: an optional error parameter
// (SEID or configuration-element id, depending on signal) followed by the
// error code, ported from avdt_msg_prs_rej/avdt_msg_bld_ERR.
type RejectBody struct {
	ErrParam byte
	HasParam bool
	ErrCode  ErrorCode
}

// EncodeReject builds a reject-message body for sig.
func EncodeReject(sig Signal, r RejectBody) []byte {
	var out []byte
	if r.HasParam {
		switch sig {
		case SigSetConfig, SigReconfig:
			out = append(out, r.ErrParam)
		case SigStart, SigSuspend:
			out = append(out, encodeSEID(r.ErrParam))
		}
	}
	return append(out, byte(r.ErrCode))
}

// DecodeReject parses a reject-message body for sig.
func DecodeReject(sig Signal, body []byte) (RejectBody, error) {
	var r RejectBody
	switch sig {
	case SigSetConfig, SigReconfig:
		if len(body) > 0 {
			r.ErrParam, r.HasParam = body[0], true
			body = body[1:]
		}
	case SigStart, SigSuspend:
		if len(body) > 0 {
			r.ErrParam, r.HasParam = decodeSEID(body[0]), true
			body = body[1:]
		}
	}
	if len(body) < 1 {
		return r, malformed(ErrBadLength, "reject: missing error code")
	}
	r.ErrCode = ErrorCode(body[0])
	return r, nil
}

func wireError(code ErrorCode, msg string) error {
	return btstack.NewError(btstack.KindPeerFailure, byte(code), msg)
}
